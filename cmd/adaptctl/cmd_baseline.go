// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"log"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/perfana/perfana-adapt/pkg/validation"
)

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Inspect and set fixed baselines",
}

var baselineGetCmd = &cobra.Command{
	Use:   "get <testRunId>",
	Short: "Show the comparison baseline for a test run",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		testRunID, err := validation.SanitizeTestRunID(args[0])
		if err != nil {
			log.Fatalf("Invalid test run id: %v", err)
		}
		client := newAPIClient()
		var out map[string]any
		if err := client.call("GET", "/v1/test-runs/"+url.PathEscape(testRunID)+"/baseline", nil, &out); err != nil {
			log.Fatalf("Failed to get the baseline: %v", err)
		}
		printJSON(out)
	},
}

var baselineSetCmd = &cobra.Command{
	Use:   "set <testRunId>",
	Short: "Declare a test run the fixed baseline for its scope",
	Long: `Declares the given run the fixed baseline.

The run's differences are marked accepted, the scope's change point
moves to this run and every later run in scope is re-evaluated
against the new baseline.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		testRunID, err := validation.SanitizeTestRunID(args[0])
		if err != nil {
			log.Fatalf("Invalid test run id: %v", err)
		}
		client := newAPIClient()
		var out map[string]any
		if err := client.call("PUT", "/v1/test-runs/"+url.PathEscape(testRunID)+"/baseline", nil, &out); err != nil {
			log.Fatalf("Failed to set the baseline: %v", err)
		}
		logger.Info("baseline set", "testRunId", testRunID)
		fmt.Printf("Baseline set to %s\n", testRunID)
	},
}

func init() {
	baselineCmd.AddCommand(baselineGetCmd)
	baselineCmd.AddCommand(baselineSetCmd)
}
