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
	"strings"

	"github.com/spf13/cobra"

	"github.com/perfana/perfana-adapt/pkg/validation"
)

var (
	regressionAccept     bool
	regressionDeny       bool
	regressionReEvaluate bool
)

var regressionCmd = &cobra.Command{
	Use:   "regression",
	Short: "List and resolve observed regressions",
}

var regressionListCmd = &cobra.Command{
	Use:   "list <testRunId>",
	Short: "List unresolved regressions carried forward for a run's scope",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		testRunID, err := validation.SanitizeTestRunID(args[0])
		if err != nil {
			log.Fatalf("Invalid test run id: %v", err)
		}
		client := newAPIClient()
		var out map[string]any
		if err := client.call("GET", "/v1/test-runs/"+url.PathEscape(testRunID)+"/regressions", nil, &out); err != nil {
			log.Fatalf("Failed to list regressions: %v", err)
		}
		printJSON(out)
	},
}

var regressionResolveCmd = &cobra.Command{
	Use:   "resolve <testRunId>",
	Short: "Record a verdict on a run's observed differences",
	Long: `Records an accept or deny verdict for a test run.

Accepting declares the observed differences expected; denying
confirms them as real regressions. With --re-evaluate, the run and
every later run in scope are put back through evaluation so the
verdict propagates.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		testRunID, err := validation.SanitizeTestRunID(args[0])
		if err != nil {
			log.Fatalf("Invalid test run id: %v", err)
		}
		if regressionAccept == regressionDeny {
			log.Fatal("Exactly one of --accept or --deny is required")
		}
		status := "ACCEPTED"
		if regressionDeny {
			status = "DENIED"
		}
		client := newAPIClient()
		body := map[string]any{"status": status, "reEvaluate": regressionReEvaluate}
		if err := client.call("PUT", "/v1/test-runs/"+url.PathEscape(testRunID)+"/resolve-regression", body, nil); err != nil {
			log.Fatalf("Failed to resolve the regression: %v", err)
		}
		logger.Info("regression resolved",
			"testRunId", testRunID, "status", status, "reEvaluate", regressionReEvaluate)
		fmt.Printf("Regression on %s resolved as %s\n", testRunID, strings.ToLower(status))
	},
}

func init() {
	regressionResolveCmd.Flags().BoolVar(&regressionAccept, "accept", false,
		"Accept the observed differences as expected")
	regressionResolveCmd.Flags().BoolVar(&regressionDeny, "deny", false,
		"Confirm the observed differences as regressions")
	regressionResolveCmd.Flags().BoolVar(&regressionReEvaluate, "re-evaluate", false,
		"Re-evaluate this run and every later run in scope")

	regressionCmd.AddCommand(regressionListCmd)
	regressionCmd.AddCommand(regressionResolveCmd)
}
