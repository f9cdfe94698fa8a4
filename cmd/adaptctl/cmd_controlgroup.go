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

var (
	cgApplication     string
	cgTestEnvironment string
	cgTestType        string
)

var controlGroupCmd = &cobra.Command{
	Use:   "control-group",
	Short: "Inspect and reset control groups",
}

var controlGroupShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the latest control group for a scope",
	Run: func(cmd *cobra.Command, args []string) {
		if err := validation.ValidateScope(cgApplication, cgTestEnvironment, cgTestType); err != nil {
			log.Fatalf("Invalid scope: %v", err)
		}
		client := newAPIClient()
		query := url.Values{}
		query.Set("application", cgApplication)
		query.Set("testEnvironment", cgTestEnvironment)
		query.Set("testType", cgTestType)
		var out map[string]any
		if err := client.call("GET", "/v1/control-group?"+query.Encode(), nil, &out); err != nil {
			log.Fatalf("Failed to get the control group: %v", err)
		}
		printJSON(out)
	},
}

var controlGroupResetCmd = &cobra.Command{
	Use:   "reset <testRunId>",
	Short: "Reset the control group from a test run onward",
	Long: `Resets the control group for the scope of the given run.

The run becomes the scope's change point, the test type switches to
BASELINE mode and every run ending at or after it is re-evaluated.
Use this after an intentional performance change so old runs stop
polluting the comparison population.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		testRunID, err := validation.SanitizeTestRunID(args[0])
		if err != nil {
			log.Fatalf("Invalid test run id: %v", err)
		}
		client := newAPIClient()
		body := map[string]string{"testRunId": testRunID}
		if err := client.call("POST", "/v1/control-group/reset", body, nil); err != nil {
			log.Fatalf("Failed to reset the control group: %v", err)
		}
		logger.Info("control group reset", "testRunId", testRunID)
		fmt.Printf("Control group reset from %s\n", testRunID)
	},
}

func init() {
	controlGroupShowCmd.Flags().StringVarP(&cgApplication, "application", "a", "", "Application name")
	controlGroupShowCmd.Flags().StringVarP(&cgTestEnvironment, "environment", "e", "", "Test environment name")
	controlGroupShowCmd.Flags().StringVarP(&cgTestType, "test-type", "t", "", "Test type (workload) name")
	_ = controlGroupShowCmd.MarkFlagRequired("application")
	_ = controlGroupShowCmd.MarkFlagRequired("environment")
	_ = controlGroupShowCmd.MarkFlagRequired("test-type")

	controlGroupCmd.AddCommand(controlGroupShowCmd)
	controlGroupCmd.AddCommand(controlGroupResetCmd)
}
