// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bufio"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/perfana/perfana-adapt/pkg/validation"
)

var testRunDeleteYes bool

var testRunCmd = &cobra.Command{
	Use:   "test-run",
	Short: "Inspect and delete test runs",
}

var testRunShowCmd = &cobra.Command{
	Use:   "show <testRunId>",
	Short: "Show a test run document",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		testRunID, err := validation.SanitizeTestRunID(args[0])
		if err != nil {
			log.Fatalf("Invalid test run id: %v", err)
		}
		client := newAPIClient()
		var out map[string]any
		if err := client.call("GET", "/v1/test-runs/"+url.PathEscape(testRunID), nil, &out); err != nil {
			log.Fatalf("Failed to get the test run: %v", err)
		}
		printJSON(out)
	},
}

var testRunDeleteCmd = &cobra.Command{
	Use:   "delete <testRunId>",
	Short: "Delete a test run and all its derived documents",
	Long: `Deletes a test run together with its results, snapshots,
comparison documents and control-group membership. This cannot be
undone.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		testRunID, err := validation.SanitizeTestRunID(args[0])
		if err != nil {
			log.Fatalf("Invalid test run id: %v", err)
		}
		if !testRunDeleteYes && !confirm(fmt.Sprintf("Delete test run %s and all derived data?", testRunID)) {
			fmt.Println("Aborted")
			return
		}
		client := newAPIClient()
		if err := client.call("DELETE", "/v1/test-runs/"+url.PathEscape(testRunID), nil, nil); err != nil {
			log.Fatalf("Failed to delete the test run: %v", err)
		}
		logger.Info("test run deleted", "testRunId", testRunID)
		fmt.Printf("Deleted %s\n", testRunID)
	},
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func init() {
	testRunDeleteCmd.Flags().BoolVarP(&testRunDeleteYes, "yes", "y", false,
		"Skip the confirmation prompt")

	testRunCmd.AddCommand(testRunShowCmd)
	testRunCmd.AddCommand(testRunDeleteCmd)
}
