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

	"github.com/spf13/cobra"

	"github.com/perfana/perfana-adapt/pkg/validation"
)

var (
	batchType         string
	batchAdaptEnabled bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <testRunId> [testRunId...]",
	Short: "Re-evaluate or refresh a selection of test runs",
	Long: `Submits selected test runs for batch processing.

RE_EVALUATE re-runs the comparison pipeline; REFRESH additionally
re-reads the source metric data, which only works while the data is
still within the dashboard's retention window. Validation is
all-or-nothing: one bad run rejects the whole selection.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ids := make([]string, 0, len(args))
		for _, arg := range args {
			id, err := validation.SanitizeTestRunID(arg)
			if err != nil {
				log.Fatalf("Invalid test run id: %v", err)
			}
			ids = append(ids, id)
		}
		client := newAPIClient()
		body := map[string]any{
			"testRunIds":   ids,
			"type":         batchType,
			"adaptEnabled": batchAdaptEnabled,
		}
		var out map[string]any
		if err := client.call("POST", "/v1/test-runs/batch-evaluate", body, &out); err != nil {
			log.Fatalf("Batch submission failed: %v", err)
		}
		logger.Info("batch submitted", "type", batchType, "testRuns", len(ids))
		fmt.Printf("Submitted %d test run(s) for %s\n", len(ids), batchType)
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchType, "type", "RE_EVALUATE",
		"Batch type: RE_EVALUATE or REFRESH")
	batchCmd.Flags().BoolVar(&batchAdaptEnabled, "adapt", true,
		"Run the ADAPT analysis as part of the batch")
}
