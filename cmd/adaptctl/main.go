// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/perfana/perfana-adapt/cmd/adaptctl/config"
	"github.com/perfana/perfana-adapt/pkg/logging"
)

var logger *logging.Logger

var rootCmd = &cobra.Command{
	Use:   "adaptctl",
	Short: "Operate the ADAPT regression-detection service",
	Long: `adaptctl talks to the adapt service's HTTP API.

It covers the operator workflows: declaring a fixed baseline,
resetting a control group, resolving observed regressions and
re-running evaluation for selected test runs.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if err := config.Load(); err != nil {
			log.Fatalf("Error loading the adaptctl config: %v", err)
		}
		level := logging.LevelInfo
		if config.Global.Logging.Debug {
			level = logging.LevelDebug
		}
		logger = logging.New(logging.Config{
			Level:   level,
			LogDir:  config.Global.Logging.Dir,
			Service: "adaptctl",
		})
	}
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Close()
		}
	}

	rootCmd.AddCommand(baselineCmd)
	rootCmd.AddCommand(controlGroupCmd)
	rootCmd.AddCommand(regressionCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(testRunCmd)
}
