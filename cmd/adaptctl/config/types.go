// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

// AdaptctlConfig is the on-disk CLI configuration, stored at
// ~/.perfana/adaptctl.yaml.
type AdaptctlConfig struct {
	// API describes how to reach the adapt service.
	API APIConfig `yaml:"api"`

	// Team is sent as the caller's team on mutating requests. Leave
	// empty when applications are not team-gated.
	Team string `yaml:"team,omitempty"`

	// Logging controls CLI log output.
	Logging LoggingConfig `yaml:"logging"`
}

type APIConfig struct {
	// BaseURL of the adapt service, e.g. "http://localhost:12220".
	BaseURL string `yaml:"base_url"`

	// TimeoutSeconds bounds each request. Zero means the default.
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty"`
}

type LoggingConfig struct {
	// Dir receives JSON log files when set, e.g. "~/.perfana/logs".
	Dir string `yaml:"dir,omitempty"`

	// Debug enables debug-level output.
	Debug bool `yaml:"debug,omitempty"`
}

// DefaultConfig returns the config written on first run.
func DefaultConfig() AdaptctlConfig {
	return AdaptctlConfig{
		API: APIConfig{
			BaseURL:        "http://localhost:12220",
			TimeoutSeconds: 30,
		},
		Logging: LoggingConfig{
			Dir: "~/.perfana/logs",
		},
	}
}
