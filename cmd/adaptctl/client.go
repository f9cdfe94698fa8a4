// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/perfana/perfana-adapt/cmd/adaptctl/config"
)

// apiClient is a thin wrapper around the adapt service's HTTP API.
// Every request carries a generated request id so server logs can be
// correlated with a CLI invocation.
type apiClient struct {
	baseURL string
	team    string
	http    *http.Client
}

func newAPIClient() *apiClient {
	timeout := time.Duration(config.Global.API.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &apiClient{
		baseURL: strings.TrimRight(config.Global.API.BaseURL, "/"),
		team:    config.Global.Team,
		http:    &http.Client{Timeout: timeout},
	}
}

// call sends a JSON request and decodes the JSON response into out
// (when out is non-nil). Non-2xx responses are returned as errors
// carrying the server's error message.
func (c *apiClient) call(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.team != "" {
		req.Header.Set("X-Perfana-Team", c.team)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call adapt service: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("adapt service returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("adapt service returned %d", resp.StatusCode)
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// printJSON renders a response for the terminal.
func printJSON(v any) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(raw))
}
