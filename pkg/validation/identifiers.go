// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation provides input validation utilities for
// user-provided identifiers that end up in database selectors or
// request paths. Validating up front keeps malformed or hostile
// values out of queries.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// testRunIDPattern matches test run identifiers as the load-test
// integrations generate them: alphanumeric segments joined by hyphens
// or underscores, e.g. "MyAfterburner-acc-loadTest-00001".
var testRunIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._\-]{0,127}$`)

// scopeNamePattern matches application, environment and workload
// names. Spaces are allowed mid-name since teams use display names
// like "My Afterburner".
var scopeNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 ._\-]{0,63}$`)

// ValidateTestRunID validates a test run identifier.
//
// Valid identifiers are 1-128 characters, start with an alphanumeric
// and otherwise contain alphanumerics, dots, underscores or hyphens.
func ValidateTestRunID(testRunID string) error {
	if testRunID == "" {
		return fmt.Errorf("test run id cannot be empty")
	}
	if !testRunIDPattern.MatchString(testRunID) {
		return fmt.Errorf("invalid test run id: %q", testRunID)
	}
	return nil
}

// ValidateScopeName validates one scope field (application, test
// environment or test type name).
func ValidateScopeName(name string) error {
	if name == "" {
		return fmt.Errorf("scope name cannot be empty")
	}
	if !scopeNamePattern.MatchString(name) {
		return fmt.Errorf("invalid scope name: %q", name)
	}
	return nil
}

// ValidateScope validates the full (application, testEnvironment,
// testType) triple. Returns an error naming every field that failed.
func ValidateScope(application, testEnvironment, testType string) error {
	var invalid []string
	for _, field := range []struct {
		name  string
		value string
	}{
		{"application", application},
		{"testEnvironment", testEnvironment},
		{"testType", testType},
	} {
		if err := ValidateScopeName(field.value); err != nil {
			invalid = append(invalid, field.name)
		}
	}
	if len(invalid) > 0 {
		return fmt.Errorf("invalid scope fields: %v", invalid)
	}
	return nil
}

// SanitizeTestRunID trims whitespace and validates. Returns the
// cleaned id, or an error when validation fails.
func SanitizeTestRunID(testRunID string) (string, error) {
	trimmed := strings.TrimSpace(testRunID)
	if err := ValidateTestRunID(trimmed); err != nil {
		return "", err
	}
	return trimmed, nil
}
