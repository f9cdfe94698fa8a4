// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import "errors"

// Sentinel errors for the engine package.
var (
	// ErrUnknownBatchType indicates a batch dispatch with a type outside
	// the sealed ReEvaluate/Refresh set. This is a programming error.
	ErrUnknownBatchType = errors.New("unknown batch process type")

	// ErrPastRetention indicates a refresh request for a test run that has
	// aged out of at least one dashboard's retention period.
	ErrPastRetention = errors.New("test run is past the retention period of one or more dashboards")

	// ErrTestRunNotFound indicates the requested test run does not exist.
	ErrTestRunNotFound = errors.New("test run not found")

	// ErrApplicationNotFound indicates the owning application document is
	// missing.
	ErrApplicationNotFound = errors.New("application not found")

	// ErrInvalidResolution indicates a regression resolution with a status
	// other than ACCEPTED or DENIED.
	ErrInvalidResolution = errors.New("resolution status must be ACCEPTED or DENIED")

	// ErrMissingScope indicates a lookup without the required
	// application/testEnvironment/testType scope fields.
	ErrMissingScope = errors.New("application, testEnvironment and testType are required")

	// ErrNotAuthorized indicates the caller may not mutate the target
	// application.
	ErrNotAuthorized = errors.New("not authorized for this application")
)
