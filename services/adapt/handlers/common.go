// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers exposes the ADAPT core over HTTP. Handlers are
// closures over their injected collaborators, keeping them testable
// with fakes.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"

	"github.com/perfana/perfana-adapt/pkg/validation"
	"github.com/perfana/perfana-adapt/services/adapt/datatypes"
	"github.com/perfana/perfana-adapt/services/adapt/engine"
)

// Create a new tracer
var adaptTracer = otel.Tracer("perfana.adapt.handlers")

// teamHeader carries the caller's team; the surrounding platform fills
// it in after authentication.
const teamHeader = "X-Perfana-Team"

// TestRunReader is the slice of the store the read handlers need.
type TestRunReader interface {
	TestRunByID(ctx context.Context, testRunID string) (*datatypes.TestRun, error)
	RecentRuns(ctx context.Context, scope engine.Scope, limit int64) ([]datatypes.TestRun, error)
}

// TestRunDeleter cascades a test-run delete across dependent
// collections.
type TestRunDeleter interface {
	DeleteTestRunCascade(ctx context.Context, testRunID string) error
}

// ApplicationReader resolves applications for authorization checks.
type ApplicationReader interface {
	ApplicationByName(ctx context.Context, name string) (*datatypes.Application, error)
}

// writeError maps engine sentinels onto HTTP statuses. Anything
// unrecognized is a 500.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, engine.ErrTestRunNotFound),
		errors.Is(err, engine.ErrApplicationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, engine.ErrInvalidResolution),
		errors.Is(err, engine.ErrMissingScope),
		errors.Is(err, engine.ErrUnknownBatchType):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, engine.ErrPastRetention):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, engine.ErrNotAuthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// authorizeApplication gates mutations: when the application carries a
// team, the caller's team header must match. The check runs before any
// state change.
func authorizeApplication(c *gin.Context, apps ApplicationReader, application string) bool {
	app, err := apps.ApplicationByName(c.Request.Context(), application)
	if err != nil {
		writeError(c, err)
		return false
	}
	if app == nil || app.Team == "" {
		return true
	}
	if c.GetHeader(teamHeader) != app.Team {
		writeError(c, engine.ErrNotAuthorized)
		return false
	}
	return true
}

func scopeFromQuery(c *gin.Context) (engine.Scope, bool) {
	scope := engine.Scope{
		Application:     c.Query("application"),
		TestEnvironment: c.Query("testEnvironment"),
		TestType:        c.Query("testType"),
	}
	if !scope.Valid() {
		writeError(c, engine.ErrMissingScope)
		return engine.Scope{}, false
	}
	if err := validation.ValidateScope(scope.Application, scope.TestEnvironment, scope.TestType); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return engine.Scope{}, false
	}
	return scope, true
}

// testRunIDParam extracts and validates the :testRunId path parameter.
func testRunIDParam(c *gin.Context) (string, bool) {
	id, err := validation.SanitizeTestRunID(c.Param("testRunId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return id, true
}
