// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/perfana/perfana-adapt/services/adapt/engine"
)

// ResetControlGroup discards the accumulated control group for the
// scope of the given test run and forces later runs back through
// evaluation in BASELINE mode.
func ResetControlGroup(tracker *engine.ControlGroupTracker, runs TestRunReader, apps ApplicationReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			TestRunID string `json:"testRunId" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "testRunId is required"})
			return
		}
		tr, err := runs.TestRunByID(c.Request.Context(), req.TestRunID)
		if err != nil {
			writeError(c, err)
			return
		}
		if tr == nil {
			writeError(c, engine.ErrTestRunNotFound)
			return
		}
		if !authorizeApplication(c, apps, tr.Application) {
			return
		}
		if err := tracker.ResetControlGroup(c.Request.Context(), req.TestRunID); err != nil {
			slog.Error("failed to reset control group", "testRunId", req.TestRunID, "error", err)
			writeError(c, err)
			return
		}
		slog.Info("control group reset", "testRunId", req.TestRunID)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// GetUnresolvedRegressions lists the unresolved regressions that are
// still being carried forward for the scope of a test run, grouped by
// the run where they were first observed.
func GetUnresolvedRegressions(tracker *engine.ControlGroupTracker, runs TestRunReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := adaptTracer.Start(c.Request.Context(), "GetUnresolvedRegressions")
		defer span.End()

		testRunID, ok := testRunIDParam(c)
		if !ok {
			return
		}
		span.SetAttributes(attribute.String("testRunId", testRunID))

		tr, err := runs.TestRunByID(ctx, testRunID)
		if err != nil {
			writeError(c, err)
			return
		}
		if tr == nil {
			writeError(c, engine.ErrTestRunNotFound)
			return
		}
		regressions, err := tracker.GetUnresolvedRegression(ctx, engine.ScopeOf(tr))
		if err != nil {
			slog.Error("failed to collect unresolved regressions", "testRunId", testRunID, "error", err)
			writeError(c, err)
			return
		}
		span.SetAttributes(attribute.Int("regressionCount", len(regressions)))
		c.JSON(http.StatusOK, gin.H{"testRunId": testRunID, "regressions": regressions})
	}
}

// GetControlGroup returns the most recent control group for a scope
// given as query parameters.
func GetControlGroup(tracker *engine.ControlGroupTracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		scope, ok := scopeFromQuery(c)
		if !ok {
			return
		}
		cg, err := tracker.ControlGroupForScope(c.Request.Context(), scope)
		if err != nil {
			writeError(c, err)
			return
		}
		if cg == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no control group for scope"})
			return
		}
		c.JSON(http.StatusOK, cg)
	}
}
