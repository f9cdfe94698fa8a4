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

	"github.com/perfana/perfana-adapt/services/adapt/engine"
)

// GetComparisonBaseline resolves the previous run and fixed baseline
// for a test run. Pure read.
func GetComparisonBaseline(selector *engine.BaselineSelector, runs TestRunReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		testRunID, ok := testRunIDParam(c)
		if !ok {
			return
		}
		tr, err := runs.TestRunByID(c.Request.Context(), testRunID)
		if err != nil {
			writeError(c, err)
			return
		}
		if tr == nil {
			writeError(c, engine.ErrTestRunNotFound)
			return
		}
		baseline, err := selector.ResolveComparisonBaseline(c.Request.Context(), tr)
		if err != nil {
			slog.Error("failed to resolve comparison baseline", "testRunId", testRunID, "error", err)
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, baseline)
	}
}

// SetBaseline marks a test run as the fixed baseline for its scope and
// triggers re-evaluation of later runs. State is mutated before the
// dispatch; a dispatch failure after the local writes surfaces as an
// error but does not roll them back.
func SetBaseline(selector *engine.BaselineSelector, runs TestRunReader, apps ApplicationReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		testRunID, ok := testRunIDParam(c)
		if !ok {
			return
		}
		tr, err := runs.TestRunByID(c.Request.Context(), testRunID)
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
		if err := selector.SetTestRunAsBaseline(c.Request.Context(), tr); err != nil {
			slog.Error("failed to set baseline", "testRunId", testRunID, "error", err)
			writeError(c, err)
			return
		}
		slog.Info("baseline set", "testRunId", testRunID, "application", tr.Application)
		c.JSON(http.StatusOK, gin.H{"status": "ok", "baselineTestRunId": testRunID})
	}
}
