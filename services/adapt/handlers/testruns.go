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
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/perfana/perfana-adapt/services/adapt/engine"
)

type batchEvaluateRequest struct {
	TestRunIDs   []string `json:"testRunIds" binding:"required,min=1"`
	Type         string   `json:"type" binding:"required,batchtype"`
	AdaptEnabled bool     `json:"adaptEnabled"`
}

// BatchEvaluate submits a user-selected set of test runs for
// re-evaluation or refresh. Validation is all-or-nothing; no batch is
// dispatched when any selected run fails a precondition.
func BatchEvaluate(coordinator *engine.BatchCoordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req batchEvaluateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch request: " + err.Error()})
			return
		}
		typ, err := engine.ParseBatchType(req.Type)
		if err != nil {
			writeError(c, err)
			return
		}
		if err := coordinator.BatchEvaluateSelectedTestRuns(c.Request.Context(), req.TestRunIDs, typ, req.AdaptEnabled); err != nil {
			slog.Error("batch evaluation failed",
				"type", req.Type, "testRuns", len(req.TestRunIDs), "error", err)
			writeError(c, err)
			return
		}
		slog.Info("batch evaluation dispatched",
			"type", req.Type, "testRuns", len(req.TestRunIDs), "adaptEnabled", req.AdaptEnabled)
		c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "testRuns": len(req.TestRunIDs)})
	}
}

// GetTestRun returns a single test run document.
func GetTestRun(runs TestRunReader) gin.HandlerFunc {
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
		c.JSON(http.StatusOK, tr)
	}
}

// ListTestRuns returns the most recent runs for a scope, newest first.
func ListTestRuns(runs TestRunReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		scope, ok := scopeFromQuery(c)
		if !ok {
			return
		}
		limit := int64(20)
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || parsed < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			limit = parsed
		}
		result, err := runs.RecentRuns(c.Request.Context(), scope, limit)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"testRuns": result})
	}
}

// DeleteTestRun removes a test run and every dependent document. The
// team check runs before anything is deleted.
func DeleteTestRun(runs TestRunReader, deleter TestRunDeleter, apps ApplicationReader) gin.HandlerFunc {
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
		if err := deleter.DeleteTestRunCascade(c.Request.Context(), testRunID); err != nil {
			slog.Error("failed to delete test run", "testRunId", testRunID, "error", err)
			writeError(c, err)
			return
		}
		slog.Info("test run deleted", "testRunId", testRunID, "application", tr.Application)
		c.JSON(http.StatusOK, gin.H{"status": "deleted", "testRunId": testRunID})
	}
}
