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

	"github.com/perfana/perfana-adapt/services/adapt/datatypes"
	"github.com/perfana/perfana-adapt/services/adapt/engine"
)

type resolveRegressionRequest struct {
	Status     string `json:"status" binding:"required,verdict"`
	ReEvaluate bool   `json:"reEvaluate"`
}

// ResolveRegression records a user verdict on a test run's observed
// differences and optionally propagates re-evaluation to later runs.
func ResolveRegression(resolver *engine.RegressionResolver, runs TestRunReader, apps ApplicationReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		testRunID, ok := testRunIDParam(c)
		if !ok {
			return
		}
		var req resolveRegressionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "a status of ACCEPTED or DENIED is required"})
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
		status := datatypes.AcceptanceStatus(req.Status)
		if err := resolver.ResolveRegression(c.Request.Context(), tr, status, req.ReEvaluate); err != nil {
			slog.Error("failed to resolve regression",
				"testRunId", testRunID, "status", req.Status, "error", err)
			writeError(c, err)
			return
		}
		slog.Info("regression resolved",
			"testRunId", testRunID, "status", req.Status, "reEvaluate", req.ReEvaluate)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// UpdateTrackedDifferences resolves the tracked difference documents
// that point at a test run and schedules that run for re-evaluation.
func UpdateTrackedDifferences(resolver *engine.RegressionResolver, runs TestRunReader, apps ApplicationReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		testRunID, ok := testRunIDParam(c)
		if !ok {
			return
		}
		var req struct {
			Status string `json:"status" binding:"required,verdict"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "a status of ACCEPTED or DENIED is required"})
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
		status := datatypes.AcceptanceStatus(req.Status)
		if err := resolver.UpdateTrackedDifferenceDetails(c.Request.Context(), testRunID, status); err != nil {
			slog.Error("failed to update tracked differences",
				"testRunId", testRunID, "status", req.Status, "error", err)
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
