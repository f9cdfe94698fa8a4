// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/perfana/perfana-adapt/pkg/validation"
	"github.com/perfana/perfana-adapt/services/adapt/datatypes"
)

// ApplicationWriter persists application documents.
type ApplicationWriter interface {
	UpsertApplication(ctx context.Context, app *datatypes.Application) error
}

// TestRunWriter persists new test run documents.
type TestRunWriter interface {
	InsertTestRun(ctx context.Context, tr *datatypes.TestRun) error
}

// ClassificationWriter persists metric classification records.
type ClassificationWriter interface {
	UpsertClassification(ctx context.Context, mc *datatypes.MetricClassification) error
}

// UpsertApplication registers or updates an application and its
// environment/test-type tree. Team-gated against the stored document
// so a team cannot take over another team's application.
func UpsertApplication(writer ApplicationWriter, apps ApplicationReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		var app datatypes.Application
		if err := c.ShouldBindJSON(&app); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid application payload: " + err.Error()})
			return
		}
		if err := validation.ValidateScopeName(app.Name); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if !authorizeApplication(c, apps, app.Name) {
			return
		}
		if err := writer.UpsertApplication(c.Request.Context(), &app); err != nil {
			slog.Error("failed to upsert application", "application", app.Name, "error", err)
			writeError(c, err)
			return
		}
		slog.Info("application upserted", "application", app.Name)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// CreateTestRun registers a test run. The surrounding platform calls
// this when a load test starts; evaluation happens later.
func CreateTestRun(writer TestRunWriter, apps ApplicationReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tr datatypes.TestRun
		if err := c.ShouldBindJSON(&tr); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid test run payload: " + err.Error()})
			return
		}
		if err := validation.ValidateTestRunID(tr.TestRunID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := validation.ValidateScope(tr.Application, tr.TestEnvironment, tr.TestType); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if !authorizeApplication(c, apps, tr.Application) {
			return
		}
		if err := writer.InsertTestRun(c.Request.Context(), &tr); err != nil {
			slog.Error("failed to insert test run", "testRunId", tr.TestRunID, "error", err)
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"status": "created", "testRunId": tr.TestRunID})
	}
}

// UpsertClassification writes one metric classification record.
func UpsertClassification(writer ClassificationWriter, apps ApplicationReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		var mc datatypes.MetricClassification
		if err := c.ShouldBindJSON(&mc); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid classification payload: " + err.Error()})
			return
		}
		if mc.Application != nil && !authorizeApplication(c, apps, *mc.Application) {
			return
		}
		if err := writer.UpsertClassification(c.Request.Context(), &mc); err != nil {
			slog.Error("failed to upsert classification", "error", err)
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
