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

// GetEffectiveConfig resolves the effective comparison configuration
// for a metric. Lookups are best-effort; a scope with no overrides
// resolves to the built-in default rather than erroring.
func GetEffectiveConfig(resolver *engine.ConfigResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		var partial datatypes.DsCompareConfig
		if err := c.ShouldBindJSON(&partial); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid config payload: " + err.Error()})
			return
		}
		cfg, err := resolver.CompleteConfig(c.Request.Context(), partial)
		if err != nil {
			slog.Error("failed to resolve effective config", "error", err)
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, cfg)
	}
}

// UpsertCompareConfig writes one override record, cascading panel-level
// changes into metric-level records that still follow the panel.
func UpsertCompareConfig(resolver *engine.ConfigResolver, apps ApplicationReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		var cfg datatypes.DsCompareConfig
		if err := c.ShouldBindJSON(&cfg); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid config payload: " + err.Error()})
			return
		}
		if cfg.Application != nil && !authorizeApplication(c, apps, *cfg.Application) {
			return
		}
		if err := resolver.UpsertCompareConfig(c.Request.Context(), &cfg); err != nil {
			slog.Error("failed to upsert compare config", "error", err)
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// GetClassification resolves a metric classification with the
// metric -> panel -> UNKNOWN fallback.
func GetClassification(resolver *engine.ConfigResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		var partial datatypes.MetricClassification
		if err := c.ShouldBindJSON(&partial); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid classification payload: " + err.Error()})
			return
		}
		mc, err := resolver.ResolveClassification(c.Request.Context(), partial)
		if err != nil {
			slog.Error("failed to resolve classification", "error", err)
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, mc)
	}
}
