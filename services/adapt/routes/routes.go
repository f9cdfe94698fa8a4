// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/perfana/perfana-adapt/services/adapt/engine"
	"github.com/perfana/perfana-adapt/services/adapt/handlers"
	"github.com/perfana/perfana-adapt/services/adapt/store"
)

func SetupRoutes(router *gin.Engine, st *store.Store,
	configResolver *engine.ConfigResolver,
	baselineSelector *engine.BaselineSelector,
	controlGroupTracker *engine.ControlGroupTracker,
	regressionResolver *engine.RegressionResolver,
	batchCoordinator *engine.BatchCoordinator) {

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	{
		config := v1.Group("/config")
		{
			config.POST("/effective", handlers.GetEffectiveConfig(configResolver))
			config.PUT("", handlers.UpsertCompareConfig(configResolver, st))
		}
		v1.POST("/classification", handlers.GetClassification(configResolver))
		v1.PUT("/classification", handlers.UpsertClassification(st, st))
		v1.PUT("/applications", handlers.UpsertApplication(st, st))

		testRuns := v1.Group("/test-runs")
		{
			testRuns.GET("", handlers.ListTestRuns(st))
			testRuns.POST("", handlers.CreateTestRun(st, st))
			testRuns.POST("/batch-evaluate", handlers.BatchEvaluate(batchCoordinator))
			testRuns.GET("/:testRunId", handlers.GetTestRun(st))
			testRuns.DELETE("/:testRunId", handlers.DeleteTestRun(st, st, st))
			testRuns.GET("/:testRunId/baseline", handlers.GetComparisonBaseline(baselineSelector, st))
			testRuns.PUT("/:testRunId/baseline", handlers.SetBaseline(baselineSelector, st, st))
			testRuns.GET("/:testRunId/regressions", handlers.GetUnresolvedRegressions(controlGroupTracker, st))
			testRuns.PUT("/:testRunId/resolve-regression", handlers.ResolveRegression(regressionResolver, st, st))
			testRuns.PUT("/:testRunId/tracked-differences", handlers.UpdateTrackedDifferences(regressionResolver, st, st))
		}

		controlGroup := v1.Group("/control-group")
		{
			controlGroup.GET("", handlers.GetControlGroup(controlGroupTracker))
			controlGroup.POST("/reset", handlers.ResetControlGroup(controlGroupTracker, st, st))
		}
	}
}
