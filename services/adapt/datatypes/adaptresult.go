// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conclusion is the statistics engine's verdict for one metric.
type Conclusion struct {
	Label ConclusionLabel `json:"label" bson:"label"`
	Score float64         `json:"score,omitempty" bson:"score,omitempty"`
}

// DsAdaptResult is a per-metric per-test-run verdict written back by
// the statistics engine.
type DsAdaptResult struct {
	ID                     primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	Application            string             `json:"application" bson:"application"`
	TestEnvironment        string             `json:"testEnvironment" bson:"testEnvironment"`
	TestType               string             `json:"testType" bson:"testType"`
	TestRunID              string             `json:"testRunId" bson:"testRunId"`
	ApplicationDashboardID string             `json:"applicationDashboardId" bson:"applicationDashboardId"`
	DashboardLabel         string             `json:"dashboardLabel" bson:"dashboardLabel"`
	PanelID                int                `json:"panelId" bson:"panelId"`
	PanelTitle             string             `json:"panelTitle" bson:"panelTitle"`
	MetricName             string             `json:"metricName" bson:"metricName"`
	Conclusion             Conclusion         `json:"conclusion" bson:"conclusion"`
}

// DsAdaptTrackedResults carries a verdict forward across consecutive
// runs: Conclusion is the verdict for this run, TrackedConclusion the
// verdict being tracked since it first appeared on TrackedTestRunID.
type DsAdaptTrackedResults struct {
	ID                     primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	Application            string             `json:"application" bson:"application"`
	TestEnvironment        string             `json:"testEnvironment" bson:"testEnvironment"`
	TestType               string             `json:"testType" bson:"testType"`
	TestRunID              string             `json:"testRunId" bson:"testRunId"`
	TrackedTestRunID       string             `json:"trackedTestRunId" bson:"trackedTestRunId"`
	ApplicationDashboardID string             `json:"applicationDashboardId" bson:"applicationDashboardId"`
	DashboardLabel         string             `json:"dashboardLabel" bson:"dashboardLabel"`
	PanelID                int                `json:"panelId" bson:"panelId"`
	PanelTitle             string             `json:"panelTitle" bson:"panelTitle"`
	MetricName             string             `json:"metricName" bson:"metricName"`
	Conclusion             Conclusion         `json:"conclusion" bson:"conclusion"`
	TrackedConclusion      Conclusion         `json:"trackedConclusion" bson:"trackedConclusion"`
}

// DsTrackedDifferences records an operator-facing difference for a test
// run, resolved by an accept/deny decision.
type DsTrackedDifferences struct {
	ID         primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	TestRunID  string             `json:"testRunId" bson:"testRunId"`
	Status     AcceptanceStatus   `json:"status" bson:"status"`
	ResolvedBy string             `json:"resolvedBy,omitempty" bson:"resolvedBy,omitempty"`
	ResolvedAt time.Time          `json:"resolvedAt,omitempty" bson:"resolvedAt,omitempty"`
}

// RegressionMetricKey is the 5-tuple that identifies one metric inside
// a regression group. Grouping uses structural equality of the tuple.
type RegressionMetricKey struct {
	ApplicationDashboardID string `json:"applicationDashboardId"`
	DashboardLabel         string `json:"dashboardLabel"`
	PanelID                int    `json:"panelId"`
	PanelTitle             string `json:"panelTitle"`
	MetricName             string `json:"metricName"`
}

// UnresolvedRegression is one test run with at least one tracked
// regression still open, with one entry per distinct metric.
type UnresolvedRegression struct {
	TrackedTestRunID string                `json:"trackedTestRunId"`
	TestRun          *TestRun              `json:"testRun,omitempty"`
	Metrics          []RegressionMetricKey `json:"metrics"`
}
