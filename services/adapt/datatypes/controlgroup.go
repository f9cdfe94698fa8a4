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

// DsChangepoint marks the test run from which the current comparison
// population starts. It is a single mutable pointer per scope tuple,
// upserted rather than appended; optional panel/metric fields scope it
// down, nil meaning dashboard-wide.
type DsChangepoint struct {
	ID                     primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	Application            string             `json:"application" bson:"application"`
	TestEnvironment        string             `json:"testEnvironment" bson:"testEnvironment"`
	TestType               string             `json:"testType" bson:"testType"`
	TestRunID              string             `json:"testRunId" bson:"testRunId"`
	ApplicationDashboardID *string            `json:"applicationDashboardId" bson:"applicationDashboardId"`
	PanelID                *int               `json:"panelId" bson:"panelId"`
	MetricName             *string            `json:"metricName" bson:"metricName"`
	CreatedAt              time.Time          `json:"createdAt,omitempty" bson:"createdAt,omitempty"`
}

// DsControlGroup is the rolling comparison population for a scope,
// keyed by the baseline test run that opened it.
type DsControlGroup struct {
	ID              primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	Application     string             `json:"application" bson:"application"`
	TestEnvironment string             `json:"testEnvironment" bson:"testEnvironment"`
	TestType        string             `json:"testType" bson:"testType"`
	ControlGroupID  string             `json:"controlGroupId" bson:"controlGroupId"`
	TestRuns        []string           `json:"testRuns" bson:"testRuns"`
	FirstDatetime   time.Time          `json:"firstDatetime" bson:"firstDatetime"`
	LastDatetime    time.Time          `json:"lastDatetime" bson:"lastDatetime"`
}
