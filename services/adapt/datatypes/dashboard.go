// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import "go.mongodb.org/mongo-driver/bson/primitive"

// ApplicationDashboard links a Grafana dashboard to an application and
// environment. RetentionDays bounds how far back the underlying
// datasource still holds raw data; a refresh of a run older than that
// cannot produce valid statistics.
type ApplicationDashboard struct {
	ID                     primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	Application            string             `json:"application" bson:"application"`
	TestEnvironment        string             `json:"testEnvironment" bson:"testEnvironment"`
	ApplicationDashboardID string             `json:"applicationDashboardId" bson:"applicationDashboardId"`
	DashboardLabel         string             `json:"dashboardLabel" bson:"dashboardLabel"`
	DashboardUID           string             `json:"dashboardUid" bson:"dashboardUid"`
	Grafana                string             `json:"grafana" bson:"grafana"`
	RetentionDays          int                `json:"retentionDays,omitempty" bson:"retentionDays,omitempty"`
}
