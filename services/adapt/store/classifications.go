// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/perfana/perfana-adapt/services/adapt/datatypes"
	"github.com/perfana/perfana-adapt/services/adapt/engine"
)

func (s *Store) PanelClassification(ctx context.Context, scope engine.Scope, dashboardID string, panelID int) (*datatypes.MetricClassification, error) {
	return s.findClassification(ctx, panelLevelSelector(scope, dashboardID, panelID))
}

func (s *Store) MetricClassification(ctx context.Context, scope engine.Scope, dashboardID string, panelID int, metricName string) (*datatypes.MetricClassification, error) {
	filter := panelLevelSelector(scope, dashboardID, panelID)
	filter["metricName"] = metricName
	return s.findClassification(ctx, filter)
}

// UpsertClassification enforces one record per scope tuple, mirroring
// the compare-config selector.
func (s *Store) UpsertClassification(ctx context.Context, mc *datatypes.MetricClassification) error {
	filter := bson.M{
		"application":            mc.Application,
		"testEnvironment":        mc.TestEnvironment,
		"testType":               mc.TestType,
		"applicationDashboardId": mc.ApplicationDashboardID,
		"panelId":                mc.PanelID,
		"metricName":             mc.MetricName,
	}
	_, err := s.db.Collection(collMetricClassifications).ReplaceOne(ctx, filter, mc,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert metric classification: %w", err)
	}
	return nil
}

func (s *Store) findClassification(ctx context.Context, filter bson.M) (*datatypes.MetricClassification, error) {
	var mc datatypes.MetricClassification
	err := s.db.Collection(collMetricClassifications).FindOne(ctx, filter).Decode(&mc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find metric classification: %w", err)
	}
	return &mc, nil
}
