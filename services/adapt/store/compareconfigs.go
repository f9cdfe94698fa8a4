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

// defaultLevelSelector matches the single default-level record: every
// scoping field null.
func defaultLevelSelector() bson.M {
	return bson.M{
		"application":            nil,
		"testEnvironment":        nil,
		"testType":               nil,
		"applicationDashboardId": nil,
		"panelId":                nil,
		"metricName":             nil,
	}
}

// panelLevelSelector matches the panel-level record for one panel:
// exact scope and panel, metricName null.
func panelLevelSelector(scope engine.Scope, dashboardID string, panelID int) bson.M {
	filter := scopeFilter(scope)
	filter["applicationDashboardId"] = dashboardID
	filter["panelId"] = panelID
	filter["metricName"] = nil
	return filter
}

func (s *Store) DefaultCompareConfig(ctx context.Context) (*datatypes.DsCompareConfig, error) {
	return s.findCompareConfig(ctx, defaultLevelSelector())
}

func (s *Store) PanelCompareConfig(ctx context.Context, scope engine.Scope, dashboardID string, panelID int) (*datatypes.DsCompareConfig, error) {
	return s.findCompareConfig(ctx, panelLevelSelector(scope, dashboardID, panelID))
}

func (s *Store) MetricCompareConfig(ctx context.Context, scope engine.Scope, dashboardID string, panelID int, metricName string) (*datatypes.DsCompareConfig, error) {
	filter := panelLevelSelector(scope, dashboardID, panelID)
	filter["metricName"] = metricName
	return s.findCompareConfig(ctx, filter)
}

func (s *Store) MetricCompareConfigsForPanel(ctx context.Context, scope engine.Scope, dashboardID string, panelID int) ([]datatypes.DsCompareConfig, error) {
	filter := panelLevelSelector(scope, dashboardID, panelID)
	filter["metricName"] = bson.M{"$ne": nil}
	cur, err := s.db.Collection(collDsCompareConfigs).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find metric compare configs: %w", err)
	}
	var out []datatypes.DsCompareConfig
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode compare configs: %w", err)
	}
	return out, nil
}

// UpsertCompareConfig replaces the record matching the full compound
// scope selector, inserting when absent. Null scope fields are part of
// the selector, which is what enforces one record per scope tuple.
func (s *Store) UpsertCompareConfig(ctx context.Context, cfg *datatypes.DsCompareConfig) error {
	filter := bson.M{
		"application":            cfg.Application,
		"testEnvironment":        cfg.TestEnvironment,
		"testType":               cfg.TestType,
		"applicationDashboardId": cfg.ApplicationDashboardID,
		"panelId":                cfg.PanelID,
		"metricName":             cfg.MetricName,
	}
	_, err := s.db.Collection(collDsCompareConfigs).ReplaceOne(ctx, filter, cfg,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert compare config: %w", err)
	}
	return nil
}

func (s *Store) findCompareConfig(ctx context.Context, filter bson.M) (*datatypes.DsCompareConfig, error) {
	var cfg datatypes.DsCompareConfig
	err := s.db.Collection(collDsCompareConfigs).FindOne(ctx, filter).Decode(&cfg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find compare config: %w", err)
	}
	return &cfg, nil
}
