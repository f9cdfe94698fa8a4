// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package store is the MongoDB access layer. Every entity lives in its
// own collection; cross-collection consistency on delete is compensating
// cleanup, not a distributed transaction.
package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/perfana/perfana-adapt/services/adapt/engine"
)

// Collection names.
const (
	collApplications           = "applications"
	collApplicationDashboards  = "applicationDashboards"
	collTestRuns               = "testRuns"
	collTestRunConfigs         = "testRunConfigs"
	collDsCompareConfigs       = "dsCompareConfig"
	collDsChangepoints         = "dsChangepoints"
	collDsControlGroups        = "dsControlGroups"
	collDsControlGroupStats    = "dsControlGroupStatistics"
	collDsMetricStatistics     = "dsMetricStatistics"
	collDsAdaptResults         = "dsAdaptResults"
	collDsAdaptTrackedResults  = "dsAdaptTrackedResults"
	collDsTrackedDifferences   = "dsTrackedDifferences"
	collDsPanels               = "dsPanels"
	collMetricClassifications  = "metricClassification"
	collSnapshots              = "snapshots"
	collCheckResults           = "checkResults"
	collCompareResults         = "compareResults"
)

// Store implements every engine store interface over one mongo
// database.
type Store struct {
	db *mongo.Database
}

// Compile-time interface checks.
var (
	_ engine.ApplicationStore       = (*Store)(nil)
	_ engine.TestRunStore           = (*Store)(nil)
	_ engine.ChangepointStore       = (*Store)(nil)
	_ engine.ControlGroupStore      = (*Store)(nil)
	_ engine.TrackedResultsStore    = (*Store)(nil)
	_ engine.TrackedDifferenceStore = (*Store)(nil)
	_ engine.CompareConfigStore     = (*Store)(nil)
	_ engine.ClassificationStore    = (*Store)(nil)
	_ engine.DashboardStore         = (*Store)(nil)
)

// New wraps an already-connected database.
func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

// Connect dials mongo and pings the primary before returning a Store.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return New(client.Database(database)), nil
}

// Disconnect closes the underlying client.
func (s *Store) Disconnect(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}
