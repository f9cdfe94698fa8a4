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
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/perfana/perfana-adapt/services/adapt/datatypes"
	"github.com/perfana/perfana-adapt/services/adapt/engine"
)

// scopeWideChangepointSelector matches the single dashboard-wide
// changepoint for a scope: panel and metric scoping explicitly null.
func scopeWideChangepointSelector(scope engine.Scope) bson.M {
	filter := scopeFilter(scope)
	filter["applicationDashboardId"] = nil
	filter["panelId"] = nil
	filter["metricName"] = nil
	return filter
}

func (s *Store) UpsertScopeWide(ctx context.Context, scope engine.Scope, testRunID string) error {
	// Overwrite semantics are intentional: only the latest changepoint
	// matters, last writer wins.
	_, err := s.db.Collection(collDsChangepoints).UpdateOne(ctx,
		scopeWideChangepointSelector(scope),
		bson.M{"$set": bson.M{
			"testRunId": testRunID,
			"createdAt": time.Now(),
		}},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert changepoint: %w", err)
	}
	return nil
}

func (s *Store) ActiveForScope(ctx context.Context, scope engine.Scope) (*datatypes.DsChangepoint, error) {
	var cp datatypes.DsChangepoint
	err := s.db.Collection(collDsChangepoints).
		FindOne(ctx, scopeWideChangepointSelector(scope)).Decode(&cp)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find changepoint: %w", err)
	}
	return &cp, nil
}
