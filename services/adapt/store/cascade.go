// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/sync/errgroup"
)

// testRunDependentCollections are the collections holding documents
// keyed by testRunId that must be cleaned up when a run is deleted.
var testRunDependentCollections = []string{
	collTestRunConfigs,
	collDsMetricStatistics,
	collDsAdaptResults,
	collDsAdaptTrackedResults,
	collDsTrackedDifferences,
	collDsControlGroupStats,
	collDsPanels,
	collSnapshots,
	collCheckResults,
	collCompareResults,
}

// DeleteTestRunCascade removes a test run and every dependent document.
// The deletes are independent operations, not a transaction; a failure
// leaves earlier deletes in place, so callers may retry the whole
// cascade safely.
func (s *Store) DeleteTestRunCascade(ctx context.Context, testRunID string) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, coll := range testRunDependentCollections {
		coll := coll
		g.Go(func() error {
			if _, err := s.db.Collection(coll).DeleteMany(ctx, bson.M{"testRunId": testRunID}); err != nil {
				return fmt.Errorf("delete from %s: %w", coll, err)
			}
			return nil
		})
	}

	// Changepoints pointing at the run no longer mark a usable start.
	g.Go(func() error {
		if _, err := s.db.Collection(collDsChangepoints).DeleteMany(ctx, bson.M{"testRunId": testRunID}); err != nil {
			return fmt.Errorf("delete from %s: %w", collDsChangepoints, err)
		}
		return nil
	})

	// Control groups keyed by the run go away entirely; other groups
	// only lose the run from their member list.
	g.Go(func() error {
		if _, err := s.db.Collection(collDsControlGroups).DeleteMany(ctx, bson.M{"controlGroupId": testRunID}); err != nil {
			return fmt.Errorf("delete from %s: %w", collDsControlGroups, err)
		}
		if _, err := s.db.Collection(collDsControlGroups).UpdateMany(ctx,
			bson.M{"testRuns": testRunID},
			bson.M{"$pull": bson.M{"testRuns": testRunID}}); err != nil {
			return fmt.Errorf("prune control group members: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	if _, err := s.db.Collection(collTestRuns).DeleteOne(ctx, bson.M{"testRunId": testRunID}); err != nil {
		return fmt.Errorf("delete test run %q: %w", testRunID, err)
	}
	slog.Info("deleted test run and dependents", "testRunId", testRunID,
		"collections", len(testRunDependentCollections)+3)
	return nil
}
