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
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/perfana/perfana-adapt/services/adapt/datatypes"
	"github.com/perfana/perfana-adapt/services/adapt/engine"
)

// trackedRegressionPipeline matches tracked results that are still
// regressions for the candidate runs and joins the tracked test run for
// display metadata.
func trackedRegressionPipeline(testRunIDs []string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"testRunId":               bson.M{"$in": testRunIDs},
			"conclusion.label":        datatypes.ConclusionRegression,
			"trackedConclusion.label": datatypes.ConclusionRegression,
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         collTestRuns,
			"localField":   "trackedTestRunId",
			"foreignField": "testRunId",
			"as":           "testRun",
		}}},
		{{Key: "$unwind", Value: bson.M{
			"path":                       "$testRun",
			"preserveNullAndEmptyArrays": true,
		}}},
	}
}

func (s *Store) TrackedRegressions(ctx context.Context, testRunIDs []string) ([]engine.TrackedRegressionRow, error) {
	cur, err := s.db.Collection(collDsAdaptTrackedResults).
		Aggregate(ctx, trackedRegressionPipeline(testRunIDs))
	if err != nil {
		return nil, fmt.Errorf("aggregate tracked regressions: %w", err)
	}
	var out []engine.TrackedRegressionRow
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode tracked regressions: %w", err)
	}
	return out, nil
}

func (s *Store) SetStatusForTestRun(ctx context.Context, testRunID string, status datatypes.AcceptanceStatus) (int64, error) {
	res, err := s.db.Collection(collDsTrackedDifferences).UpdateMany(ctx,
		bson.M{"testRunId": testRunID},
		bson.M{"$set": bson.M{
			"status":     status,
			"resolvedAt": time.Now(),
		}})
	if err != nil {
		return 0, fmt.Errorf("update tracked differences for %q: %w", testRunID, err)
	}
	return res.ModifiedCount, nil
}
