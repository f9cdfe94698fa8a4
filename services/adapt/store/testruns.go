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

func scopeFilter(scope engine.Scope) bson.M {
	return bson.M{
		"application":     scope.Application,
		"testEnvironment": scope.TestEnvironment,
		"testType":        scope.TestType,
	}
}

func (s *Store) TestRunByID(ctx context.Context, testRunID string) (*datatypes.TestRun, error) {
	var tr datatypes.TestRun
	err := s.db.Collection(collTestRuns).FindOne(ctx, bson.M{"testRunId": testRunID}).Decode(&tr)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find test run %q: %w", testRunID, err)
	}
	return &tr, nil
}

// InsertTestRun stores a newly completed run.
func (s *Store) InsertTestRun(ctx context.Context, tr *datatypes.TestRun) error {
	_, err := s.db.Collection(collTestRuns).InsertOne(ctx, tr)
	if err != nil {
		return fmt.Errorf("insert test run %q: %w", tr.TestRunID, err)
	}
	return nil
}

func (s *Store) LatestBefore(ctx context.Context, scope engine.Scope, before time.Time) (*datatypes.TestRun, error) {
	filter := scopeFilter(scope)
	filter["end"] = bson.M{"$lt": before}
	filter["completed"] = true
	filter["abort"] = bson.M{"$ne": true}
	filter["expired"] = bson.M{"$ne": true}
	filter["valid"] = bson.M{"$ne": false}

	var tr datatypes.TestRun
	err := s.db.Collection(collTestRuns).
		FindOne(ctx, filter, options.FindOne().SetSort(bson.D{{Key: "end", Value: -1}})).
		Decode(&tr)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find previous test run: %w", err)
	}
	return &tr, nil
}

func (s *Store) RunsEndingAtOrAfter(ctx context.Context, scope engine.Scope, from time.Time, excludeDebug bool) ([]datatypes.TestRun, error) {
	filter := scopeFilter(scope)
	filter["end"] = bson.M{"$gte": from}
	filter["expired"] = bson.M{"$ne": true}
	if excludeDebug {
		filter["adapt.mode"] = bson.M{"$ne": datatypes.AdaptModeDebug}
	}
	return s.findRuns(ctx, filter, bson.D{{Key: "end", Value: 1}})
}

func (s *Store) RunsStartingAfter(ctx context.Context, scope engine.Scope, after time.Time) ([]datatypes.TestRun, error) {
	filter := scopeFilter(scope)
	filter["start"] = bson.M{"$gt": after}
	filter["adapt.differencesAccepted"] = bson.M{"$ne": datatypes.AcceptanceAccepted}
	filter["adapt.mode"] = bson.M{"$ne": datatypes.AdaptModeDebug}
	return s.findRuns(ctx, filter, bson.D{{Key: "start", Value: 1}})
}

// RecentRuns returns the latest runs in scope, newest first, for the
// read API.
func (s *Store) RecentRuns(ctx context.Context, scope engine.Scope, limit int64) ([]datatypes.TestRun, error) {
	cur, err := s.db.Collection(collTestRuns).Find(ctx, scopeFilter(scope),
		options.Find().SetSort(bson.D{{Key: "end", Value: -1}}).SetLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("find test runs: %w", err)
	}
	var out []datatypes.TestRun
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode test runs: %w", err)
	}
	return out, nil
}

func (s *Store) findRuns(ctx context.Context, filter bson.M, sort bson.D) ([]datatypes.TestRun, error) {
	cur, err := s.db.Collection(collTestRuns).Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, fmt.Errorf("find test runs: %w", err)
	}
	var out []datatypes.TestRun
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode test runs: %w", err)
	}
	return out, nil
}

func (s *Store) SetDifferencesAccepted(ctx context.Context, testRunID string, status datatypes.AcceptanceStatus) error {
	return s.updateRun(ctx, testRunID, bson.M{"adapt.differencesAccepted": status})
}

func (s *Store) SetAdaptMode(ctx context.Context, testRunID string, mode datatypes.AdaptMode) error {
	return s.updateRun(ctx, testRunID, bson.M{"adapt.mode": mode})
}

func (s *Store) SetEvaluatingAdapt(ctx context.Context, testRunID string, status datatypes.EvaluationStatus) error {
	return s.updateRun(ctx, testRunID, bson.M{
		"status.evaluatingAdapt": status,
		"status.lastUpdate":      time.Now(),
	})
}

func (s *Store) MarkValid(ctx context.Context, testRunID string) error {
	_, err := s.db.Collection(collTestRuns).UpdateOne(ctx,
		bson.M{"testRunId": testRunID},
		bson.M{
			"$set":   bson.M{"valid": true},
			"$unset": bson.M{"reasonsNotValid": ""},
		})
	if err != nil {
		return fmt.Errorf("mark test run %q valid: %w", testRunID, err)
	}
	return nil
}

func (s *Store) updateRun(ctx context.Context, testRunID string, set bson.M) error {
	res, err := s.db.Collection(collTestRuns).UpdateOne(ctx,
		bson.M{"testRunId": testRunID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update test run %q: %w", testRunID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", engine.ErrTestRunNotFound, testRunID)
	}
	return nil
}
