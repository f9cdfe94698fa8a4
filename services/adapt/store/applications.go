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

func (s *Store) ApplicationByName(ctx context.Context, name string) (*datatypes.Application, error) {
	var app datatypes.Application
	err := s.db.Collection(collApplications).FindOne(ctx, bson.M{"name": name}).Decode(&app)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find application %q: %w", name, err)
	}
	return &app, nil
}

// UpsertApplication writes the whole document keyed by name.
func (s *Store) UpsertApplication(ctx context.Context, app *datatypes.Application) error {
	_, err := s.db.Collection(collApplications).ReplaceOne(ctx,
		bson.M{"name": app.Name}, app, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert application %q: %w", app.Name, err)
	}
	return nil
}

// testTypeArrayFilters addresses one test type inside the nested
// testEnvironments array so updates stay targeted instead of
// round-tripping the whole array.
func testTypeArrayFilters(scope engine.Scope) *options.UpdateOptions {
	return options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{
			bson.M{"env.name": scope.TestEnvironment},
			bson.M{"tt.name": scope.TestType},
		},
	})
}

func (s *Store) SetBaselineTestRun(ctx context.Context, scope engine.Scope, testRunID string) error {
	res, err := s.db.Collection(collApplications).UpdateOne(ctx,
		bson.M{"name": scope.Application},
		bson.M{"$set": bson.M{"testEnvironments.$[env].testTypes.$[tt].baselineTestRun": testRunID}},
		testTypeArrayFilters(scope))
	if err != nil {
		return fmt.Errorf("set baseline test run: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", engine.ErrApplicationNotFound, scope.Application)
	}
	return nil
}

func (s *Store) SetTestTypeAdaptMode(ctx context.Context, scope engine.Scope, mode datatypes.AdaptMode) error {
	res, err := s.db.Collection(collApplications).UpdateOne(ctx,
		bson.M{"name": scope.Application},
		bson.M{"$set": bson.M{"testEnvironments.$[env].testTypes.$[tt].adaptMode": mode}},
		testTypeArrayFilters(scope))
	if err != nil {
		return fmt.Errorf("set adapt mode: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", engine.ErrApplicationNotFound, scope.Application)
	}
	return nil
}
