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

func (s *Store) LatestForScope(ctx context.Context, scope engine.Scope) (*datatypes.DsControlGroup, error) {
	var cg datatypes.DsControlGroup
	err := s.db.Collection(collDsControlGroups).
		FindOne(ctx, scopeFilter(scope),
			options.FindOne().SetSort(bson.D{{Key: "lastDatetime", Value: -1}})).
		Decode(&cg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find control group: %w", err)
	}
	return &cg, nil
}

