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

	"go.mongodb.org/mongo-driver/bson"

	"github.com/perfana/perfana-adapt/services/adapt/datatypes"
)

func (s *Store) DashboardsForEnvironment(ctx context.Context, application, testEnvironment string) ([]datatypes.ApplicationDashboard, error) {
	cur, err := s.db.Collection(collApplicationDashboards).Find(ctx, bson.M{
		"application":     application,
		"testEnvironment": testEnvironment,
	})
	if err != nil {
		return nil, fmt.Errorf("find application dashboards: %w", err)
	}
	var out []datatypes.ApplicationDashboard
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode application dashboards: %w", err)
	}
	return out, nil
}
