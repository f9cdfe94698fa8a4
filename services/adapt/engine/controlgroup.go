// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/perfana/perfana-adapt/services/adapt/datatypes"
)

// ControlGroupTracker maintains the rolling comparison population for a
// scope and answers the unresolved-regression query against it.
type ControlGroupTracker struct {
	apps          ApplicationStore
	runs          TestRunStore
	changepoints  ChangepointStore
	controlGroups ControlGroupStore
	tracked       TrackedResultsStore
	dispatcher    BatchDispatcher
}

// NewControlGroupTracker builds a tracker over the given stores.
func NewControlGroupTracker(apps ApplicationStore, runs TestRunStore, changepoints ChangepointStore,
	controlGroups ControlGroupStore, tracked TrackedResultsStore, dispatcher BatchDispatcher) *ControlGroupTracker {
	return &ControlGroupTracker{
		apps:          apps,
		runs:          runs,
		changepoints:  changepoints,
		controlGroups: controlGroups,
		tracked:       tracked,
		dispatcher:    dispatcher,
	}
}

// ResetControlGroup declares the given run the start of a fresh
// comparison population: scope-wide change point at the run, adapt mode
// BASELINE on the test type, then RE_EVALUATE for every run ending at
// or after it.
func (t *ControlGroupTracker) ResetControlGroup(ctx context.Context, testRunID string) error {
	tr, err := t.runs.TestRunByID(ctx, testRunID)
	if err != nil {
		return fmt.Errorf("test run lookup: %w", err)
	}
	if tr == nil {
		return fmt.Errorf("%w: %s", ErrTestRunNotFound, testRunID)
	}
	scope := ScopeOf(tr)

	if err := t.changepoints.UpsertScopeWide(ctx, scope, tr.TestRunID); err != nil {
		return fmt.Errorf("upsert changepoint: %w", err)
	}

	later, err := t.runs.RunsEndingAtOrAfter(ctx, scope, tr.End, false)
	if err != nil {
		return fmt.Errorf("impacted test runs lookup: %w", err)
	}

	if err := t.apps.SetTestTypeAdaptMode(ctx, scope, datatypes.AdaptModeBaseline); err != nil {
		return fmt.Errorf("set adapt mode: %w", err)
	}

	ids := testRunIDs(later)
	if len(ids) == 0 {
		return nil
	}
	slog.Info("dispatching re-evaluation after control group reset",
		"application", scope.Application, "testEnvironment", scope.TestEnvironment,
		"testType", scope.TestType, "from", tr.TestRunID, "testRuns", len(ids))
	if err := t.dispatcher.CallBatchProcess(ctx, BatchReEvaluate, ids, true); err != nil {
		return fmt.Errorf("dispatch re-evaluate batch: %w", err)
	}
	return nil
}

// GetUnresolvedRegression returns, per test run, the distinct metrics
// still tracked as regressions. The candidate window starts at the
// active change point when one exists, otherwise at the latest control
// group's first datetime. A scope with neither yields an empty result.
func (t *ControlGroupTracker) GetUnresolvedRegression(ctx context.Context, scope Scope) ([]datatypes.UnresolvedRegression, error) {
	if !scope.Valid() {
		return nil, ErrMissingScope
	}

	cp, err := t.changepoints.ActiveForScope(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("changepoint lookup: %w", err)
	}

	var candidates []datatypes.TestRun
	switch {
	case cp != nil:
		cpRun, err := t.runs.TestRunByID(ctx, cp.TestRunID)
		if err != nil {
			return nil, fmt.Errorf("changepoint test run lookup: %w", err)
		}
		if cpRun == nil {
			return []datatypes.UnresolvedRegression{}, nil
		}
		candidates, err = t.runs.RunsStartingAfter(ctx, scope, cpRun.Start)
		if err != nil {
			return nil, fmt.Errorf("candidate test runs lookup: %w", err)
		}
	default:
		cg, err := t.controlGroups.LatestForScope(ctx, scope)
		if err != nil {
			return nil, fmt.Errorf("control group lookup: %w", err)
		}
		if cg == nil {
			// No changepoint and no control group: nothing to compare
			// against, so nothing can be unresolved.
			return []datatypes.UnresolvedRegression{}, nil
		}
		candidates, err = t.runs.RunsStartingAfter(ctx, scope, cg.FirstDatetime)
		if err != nil {
			return nil, fmt.Errorf("candidate test runs lookup: %w", err)
		}
	}
	if len(candidates) == 0 {
		return []datatypes.UnresolvedRegression{}, nil
	}

	rows, err := t.tracked.TrackedRegressions(ctx, testRunIDs(candidates))
	if err != nil {
		return nil, fmt.Errorf("tracked regressions aggregation: %w", err)
	}
	return groupTrackedRegressions(rows), nil
}

// groupTrackedRegressions groups rows by trackedTestRunId, then by the
// structural 5-tuple metric key within each run, producing one entry
// per distinct metric regression per run. Output order follows first
// appearance so results are deterministic for a given row order, and
// group contents are independent of row order.
func groupTrackedRegressions(rows []TrackedRegressionRow) []datatypes.UnresolvedRegression {
	out := []datatypes.UnresolvedRegression{}
	byRun := map[string]int{}
	seen := map[string]map[datatypes.RegressionMetricKey]bool{}

	for _, row := range rows {
		idx, ok := byRun[row.TrackedTestRunID]
		if !ok {
			idx = len(out)
			byRun[row.TrackedTestRunID] = idx
			seen[row.TrackedTestRunID] = map[datatypes.RegressionMetricKey]bool{}
			out = append(out, datatypes.UnresolvedRegression{
				TrackedTestRunID: row.TrackedTestRunID,
				TestRun:          row.TestRun,
			})
		}
		key := datatypes.RegressionMetricKey{
			ApplicationDashboardID: row.ApplicationDashboardID,
			DashboardLabel:         row.DashboardLabel,
			PanelID:                row.PanelID,
			PanelTitle:             row.PanelTitle,
			MetricName:             row.MetricName,
		}
		if seen[row.TrackedTestRunID][key] {
			continue
		}
		seen[row.TrackedTestRunID][key] = true
		out[idx].Metrics = append(out[idx].Metrics, key)
	}
	return out
}

// ControlGroupForScope exposes the latest control group, used by the
// read API for display.
func (t *ControlGroupTracker) ControlGroupForScope(ctx context.Context, scope Scope) (*datatypes.DsControlGroup, error) {
	if !scope.Valid() {
		return nil, ErrMissingScope
	}
	return t.controlGroups.LatestForScope(ctx, scope)
}
