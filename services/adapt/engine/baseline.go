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

// ComparisonBaseline is the resolved pairing for one test run: the run
// immediately before it and the scope's fixed baseline, either of which
// may be absent.
type ComparisonBaseline struct {
	PreviousTestRunID      string `json:"previousTestRunId,omitempty"`
	FixedBaselineTestRunID string `json:"fixedBaselineTestRunId,omitempty"`
}

// BaselineSelector resolves comparison baselines and applies the
// baseline-set flow: mark the application, accept the run's own
// differences, move the change point, then dispatch re-evaluation for
// every later run in scope.
type BaselineSelector struct {
	apps         ApplicationStore
	runs         TestRunStore
	changepoints ChangepointStore
	dispatcher   BatchDispatcher
}

// NewBaselineSelector builds a selector over the given stores.
func NewBaselineSelector(apps ApplicationStore, runs TestRunStore, changepoints ChangepointStore, dispatcher BatchDispatcher) *BaselineSelector {
	return &BaselineSelector{apps: apps, runs: runs, changepoints: changepoints, dispatcher: dispatcher}
}

// ResolveComparisonBaseline is a pure read; it never mutates state.
// A deleted application or an absent previous run resolve to "no
// baseline", not an error.
func (s *BaselineSelector) ResolveComparisonBaseline(ctx context.Context, tr *datatypes.TestRun) (ComparisonBaseline, error) {
	var out ComparisonBaseline
	scope := ScopeOf(tr)
	if !scope.Valid() {
		return out, ErrMissingScope
	}

	prev, err := s.runs.LatestBefore(ctx, scope, tr.Start)
	if err != nil {
		return out, fmt.Errorf("previous test run lookup: %w", err)
	}
	if prev != nil {
		out.PreviousTestRunID = prev.TestRunID
	}

	app, err := s.apps.ApplicationByName(ctx, tr.Application)
	if err != nil {
		return out, fmt.Errorf("application lookup: %w", err)
	}
	if app != nil {
		if tt := app.FindTestType(tr.TestEnvironment, tr.TestType); tt != nil {
			out.FixedBaselineTestRunID = tt.BaselineTestRun
		}
	}
	return out, nil
}

// SetTestRunAsBaseline marks the run as the fixed baseline for its
// scope. Ordering is fixed: application and test-run state first, then
// the change-point upsert, then the batch dispatch. Concurrent calls
// for the same scope race on the change-point upsert; last writer wins,
// which is acceptable since the change point is a single pointer.
func (s *BaselineSelector) SetTestRunAsBaseline(ctx context.Context, tr *datatypes.TestRun) error {
	scope := ScopeOf(tr)
	if !scope.Valid() {
		return ErrMissingScope
	}

	app, err := s.apps.ApplicationByName(ctx, tr.Application)
	if err != nil {
		return fmt.Errorf("application lookup: %w", err)
	}
	if app == nil {
		return fmt.Errorf("%w: %s", ErrApplicationNotFound, tr.Application)
	}
	if err := s.apps.SetBaselineTestRun(ctx, scope, tr.TestRunID); err != nil {
		return fmt.Errorf("set baseline test run: %w", err)
	}

	// The new baseline must never itself be flagged as a regression.
	if err := s.runs.SetDifferencesAccepted(ctx, tr.TestRunID, datatypes.AcceptanceAccepted); err != nil {
		return fmt.Errorf("accept baseline differences: %w", err)
	}

	if err := s.changepoints.UpsertScopeWide(ctx, scope, tr.TestRunID); err != nil {
		return fmt.Errorf("upsert changepoint: %w", err)
	}

	later, err := s.runs.RunsEndingAtOrAfter(ctx, scope, tr.End, false)
	if err != nil {
		return fmt.Errorf("impacted test runs lookup: %w", err)
	}
	ids := testRunIDs(later)
	if len(ids) == 0 {
		return nil
	}

	adaptEnabled := app.AdaptEnabled(tr.TestEnvironment, tr.TestType)
	slog.Info("dispatching re-evaluation after baseline change",
		"application", tr.Application, "testEnvironment", tr.TestEnvironment,
		"testType", tr.TestType, "baseline", tr.TestRunID,
		"testRuns", len(ids), "adapt", adaptEnabled)
	if err := s.dispatcher.CallBatchProcess(ctx, BatchReEvaluate, ids, adaptEnabled); err != nil {
		return fmt.Errorf("dispatch re-evaluate batch: %w", err)
	}
	return nil
}

func testRunIDs(runs []datatypes.TestRun) []string {
	ids := make([]string, 0, len(runs))
	for i := range runs {
		ids = append(ids, runs[i].TestRunID)
	}
	return ids
}
