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
	"slices"

	"github.com/perfana/perfana-adapt/services/adapt/datatypes"
)

// RegressionResolver records operator accept/deny decisions on
// detected differences and propagates them to dependent test runs.
type RegressionResolver struct {
	runs        TestRunStore
	differences TrackedDifferenceStore
	dispatcher  BatchDispatcher
}

// NewRegressionResolver builds a resolver over the given stores.
func NewRegressionResolver(runs TestRunStore, differences TrackedDifferenceStore, dispatcher BatchDispatcher) *RegressionResolver {
	return &RegressionResolver{runs: runs, differences: differences, dispatcher: dispatcher}
}

// ResolveRegression records the decision on the run. The decision is
// always persisted; downstream re-evaluation only happens when
// reEvaluate is set. The resolved run itself is always part of the
// dispatched set, even when no later runs exist.
func (r *RegressionResolver) ResolveRegression(ctx context.Context, tr *datatypes.TestRun, status datatypes.AcceptanceStatus, reEvaluate bool) error {
	if status != datatypes.AcceptanceAccepted && status != datatypes.AcceptanceDenied {
		return fmt.Errorf("%w: %s", ErrInvalidResolution, status)
	}
	scope := ScopeOf(tr)
	if !scope.Valid() {
		return ErrMissingScope
	}

	if err := r.runs.SetDifferencesAccepted(ctx, tr.TestRunID, status); err != nil {
		return fmt.Errorf("set differences accepted: %w", err)
	}
	if err := r.runs.SetAdaptMode(ctx, tr.TestRunID, datatypes.AdaptModeDefault); err != nil {
		return fmt.Errorf("reset adapt mode: %w", err)
	}
	if !reEvaluate {
		return nil
	}

	later, err := r.runs.RunsEndingAtOrAfter(ctx, scope, tr.End, true)
	if err != nil {
		return fmt.Errorf("impacted test runs lookup: %w", err)
	}
	ids := testRunIDs(later)
	if !slices.Contains(ids, tr.TestRunID) {
		ids = append(ids, tr.TestRunID)
	}

	slog.Info("dispatching re-evaluation after regression resolution",
		"testRunId", tr.TestRunID, "status", status, "testRuns", len(ids))
	if err := r.dispatcher.CallBatchProcess(ctx, BatchReEvaluate, ids, true); err != nil {
		return fmt.Errorf("dispatch re-evaluate batch: %w", err)
	}
	return nil
}

// UpdateTrackedDifferenceDetails bulk-updates every tracked-difference
// record for the run, flags the run for ADAPT re-evaluation, and
// dispatches a single-run RE_EVALUATE batch. A denial additionally
// resets the run's adapt mode to DEFAULT.
func (r *RegressionResolver) UpdateTrackedDifferenceDetails(ctx context.Context, testRunID string, status datatypes.AcceptanceStatus) error {
	if status != datatypes.AcceptanceAccepted && status != datatypes.AcceptanceDenied {
		return fmt.Errorf("%w: %s", ErrInvalidResolution, status)
	}

	updated, err := r.differences.SetStatusForTestRun(ctx, testRunID, status)
	if err != nil {
		return fmt.Errorf("update tracked differences: %w", err)
	}
	if err := r.runs.SetEvaluatingAdapt(ctx, testRunID, datatypes.EvalReEvaluateAdapt); err != nil {
		return fmt.Errorf("flag adapt re-evaluation: %w", err)
	}
	if status == datatypes.AcceptanceDenied {
		if err := r.runs.SetAdaptMode(ctx, testRunID, datatypes.AdaptModeDefault); err != nil {
			return fmt.Errorf("reset adapt mode: %w", err)
		}
	}

	slog.Info("updated tracked differences",
		"testRunId", testRunID, "status", status, "records", updated)
	if err := r.dispatcher.CallBatchProcess(ctx, BatchReEvaluate, []string{testRunID}, true); err != nil {
		return fmt.Errorf("dispatch re-evaluate batch: %w", err)
	}
	return nil
}
