// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package engine implements the ADAPT core: comparison-configuration
// resolution, baseline and control-group selection, regression
// resolution and batch re-evaluation dispatch. All document access goes
// through the narrow store interfaces below so the components stay
// testable without a database; the mongo-backed implementations live in
// the store package.
package engine

import (
	"context"
	"time"

	"github.com/perfana/perfana-adapt/services/adapt/datatypes"
)

// Scope identifies one (application, testEnvironment, testType) triple.
type Scope struct {
	Application     string
	TestEnvironment string
	TestType        string
}

// ScopeOf extracts the scope triple from a test run.
func ScopeOf(tr *datatypes.TestRun) Scope {
	return Scope{
		Application:     tr.Application,
		TestEnvironment: tr.TestEnvironment,
		TestType:        tr.TestType,
	}
}

// Valid reports whether all three scope fields are set.
func (s Scope) Valid() bool {
	return s.Application != "" && s.TestEnvironment != "" && s.TestType != ""
}

// ApplicationStore reads and mutates Application documents. Mutations
// are targeted positional updates addressed by environment and test
// type name, never whole-array rewrites.
type ApplicationStore interface {
	// ApplicationByName returns nil, nil when the application does not
	// exist.
	ApplicationByName(ctx context.Context, name string) (*datatypes.Application, error)
	SetBaselineTestRun(ctx context.Context, scope Scope, testRunID string) error
	SetTestTypeAdaptMode(ctx context.Context, scope Scope, mode datatypes.AdaptMode) error
}

// TestRunStore reads and mutates TestRun documents.
type TestRunStore interface {
	// TestRunByID returns nil, nil when no run has the given id.
	TestRunByID(ctx context.Context, testRunID string) (*datatypes.TestRun, error)

	// LatestBefore returns the most recent completed run in scope with
	// end < before, excluding aborted, expired and invalid runs. Returns
	// nil, nil when there is none.
	LatestBefore(ctx context.Context, scope Scope, before time.Time) (*datatypes.TestRun, error)

	// RunsEndingAtOrAfter returns non-expired runs in scope with
	// end >= from, ordered by end ascending. When excludeDebug is set,
	// runs with adapt.mode == DEBUG are filtered out.
	RunsEndingAtOrAfter(ctx context.Context, scope Scope, from time.Time, excludeDebug bool) ([]datatypes.TestRun, error)

	// RunsStartingAfter returns runs in scope with start > after whose
	// differences are not accepted and whose adapt mode is not DEBUG,
	// the candidate set for unresolved-regression reporting.
	RunsStartingAfter(ctx context.Context, scope Scope, after time.Time) ([]datatypes.TestRun, error)

	SetDifferencesAccepted(ctx context.Context, testRunID string, status datatypes.AcceptanceStatus) error
	SetAdaptMode(ctx context.Context, testRunID string, mode datatypes.AdaptMode) error
	SetEvaluatingAdapt(ctx context.Context, testRunID string, status datatypes.EvaluationStatus) error

	// MarkValid resets valid to true and clears reasonsNotValid.
	MarkValid(ctx context.Context, testRunID string) error
}

// ChangepointStore maintains the single active change point per scope.
type ChangepointStore interface {
	// UpsertScopeWide writes the change point for the scope with
	// panel/metric scoping cleared to nil. Last writer wins.
	UpsertScopeWide(ctx context.Context, scope Scope, testRunID string) error

	// ActiveForScope returns the scope-wide change point, or nil, nil
	// when none has been declared.
	ActiveForScope(ctx context.Context, scope Scope) (*datatypes.DsChangepoint, error)
}

// ControlGroupStore reads the rolling comparison populations.
type ControlGroupStore interface {
	// LatestForScope returns the control group with the most recent
	// lastDatetime, or nil, nil when the scope has none.
	LatestForScope(ctx context.Context, scope Scope) (*datatypes.DsControlGroup, error)
}

// TrackedRegressionRow is one aggregation row: a tracked result whose
// current and tracked conclusions are both "regression", joined to its
// test run for display metadata.
type TrackedRegressionRow struct {
	datatypes.DsAdaptTrackedResults `bson:",inline"`
	TestRun                         *datatypes.TestRun `bson:"testRun,omitempty"`
}

// TrackedResultsStore reads the cross-run tracked verdicts.
type TrackedResultsStore interface {
	// TrackedRegressions returns rows for the given candidate test runs
	// where both conclusion.label and trackedConclusion.label equal
	// "regression".
	TrackedRegressions(ctx context.Context, testRunIDs []string) ([]TrackedRegressionRow, error)
}

// TrackedDifferenceStore mutates operator-facing difference records.
type TrackedDifferenceStore interface {
	// SetStatusForTestRun bulk-updates status on every record for the
	// run and returns the number of records touched.
	SetStatusForTestRun(ctx context.Context, testRunID string, status datatypes.AcceptanceStatus) (int64, error)
}

// CompareConfigStore reads and writes the 3-level comparison
// configuration records. Level lookups return nil, nil when the level
// has no record; absence is fall-through, not an error.
type CompareConfigStore interface {
	DefaultCompareConfig(ctx context.Context) (*datatypes.DsCompareConfig, error)
	PanelCompareConfig(ctx context.Context, scope Scope, dashboardID string, panelID int) (*datatypes.DsCompareConfig, error)
	MetricCompareConfig(ctx context.Context, scope Scope, dashboardID string, panelID int, metricName string) (*datatypes.DsCompareConfig, error)

	// MetricCompareConfigsForPanel returns every metric-level record
	// under the given panel, used for the panel-change cascade.
	MetricCompareConfigsForPanel(ctx context.Context, scope Scope, dashboardID string, panelID int) ([]datatypes.DsCompareConfig, error)

	// UpsertCompareConfig enforces the one-record-per-scope-tuple
	// invariant via an upsert on the compound selector.
	UpsertCompareConfig(ctx context.Context, cfg *datatypes.DsCompareConfig) error
}

// ClassificationStore reads metric classification records.
type ClassificationStore interface {
	PanelClassification(ctx context.Context, scope Scope, dashboardID string, panelID int) (*datatypes.MetricClassification, error)
	MetricClassification(ctx context.Context, scope Scope, dashboardID string, panelID int, metricName string) (*datatypes.MetricClassification, error)
}

// DashboardStore reads the dashboards linked to an environment.
type DashboardStore interface {
	DashboardsForEnvironment(ctx context.Context, application, testEnvironment string) ([]datatypes.ApplicationDashboard, error)
}

// BatchDispatcher sends batch requests to the external statistics
// engine. An acknowledged dispatch means accepted for processing, not
// processing complete.
type BatchDispatcher interface {
	CallBatchProcess(ctx context.Context, typ BatchType, testRunIDs []string, adaptEnabled bool) error
}
