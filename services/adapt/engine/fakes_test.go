// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/perfana/perfana-adapt/services/adapt/datatypes"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func boolPtr(b bool) *bool    { return &b }

type dispatchCall struct {
	typ   BatchType
	ids   []string
	adapt bool
}

// fakeDispatcher records CallBatchProcess invocations.
type fakeDispatcher struct {
	calls []dispatchCall
	err   error
}

func (d *fakeDispatcher) CallBatchProcess(_ context.Context, typ BatchType, ids []string, adapt bool) error {
	d.calls = append(d.calls, dispatchCall{typ: typ, ids: slices.Clone(ids), adapt: adapt})
	return d.err
}

// fakeStore implements every engine store interface in memory.
type fakeStore struct {
	apps            []*datatypes.Application
	runs            []*datatypes.TestRun
	changepoints    map[Scope]*datatypes.DsChangepoint
	controlGroups   map[Scope]*datatypes.DsControlGroup
	trackedRows     []TrackedRegressionRow
	diffs           []*datatypes.DsTrackedDifferences
	configs         []*datatypes.DsCompareConfig
	classifications []*datatypes.MetricClassification
	dashboards      []datatypes.ApplicationDashboard
	markedValid     []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		changepoints:  map[Scope]*datatypes.DsChangepoint{},
		controlGroups: map[Scope]*datatypes.DsControlGroup{},
	}
}

func (f *fakeStore) ApplicationByName(_ context.Context, name string) (*datatypes.Application, error) {
	for _, a := range f.apps {
		if a.Name == name {
			return a, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) SetBaselineTestRun(_ context.Context, scope Scope, testRunID string) error {
	for _, a := range f.apps {
		if a.Name != scope.Application {
			continue
		}
		if tt := a.FindTestType(scope.TestEnvironment, scope.TestType); tt != nil {
			tt.BaselineTestRun = testRunID
		}
	}
	return nil
}

func (f *fakeStore) SetTestTypeAdaptMode(_ context.Context, scope Scope, mode datatypes.AdaptMode) error {
	for _, a := range f.apps {
		if a.Name != scope.Application {
			continue
		}
		if tt := a.FindTestType(scope.TestEnvironment, scope.TestType); tt != nil {
			tt.AdaptMode = mode
		}
	}
	return nil
}

func (f *fakeStore) TestRunByID(_ context.Context, testRunID string) (*datatypes.TestRun, error) {
	for _, tr := range f.runs {
		if tr.TestRunID == testRunID {
			return tr, nil
		}
	}
	return nil, nil
}

func inScope(tr *datatypes.TestRun, scope Scope) bool {
	return tr.Application == scope.Application &&
		tr.TestEnvironment == scope.TestEnvironment &&
		tr.TestType == scope.TestType
}

func (f *fakeStore) LatestBefore(_ context.Context, scope Scope, before time.Time) (*datatypes.TestRun, error) {
	var latest *datatypes.TestRun
	for _, tr := range f.runs {
		if !inScope(tr, scope) || tr.Abort || tr.Expired || !tr.IsValid() {
			continue
		}
		if !tr.End.Before(before) {
			continue
		}
		if latest == nil || tr.End.After(latest.End) {
			latest = tr
		}
	}
	return latest, nil
}

func (f *fakeStore) RunsEndingAtOrAfter(_ context.Context, scope Scope, from time.Time, excludeDebug bool) ([]datatypes.TestRun, error) {
	var out []datatypes.TestRun
	for _, tr := range f.runs {
		if !inScope(tr, scope) || tr.Expired {
			continue
		}
		if tr.End.Before(from) {
			continue
		}
		if excludeDebug && tr.Adapt.Mode == datatypes.AdaptModeDebug {
			continue
		}
		out = append(out, *tr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].End.Before(out[j].End) })
	return out, nil
}

func (f *fakeStore) RunsStartingAfter(_ context.Context, scope Scope, after time.Time) ([]datatypes.TestRun, error) {
	var out []datatypes.TestRun
	for _, tr := range f.runs {
		if !inScope(tr, scope) {
			continue
		}
		if !tr.Start.After(after) {
			continue
		}
		if tr.Adapt.DifferencesAccepted == datatypes.AcceptanceAccepted ||
			tr.Adapt.Mode == datatypes.AdaptModeDebug {
			continue
		}
		out = append(out, *tr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (f *fakeStore) SetDifferencesAccepted(_ context.Context, testRunID string, status datatypes.AcceptanceStatus) error {
	for _, tr := range f.runs {
		if tr.TestRunID == testRunID {
			tr.Adapt.DifferencesAccepted = status
		}
	}
	return nil
}

func (f *fakeStore) SetAdaptMode(_ context.Context, testRunID string, mode datatypes.AdaptMode) error {
	for _, tr := range f.runs {
		if tr.TestRunID == testRunID {
			tr.Adapt.Mode = mode
		}
	}
	return nil
}

func (f *fakeStore) SetEvaluatingAdapt(_ context.Context, testRunID string, status datatypes.EvaluationStatus) error {
	for _, tr := range f.runs {
		if tr.TestRunID == testRunID {
			tr.Status.EvaluatingAdapt = status
		}
	}
	return nil
}

func (f *fakeStore) MarkValid(_ context.Context, testRunID string) error {
	f.markedValid = append(f.markedValid, testRunID)
	for _, tr := range f.runs {
		if tr.TestRunID == testRunID {
			tr.Valid = boolPtr(true)
			tr.ReasonsNotValid = nil
		}
	}
	return nil
}

func (f *fakeStore) UpsertScopeWide(_ context.Context, scope Scope, testRunID string) error {
	f.changepoints[scope] = &datatypes.DsChangepoint{
		Application:     scope.Application,
		TestEnvironment: scope.TestEnvironment,
		TestType:        scope.TestType,
		TestRunID:       testRunID,
	}
	return nil
}

func (f *fakeStore) ActiveForScope(_ context.Context, scope Scope) (*datatypes.DsChangepoint, error) {
	return f.changepoints[scope], nil
}

func (f *fakeStore) LatestForScope(_ context.Context, scope Scope) (*datatypes.DsControlGroup, error) {
	return f.controlGroups[scope], nil
}

func (f *fakeStore) TrackedRegressions(_ context.Context, testRunIDs []string) ([]TrackedRegressionRow, error) {
	var out []TrackedRegressionRow
	for _, row := range f.trackedRows {
		if !slices.Contains(testRunIDs, row.TestRunID) {
			continue
		}
		if row.Conclusion.Label != datatypes.ConclusionRegression ||
			row.TrackedConclusion.Label != datatypes.ConclusionRegression {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (f *fakeStore) SetStatusForTestRun(_ context.Context, testRunID string, status datatypes.AcceptanceStatus) (int64, error) {
	var n int64
	for _, d := range f.diffs {
		if d.TestRunID == testRunID {
			d.Status = status
			n++
		}
	}
	return n, nil
}

func eqStrPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func eqIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func configMatches(c *datatypes.DsCompareConfig, scope *Scope, dashboardID *string, panelID *int, metricName *string) bool {
	if scope == nil {
		return c.Application == nil && c.TestEnvironment == nil && c.TestType == nil &&
			c.ApplicationDashboardID == nil && c.PanelID == nil && c.MetricName == nil
	}
	return eqStrPtr(c.Application, &scope.Application) &&
		eqStrPtr(c.TestEnvironment, &scope.TestEnvironment) &&
		eqStrPtr(c.TestType, &scope.TestType) &&
		eqStrPtr(c.ApplicationDashboardID, dashboardID) &&
		eqIntPtr(c.PanelID, panelID) &&
		eqStrPtr(c.MetricName, metricName)
}

func (f *fakeStore) DefaultCompareConfig(_ context.Context) (*datatypes.DsCompareConfig, error) {
	for _, c := range f.configs {
		if configMatches(c, nil, nil, nil, nil) {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) PanelCompareConfig(_ context.Context, scope Scope, dashboardID string, panelID int) (*datatypes.DsCompareConfig, error) {
	for _, c := range f.configs {
		if configMatches(c, &scope, &dashboardID, &panelID, nil) {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) MetricCompareConfig(_ context.Context, scope Scope, dashboardID string, panelID int, metricName string) (*datatypes.DsCompareConfig, error) {
	for _, c := range f.configs {
		if configMatches(c, &scope, &dashboardID, &panelID, &metricName) {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) MetricCompareConfigsForPanel(_ context.Context, scope Scope, dashboardID string, panelID int) ([]datatypes.DsCompareConfig, error) {
	var out []datatypes.DsCompareConfig
	for _, c := range f.configs {
		if c.MetricName == nil {
			continue
		}
		if configMatches(c, &scope, &dashboardID, &panelID, c.MetricName) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeStore) UpsertCompareConfig(_ context.Context, cfg *datatypes.DsCompareConfig) error {
	for i, c := range f.configs {
		if eqStrPtr(c.Application, cfg.Application) &&
			eqStrPtr(c.TestEnvironment, cfg.TestEnvironment) &&
			eqStrPtr(c.TestType, cfg.TestType) &&
			eqStrPtr(c.ApplicationDashboardID, cfg.ApplicationDashboardID) &&
			eqIntPtr(c.PanelID, cfg.PanelID) &&
			eqStrPtr(c.MetricName, cfg.MetricName) {
			copied := *cfg
			f.configs[i] = &copied
			return nil
		}
	}
	copied := *cfg
	f.configs = append(f.configs, &copied)
	return nil
}

func (f *fakeStore) PanelClassification(_ context.Context, scope Scope, dashboardID string, panelID int) (*datatypes.MetricClassification, error) {
	for _, c := range f.classifications {
		if eqStrPtr(c.Application, &scope.Application) &&
			eqStrPtr(c.TestEnvironment, &scope.TestEnvironment) &&
			eqStrPtr(c.TestType, &scope.TestType) &&
			eqStrPtr(c.ApplicationDashboardID, &dashboardID) &&
			eqIntPtr(c.PanelID, &panelID) &&
			c.MetricName == nil {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) MetricClassification(_ context.Context, scope Scope, dashboardID string, panelID int, metricName string) (*datatypes.MetricClassification, error) {
	for _, c := range f.classifications {
		if eqStrPtr(c.Application, &scope.Application) &&
			eqStrPtr(c.TestEnvironment, &scope.TestEnvironment) &&
			eqStrPtr(c.TestType, &scope.TestType) &&
			eqStrPtr(c.ApplicationDashboardID, &dashboardID) &&
			eqIntPtr(c.PanelID, &panelID) &&
			eqStrPtr(c.MetricName, &metricName) {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) DashboardsForEnvironment(_ context.Context, application, testEnvironment string) ([]datatypes.ApplicationDashboard, error) {
	var out []datatypes.ApplicationDashboard
	for _, d := range f.dashboards {
		if d.Application == application && d.TestEnvironment == testEnvironment {
			out = append(out, d)
		}
	}
	return out, nil
}
