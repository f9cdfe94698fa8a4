// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfana/perfana-adapt/services/adapt/datatypes"
)

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newRun(id string, start, end time.Time) *datatypes.TestRun {
	return &datatypes.TestRun{
		Application:     "MyAfterburner",
		TestEnvironment: "acc",
		TestType:        "loadTest",
		TestRunID:       id,
		Start:           start,
		End:             end,
		Completed:       true,
	}
}

func newApp(adaptEnabled bool) *datatypes.Application {
	return &datatypes.Application{
		Name: "MyAfterburner",
		TestEnvironments: []datatypes.TestEnvironment{{
			Name: "acc",
			TestTypes: []datatypes.TestType{{
				Name:        "loadTest",
				RunAdapt:    adaptEnabled,
				EnableAdapt: adaptEnabled,
			}},
		}},
	}
}

func TestResolveComparisonBaseline(t *testing.T) {
	store := newFakeStore()
	app := newApp(true)
	app.TestEnvironments[0].TestTypes[0].BaselineTestRun = "run-0"
	store.apps = append(store.apps, app)

	store.runs = append(store.runs,
		newRun("run-0", baseTime.Add(-4*time.Hour), baseTime.Add(-3*time.Hour)),
		newRun("run-1", baseTime.Add(-2*time.Hour), baseTime.Add(-1*time.Hour)),
		newRun("run-2", baseTime, baseTime.Add(time.Hour)),
	)
	aborted := newRun("run-aborted", baseTime.Add(-90*time.Minute), baseTime.Add(-30*time.Minute))
	aborted.Abort = true
	store.runs = append(store.runs, aborted)

	dispatcher := &fakeDispatcher{}
	selector := NewBaselineSelector(store, store, store, dispatcher)

	t.Run("previous run and fixed baseline", func(t *testing.T) {
		got, err := selector.ResolveComparisonBaseline(context.Background(), store.runs[2])
		require.NoError(t, err)
		// run-aborted ended later but is excluded.
		assert.Equal(t, "run-1", got.PreviousTestRunID)
		assert.Equal(t, "run-0", got.FixedBaselineTestRunID)
	})

	t.Run("no previous run", func(t *testing.T) {
		got, err := selector.ResolveComparisonBaseline(context.Background(), store.runs[0])
		require.NoError(t, err)
		assert.Empty(t, got.PreviousTestRunID)
	})

	t.Run("deleted application means no fixed baseline", func(t *testing.T) {
		orphan := newRun("run-x", baseTime, baseTime.Add(time.Hour))
		orphan.Application = "Gone"
		got, err := selector.ResolveComparisonBaseline(context.Background(), orphan)
		require.NoError(t, err)
		assert.Empty(t, got.FixedBaselineTestRunID)
	})

	t.Run("pure read dispatches nothing", func(t *testing.T) {
		assert.Empty(t, dispatcher.calls)
	})
}

func TestSetTestRunAsBaseline(t *testing.T) {
	store := newFakeStore()
	store.apps = append(store.apps, newApp(true))
	store.runs = append(store.runs,
		newRun("run-1", baseTime.Add(-2*time.Hour), baseTime.Add(-1*time.Hour)),
		newRun("run-2", baseTime, baseTime.Add(time.Hour)),
		newRun("run-3", baseTime.Add(2*time.Hour), baseTime.Add(3*time.Hour)),
	)
	dispatcher := &fakeDispatcher{}
	selector := NewBaselineSelector(store, store, store, dispatcher)

	target := store.runs[1] // run-2
	require.NoError(t, selector.SetTestRunAsBaseline(context.Background(), target))

	// The run's own differences are accepted so the baseline can never
	// flag itself as a regression.
	assert.Equal(t, datatypes.AcceptanceAccepted, target.Adapt.DifferencesAccepted)

	// The application's test type points at the new baseline.
	tt := store.apps[0].FindTestType("acc", "loadTest")
	require.NotNil(t, tt)
	assert.Equal(t, "run-2", tt.BaselineTestRun)

	// A scope-wide changepoint exists at the run.
	scope := ScopeOf(target)
	cp, err := store.ActiveForScope(context.Background(), scope)
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, "run-2", cp.TestRunID)
	assert.Nil(t, cp.ApplicationDashboardID)
	assert.Nil(t, cp.PanelID)
	assert.Nil(t, cp.MetricName)

	// Re-evaluation covers run-2 and run-3, not run-1.
	require.Len(t, dispatcher.calls, 1)
	call := dispatcher.calls[0]
	assert.Equal(t, BatchReEvaluate, call.typ)
	assert.Equal(t, []string{"run-2", "run-3"}, call.ids)
	assert.True(t, call.adapt)
}

func TestSetTestRunAsBaselineAdaptDisabled(t *testing.T) {
	store := newFakeStore()
	store.apps = append(store.apps, newApp(false))
	store.runs = append(store.runs, newRun("run-1", baseTime, baseTime.Add(time.Hour)))
	dispatcher := &fakeDispatcher{}
	selector := NewBaselineSelector(store, store, store, dispatcher)

	require.NoError(t, selector.SetTestRunAsBaseline(context.Background(), store.runs[0]))
	require.Len(t, dispatcher.calls, 1)
	assert.False(t, dispatcher.calls[0].adapt)
}

func TestSetTestRunAsBaselineApplicationMissing(t *testing.T) {
	store := newFakeStore()
	dispatcher := &fakeDispatcher{}
	selector := NewBaselineSelector(store, store, store, dispatcher)

	err := selector.SetTestRunAsBaseline(context.Background(), newRun("run-1", baseTime, baseTime.Add(time.Hour)))
	assert.ErrorIs(t, err, ErrApplicationNotFound)
	assert.Empty(t, dispatcher.calls)
}
