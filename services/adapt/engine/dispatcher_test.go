// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfana/perfana-adapt/services/adapt/datatypes"
)

type recordedRequest struct {
	method string
	path   string
	query  map[string]string
	body   []string
	user   string
	pass   string
}

func newEngineStub(t *testing.T, status int, responseBody string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var requests []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ids []string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&ids))
		user, pass, _ := r.BasicAuth()
		query := map[string]string{}
		for k, v := range r.URL.Query() {
			query[k] = v[0]
		}
		requests = append(requests, recordedRequest{
			method: r.Method,
			path:   r.URL.Path,
			query:  query,
			body:   ids,
			user:   user,
			pass:   pass,
		})
		w.WriteHeader(status)
		_, _ = w.Write([]byte(responseBody))
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func TestCallBatchProcessReEvaluate(t *testing.T) {
	srv, requests := newEngineStub(t, http.StatusOK, `{"status":"accepted"}`)
	d := NewDispatcher(srv.URL, "perfana", "secret", nil)

	err := d.CallBatchProcess(context.Background(), BatchReEvaluate, []string{"run-1", "run-2"}, true)
	require.NoError(t, err)

	require.Len(t, *requests, 1)
	got := (*requests)[0]
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/data/reevaluate/batch", got.path)
	assert.Equal(t, "true", got.query["adapt"])
	assert.Equal(t, "true", got.query["checks"])
	assert.Equal(t, []string{"run-1", "run-2"}, got.body)
	assert.Equal(t, "perfana", got.user)
	assert.Equal(t, "secret", got.pass)
}

func TestCallBatchProcessRefresh(t *testing.T) {
	srv, requests := newEngineStub(t, http.StatusOK, `{}`)
	d := NewDispatcher(srv.URL, "perfana", "secret", nil)

	err := d.CallBatchProcess(context.Background(), BatchRefresh, []string{"run-1"}, false)
	require.NoError(t, err)

	require.Len(t, *requests, 1)
	got := (*requests)[0]
	assert.Equal(t, "/data/refresh/batch", got.path)
	assert.Equal(t, "false", got.query["adapt"])
	_, hasChecks := got.query["checks"]
	assert.False(t, hasChecks)
}

func TestCallBatchProcessIdempotentContract(t *testing.T) {
	srv, requests := newEngineStub(t, http.StatusOK, `{}`)
	d := NewDispatcher(srv.URL, "perfana", "secret", nil)

	ids := []string{"run-1", "run-2"}
	require.NoError(t, d.CallBatchProcess(context.Background(), BatchReEvaluate, ids, true))
	require.NoError(t, d.CallBatchProcess(context.Background(), BatchReEvaluate, ids, true))

	// Dispatch is a pure function of (type, ids, adaptEnabled): both
	// calls hit the same endpoint with the same body.
	require.Len(t, *requests, 2)
	assert.Equal(t, (*requests)[0], (*requests)[1])
}

func TestCallBatchProcessHTTPError(t *testing.T) {
	srv, _ := newEngineStub(t, http.StatusBadGateway, "engine unavailable")
	d := NewDispatcher(srv.URL, "perfana", "secret", nil)

	err := d.CallBatchProcess(context.Background(), BatchReEvaluate, []string{"run-1"}, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 502: engine unavailable")
}

func TestCallBatchProcessUnknownType(t *testing.T) {
	d := NewDispatcher("http://localhost:1", "u", "p", nil)
	err := d.CallBatchProcess(context.Background(), BatchType(99), []string{"run-1"}, true)
	assert.ErrorIs(t, err, ErrUnknownBatchType)
}

func TestBatchEvaluateRefreshRetentionGate(t *testing.T) {
	store := newFakeStore()
	// Run ended 10 days ago; D1 retains 7 days, D2 retains 30.
	run := newRun("run-1", baseTime.Add(-241*time.Hour), baseTime.Add(-240*time.Hour))
	store.runs = append(store.runs, run)
	store.dashboards = append(store.dashboards,
		datatypes.ApplicationDashboard{
			Application: "MyAfterburner", TestEnvironment: "acc",
			ApplicationDashboardID: "dash-1", DashboardLabel: "D1", RetentionDays: 7,
		},
		datatypes.ApplicationDashboard{
			Application: "MyAfterburner", TestEnvironment: "acc",
			ApplicationDashboardID: "dash-2", DashboardLabel: "D2", RetentionDays: 30,
		},
	)

	dispatcher := &fakeDispatcher{}
	coordinator := NewBatchCoordinator(store, store, dispatcher, func() time.Time { return baseTime })

	err := coordinator.BatchEvaluateSelectedTestRuns(context.Background(), []string{"run-1"}, BatchRefresh, true)
	require.ErrorIs(t, err, ErrPastRetention)
	assert.Contains(t, err.Error(), "D1")

	// All-or-nothing: the dispatcher is never reached.
	assert.Empty(t, dispatcher.calls)
}

func TestBatchEvaluateRefreshWithinRetention(t *testing.T) {
	store := newFakeStore()
	run := newRun("run-1", baseTime.Add(-49*time.Hour), baseTime.Add(-48*time.Hour))
	store.runs = append(store.runs, run)
	store.dashboards = append(store.dashboards, datatypes.ApplicationDashboard{
		Application: "MyAfterburner", TestEnvironment: "acc",
		ApplicationDashboardID: "dash-1", DashboardLabel: "D1", RetentionDays: 7,
	})

	dispatcher := &fakeDispatcher{}
	coordinator := NewBatchCoordinator(store, store, dispatcher, func() time.Time { return baseTime })

	require.NoError(t, coordinator.BatchEvaluateSelectedTestRuns(context.Background(), []string{"run-1"}, BatchRefresh, true))
	require.Len(t, dispatcher.calls, 1)
	assert.Equal(t, BatchRefresh, dispatcher.calls[0].typ)
}

func TestBatchEvaluateResetsInvalidRuns(t *testing.T) {
	store := newFakeStore()
	run := newRun("run-1", baseTime.Add(-2*time.Hour), baseTime.Add(-1*time.Hour))
	run.Valid = boolPtr(false)
	run.ReasonsNotValid = []string{"missing metrics"}
	store.runs = append(store.runs, run)

	dispatcher := &fakeDispatcher{}
	coordinator := NewBatchCoordinator(store, store, dispatcher, func() time.Time { return baseTime })

	require.NoError(t, coordinator.BatchEvaluateSelectedTestRuns(context.Background(), []string{"run-1"}, BatchReEvaluate, true))

	// Stale invalidity must not survive a fresh evaluation.
	assert.Equal(t, []string{"run-1"}, store.markedValid)
	assert.True(t, run.IsValid())
	assert.Empty(t, run.ReasonsNotValid)
	require.Len(t, dispatcher.calls, 1)
}

func TestBatchEvaluateUnknownRun(t *testing.T) {
	store := newFakeStore()
	dispatcher := &fakeDispatcher{}
	coordinator := NewBatchCoordinator(store, store, dispatcher, nil)

	err := coordinator.BatchEvaluateSelectedTestRuns(context.Background(), []string{"nope"}, BatchReEvaluate, true)
	assert.ErrorIs(t, err, ErrTestRunNotFound)
	assert.Empty(t, dispatcher.calls)
}
