// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/perfana/perfana-adapt/services/adapt/datatypes"
	"github.com/perfana/perfana-adapt/services/adapt/engine"
)

func init() {
	// Set Gin to test mode to reduce noise
	gin.SetMode(gin.TestMode)
}

// stubStore is an in-memory stand-in for the mongo store, implementing
// only the slices of it the handlers under test touch.
type stubStore struct {
	apps       map[string]*datatypes.Application
	runs       map[string]*datatypes.TestRun
	deleted    []string
	dispatched [][]string

	baselineSet  string
	changepoints []engine.Scope
}

func newStubStore() *stubStore {
	return &stubStore{
		apps: map[string]*datatypes.Application{},
		runs: map[string]*datatypes.TestRun{},
	}
}

func (s *stubStore) ApplicationByName(_ context.Context, name string) (*datatypes.Application, error) {
	return s.apps[name], nil
}

func (s *stubStore) SetBaselineTestRun(_ context.Context, _ engine.Scope, testRunID string) error {
	s.baselineSet = testRunID
	return nil
}

func (s *stubStore) SetTestTypeAdaptMode(context.Context, engine.Scope, datatypes.AdaptMode) error {
	return nil
}

func (s *stubStore) TestRunByID(_ context.Context, testRunID string) (*datatypes.TestRun, error) {
	return s.runs[testRunID], nil
}

func (s *stubStore) LatestBefore(context.Context, engine.Scope, time.Time) (*datatypes.TestRun, error) {
	return nil, nil
}

func (s *stubStore) RunsEndingAtOrAfter(context.Context, engine.Scope, time.Time, bool) ([]datatypes.TestRun, error) {
	return nil, nil
}

func (s *stubStore) RunsStartingAfter(context.Context, engine.Scope, time.Time) ([]datatypes.TestRun, error) {
	return nil, nil
}

func (s *stubStore) RecentRuns(_ context.Context, _ engine.Scope, limit int64) ([]datatypes.TestRun, error) {
	var out []datatypes.TestRun
	for _, tr := range s.runs {
		if int64(len(out)) == limit {
			break
		}
		out = append(out, *tr)
	}
	return out, nil
}

func (s *stubStore) SetDifferencesAccepted(_ context.Context, testRunID string, status datatypes.AcceptanceStatus) error {
	if tr, ok := s.runs[testRunID]; ok {
		tr.Adapt.DifferencesAccepted = status
	}
	return nil
}

func (s *stubStore) SetAdaptMode(_ context.Context, testRunID string, mode datatypes.AdaptMode) error {
	if tr, ok := s.runs[testRunID]; ok {
		tr.Adapt.Mode = mode
	}
	return nil
}

func (s *stubStore) SetEvaluatingAdapt(context.Context, string, datatypes.EvaluationStatus) error {
	return nil
}

func (s *stubStore) MarkValid(context.Context, string) error { return nil }

func (s *stubStore) UpsertScopeWide(_ context.Context, scope engine.Scope, _ string) error {
	s.changepoints = append(s.changepoints, scope)
	return nil
}

func (s *stubStore) ActiveForScope(context.Context, engine.Scope) (*datatypes.DsChangepoint, error) {
	return nil, nil
}

func (s *stubStore) LatestForScope(context.Context, engine.Scope) (*datatypes.DsControlGroup, error) {
	return nil, nil
}

func (s *stubStore) TrackedRegressions(context.Context, []string) ([]engine.TrackedRegressionRow, error) {
	return nil, nil
}

func (s *stubStore) SetStatusForTestRun(context.Context, string, datatypes.AcceptanceStatus) (int64, error) {
	return 0, nil
}

func (s *stubStore) DashboardsForEnvironment(context.Context, string, string) ([]datatypes.ApplicationDashboard, error) {
	return nil, nil
}

func (s *stubStore) UpsertApplication(_ context.Context, app *datatypes.Application) error {
	s.apps[app.Name] = app
	return nil
}

func (s *stubStore) InsertTestRun(_ context.Context, tr *datatypes.TestRun) error {
	s.runs[tr.TestRunID] = tr
	return nil
}

func (s *stubStore) UpsertClassification(context.Context, *datatypes.MetricClassification) error {
	return nil
}

func (s *stubStore) DeleteTestRunCascade(_ context.Context, testRunID string) error {
	s.deleted = append(s.deleted, testRunID)
	return nil
}

func (s *stubStore) CallBatchProcess(_ context.Context, _ engine.BatchType, testRunIDs []string, _ bool) error {
	s.dispatched = append(s.dispatched, testRunIDs)
	return nil
}

func stubRun(id string) *datatypes.TestRun {
	return &datatypes.TestRun{
		TestRunID:       id,
		Application:     "MyAfterburner",
		TestEnvironment: "acc",
		TestType:        "loadTest",
		Completed:       true,
		Start:           time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		End:             time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC),
	}
}

func performRequest(router *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetTestRun(t *testing.T) {
	st := newStubStore()
	st.runs["run-1"] = stubRun("run-1")

	router := gin.New()
	router.GET("/v1/test-runs/:testRunId", GetTestRun(st))

	t.Run("existing run", func(t *testing.T) {
		w := performRequest(router, "GET", "/v1/test-runs/run-1", nil, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}
		var tr datatypes.TestRun
		if err := json.Unmarshal(w.Body.Bytes(), &tr); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if tr.TestRunID != "run-1" {
			t.Errorf("expected run-1, got %q", tr.TestRunID)
		}
	})

	t.Run("unknown run", func(t *testing.T) {
		w := performRequest(router, "GET", "/v1/test-runs/run-missing", nil, nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
		}
	})
}

func TestListTestRunsValidatesQuery(t *testing.T) {
	st := newStubStore()
	st.runs["run-1"] = stubRun("run-1")

	router := gin.New()
	router.GET("/v1/test-runs", ListTestRuns(st))

	t.Run("missing scope", func(t *testing.T) {
		w := performRequest(router, "GET", "/v1/test-runs?application=MyAfterburner", nil, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})

	t.Run("bad limit", func(t *testing.T) {
		w := performRequest(router, "GET",
			"/v1/test-runs?application=MyAfterburner&testEnvironment=acc&testType=loadTest&limit=zero", nil, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})

	t.Run("full scope", func(t *testing.T) {
		w := performRequest(router, "GET",
			"/v1/test-runs?application=MyAfterburner&testEnvironment=acc&testType=loadTest", nil, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
		}
	})
}

func TestDeleteTestRunAuthorization(t *testing.T) {
	st := newStubStore()
	st.runs["run-1"] = stubRun("run-1")
	st.apps["MyAfterburner"] = &datatypes.Application{Name: "MyAfterburner", Team: "perf-team"}

	router := gin.New()
	router.DELETE("/v1/test-runs/:testRunId", DeleteTestRun(st, st, st))

	t.Run("wrong team is rejected before any delete", func(t *testing.T) {
		w := performRequest(router, "DELETE", "/v1/test-runs/run-1", nil,
			map[string]string{teamHeader: "other-team"})
		if w.Code != http.StatusForbidden {
			t.Fatalf("expected status %d, got %d", http.StatusForbidden, w.Code)
		}
		if len(st.deleted) != 0 {
			t.Errorf("expected no deletes, got %v", st.deleted)
		}
	})

	t.Run("matching team cascades the delete", func(t *testing.T) {
		w := performRequest(router, "DELETE", "/v1/test-runs/run-1", nil,
			map[string]string{teamHeader: "perf-team"})
		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
		}
		if len(st.deleted) != 1 || st.deleted[0] != "run-1" {
			t.Errorf("expected cascade delete of run-1, got %v", st.deleted)
		}
	})

	t.Run("unknown run", func(t *testing.T) {
		w := performRequest(router, "DELETE", "/v1/test-runs/run-missing", nil, nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
		}
	})
}

func TestSetBaselineAuthorization(t *testing.T) {
	st := newStubStore()
	st.runs["run-1"] = stubRun("run-1")
	st.apps["MyAfterburner"] = &datatypes.Application{
		Name: "MyAfterburner",
		Team: "perf-team",
		TestEnvironments: []datatypes.TestEnvironment{{
			Name:      "acc",
			TestTypes: []datatypes.TestType{{Name: "loadTest", RunAdapt: true, EnableAdapt: true}},
		}},
	}
	selector := engine.NewBaselineSelector(st, st, st, st)

	router := gin.New()
	router.PUT("/v1/test-runs/:testRunId/baseline", SetBaseline(selector, st, st))

	t.Run("wrong team leaves state untouched", func(t *testing.T) {
		w := performRequest(router, "PUT", "/v1/test-runs/run-1/baseline", nil,
			map[string]string{teamHeader: "other-team"})
		if w.Code != http.StatusForbidden {
			t.Fatalf("expected status %d, got %d", http.StatusForbidden, w.Code)
		}
		if st.baselineSet != "" {
			t.Errorf("baseline was set to %q despite rejected request", st.baselineSet)
		}
		if len(st.changepoints) != 0 {
			t.Errorf("changepoint was written despite rejected request")
		}
	})

	t.Run("matching team sets the baseline", func(t *testing.T) {
		w := performRequest(router, "PUT", "/v1/test-runs/run-1/baseline", nil,
			map[string]string{teamHeader: "perf-team"})
		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
		}
		if st.baselineSet != "run-1" {
			t.Errorf("expected baseline run-1, got %q", st.baselineSet)
		}
		if len(st.changepoints) != 1 {
			t.Errorf("expected one scope-wide changepoint, got %d", len(st.changepoints))
		}
	})
}

func TestResolveRegressionHandler(t *testing.T) {
	st := newStubStore()
	st.runs["run-1"] = stubRun("run-1")
	resolver := engine.NewRegressionResolver(st, st, st)

	router := gin.New()
	router.PUT("/v1/test-runs/:testRunId/resolve-regression", ResolveRegression(resolver, st, st))

	t.Run("missing status", func(t *testing.T) {
		w := performRequest(router, "PUT", "/v1/test-runs/run-1/resolve-regression",
			map[string]any{}, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})

	t.Run("unresolved is not a verdict", func(t *testing.T) {
		w := performRequest(router, "PUT", "/v1/test-runs/run-1/resolve-regression",
			map[string]any{"status": "UNRESOLVED"}, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})

	t.Run("denied verdict without re-evaluation", func(t *testing.T) {
		w := performRequest(router, "PUT", "/v1/test-runs/run-1/resolve-regression",
			map[string]any{"status": "DENIED"}, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
		}
		if st.runs["run-1"].Adapt.DifferencesAccepted != datatypes.AcceptanceDenied {
			t.Errorf("expected DENIED, got %q", st.runs["run-1"].Adapt.DifferencesAccepted)
		}
		if len(st.dispatched) != 0 {
			t.Errorf("expected no dispatch without reEvaluate, got %v", st.dispatched)
		}
	})
}

func TestBatchEvaluateHandler(t *testing.T) {
	st := newStubStore()
	st.runs["run-1"] = stubRun("run-1")
	coordinator := engine.NewBatchCoordinator(st, st, st, nil)

	router := gin.New()
	router.POST("/v1/test-runs/batch-evaluate", BatchEvaluate(coordinator))

	t.Run("unknown type", func(t *testing.T) {
		w := performRequest(router, "POST", "/v1/test-runs/batch-evaluate",
			map[string]any{"testRunIds": []string{"run-1"}, "type": "RECOMPUTE"}, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})

	t.Run("empty selection", func(t *testing.T) {
		w := performRequest(router, "POST", "/v1/test-runs/batch-evaluate",
			map[string]any{"testRunIds": []string{}, "type": "RE_EVALUATE"}, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})

	t.Run("re-evaluate is accepted", func(t *testing.T) {
		w := performRequest(router, "POST", "/v1/test-runs/batch-evaluate",
			map[string]any{"testRunIds": []string{"run-1"}, "type": "RE_EVALUATE", "adaptEnabled": true}, nil)
		if w.Code != http.StatusAccepted {
			t.Fatalf("expected status %d, got %d: %s", http.StatusAccepted, w.Code, w.Body.String())
		}
		if len(st.dispatched) != 1 {
			t.Fatalf("expected one dispatch, got %d", len(st.dispatched))
		}
	})

	t.Run("unknown run in selection", func(t *testing.T) {
		w := performRequest(router, "POST", "/v1/test-runs/batch-evaluate",
			map[string]any{"testRunIds": []string{"run-1", "run-ghost"}, "type": "RE_EVALUATE"}, nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
		}
	})
}

func TestUpsertApplicationTeamGate(t *testing.T) {
	st := newStubStore()
	st.apps["MyAfterburner"] = &datatypes.Application{Name: "MyAfterburner", Team: "perf-team"}

	router := gin.New()
	router.PUT("/v1/applications", UpsertApplication(st, st))

	t.Run("another team cannot overwrite", func(t *testing.T) {
		w := performRequest(router, "PUT", "/v1/applications",
			map[string]any{"name": "MyAfterburner", "team": "other-team"},
			map[string]string{teamHeader: "other-team"})
		if w.Code != http.StatusForbidden {
			t.Fatalf("expected status %d, got %d", http.StatusForbidden, w.Code)
		}
		if st.apps["MyAfterburner"].Team != "perf-team" {
			t.Error("stored application was overwritten despite rejection")
		}
	})

	t.Run("unknown application is created", func(t *testing.T) {
		w := performRequest(router, "PUT", "/v1/applications",
			map[string]any{"name": "NewService", "team": "other-team"}, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
		}
		if st.apps["NewService"] == nil {
			t.Error("application was not stored")
		}
	})

	t.Run("invalid name", func(t *testing.T) {
		w := performRequest(router, "PUT", "/v1/applications",
			map[string]any{"name": ";drop"}, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})
}

func TestCreateTestRunValidation(t *testing.T) {
	st := newStubStore()

	router := gin.New()
	router.POST("/v1/test-runs", CreateTestRun(st, st))

	t.Run("valid run is created", func(t *testing.T) {
		w := performRequest(router, "POST", "/v1/test-runs", stubRun("run-9"), nil)
		if w.Code != http.StatusCreated {
			t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
		}
		if st.runs["run-9"] == nil {
			t.Error("run was not stored")
		}
	})

	t.Run("bad test run id", func(t *testing.T) {
		bad := stubRun("run-10")
		bad.TestRunID = "run 10"
		w := performRequest(router, "POST", "/v1/test-runs", bad, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})

	t.Run("missing scope field", func(t *testing.T) {
		bad := stubRun("run-11")
		bad.TestType = ""
		w := performRequest(router, "POST", "/v1/test-runs", bad, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})
}

func TestGetControlGroupRequiresScope(t *testing.T) {
	st := newStubStore()
	tracker := engine.NewControlGroupTracker(st, st, st, st, st, st)

	router := gin.New()
	router.GET("/v1/control-group", GetControlGroup(tracker))

	w := performRequest(router, "GET", "/v1/control-group?application=MyAfterburner", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}
