// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/perfana/perfana-adapt/services/adapt/datatypes"
)

var dispatchTracer = otel.Tracer("perfana.adapt.dispatch")

// BatchType selects the batch operation on the statistics engine. The
// set is sealed; anything outside it is a programming error.
type BatchType int

const (
	BatchReEvaluate BatchType = iota
	BatchRefresh
)

// String implements fmt.Stringer for logging and metrics labels.
func (t BatchType) String() string {
	switch t {
	case BatchReEvaluate:
		return "RE_EVALUATE"
	case BatchRefresh:
		return "REFRESH"
	default:
		return fmt.Sprintf("BatchType(%d)", int(t))
	}
}

// ParseBatchType converts the wire name of a batch type back into the
// enum. Unknown names fail with ErrUnknownBatchType.
func ParseBatchType(s string) (BatchType, error) {
	switch s {
	case "RE_EVALUATE":
		return BatchReEvaluate, nil
	case "REFRESH":
		return BatchRefresh, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownBatchType, s)
	}
}

var batchDispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "adapt_batch_dispatch_total",
	Help: "Batch requests dispatched to the statistics engine, by type and outcome.",
}, []string{"type", "outcome"})

// HTTPClient allows injecting mock HTTP clients for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Dispatcher sends batch re-evaluate/refresh requests to the external
// statistics engine over Basic-Auth HTTP. Dispatch is a pure function
// of (type, ids, adaptEnabled) plus network effects; no built-in retry,
// retries are caller policy.
type Dispatcher struct {
	baseURL  string
	username string
	password string
	client   HTTPClient
}

// NewDispatcher builds a dispatcher. An empty baseURL falls back to the
// local statistics engine default. A nil client gets a plain
// http.Client with a request timeout.
func NewDispatcher(baseURL, username, password string, client HTTPClient) *Dispatcher {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Dispatcher{baseURL: baseURL, username: username, password: password, client: client}
}

// CallBatchProcess posts the test-run ids to the statistics engine.
// RE_EVALUATE carries adapt and checks=true query parameters, REFRESH
// only adapt. A non-2xx response is returned as "HTTP {status}: {body}".
func (d *Dispatcher) CallBatchProcess(ctx context.Context, typ BatchType, testRunIDs []string, adaptEnabled bool) error {
	ctx, span := dispatchTracer.Start(ctx, "CallBatchProcess",
		trace.WithAttributes(
			attribute.String("batchType", typ.String()),
			attribute.Int("testRunCount", len(testRunIDs)),
			attribute.Bool("adaptEnabled", adaptEnabled),
		))
	defer span.End()

	var endpoint string
	query := url.Values{}
	query.Set("adapt", strconv.FormatBool(adaptEnabled))

	switch typ {
	case BatchReEvaluate:
		endpoint = "/data/reevaluate/batch"
		query.Set("checks", "true")
	case BatchRefresh:
		endpoint = "/data/refresh/batch"
	default:
		return fmt.Errorf("%w: %s", ErrUnknownBatchType, typ)
	}

	body, err := json.Marshal(testRunIDs)
	if err != nil {
		return fmt.Errorf("marshal test run ids: %w", err)
	}

	reqURL := d.baseURL + endpoint + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build batch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(d.username, d.password)

	resp, err := d.client.Do(req)
	if err != nil {
		batchDispatchTotal.WithLabelValues(typ.String(), "error").Inc()
		return fmt.Errorf("batch %s request failed: %w", typ, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		batchDispatchTotal.WithLabelValues(typ.String(), "error").Inc()
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	batchDispatchTotal.WithLabelValues(typ.String(), "ok").Inc()
	slog.Info("batch accepted by statistics engine",
		"type", typ.String(), "testRuns", len(testRunIDs), "adapt", adaptEnabled)
	return nil
}

// BatchCoordinator is the "batch evaluate selected test runs" entry
// point. It owns the pre-dispatch side effects: the all-or-nothing
// retention gate for refreshes and the reset of stale invalid flags.
type BatchCoordinator struct {
	runs       TestRunStore
	dashboards DashboardStore
	dispatcher BatchDispatcher
	now        func() time.Time
}

// NewBatchCoordinator builds a coordinator. now is for tests; nil means
// time.Now.
func NewBatchCoordinator(runs TestRunStore, dashboards DashboardStore, dispatcher BatchDispatcher, now func() time.Time) *BatchCoordinator {
	if now == nil {
		now = time.Now
	}
	return &BatchCoordinator{runs: runs, dashboards: dashboards, dispatcher: dispatcher, now: now}
}

// BatchEvaluateSelectedTestRuns validates the selection and dispatches
// one batch. For REFRESH every run must be within the retention window
// of every dashboard in its environment; one violation rejects the
// whole batch with ErrPastRetention and nothing is dispatched. Runs
// marked invalid are reset to valid with cleared reasons before
// dispatch, so stale invalidity cannot survive a fresh evaluation.
func (c *BatchCoordinator) BatchEvaluateSelectedTestRuns(ctx context.Context, testRunIDs []string, typ BatchType, adaptEnabled bool) error {
	if typ != BatchReEvaluate && typ != BatchRefresh {
		return fmt.Errorf("%w: %s", ErrUnknownBatchType, typ)
	}
	if len(testRunIDs) == 0 {
		return nil
	}

	runs := make([]*datatypes.TestRun, 0, len(testRunIDs))
	for _, id := range testRunIDs {
		tr, err := c.runs.TestRunByID(ctx, id)
		if err != nil {
			return fmt.Errorf("test run lookup: %w", err)
		}
		if tr == nil {
			return fmt.Errorf("%w: %s", ErrTestRunNotFound, id)
		}
		runs = append(runs, tr)
	}

	if typ == BatchRefresh {
		for _, tr := range runs {
			if err := c.checkRetention(ctx, tr); err != nil {
				return err
			}
		}
	}

	for _, tr := range runs {
		if tr.IsValid() {
			continue
		}
		if err := c.runs.MarkValid(ctx, tr.TestRunID); err != nil {
			return fmt.Errorf("reset test run validity: %w", err)
		}
	}

	return c.dispatcher.CallBatchProcess(ctx, typ, testRunIDs, adaptEnabled)
}

// checkRetention verifies the run is still within retention for every
// dashboard of its application/environment. Dashboards without a
// configured retention do not constrain the run.
func (c *BatchCoordinator) checkRetention(ctx context.Context, tr *datatypes.TestRun) error {
	dashboards, err := c.dashboards.DashboardsForEnvironment(ctx, tr.Application, tr.TestEnvironment)
	if err != nil {
		return fmt.Errorf("dashboard lookup: %w", err)
	}
	age := c.now().Sub(tr.End)
	for _, d := range dashboards {
		if d.RetentionDays <= 0 {
			continue
		}
		if age > time.Duration(d.RetentionDays)*24*time.Hour {
			return fmt.Errorf("%w: test run %s ended %s ago, dashboard %q retains %d days",
				ErrPastRetention, tr.TestRunID, age.Round(time.Hour), d.DashboardLabel, d.RetentionDays)
		}
	}
	return nil
}
