// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// AdaptMode selects how ADAPT builds the comparison population for a
// test type.
type AdaptMode string

const (
	AdaptModeDefault  AdaptMode = "DEFAULT"
	AdaptModeBaseline AdaptMode = "BASELINE"
	AdaptModeDebug    AdaptMode = "DEBUG"
)

// EvaluationStatus tracks the lifecycle of one evaluation track
// (checks, comparisons, adapt) on a test run. The external statistics
// engine writes these back asynchronously.
type EvaluationStatus string

const (
	EvalStarted         EvaluationStatus = "STARTED"
	EvalInProgress      EvaluationStatus = "IN_PROGRESS"
	EvalBatchProcessing EvaluationStatus = "BATCH_PROCESSING"
	EvalReEvaluate      EvaluationStatus = "RE_EVALUATE"
	EvalReEvaluateAdapt EvaluationStatus = "RE_EVALUATE_ADAPT"
	EvalRefresh         EvaluationStatus = "REFRESH"
	EvalComplete        EvaluationStatus = "COMPLETE"
	EvalError           EvaluationStatus = "ERROR"
	EvalNotConfigured   EvaluationStatus = "NOT_CONFIGURED"
	EvalNoBaselines     EvaluationStatus = "NO_BASELINES_FOUND"
)

// AcceptanceStatus is an operator decision on detected differences.
type AcceptanceStatus string

const (
	AcceptanceUnresolved AcceptanceStatus = "UNRESOLVED"
	AcceptanceAccepted   AcceptanceStatus = "ACCEPTED"
	AcceptanceDenied     AcceptanceStatus = "DENIED"
)

// ConfigSource names the override level a comparison setting came from.
type ConfigSource string

const (
	SourceDefault ConfigSource = "default"
	SourcePanel   ConfigSource = "panel"
	SourceMetric  ConfigSource = "metric"
)

// ConclusionLabel is the per-metric verdict produced by the statistics
// engine.
type ConclusionLabel string

const (
	ConclusionRegression   ConclusionLabel = "regression"
	ConclusionImprovement  ConclusionLabel = "improvement"
	ConclusionOK           ConclusionLabel = "ok"
	ConclusionIncomparable ConclusionLabel = "incomparable"
)
