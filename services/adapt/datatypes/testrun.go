// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TestRun is one execution of a performance test. TestRunID is unique
// within the (application, testEnvironment, testType) scope.
type TestRun struct {
	ID              primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	Application     string             `json:"application" bson:"application"`
	TestEnvironment string             `json:"testEnvironment" bson:"testEnvironment"`
	TestType        string             `json:"testType" bson:"testType"`
	TestRunID       string             `json:"testRunId" bson:"testRunId"`
	Start           time.Time          `json:"start" bson:"start"`
	End             time.Time          `json:"end" bson:"end"`
	Duration        int                `json:"duration" bson:"duration"`
	RampUp          int                `json:"rampUp" bson:"rampUp"`
	Completed       bool               `json:"completed" bson:"completed"`
	Abort           bool               `json:"abort,omitempty" bson:"abort,omitempty"`
	Expired         bool               `json:"expired,omitempty" bson:"expired,omitempty"`
	Valid           *bool              `json:"valid,omitempty" bson:"valid,omitempty"`
	ReasonsNotValid []string           `json:"reasonsNotValid,omitempty" bson:"reasonsNotValid,omitempty"`
	Tags            []string           `json:"tags,omitempty" bson:"tags,omitempty"`
	Annotations     string             `json:"annotations,omitempty" bson:"annotations,omitempty"`
	Status          TestRunStatus      `json:"status" bson:"status"`
	Adapt           TestRunAdapt       `json:"adapt" bson:"adapt"`
}

// TestRunStatus holds the per-track evaluation state written back by
// the statistics engine. "Dispatch acknowledged" is not "processing
// complete"; observers poll these transitions.
type TestRunStatus struct {
	EvaluatingChecks      EvaluationStatus `json:"evaluatingChecks,omitempty" bson:"evaluatingChecks,omitempty"`
	EvaluatingComparisons EvaluationStatus `json:"evaluatingComparisons,omitempty" bson:"evaluatingComparisons,omitempty"`
	EvaluatingAdapt       EvaluationStatus `json:"evaluatingAdapt,omitempty" bson:"evaluatingAdapt,omitempty"`
	LastUpdate            time.Time        `json:"lastUpdate,omitempty" bson:"lastUpdate,omitempty"`
}

// TestRunAdapt is the ADAPT sub-document on a test run.
type TestRunAdapt struct {
	DifferencesAccepted AcceptanceStatus `json:"differencesAccepted,omitempty" bson:"differencesAccepted,omitempty"`
	Mode                AdaptMode        `json:"mode,omitempty" bson:"mode,omitempty"`
}

// IsValid treats an unset valid flag as valid; only an explicit
// valid:false marks a run invalid.
func (tr *TestRun) IsValid() bool {
	return tr.Valid == nil || *tr.Valid
}
