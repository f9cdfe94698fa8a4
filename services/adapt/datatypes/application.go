// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import "go.mongodb.org/mongo-driver/bson/primitive"

// Application is a system under test. Environments are unique by name
// within an application, test types unique by name within an
// environment.
type Application struct {
	ID               primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	Name             string             `json:"name" bson:"name"`
	Description      string             `json:"description,omitempty" bson:"description,omitempty"`
	Team             string             `json:"team,omitempty" bson:"team,omitempty"`
	TestEnvironments []TestEnvironment  `json:"testEnvironments" bson:"testEnvironments"`
}

// TestEnvironment groups the workloads (test types) run against one
// deployment of the application.
type TestEnvironment struct {
	Name      string     `json:"name" bson:"name"`
	TestTypes []TestType `json:"testTypes" bson:"testTypes"`
}

// TestType is one workload. It carries the ADAPT configuration that
// applies to every test run executed under it.
type TestType struct {
	Name                     string    `json:"name" bson:"name"`
	BaselineTestRun          string    `json:"baselineTestRun,omitempty" bson:"baselineTestRun,omitempty"`
	AdaptMode                AdaptMode `json:"adaptMode,omitempty" bson:"adaptMode,omitempty"`
	RunAdapt                 bool      `json:"runAdapt" bson:"runAdapt"`
	EnableAdapt              bool      `json:"enableAdapt" bson:"enableAdapt"`
	AutoCompareTestRuns      bool      `json:"autoCompareTestRuns" bson:"autoCompareTestRuns"`
	AutoCreateSnapshots      bool      `json:"autoCreateSnapshots" bson:"autoCreateSnapshots"`
	DifferenceScoreThreshold float64   `json:"differenceScoreThreshold,omitempty" bson:"differenceScoreThreshold,omitempty"`
	Tags                     []string  `json:"tags,omitempty" bson:"tags,omitempty"`
}

// FindTestType returns the test type for the given environment and
// workload name, or nil when either level is absent.
func (a *Application) FindTestType(environment, testType string) *TestType {
	for i := range a.TestEnvironments {
		if a.TestEnvironments[i].Name != environment {
			continue
		}
		for j := range a.TestEnvironments[i].TestTypes {
			if a.TestEnvironments[i].TestTypes[j].Name == testType {
				return &a.TestEnvironments[i].TestTypes[j]
			}
		}
	}
	return nil
}

// AdaptEnabled reports whether ADAPT evaluation is switched on for the
// given environment and test type. Missing levels count as disabled.
func (a *Application) AdaptEnabled(environment, testType string) bool {
	tt := a.FindTestType(environment, testType)
	if tt == nil {
		return false
	}
	return tt.RunAdapt && tt.EnableAdapt
}
