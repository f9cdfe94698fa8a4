// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/perfana/perfana-adapt/services/adapt/engine"
)

var selScope = engine.Scope{
	Application:     "MyAfterburner",
	TestEnvironment: "acc",
	TestType:        "loadTest",
}

func TestDefaultLevelSelector(t *testing.T) {
	sel := defaultLevelSelector()
	// Every scoping field is an explicit null, which is what makes the
	// default record unique.
	for _, key := range []string{"application", "testEnvironment", "testType",
		"applicationDashboardId", "panelId", "metricName"} {
		v, ok := sel[key]
		require.True(t, ok, "missing key %s", key)
		assert.Nil(t, v, "key %s must be null", key)
	}
}

func TestPanelLevelSelector(t *testing.T) {
	sel := panelLevelSelector(selScope, "dash-1", 12)
	assert.Equal(t, "MyAfterburner", sel["application"])
	assert.Equal(t, "acc", sel["testEnvironment"])
	assert.Equal(t, "loadTest", sel["testType"])
	assert.Equal(t, "dash-1", sel["applicationDashboardId"])
	assert.Equal(t, 12, sel["panelId"])
	assert.Nil(t, sel["metricName"])
}

func TestScopeWideChangepointSelector(t *testing.T) {
	sel := scopeWideChangepointSelector(selScope)
	assert.Equal(t, "MyAfterburner", sel["application"])
	assert.Nil(t, sel["applicationDashboardId"])
	assert.Nil(t, sel["panelId"])
	assert.Nil(t, sel["metricName"])
}

func TestTrackedRegressionPipelineShape(t *testing.T) {
	pipeline := trackedRegressionPipeline([]string{"run-1", "run-2"})
	require.Len(t, pipeline, 3)

	match := pipeline[0][0]
	assert.Equal(t, "$match", match.Key)
	filter := match.Value.(bson.M)
	assert.Equal(t, bson.M{"$in": []string{"run-1", "run-2"}}, filter["testRunId"])

	lookup := pipeline[1][0]
	assert.Equal(t, "$lookup", lookup.Key)
	join := lookup.Value.(bson.M)
	assert.Equal(t, collTestRuns, join["from"])
	assert.Equal(t, "trackedTestRunId", join["localField"])
	assert.Equal(t, "testRunId", join["foreignField"])
}

func TestCascadeCoversDependentCollections(t *testing.T) {
	// No dependent collection may be forgotten, or deletes would leave
	// orphaned rows behind.
	expected := []string{
		collTestRunConfigs,
		collDsMetricStatistics,
		collDsAdaptResults,
		collDsAdaptTrackedResults,
		collDsTrackedDifferences,
		collDsControlGroupStats,
		collDsPanels,
		collSnapshots,
		collCheckResults,
		collCompareResults,
	}
	assert.ElementsMatch(t, expected, testRunDependentCollections)
}
