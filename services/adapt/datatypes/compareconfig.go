// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import "go.mongodb.org/mongo-driver/bson/primitive"

// BoolSetting, FloatSetting, IntSetting and StringSetting carry a
// comparison setting together with the override level it came from.
type BoolSetting struct {
	Value  bool         `json:"value" bson:"value"`
	Source ConfigSource `json:"source" bson:"source"`
}

type FloatSetting struct {
	Value  float64      `json:"value" bson:"value"`
	Source ConfigSource `json:"source" bson:"source"`
}

type IntSetting struct {
	Value  int          `json:"value" bson:"value"`
	Source ConfigSource `json:"source" bson:"source"`
}

type StringSetting struct {
	Value  string       `json:"value" bson:"value"`
	Source ConfigSource `json:"source" bson:"source"`
}

// DsCompareConfig is one override record for the 3-level comparison
// configuration hierarchy. A nil scope field acts as a wildcard, so the
// record with every scope field nil is the default level, a record with
// a panel but no metric name is the panel level, and a record naming a
// metric is the metric level. Exactly one record may exist per scope
// tuple; writers upsert on the compound selector.
type DsCompareConfig struct {
	ID                     primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	Application            *string            `json:"application" bson:"application"`
	TestEnvironment        *string            `json:"testEnvironment" bson:"testEnvironment"`
	TestType               *string            `json:"testType" bson:"testType"`
	ApplicationDashboardID *string            `json:"applicationDashboardId" bson:"applicationDashboardId"`
	PanelID                *int               `json:"panelId" bson:"panelId"`
	MetricName             *string            `json:"metricName" bson:"metricName"`

	Ignore       *BoolSetting   `json:"ignore,omitempty" bson:"ignore,omitempty"`
	Statistic    *StringSetting `json:"statistic,omitempty" bson:"statistic,omitempty"`
	IqrThreshold *FloatSetting  `json:"iqrThreshold,omitempty" bson:"iqrThreshold,omitempty"`
	PctThreshold *FloatSetting  `json:"pctThreshold,omitempty" bson:"pctThreshold,omitempty"`
	AbsThreshold *FloatSetting  `json:"absThreshold,omitempty" bson:"absThreshold,omitempty"`
	NThreshold   *IntSetting    `json:"nThreshold,omitempty" bson:"nThreshold,omitempty"`
}

// Merge overlays non-nil settings of other onto a copy of c. Scope
// fields are taken from c; only the override settings move.
func (c DsCompareConfig) Merge(other *DsCompareConfig) DsCompareConfig {
	if other == nil {
		return c
	}
	if other.Ignore != nil {
		c.Ignore = other.Ignore
	}
	if other.Statistic != nil {
		c.Statistic = other.Statistic
	}
	if other.IqrThreshold != nil {
		c.IqrThreshold = other.IqrThreshold
	}
	if other.PctThreshold != nil {
		c.PctThreshold = other.PctThreshold
	}
	if other.AbsThreshold != nil {
		c.AbsThreshold = other.AbsThreshold
	}
	if other.NThreshold != nil {
		c.NThreshold = other.NThreshold
	}
	return c
}

// BuiltInDefaultCompareConfig is the synthesized default used when no
// default-level record exists in the collection.
func BuiltInDefaultCompareConfig() DsCompareConfig {
	return DsCompareConfig{
		Ignore:       &BoolSetting{Value: false, Source: SourceDefault},
		Statistic:    &StringSetting{Value: "median", Source: SourceDefault},
		IqrThreshold: &FloatSetting{Value: 6, Source: SourceDefault},
		PctThreshold: &FloatSetting{Value: 0.15, Source: SourceDefault},
		AbsThreshold: &FloatSetting{Value: 0, Source: SourceDefault},
		NThreshold:   &IntSetting{Value: 5, Source: SourceDefault},
	}
}

// MetricClassification labels a metric (or a whole panel) and records
// whether higher values are better. Resolution falls back metric ->
// panel -> "UNKNOWN", mirroring the compare-config hierarchy.
type MetricClassification struct {
	ID                     primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	Application            *string            `json:"application" bson:"application"`
	TestEnvironment        *string            `json:"testEnvironment" bson:"testEnvironment"`
	TestType               *string            `json:"testType" bson:"testType"`
	ApplicationDashboardID *string            `json:"applicationDashboardId" bson:"applicationDashboardId"`
	PanelID                *int               `json:"panelId" bson:"panelId"`
	MetricName             *string            `json:"metricName" bson:"metricName"`

	MetricClassification string `json:"metricClassification" bson:"metricClassification"`
	HigherIsBetter       bool   `json:"higherIsBetter" bson:"higherIsBetter"`
}

// UnknownClassification is the fallback when neither the metric nor the
// panel level has a record.
const UnknownClassification = "UNKNOWN"
