// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"context"
	"fmt"

	"github.com/perfana/perfana-adapt/services/adapt/datatypes"
)

// ConfigResolver merges the 3-level comparison-configuration hierarchy
// (default -> panel -> metric) into one effective configuration per
// metric. Lookups are best-effort: a missing level falls through, never
// errors.
type ConfigResolver struct {
	configs         CompareConfigStore
	classifications ClassificationStore
}

// NewConfigResolver builds a resolver over the given stores.
func NewConfigResolver(configs CompareConfigStore, classifications ClassificationStore) *ConfigResolver {
	return &ConfigResolver{configs: configs, classifications: classifications}
}

// CompleteConfig resolves the effective configuration for the scope
// carried by partial. Levels overlay in order default, panel, metric;
// the caller's own explicit settings are merged last so they always
// win. Every overridable field of the result is populated.
func (r *ConfigResolver) CompleteConfig(ctx context.Context, partial datatypes.DsCompareConfig) (datatypes.DsCompareConfig, error) {
	acc := datatypes.BuiltInDefaultCompareConfig()

	def, err := r.configs.DefaultCompareConfig(ctx)
	if err != nil {
		return datatypes.DsCompareConfig{}, fmt.Errorf("default compare config lookup: %w", err)
	}
	acc = acc.Merge(def)

	scope, dashboardID, panelID, hasPanel := panelScope(&partial)
	if hasPanel {
		panel, err := r.configs.PanelCompareConfig(ctx, scope, dashboardID, panelID)
		if err != nil {
			return datatypes.DsCompareConfig{}, fmt.Errorf("panel compare config lookup: %w", err)
		}
		acc = acc.Merge(panel)

		if partial.MetricName != nil && *partial.MetricName != "" {
			metric, err := r.configs.MetricCompareConfig(ctx, scope, dashboardID, panelID, *partial.MetricName)
			if err != nil {
				return datatypes.DsCompareConfig{}, fmt.Errorf("metric compare config lookup: %w", err)
			}
			acc = acc.Merge(metric)
		}
	}

	// The caller's own fields take precedence over every stored level.
	acc = acc.Merge(&partial)

	acc.Application = partial.Application
	acc.TestEnvironment = partial.TestEnvironment
	acc.TestType = partial.TestType
	acc.ApplicationDashboardID = partial.ApplicationDashboardID
	acc.PanelID = partial.PanelID
	acc.MetricName = partial.MetricName
	return acc, nil
}

// ResolveClassification returns the classification for a metric with
// the metric -> panel -> UNKNOWN fallback.
func (r *ConfigResolver) ResolveClassification(ctx context.Context, partial datatypes.MetricClassification) (datatypes.MetricClassification, error) {
	out := partial
	out.MetricClassification = datatypes.UnknownClassification
	out.HigherIsBetter = false

	cfg := datatypes.DsCompareConfig{
		Application:            partial.Application,
		TestEnvironment:        partial.TestEnvironment,
		TestType:               partial.TestType,
		ApplicationDashboardID: partial.ApplicationDashboardID,
		PanelID:                partial.PanelID,
		MetricName:             partial.MetricName,
	}
	scope, dashboardID, panelID, hasPanel := panelScope(&cfg)
	if !hasPanel {
		return out, nil
	}

	if partial.MetricName != nil && *partial.MetricName != "" {
		m, err := r.classifications.MetricClassification(ctx, scope, dashboardID, panelID, *partial.MetricName)
		if err != nil {
			return datatypes.MetricClassification{}, fmt.Errorf("metric classification lookup: %w", err)
		}
		if m != nil {
			out.MetricClassification = m.MetricClassification
			out.HigherIsBetter = m.HigherIsBetter
			return out, nil
		}
	}

	p, err := r.classifications.PanelClassification(ctx, scope, dashboardID, panelID)
	if err != nil {
		return datatypes.MetricClassification{}, fmt.Errorf("panel classification lookup: %w", err)
	}
	if p != nil {
		out.MetricClassification = p.MetricClassification
		out.HigherIsBetter = p.HigherIsBetter
	}
	return out, nil
}

// UpsertCompareConfig writes one override record and, for panel-level
// records, cascades the change into metric-level records that were
// still following the panel value.
func (r *ConfigResolver) UpsertCompareConfig(ctx context.Context, cfg *datatypes.DsCompareConfig) error {
	var previous *datatypes.DsCompareConfig
	scope, dashboardID, panelID, hasPanel := panelScope(cfg)
	isPanelLevel := hasPanel && (cfg.MetricName == nil || *cfg.MetricName == "")

	if isPanelLevel {
		var err error
		previous, err = r.configs.PanelCompareConfig(ctx, scope, dashboardID, panelID)
		if err != nil {
			return fmt.Errorf("panel compare config lookup: %w", err)
		}
	}

	if err := r.configs.UpsertCompareConfig(ctx, cfg); err != nil {
		return fmt.Errorf("upsert compare config: %w", err)
	}
	if !isPanelLevel {
		return nil
	}

	metricConfigs, err := r.configs.MetricCompareConfigsForPanel(ctx, scope, dashboardID, panelID)
	if err != nil {
		return fmt.Errorf("metric compare configs for panel: %w", err)
	}
	for _, update := range metricUpdatesForPanelChange(previous, cfg, metricConfigs) {
		update := update
		if err := r.configs.UpsertCompareConfig(ctx, &update); err != nil {
			return fmt.Errorf("cascade metric compare config: %w", err)
		}
	}
	return nil
}

// metricUpdatesForPanelChange returns the metric-level records that
// must follow a panel-level change. A metric field follows when it is
// present, is sourced from the panel level, and still carries the old
// panel value. Records missing a field are skipped for that field.
func metricUpdatesForPanelChange(old, updated *datatypes.DsCompareConfig, metricConfigs []datatypes.DsCompareConfig) []datatypes.DsCompareConfig {
	var out []datatypes.DsCompareConfig
	for _, mc := range metricConfigs {
		changed := false

		if mc.Ignore != nil && updated.Ignore != nil && mc.Ignore.Source == datatypes.SourcePanel &&
			(old == nil || old.Ignore == nil || mc.Ignore.Value == old.Ignore.Value) {
			mc.Ignore = &datatypes.BoolSetting{Value: updated.Ignore.Value, Source: datatypes.SourcePanel}
			changed = true
		}
		if mc.Statistic != nil && updated.Statistic != nil && mc.Statistic.Source == datatypes.SourcePanel &&
			(old == nil || old.Statistic == nil || mc.Statistic.Value == old.Statistic.Value) {
			mc.Statistic = &datatypes.StringSetting{Value: updated.Statistic.Value, Source: datatypes.SourcePanel}
			changed = true
		}
		if mc.IqrThreshold != nil && updated.IqrThreshold != nil && mc.IqrThreshold.Source == datatypes.SourcePanel &&
			(old == nil || old.IqrThreshold == nil || mc.IqrThreshold.Value == old.IqrThreshold.Value) {
			mc.IqrThreshold = &datatypes.FloatSetting{Value: updated.IqrThreshold.Value, Source: datatypes.SourcePanel}
			changed = true
		}
		if mc.PctThreshold != nil && updated.PctThreshold != nil && mc.PctThreshold.Source == datatypes.SourcePanel &&
			(old == nil || old.PctThreshold == nil || mc.PctThreshold.Value == old.PctThreshold.Value) {
			mc.PctThreshold = &datatypes.FloatSetting{Value: updated.PctThreshold.Value, Source: datatypes.SourcePanel}
			changed = true
		}
		if mc.AbsThreshold != nil && updated.AbsThreshold != nil && mc.AbsThreshold.Source == datatypes.SourcePanel &&
			(old == nil || old.AbsThreshold == nil || mc.AbsThreshold.Value == old.AbsThreshold.Value) {
			mc.AbsThreshold = &datatypes.FloatSetting{Value: updated.AbsThreshold.Value, Source: datatypes.SourcePanel}
			changed = true
		}
		if mc.NThreshold != nil && updated.NThreshold != nil && mc.NThreshold.Source == datatypes.SourcePanel &&
			(old == nil || old.NThreshold == nil || mc.NThreshold.Value == old.NThreshold.Value) {
			mc.NThreshold = &datatypes.IntSetting{Value: updated.NThreshold.Value, Source: datatypes.SourcePanel}
			changed = true
		}

		if changed {
			out = append(out, mc)
		}
	}
	return out
}

// panelScope extracts the scope triple and panel coordinates from a
// config record. hasPanel is true only when application,
// testEnvironment, testType, applicationDashboardId and panelId are all
// specified, the precondition for panel-level lookups.
func panelScope(cfg *datatypes.DsCompareConfig) (scope Scope, dashboardID string, panelID int, hasPanel bool) {
	if cfg.Application == nil || cfg.TestEnvironment == nil || cfg.TestType == nil ||
		cfg.ApplicationDashboardID == nil || cfg.PanelID == nil {
		return Scope{}, "", 0, false
	}
	scope = Scope{
		Application:     *cfg.Application,
		TestEnvironment: *cfg.TestEnvironment,
		TestType:        *cfg.TestType,
	}
	if !scope.Valid() {
		return Scope{}, "", 0, false
	}
	return scope, *cfg.ApplicationDashboardID, *cfg.PanelID, true
}
