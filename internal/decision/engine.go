/*
 * Copyright (c) 2023. Anton Starikov -- All Rights Reserved
 *
 * This file is part of HEATAI project.
 *
 * HEATAI is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as the Free Software Foundation,
 * either version 3 of the License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

// Package decision turns the inputs of one tick into a SetModeOverride command.
package decision

import (
	"context"
	"time"

	"github.com/antst/heatai/internal/command"
	"github.com/antst/heatai/internal/config"
	"github.com/antst/heatai/internal/heat_model"
	"github.com/antst/heatai/internal/logger"
)

// Source returns the raw value of a named input, or an error when there is none.
type Source interface {
	Fetch(ctx context.Context, input string) (string, error)
}

// Monitor receives the computed flow temperature, best effort.
type Monitor interface {
	Write(ctx context.Context, name string, value float64) error
}

// Publisher transmits an encoded command.
type Publisher interface {
	Publish(ctx context.Context, topic, payload string) error
}

type Settings struct {
	FallbackMode  heat_model.Mode
	MinFlow       float64
	MaxFlow       float64
	Defaults      config.DefaultsConfig
	Extra         command.ExtraFields
	Topic         string
	MonitorEntity string
}

func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		FallbackMode:  cfg.FallbackMode,
		MinFlow:       cfg.Curve.MinFlow,
		MaxFlow:       cfg.Curve.MaxFlow,
		Defaults:      *cfg.Defaults,
		Extra:         cfg.ExtraFields,
		Topic:         cfg.Publish.Topic,
		MonitorEntity: cfg.Monitor.Entity,
	}
}

// Decision is the outcome of one tick before publishing. Record is nil when
// the tick has nothing to send.
type Decision struct {
	Mode       heat_model.Mode
	Record     *command.ControlRecord
	Suppressed bool
	Readings   []Reading
}

type TickResult struct {
	Decision
	At        time.Time
	Payload   string
	Published bool
	Err       error
}

// Engine owns the reset state across ticks. It is not safe for concurrent use.
type Engine struct {
	source    Source
	monitor   Monitor
	publisher Publisher
	settings  Settings
	tracker   ResetTracker
	now       func() time.Time
}

// New creates an engine. monitor may be nil.
func New(source Source, monitor Monitor, publisher Publisher, settings Settings) *Engine {
	return &Engine{
		source:    source,
		monitor:   monitor,
		publisher: publisher,
		settings:  settings,
		now:       time.Now,
	}
}

func (e *Engine) ResetState() ResetState {
	return e.tracker.State()
}

// Decide reads the inputs and builds the record for this tick. It never fails:
// unreadable inputs fall back to their defaults.
func (e *Engine) Decide(ctx context.Context) Decision {
	r := &readings{source: e.source}
	mode := e.resolveMode(ctx, r)
	e.tracker.Observe(mode)

	heatingDisabled := r.flag(ctx, config.InputHeatingDisable)
	hotWaterLoadDisabled := r.flag(ctx, config.InputHotWaterLoadDisable)
	hotWater := r.setpoint(ctx, config.InputHotWaterSetpoint, e.settings.Defaults.HotWaterSetpoint)

	d := Decision{Mode: mode}
	switch mode {
	case heat_model.Disabled:
		if !e.tracker.ShouldSend(mode) {
			d.Suppressed = true
			break
		}
		rec := command.ResetRecord(hotWater, heatingDisabled, hotWaterLoadDisabled)
		d.Record = &rec

	case heat_model.Manual:
		flow := r.float(ctx, config.InputManualFlow, e.settings.Defaults.ManualFlow)
		flow = heat_model.Clamp(heat_model.Round1(flow), e.settings.MinFlow, e.settings.MaxFlow)
		d.Record = e.override(flow, hotWater, heatingDisabled, hotWaterLoadDisabled)

	default:
		ti := r.float(ctx, config.InputInsideSetpoint, e.settings.Defaults.InsideSetpoint)
		factor := r.float(ctx, config.InputCurveFactor, e.settings.Defaults.CurveFactor)
		ta := r.float(ctx, config.InputOutsideTemperature, e.settings.Defaults.OutsideTemperature)
		flow := heat_model.CalculateFlow(ti, ta, factor, e.settings.MinFlow, e.settings.MaxFlow)
		logger.L().Debugf("Curve: ti=%.1f ta=%.1f factor=%.2f -> flow=%.1f", ti, ta, factor, flow)
		e.mirror(ctx, flow)
		d.Record = e.override(flow, hotWater, heatingDisabled, hotWaterLoadDisabled)
	}

	d.Readings = r.list
	return d
}

// Tick decides, encodes and publishes. The reset state only advances after a
// successful publish, so a lost reset is retried on the next disabled tick.
func (e *Engine) Tick(ctx context.Context) TickResult {
	res := TickResult{Decision: e.Decide(ctx), At: e.now()}
	if res.Record == nil {
		logger.L().Debugf("Boiler already released, nothing to publish (mode=%s)", res.Mode)
		return res
	}

	res.Payload = command.Encode(*res.Record)
	if err := e.publisher.Publish(ctx, e.settings.Topic, res.Payload); err != nil {
		res.Err = err
		logger.L().Errorf("Failed to publish %s `%s`: %v", command.Name, res.Payload, err)
		return res
	}
	res.Published = true
	if res.Mode == heat_model.Disabled {
		e.tracker.MarkSent()
	}

	logger.L().Infof("Boiler %s: mode=%s, hcmode=%s, flow=%.1f, dhw=%s, disable hc=%v, disable hwc load=%v, payload=%s",
		action(res.Record), res.Mode, boolDigit(res.Record.HeatingActive), res.Record.FlowTemperature,
		res.Record.HotWaterSetpoint, res.Record.HeatingDisabled, res.Record.HotWaterLoadDisabled, res.Payload)
	return res
}

func (e *Engine) resolveMode(ctx context.Context, r *readings) heat_model.Mode {
	raw, ok := r.fetch(ctx, config.InputMode)
	mode := heat_model.Resolve(raw, ok, e.settings.FallbackMode)

	status := Present
	if !ok {
		status = FetchFailed
	} else if _, err := heat_model.ParseMode(raw); err != nil {
		status = ParseFailed
		logger.L().Infof("Unknown mode %q, falling back to %s", raw, mode)
	}
	r.add(config.InputMode, raw, mode.String(), status)
	return mode
}

func (e *Engine) override(flow float64, hotWater command.Setpoint, heatingDisabled, hotWaterLoadDisabled bool) *command.ControlRecord {
	return &command.ControlRecord{
		HeatingActive:        true,
		FlowTemperature:      flow,
		HotWaterSetpoint:     hotWater,
		HeatingDisabled:      heatingDisabled,
		HotWaterLoadDisabled: hotWaterLoadDisabled,
		Extra:                e.settings.Extra,
	}
}

func (e *Engine) mirror(ctx context.Context, flow float64) {
	if e.monitor == nil || e.settings.MonitorEntity == "" {
		return
	}
	if err := e.monitor.Write(ctx, e.settings.MonitorEntity, flow); err != nil {
		logger.L().Warnf("Failed to mirror flow %.1f to %s: %v", flow, e.settings.MonitorEntity, err)
	}
}

func action(r *command.ControlRecord) string {
	if r.HeatingActive {
		return "overridden"
	}
	return "reset"
}

func boolDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
