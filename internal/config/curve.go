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

package config

import (
	"github.com/pkg/errors"

	"github.com/antst/heatai/internal/command"
)

const (
	defaultMinFlow = 20.0
	defaultMaxFlow = 80.0
)

type CurveConfig struct {
	MinFlow float64 `yaml:"min_flow"`
	MaxFlow float64 `yaml:"max_flow"`
}

func NewCurveConfig() *CurveConfig {
	return &CurveConfig{MinFlow: defaultMinFlow, MaxFlow: defaultMaxFlow}
}

func (c *CurveConfig) Validate() error {
	if c.MinFlow >= c.MaxFlow {
		return errors.Errorf("curve: min_flow (%.1f) must be below max_flow (%.1f)", c.MinFlow, c.MaxFlow)
	}
	return nil
}

// DefaultsConfig holds the values used when an input cannot be read.
// Disable switches always fall back to "not disabled".
type DefaultsConfig struct {
	InsideSetpoint     float64          `yaml:"inside_setpoint"`
	CurveFactor        float64          `yaml:"curve_factor"`
	OutsideTemperature float64          `yaml:"outside_temperature"`
	ManualFlow         float64          `yaml:"manual_flow"`
	HotWaterSetpoint   command.Setpoint `yaml:"hot_water_setpoint"`
}

func NewDefaultsConfig() *DefaultsConfig {
	return &DefaultsConfig{
		InsideSetpoint:     20.0,
		CurveFactor:        1.0,
		OutsideTemperature: 0.0,
		ManualFlow:         45.0,
		HotWaterSetpoint:   command.Temperature(50.0),
	}
}

// MonitorConfig is the entity the computed flow is mirrored to. Empty disables it.
type MonitorConfig struct {
	Entity string `yaml:"entity"`
}

func NewMonitorConfig() *MonitorConfig {
	return &MonitorConfig{Entity: "input_number.heatai_calculated_flow_temperature"}
}

type HTTPConfig struct {
	Listen string `yaml:"listen"`
}

func NewHTTPConfig() *HTTPConfig {
	return &HTTPConfig{Listen: ":8099"}
}
