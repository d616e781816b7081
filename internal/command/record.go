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

package command

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// KeepMarker tells ebusd to leave a field at its current value.
const KeepMarker = "-"

// Setpoint is either a temperature or the keep marker.
type Setpoint struct {
	Value float64
	Set   bool
}

func Temperature(v float64) Setpoint { return Setpoint{Value: v, Set: true} }

func Keep() Setpoint { return Setpoint{} }

func (s Setpoint) String() string {
	if !s.Set {
		return KeepMarker
	}
	return formatDecimal(s.Value)
}

// ParseSetpoint accepts a decimal number or the keep marker.
func ParseSetpoint(raw string) (Setpoint, error) {
	raw = strings.TrimSpace(raw)
	if raw == KeepMarker {
		return Keep(), nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Keep(), errors.Wrapf(err, "setpoint %q is neither a number nor %q", raw, KeepMarker)
	}
	return Temperature(v), nil
}

func (s Setpoint) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Setpoint) UnmarshalText(text []byte) error {
	parsed, err := ParseSetpoint(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ExtraFields are the secondary SetModeOverride fields the controller never
// computes. The zero value leaves every one of them untouched.
type ExtraFields struct {
	HwcFlowTempDesired  Setpoint `yaml:"hwcflowtempdesired"`
	SetMode1            Setpoint `yaml:"setmode1"`
	DisableHwcTapping   bool     `yaml:"disablehwctapping"`
	SetMode2            Setpoint `yaml:"setmode2"`
	RemoteControlHcPump bool     `yaml:"remote_control_hc_pump"`
	ReleaseBackup       bool     `yaml:"release_backup"`
	ReleaseCooling      bool     `yaml:"release_cooling"`
}

func InertExtraFields() ExtraFields {
	return ExtraFields{
		HwcFlowTempDesired: Keep(),
		SetMode1:           Keep(),
		SetMode2:           Keep(),
	}
}

// ControlRecord is the decision of one tick, before encoding.
type ControlRecord struct {
	HeatingActive        bool
	FlowTemperature      float64
	HotWaterSetpoint     Setpoint
	HeatingDisabled      bool
	HotWaterLoadDisabled bool
	Extra                ExtraFields
}

// ResetRecord releases the override and hands control back to the boiler's own curve.
func ResetRecord(hotWater Setpoint, heatingDisabled, hotWaterLoadDisabled bool) ControlRecord {
	return ControlRecord{
		HeatingActive:        false,
		FlowTemperature:      0.0,
		HotWaterSetpoint:     hotWater,
		HeatingDisabled:      heatingDisabled,
		HotWaterLoadDisabled: hotWaterLoadDisabled,
		Extra:                InertExtraFields(),
	}
}
