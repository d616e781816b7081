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
	"sort"

	"github.com/pkg/errors"
)

// Names of the inputs the controller reads every tick.
const (
	InputMode                = "mode"
	InputInsideSetpoint      = "inside_setpoint"
	InputCurveFactor         = "curve_factor"
	InputOutsideTemperature  = "outside_temperature"
	InputManualFlow          = "manual_flow"
	InputHotWaterSetpoint    = "hot_water_setpoint"
	InputHeatingDisable      = "heating_disable"
	InputHotWaterLoadDisable = "hot_water_load_disable"
)

// InputConfig points an input at a Home Assistant entity. With Attribute set
// the value is read from the entity attributes instead of its state.
type InputConfig struct {
	Entity    string `yaml:"entity"`
	Attribute string `yaml:"attribute,omitempty"`
}

type InputsConfig map[string]*InputConfig

func defaultInputs() map[string]InputConfig {
	return map[string]InputConfig{
		InputMode:                {Entity: "input_select.heatai_mode"},
		InputInsideSetpoint:      {Entity: "input_number.heatai_desired_inside_temperature"},
		InputCurveFactor:         {Entity: "input_number.heatai_heating_curve_factor"},
		InputOutsideTemperature:  {Entity: "weather.yandex_weather", Attribute: "temperature"},
		InputManualFlow:          {Entity: "input_number.heatai_manual_flow_temperature"},
		InputHotWaterSetpoint:    {Entity: "input_number.heatai_desired_storage_temperature"},
		InputHeatingDisable:      {Entity: "input_boolean.heatai_heating_disable"},
		InputHotWaterLoadDisable: {Entity: "input_boolean.heatai_waterstorage_disable"},
	}
}

func NewInputsConfig() InputsConfig {
	c := make(InputsConfig)
	c.FillDefaults()
	return c
}

func (c InputsConfig) FillDefaults() {
	for name, def := range defaultInputs() {
		in, ok := c[name]
		if !ok || in == nil {
			d := def
			c[name] = &d
			continue
		}
		if in.Entity == "" {
			in.Entity = def.Entity
			if in.Attribute == "" {
				in.Attribute = def.Attribute
			}
		}
	}
}

func (c InputsConfig) Validate() error {
	known := defaultInputs()
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, ok := known[name]; !ok {
			return errors.Errorf("unknown input `%s`", name)
		}
		if c[name] == nil || c[name].Entity == "" {
			return errors.Errorf("input `%s` has no entity", name)
		}
	}
	return nil
}
