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

package heat_model

import (
	"fmt"
	"strings"
)

// Mode is the operating mode of the controller for one tick.
type Mode uint8

const (
	Disabled Mode = iota
	Manual
	Auto
)

var modeNames = map[string]Mode{
	"off":    Disabled,
	"manual": Manual,
	"auto":   Auto,
	"room":   Auto,
}

func (m Mode) String() string {
	switch m {
	case Disabled:
		return "off"
	case Manual:
		return "manual"
	case Auto:
		return "auto"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMode is the strict form of Resolve, used for configuration values.
func ParseMode(raw string) (Mode, error) {
	if m, ok := modeNames[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return m, nil
	}
	return Disabled, fmt.Errorf("unknown mode %q, expected one of off, manual, auto, room", raw)
}

// Resolve maps the mode selector value to a Mode. Unknown values and failed
// fetches (ok == false) resolve to fallback.
func Resolve(raw string, ok bool, fallback Mode) Mode {
	if !ok {
		return fallback
	}
	m, err := ParseMode(raw)
	if err != nil {
		return fallback
	}
	return m
}
