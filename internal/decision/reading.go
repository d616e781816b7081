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

package decision

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/antst/heatai/internal/command"
	"github.com/antst/heatai/internal/logger"
)

type Status uint8

const (
	Present Status = iota
	FetchFailed
	ParseFailed
)

func (s Status) String() string {
	switch s {
	case Present:
		return "present"
	case FetchFailed:
		return "fetch-failed"
	case ParseFailed:
		return "parse-failed"
	default:
		return "unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Reading is one input as seen during a tick. Value is what the engine used,
// which is the configured default unless Status is Present.
type Reading struct {
	Input  string `json:"input"`
	Raw    string `json:"raw,omitempty"`
	Value  string `json:"value"`
	Status Status `json:"status"`
}

var errNotFinite = errors.New("value is not finite")

// readings collects the inputs of one tick and turns every failure into a default.
type readings struct {
	source Source
	list   []Reading
}

func (r *readings) fetch(ctx context.Context, input string) (string, bool) {
	raw, err := r.source.Fetch(ctx, input)
	if err != nil {
		logger.L().Warnf("Cannot read `%s`, using default: %v", input, err)
		return "", false
	}
	return raw, true
}

func (r *readings) add(input, raw, value string, status Status) {
	r.list = append(r.list, Reading{Input: input, Raw: raw, Value: value, Status: status})
}

func (r *readings) float(ctx context.Context, input string, def float64) float64 {
	raw, ok := r.fetch(ctx, input)
	if !ok {
		r.add(input, "", formatFloat(def), FetchFailed)
		return def
	}
	v, err := parseFloat(raw)
	if err != nil {
		logger.L().Warnf("Cannot parse `%s` value %q, using default %v: %v", input, raw, def, err)
		r.add(input, raw, formatFloat(def), ParseFailed)
		return def
	}
	r.add(input, raw, formatFloat(v), Present)
	return v
}

// flag reads a switch. Anything unreadable counts as off.
func (r *readings) flag(ctx context.Context, input string) bool {
	raw, ok := r.fetch(ctx, input)
	if !ok {
		r.add(input, "", "false", FetchFailed)
		return false
	}
	v, err := parseFlag(raw)
	if err != nil {
		logger.L().Warnf("Cannot parse `%s` value %q, assuming off: %v", input, raw, err)
		r.add(input, raw, "false", ParseFailed)
		return false
	}
	r.add(input, raw, strconv.FormatBool(v), Present)
	return v
}

func (r *readings) setpoint(ctx context.Context, input string, def command.Setpoint) command.Setpoint {
	raw, ok := r.fetch(ctx, input)
	if !ok {
		r.add(input, "", def.String(), FetchFailed)
		return def
	}
	v, err := command.ParseSetpoint(raw)
	if err == nil && v.Set && (math.IsNaN(v.Value) || math.IsInf(v.Value, 0)) {
		err = errNotFinite
	}
	if err != nil {
		logger.L().Warnf("Cannot parse `%s` value %q, using default %s: %v", input, raw, def, err)
		r.add(input, raw, def.String(), ParseFailed)
		return def
	}
	r.add(input, raw, v.String(), Present)
	return v
}

func parseFloat(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errNotFinite
	}
	return v, nil
}

func parseFlag(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "on", "true", "1", "yes":
		return true, nil
	case "off", "false", "0", "no":
		return false, nil
	}
	return false, errors.Errorf("%q is not a switch state", raw)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
