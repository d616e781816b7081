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

package homeassistant

import (
	"context"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/antst/heatai/internal/config"
)

// Source resolves controller inputs to Home Assistant entity values.
type Source struct {
	client *Client
	inputs config.InputsConfig
}

func NewSource(client *Client, inputs config.InputsConfig) *Source {
	return &Source{client: client, inputs: inputs}
}

// Fetch returns the raw value of input. Missing, unknown and unavailable values are errors.
func (s *Source) Fetch(ctx context.Context, input string) (string, error) {
	in, ok := s.inputs[input]
	if !ok || in == nil {
		return "", errors.Errorf("input `%s` is not configured", input)
	}

	st, err := s.client.State(ctx, in.Entity)
	if err != nil {
		return "", err
	}
	if in.Attribute == "" {
		return stateValue(in.Entity, st.State)
	}
	return attributeValue(in.Entity, in.Attribute, st.Attributes)
}

func stateValue(entity, state string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(state)) {
	case "", "unknown", "unavailable", "none":
		return "", errors.Wrapf(ErrUnavailable, "%s is `%s`", entity, state)
	}
	return state, nil
}

func attributeValue(entity, attribute string, attrs map[string]interface{}) (string, error) {
	v, ok := attrs[attribute]
	if !ok || v == nil {
		return "", errors.Wrapf(ErrUnavailable, "%s has no attribute `%s`", entity, attribute)
	}

	switch t := v.(type) {
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case string:
		return stateValue(entity, t)
	case bool:
		return strconv.FormatBool(t), nil
	default:
		return "", errors.Errorf("cannot use `%v` of %s.%s as a value", v, entity, attribute)
	}
}
