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

import "github.com/antst/heatai/internal/heat_model"

type ResetState uint8

const (
	// ResetPending: the next disabled tick must publish the reset record.
	ResetPending ResetState = iota
	// ResetSent: the reset went out for the current run of disabled ticks.
	ResetSent
)

func (s ResetState) String() string {
	if s == ResetSent {
		return "sent"
	}
	return "pending"
}

// ResetTracker makes sure the reset record is published once per run of
// consecutive disabled ticks. The zero value is ready to use.
type ResetTracker struct {
	state ResetState
}

// Observe records the mode of the current tick. Leaving Disabled re-arms the reset.
func (t *ResetTracker) Observe(mode heat_model.Mode) {
	if mode != heat_model.Disabled {
		t.state = ResetPending
	}
}

// ShouldSend reports whether a tick in mode has to publish the reset record.
func (t *ResetTracker) ShouldSend(mode heat_model.Mode) bool {
	return mode == heat_model.Disabled && t.state == ResetPending
}

// MarkSent is called only after the broker confirmed the reset record.
func (t *ResetTracker) MarkSent() {
	t.state = ResetSent
}

func (t *ResetTracker) State() ResetState {
	return t.state
}
