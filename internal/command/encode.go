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
)

const (
	// Name of the ebusd message the payload is written to.
	Name = "SetModeOverride"
	// Version of the field order below. Bump it when FieldNames changes.
	Version = 1

	FieldCount = 12
	separator  = ";"
)

// FieldNames is the wire order of the SetModeOverride payload.
var FieldNames = [FieldCount]string{
	"hcmode",
	"flowtempdesired",
	"hwctempdesired",
	"hwcflowtempdesired",
	"setmode1",
	"disablehc",
	"disablehwctapping",
	"disablehwcload",
	"setmode2",
	"remoteControlHcPump",
	"releaseBackup",
	"releaseCooling",
}

// Fields renders every field of r in wire order.
func Fields(r ControlRecord) [FieldCount]string {
	return [FieldCount]string{
		formatFlag(r.HeatingActive),
		formatDecimal(r.FlowTemperature),
		r.HotWaterSetpoint.String(),
		r.Extra.HwcFlowTempDesired.String(),
		r.Extra.SetMode1.String(),
		formatFlag(r.HeatingDisabled),
		formatFlag(r.Extra.DisableHwcTapping),
		formatFlag(r.HotWaterLoadDisabled),
		r.Extra.SetMode2.String(),
		formatFlag(r.Extra.RemoteControlHcPump),
		formatFlag(r.Extra.ReleaseBackup),
		formatFlag(r.Extra.ReleaseCooling),
	}
}

// Encode renders r as the semicolon separated ebusd payload.
func Encode(r ControlRecord) string {
	f := Fields(r)
	return strings.Join(f[:], separator)
}

func formatFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func formatDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
