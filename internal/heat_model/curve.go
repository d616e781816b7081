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

import "math"

// CalculateFlow evaluates the weather compensation curve
//
//	flow = ti + factor*(ti - ta)
//
// rounds it to one decimal (half away from zero) and clamps it into [minFlow, maxFlow].
func CalculateFlow(ti, ta, factor, minFlow, maxFlow float64) float64 {
	flow := ti + factor*(ti-ta)
	return Clamp(Round1(flow), minFlow, maxFlow)
}

// Round1 rounds to one fractional digit, ties away from zero.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Clamp bounds v into [min, max]. NaN maps to min.
func Clamp(v, min, max float64) float64 {
	if math.IsNaN(v) || v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
