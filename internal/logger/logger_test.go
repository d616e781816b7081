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

package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetLogLevelString(t *testing.T) {
	prev := Level()
	defer SetLogLevel(prev)

	require.NoError(t, SetLogLevelString("warn"))
	assert.Equal(t, zapcore.WarnLevel, Level())

	err := SetLogLevelString("loud")
	assert.Error(t, err)
	assert.Equal(t, zapcore.WarnLevel, Level(), "level must not change on bad input")
}

func TestReplace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := Replace(core)

	L().Warnf("boiler %s", "offline")
	restore()
	L().Warn("not observed")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "boiler offline", logs.All()[0].Message)
}
