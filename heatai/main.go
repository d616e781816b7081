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

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/antst/heatai/internal"
	"github.com/antst/heatai/internal/config"
	"github.com/antst/heatai/internal/logger"
)

// Build version, overridden with flag during build.
var version = "devel"

func main() {
	os.Exit(run())
}

func run() int {
	defer logger.Close()
	logger.L().Warnf("HEATAI weather compensated boiler controller, version: %+v", version)

	cfg, err := config.Get()
	if err != nil {
		logger.L().Errorf("Cannot load configuration: %v", err)
		return 1
	}
	if err := cfg.RequireToken(); err != nil {
		logger.L().Error(err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := internal.NewHeatController(cfg, version)
	if err != nil {
		logger.L().Errorf("Cannot start controller: %v", err)
		return 1
	}
	c.Run(ctx)
	return 0
}
