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

package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/antst/heatai/internal/logger"
)

const (
	maxHeaderBytes    = 1 << 16
	readHeaderTimeout = 5 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
)

func init() {
	gin.SetMode(gin.ReleaseMode)
}

// Server serves the status endpoints next to the control loop.
type Server struct {
	httpServer *http.Server
}

func NewServer(listen string, status SnapshotProvider) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              listen,
			Handler:           NewHandler(status).InitRoutes(),
			MaxHeaderBytes:    maxHeaderBytes,
			ReadHeaderTimeout: readHeaderTimeout,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       idleTimeout,
		},
	}
}

// Start listens in the background. A failing listener only disables the
// status endpoint, the controller keeps running.
func (s *Server) Start() {
	go func() {
		logger.L().Infof("Status endpoint listening on `%s`", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Errorf("Status endpoint stopped: %v", err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return errors.WithMessage(s.httpServer.Shutdown(ctx), "status endpoint shutdown")
}

func requestLogger(c *gin.Context) {
	start := time.Now()
	c.Next()
	logger.L().Debugf("%s %s -> %d (%v)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
}
