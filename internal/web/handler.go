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
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/antst/heatai/internal/decision"
)

// Snapshot is what the controller reports about its last tick.
type Snapshot struct {
	Version        string             `json:"version,omitempty"`
	CommandVersion int                `json:"command_version"`
	Mode           string             `json:"mode"`
	ResetState     string             `json:"reset_state"`
	Payload        string             `json:"payload,omitempty"`
	Suppressed     bool               `json:"suppressed"`
	Published      bool               `json:"published"`
	Error          string             `json:"error,omitempty"`
	MQTTConnected  bool               `json:"mqtt_connected"`
	Readings       []decision.Reading `json:"readings"`
	TickAt         time.Time          `json:"tick_at"`
	Ticks          uint64             `json:"ticks"`
	// StoredAt is when the last published payload was written to the state db.
	StoredAt *time.Time `json:"stored_at,omitempty"`
}

// SnapshotProvider returns false until the first tick completed.
type SnapshotProvider interface {
	Snapshot() (Snapshot, bool)
}

type Handler struct {
	status SnapshotProvider
}

func NewHandler(status SnapshotProvider) *Handler {
	return &Handler{status: status}
}

func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger)

	router.GET("/healthz", h.health)
	router.GET("/status", h.getStatus)

	return router
}

func (h *Handler) health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func (h *Handler) getStatus(c *gin.Context) {
	s, ok := h.status.Snapshot()
	if !ok {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
			"error": "no tick completed yet",
		})
		return
	}
	c.JSON(http.StatusOK, s)
}
