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

package internal

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"

	"github.com/antst/heatai/internal/command"
	"github.com/antst/heatai/internal/config"
	"github.com/antst/heatai/internal/db"
	"github.com/antst/heatai/internal/decision"
	"github.com/antst/heatai/internal/homeassistant"
	"github.com/antst/heatai/internal/logger"
	"github.com/antst/heatai/internal/safe_mqtt"
	"github.com/antst/heatai/internal/web"
)

const (
	controlQoS        = 1
	shutdownTimeout   = 5 * time.Second
	stateWriteTimeout = 5 * time.Second
)

// sleepSlice bounds how long the loop waits before looking at ctx again.
var sleepSlice = time.Second

type HeatController struct {
	cfg     *config.Config
	queries *db.Queries
	mqtt    safe_mqtt.MqttClient
	engine  *decision.Engine
	version string

	mu         sync.RWMutex
	lastStored time.Time
	snapshot web.Snapshot
	ticks    uint64
}

// NewHeatController connects everything the loop needs. The state store and
// the broker connection are optional when the configuration allows it.
func NewHeatController(cfg *config.Config, version string) (*HeatController, error) {
	var queries *db.Queries
	if cfg.DBFile != "" {
		q, err := db.OpenDatabase(cfg.DBFile)
		if err != nil {
			return nil, err
		}
		queries = q
	}

	ha := homeassistant.NewClient(cfg.HomeAssistant)

	client, err := safe_mqtt.InitMQTTClient(cfg.MQTTConfig, "controller", mqttConnectAttempts(cfg.Publish.Via))
	var publisher decision.Publisher
	switch cfg.Publish.Via {
	case config.PublishViaHomeAssistant:
		if err != nil {
			logger.L().Warnf("Running without MQTT control topics: %v", err)
			client = nil
		}
		publisher = homeassistant.NewPublisher(ha, cfg.Publish.Retained)
	default:
		if err != nil {
			if queries != nil {
				_ = queries.Close()
			}
			return nil, err
		}
		publisher = safe_mqtt.NewPublisher(client, byte(cfg.MQTTConfig.QoS), cfg.Publish.Retained,
			time.Duration(cfg.MQTTConfig.TimeoutSeconds)*time.Second)
	}

	var monitor decision.Monitor
	if cfg.Monitor.Entity != "" {
		monitor = homeassistant.NewMonitor(ha)
	}

	engine := decision.New(homeassistant.NewSource(ha, cfg.Inputs), monitor, publisher, decision.SettingsFromConfig(cfg))
	return newHeatController(cfg, version, engine, queries, client), nil
}

// mqttConnectAttempts keeps startup short when the broker only carries the
// optional control topics.
func mqttConnectAttempts(via string) int {
	if via == config.PublishViaHomeAssistant {
		return 1
	}
	return safe_mqtt.ConnectAttempts
}

func newHeatController(cfg *config.Config, version string, engine *decision.Engine, queries *db.Queries, client safe_mqtt.MqttClient) *HeatController {
	c := &HeatController{
		cfg:     cfg,
		queries: queries,
		mqtt:    client,
		engine:  engine,
		version: version,
	}
	c.restore()
	c.setupMQTTSubscriptions()
	return c
}

func (c *HeatController) restore() {
	if level, err := c.readValue(db.ValueLogLevel); err == nil {
		if c.cfg.LogLevelFromFlag {
			logger.L().Infof("Keeping log level `%s` from the command line, stored `%s` ignored",
				c.cfg.LogLevel, level)
		} else if err := logger.SetLogLevelString(level); err != nil {
			logger.L().Warnf("Ignoring stored log level: %v", err)
		} else {
			logger.L().Infof("Restored log level `%s`", level)
		}
	}
	if c.queries == nil {
		return
	}
	row, err := c.queries.GetControllerValueRow(context.Background(), db.ValueLastPayload)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			logger.L().Warnf("Failed to read %s: %v", db.ValueLastPayload, err)
		}
		return
	}
	c.lastStored = row.UpdatedAt
	logger.L().Infof("Last published %s v%d before restart at %s: %s (mode %s)", command.Name, command.Version,
		row.UpdatedAt.Local().Format(time.RFC3339), row.Value, c.readValueWithDefault(db.ValueLastMode, "unknown"))
}

func (c *HeatController) setupMQTTSubscriptions() {
	if c.mqtt == nil {
		return
	}
	c.mqtt.SafeSubscribe(c.cfg.MQTTConfig.ControlTopic+"/log_level", controlQoS, c.controlUpdateHandler)
}

// Run ticks until ctx is cancelled. A tick in progress is always finished.
func (c *HeatController) Run(ctx context.Context) {
	var srv *web.Server
	if c.cfg.HTTP.Listen != "" {
		srv = web.NewServer(c.cfg.HTTP.Listen, c)
		srv.Start()
	}
	logger.L().Infof("Controller started, interval %v, fallback mode %s", c.cfg.Interval(), c.cfg.FallbackMode)

	for ctx.Err() == nil {
		c.tick(context.WithoutCancel(ctx))
		if !sleep(ctx, c.cfg.Interval()) {
			break
		}
	}
	logger.L().Info("Shutdown requested, stopping controller")

	if srv != nil {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := srv.Shutdown(sctx); err != nil {
			logger.L().Warn(err)
		}
		cancel()
	}
	c.Close()
}

func (c *HeatController) Close() {
	if c.mqtt != nil {
		c.mqtt.Disconnect()
	}
	if c.queries != nil {
		if err := c.queries.Close(); err != nil {
			logger.L().Warnf("Failed to close state db: %v", err)
		}
	}
}

func (c *HeatController) tick(ctx context.Context) decision.TickResult {
	res := c.engine.Tick(ctx)
	c.record(res)

	if res.Published && c.writeValue(db.ValueLastPayload, res.Payload) {
		c.mu.Lock()
		c.lastStored = res.At
		c.mu.Unlock()
	}
	c.writeValue(db.ValueLastMode, res.Mode.String())
	c.publishState(res)
	return res
}

func (c *HeatController) record(res decision.TickResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ticks++
	c.snapshot = web.Snapshot{
		Version:        c.version,
		CommandVersion: command.Version,
		Mode:           res.Mode.String(),
		ResetState:     c.engine.ResetState().String(),
		Payload:        res.Payload,
		Suppressed:     res.Suppressed,
		Published:      res.Published,
		MQTTConnected:  c.mqtt != nil && c.mqtt.IsConnected(),
		Readings:       res.Readings,
		TickAt:         res.At,
		Ticks:          c.ticks,
	}
	if res.Err != nil {
		c.snapshot.Error = res.Err.Error()
	}
}

// Snapshot is read by the status endpoint.
func (c *HeatController) Snapshot() (web.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.snapshot
	if !c.lastStored.IsZero() {
		at := c.lastStored
		s.StoredAt = &at
	}
	return s, c.ticks > 0
}

func (c *HeatController) publishState(res decision.TickResult) {
	if c.mqtt == nil {
		return
	}
	topic := c.cfg.MQTTConfig.ControlTopic
	c.mqtt.SafePublish(topic+"/mode", controlQoS, true, res.Mode.String())
	if res.Record != nil {
		c.mqtt.SafePublish(topic+"/flow", controlQoS, true, strconv.FormatFloat(res.Record.FlowTemperature, 'f', 1, 64))
	}
}

func (c *HeatController) controlUpdateHandler(_ mqtt.Client, message mqtt.Message) {
	topic := message.Topic()[strings.LastIndex(message.Topic(), "/")+1:]
	payload := strings.TrimSpace(string(message.Payload()))
	logger.L().Infof("Got MQTT control request: %v : %v", topic, payload)

	switch topic {
	case "log_level":
		if err := logger.SetLogLevelString(payload); err != nil {
			logger.L().Errorf("Wrong log level `%v`", payload)
			return
		}
		logger.L().Infof("Updated loglevel to `%v`", logger.Level().String())
		c.writeValue(db.ValueLogLevel, logger.Level().String())
	default:
		logger.L().Warnf("Unknown control topic `%s`", message.Topic())
	}
}

// writeValue reports whether the value reached the store.
func (c *HeatController) writeValue(name, value string) bool {
	if c.queries == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), stateWriteTimeout)
	defer cancel()
	err := c.queries.UpsertControllerValue(ctx, db.UpsertControllerValueParams{Name: name, Value: value})
	if err != nil {
		logger.L().Warnf("Failed to store %s: %v", name, err)
		return false
	}
	return true
}

func (c *HeatController) readValue(name string) (string, error) {
	if c.queries == nil {
		return "", db.ErrNotFound
	}
	return c.queries.GetControllerValue(context.Background(), name)
}

func (c *HeatController) readValueWithDefault(name string, defValue string) string {
	val, err := c.readValue(name)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			logger.L().Warnf("Failed to read %s: %v", name, err)
		}
		val = defValue
	}
	return val
}

// sleep waits for d in slices and reports false once ctx is done.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for remaining := d; remaining > 0; remaining -= sleepSlice {
		step := sleepSlice
		if remaining < step {
			step = remaining
		}
		timer.Reset(step)
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
		}
	}
	return ctx.Err() == nil
}
