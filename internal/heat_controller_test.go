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
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/antst/heatai/internal/command"
	"github.com/antst/heatai/internal/config"
	"github.com/antst/heatai/internal/db"
	"github.com/antst/heatai/internal/decision"
	"github.com/antst/heatai/internal/heat_model"
	"github.com/antst/heatai/internal/logger"
	"github.com/antst/heatai/internal/safe_mqtt"
)

type doneToken struct{ done chan struct{} }

func newDoneToken() *doneToken {
	t := &doneToken{done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *doneToken) Wait() bool                     { return true }
func (t *doneToken) WaitTimeout(time.Duration) bool { return true }
func (t *doneToken) Done() <-chan struct{}          { return t.done }
func (t *doneToken) Error() error                   { return nil }

type statePublish struct {
	topic    string
	retained bool
	payload  interface{}
}

type fakeMQTT struct {
	mu           sync.Mutex
	published    []statePublish
	subscribed   map[string]mqtt.MessageHandler
	disconnected bool
}

func newFakeMQTT() *fakeMQTT {
	return &fakeMQTT{subscribed: map[string]mqtt.MessageHandler{}}
}

func (f *fakeMQTT) SafePublish(topic string, _ byte, retained bool, payload interface{}) mqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, statePublish{topic, retained, payload})
	return newDoneToken()
}

func (f *fakeMQTT) SafeSubscribe(topic string, _ byte, callback mqtt.MessageHandler) mqtt.Token {
	f.subscribed[topic] = callback
	return newDoneToken()
}

func (f *fakeMQTT) SafeUnsubscribe(...string) mqtt.Token { return newDoneToken() }
func (f *fakeMQTT) IsConnected() bool                    { return true }
func (f *fakeMQTT) Disconnect()                          { f.disconnected = true }

func (f *fakeMQTT) topics() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, p := range f.published {
		out = append(out, p.topic)
	}
	return out
}

type controlMessage struct {
	topic   string
	payload string
}

func (m controlMessage) Duplicate() bool   { return false }
func (m controlMessage) Qos() byte         { return 1 }
func (m controlMessage) Retained() bool    { return false }
func (m controlMessage) Topic() string     { return m.topic }
func (m controlMessage) MessageID() uint16 { return 1 }
func (m controlMessage) Payload() []byte   { return []byte(m.payload) }
func (m controlMessage) Ack()              {}

type mapSource map[string]string

func (s mapSource) Fetch(_ context.Context, input string) (string, error) {
	if v, ok := s[input]; ok {
		return v, nil
	}
	return "", errors.New("unavailable")
}

type recordingPublisher struct {
	payloads  []string
	err       error
	onPublish func()
}

func (p *recordingPublisher) Publish(_ context.Context, _, payload string) error {
	if p.onPublish != nil {
		p.onPublish()
	}
	if p.err != nil {
		return p.err
	}
	p.payloads = append(p.payloads, payload)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		IntervalSeconds: 1,
		FallbackMode:    heat_model.Auto,
		MQTTConfig:      config.NewMQTTConfig(),
		Publish:         config.NewPublishConfig(),
		Curve:           config.NewCurveConfig(),
		Defaults:        config.NewDefaultsConfig(),
		Monitor:         &config.MonitorConfig{},
		ExtraFields:     command.InertExtraFields(),
		HTTP:            &config.HTTPConfig{},
	}
}

func testInputs(mode string) mapSource {
	return mapSource{
		config.InputMode:                mode,
		config.InputInsideSetpoint:      "20",
		config.InputCurveFactor:         "1",
		config.InputOutsideTemperature:  "-5",
		config.InputHotWaterSetpoint:    "50",
		config.InputHeatingDisable:      "off",
		config.InputHotWaterLoadDisable: "off",
	}
}

func openStore(t *testing.T) *db.Queries {
	t.Helper()
	q, err := db.OpenDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func newTestController(t *testing.T, src mapSource, pub *recordingPublisher, q *db.Queries, client *fakeMQTT) *HeatController {
	t.Helper()
	cfg := testConfig()
	engine := decision.New(src, nil, pub, decision.SettingsFromConfig(cfg))
	var c *HeatController
	if client == nil {
		c = newHeatController(cfg, "test", engine, q, nil)
	} else {
		c = newHeatController(cfg, "test", engine, q, client)
	}
	return c
}

func TestTickStoresAndReportsState(t *testing.T) {
	q := openStore(t)
	client := newFakeMQTT()
	pub := &recordingPublisher{}
	c := newTestController(t, testInputs("auto"), pub, q, client)

	_, ok := c.Snapshot()
	assert.False(t, ok)

	res := c.tick(context.Background())
	require.True(t, res.Published)
	assert.Equal(t, []string{"1;45.0;50.0;-;-;0;0;0;-;0;0;0"}, pub.payloads)

	payload, err := q.GetControllerValue(context.Background(), db.ValueLastPayload)
	require.NoError(t, err)
	assert.Equal(t, "1;45.0;50.0;-;-;0;0;0;-;0;0;0", payload)
	mode, err := q.GetControllerValue(context.Background(), db.ValueLastMode)
	require.NoError(t, err)
	assert.Equal(t, "auto", mode)

	assert.Equal(t, []statePublish{
		{"heatai/control/mode", true, "auto"},
		{"heatai/control/flow", true, "45.0"},
	}, client.published)

	s, ok := c.Snapshot()
	require.True(t, ok)
	assert.Equal(t, "auto", s.Mode)
	assert.Equal(t, "test", s.Version)
	assert.Equal(t, uint64(1), s.Ticks)
	assert.True(t, s.Published)
	assert.Empty(t, s.Error)
	assert.NotEmpty(t, s.Readings)
	assert.True(t, s.MQTTConnected)
	assert.Equal(t, command.Version, s.CommandVersion)
	require.NotNil(t, s.StoredAt)
	assert.True(t, s.StoredAt.Equal(res.At))
}

func TestSuppressedTickKeepsLastPayload(t *testing.T) {
	q := openStore(t)
	client := newFakeMQTT()
	src := testInputs("off")
	pub := &recordingPublisher{}
	c := newTestController(t, src, pub, q, client)

	c.tick(context.Background())
	res := c.tick(context.Background())
	assert.True(t, res.Suppressed)
	assert.Len(t, pub.payloads, 1)

	payload, err := q.GetControllerValue(context.Background(), db.ValueLastPayload)
	require.NoError(t, err)
	assert.Equal(t, "0;0.0;50.0;-;-;0;0;0;-;0;0;0", payload)

	assert.Equal(t, []string{
		"heatai/control/mode", "heatai/control/flow",
		"heatai/control/mode",
	}, client.topics())

	s, _ := c.Snapshot()
	assert.True(t, s.Suppressed)
	assert.Equal(t, "sent", s.ResetState)
	assert.Equal(t, uint64(2), s.Ticks)
}

func TestFailedPublishIsReported(t *testing.T) {
	q := openStore(t)
	pub := &recordingPublisher{err: errors.New("broker down")}
	c := newTestController(t, testInputs("off"), pub, q, nil)

	res := c.tick(context.Background())
	assert.False(t, res.Published)

	_, err := q.GetControllerValue(context.Background(), db.ValueLastPayload)
	assert.ErrorIs(t, err, db.ErrNotFound)

	s, ok := c.Snapshot()
	require.True(t, ok)
	assert.Equal(t, "pending", s.ResetState)
	assert.Contains(t, s.Error, "broker down")
}

func TestControlTopicChangesLogLevel(t *testing.T) {
	defer logger.SetLogLevel(logger.Level())

	q := openStore(t)
	client := newFakeMQTT()
	c := newTestController(t, testInputs("auto"), &recordingPublisher{}, q, client)

	handler, ok := client.subscribed["heatai/control/log_level"]
	require.True(t, ok)

	handler(nil, controlMessage{topic: "heatai/control/log_level", payload: "debug\n"})
	assert.Equal(t, zapcore.DebugLevel, logger.Level())
	stored, err := q.GetControllerValue(context.Background(), db.ValueLogLevel)
	require.NoError(t, err)
	assert.Equal(t, "debug", stored)

	c.controlUpdateHandler(nil, controlMessage{topic: "heatai/control/log_level", payload: "loud"})
	assert.Equal(t, zapcore.DebugLevel, logger.Level())
}

func TestRestoreLogLevel(t *testing.T) {
	defer logger.SetLogLevel(logger.Level())
	logger.SetLogLevel(zapcore.InfoLevel)

	q := openStore(t)
	require.NoError(t, q.UpsertControllerValue(context.Background(),
		db.UpsertControllerValueParams{Name: db.ValueLogLevel, Value: "warn"}))

	newTestController(t, testInputs("auto"), &recordingPublisher{}, q, nil)
	assert.Equal(t, zapcore.WarnLevel, logger.Level())
}

func TestWithoutStoreOrBroker(t *testing.T) {
	pub := &recordingPublisher{}
	c := newTestController(t, testInputs("manual"), pub, nil, nil)

	res := c.tick(context.Background())
	assert.True(t, res.Published)
	assert.Equal(t, "default", c.readValueWithDefault(db.ValueLastMode, "default"))

	snap, ok := c.Snapshot()
	require.True(t, ok)
	assert.False(t, snap.MQTTConnected)
	assert.Nil(t, snap.StoredAt)
	c.Close()
}

func TestRunFinishesTickAfterCancel(t *testing.T) {
	prev := sleepSlice
	sleepSlice = 10 * time.Millisecond
	defer func() { sleepSlice = prev }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := newFakeMQTT()
	pub := &recordingPublisher{onPublish: cancel}
	c := newTestController(t, testInputs("auto"), pub, nil, client)

	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("controller did not stop")
	}

	assert.Len(t, pub.payloads, 1, "the tick in progress still publishes")
	assert.True(t, client.disconnected)
	s, ok := c.Snapshot()
	require.True(t, ok)
	assert.Equal(t, uint64(1), s.Ticks)
}

func TestRunDoesNotTickWhenAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pub := &recordingPublisher{}
	c := newTestController(t, testInputs("auto"), pub, nil, nil)
	c.Run(ctx)

	assert.Empty(t, pub.payloads)
}

func TestSleep(t *testing.T) {
	prev := sleepSlice
	sleepSlice = 5 * time.Millisecond
	defer func() { sleepSlice = prev }()

	assert.True(t, sleep(context.Background(), 12*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	assert.False(t, sleep(ctx, time.Hour))
	assert.Less(t, time.Since(start), time.Second)
}

func TestCommandLineLogLevelWinsOverStored(t *testing.T) {
	defer logger.SetLogLevel(logger.Level())
	logger.SetLogLevel(zapcore.DebugLevel)

	q := openStore(t)
	require.NoError(t, q.UpsertControllerValue(context.Background(),
		db.UpsertControllerValueParams{Name: db.ValueLogLevel, Value: "error"}))

	cfg := testConfig()
	cfg.LogLevel = zapcore.DebugLevel
	cfg.LogLevelFromFlag = true
	engine := decision.New(testInputs("auto"), nil, &recordingPublisher{}, decision.SettingsFromConfig(cfg))
	newHeatController(cfg, "test", engine, q, nil)

	assert.Equal(t, zapcore.DebugLevel, logger.Level())
}

func TestRestoreReadsLastPayloadTime(t *testing.T) {
	q := openStore(t)
	at := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	require.NoError(t, q.UpsertControllerValue(context.Background(), db.UpsertControllerValueParams{
		Name: db.ValueLastPayload, Value: "1;45.0;50.0;-;-;0;0;0;-;0;0;0", UpdatedAt: at,
	}))

	c := newTestController(t, testInputs("off"), &recordingPublisher{err: errors.New("broker down")}, q, nil)
	assert.True(t, c.lastStored.Equal(at), "got %v", c.lastStored)

	c.tick(context.Background())
	s, ok := c.Snapshot()
	require.True(t, ok)
	require.NotNil(t, s.StoredAt)
	assert.True(t, s.StoredAt.Equal(at), "a failed publish keeps the stored time")
}

func TestMQTTConnectAttempts(t *testing.T) {
	assert.Equal(t, 1, mqttConnectAttempts(config.PublishViaHomeAssistant))
	assert.Equal(t, safe_mqtt.ConnectAttempts, mqttConnectAttempts(config.PublishViaMQTT))
}
