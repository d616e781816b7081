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

package config

import (
	"github.com/pkg/errors"
)

const (
	defaultMQTTURL        = "tcp://127.0.0.1:1883"
	defaultControlTopic   = "heatai/control"
	defaultClientIDPrefix = "heatai-"
	defaultMQTTTimeout    = 5
	defaultCommandTopic   = "ebusd/bai/SetModeOverride/set"
	defaultHAURL          = "http://localhost:8123"
	defaultHATimeout      = 10

	PublishViaMQTT          = "mqtt"
	PublishViaHomeAssistant = "homeassistant"
)

type MQTTConfig struct {
	URL            string `yaml:"url"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	ClientIDPrefix string `yaml:"client_id_prefix"`
	ControlTopic   string `yaml:"control_topic"`
	QoS            int    `yaml:"qos"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

func NewMQTTConfig() *MQTTConfig {
	cfg := &MQTTConfig{QoS: 1}
	cfg.FillDefaults()
	return cfg
}

func (c *MQTTConfig) FillDefaults() {
	if c.URL == "" {
		c.URL = defaultMQTTURL
	}
	if c.ControlTopic == "" {
		c.ControlTopic = defaultControlTopic
	}
	if c.ClientIDPrefix == "" {
		c.ClientIDPrefix = defaultClientIDPrefix
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = defaultMQTTTimeout
	}
}

func (c *MQTTConfig) Validate() error {
	if c.QoS < 0 || c.QoS > 2 {
		return errors.Errorf("mqtt: qos must be 0, 1 or 2, got %d", c.QoS)
	}
	return nil
}

// PublishConfig selects how the SetModeOverride payload reaches ebusd.
type PublishConfig struct {
	Via      string `yaml:"via"`
	Topic    string `yaml:"topic"`
	Retained bool   `yaml:"retained"`
}

func NewPublishConfig() *PublishConfig {
	return &PublishConfig{Via: PublishViaMQTT, Topic: defaultCommandTopic}
}

func (c *PublishConfig) Validate() error {
	switch c.Via {
	case PublishViaMQTT, PublishViaHomeAssistant:
	default:
		return errors.Errorf("publish: unknown transport `%s`, expected %s or %s",
			c.Via, PublishViaMQTT, PublishViaHomeAssistant)
	}
	if c.Topic == "" {
		return errors.New("publish: topic is empty")
	}
	return nil
}

type HomeAssistantConfig struct {
	URL            string `yaml:"url"`
	Token          string `yaml:"token"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

func NewHomeAssistantConfig() *HomeAssistantConfig {
	cfg := &HomeAssistantConfig{}
	cfg.FillDefaults()
	return cfg
}

func (c *HomeAssistantConfig) FillDefaults() {
	if c.URL == "" {
		c.URL = defaultHAURL
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = defaultHATimeout
	}
}
