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
	"bytes"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pborman/getopt/v2"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/antst/heatai/internal/command"
	"github.com/antst/heatai/internal/heat_model"
	"github.com/antst/heatai/internal/logger"
)

const (
	defaultConfigFile   = "config.yaml"
	defaultDBFile       = "heatai.db"
	defaultInterval     = 300
	defaultFallbackMode = heat_model.Auto
	envPrefix           = "HEATAI"
	redacted            = "***"
)

var ErrMissingToken = errors.New("Home Assistant token is not set (HA_TOKEN)")

// older env names, still honoured next to the HEATAI_* ones
var legacyEnv = map[string]string{
	"homeassistant.url":   "HA_URL",
	"homeassistant.token": "HA_TOKEN",
	"mqtt.url":            "MQTT_URL",
}

type Config struct {
	LogLevel        zapcore.Level        `yaml:"log_level"`
	IntervalSeconds int                  `yaml:"interval_seconds"`
	FallbackMode    heat_model.Mode      `yaml:"fallback_mode"`
	DBFile          string               `yaml:"db_file"`
	HomeAssistant   *HomeAssistantConfig `yaml:"homeassistant"`
	MQTTConfig      *MQTTConfig          `yaml:"mqtt"`
	Publish         *PublishConfig       `yaml:"publish"`
	Curve           *CurveConfig         `yaml:"curve"`
	Defaults        *DefaultsConfig      `yaml:"defaults"`
	Inputs          InputsConfig         `yaml:"inputs"`
	Monitor         *MonitorConfig       `yaml:"monitor"`
	ExtraFields     command.ExtraFields  `yaml:"extra_fields"`
	HTTP            *HTTPConfig          `yaml:"http"`

	// LogLevelFromFlag is set when -l was given; it then wins over a stored level.
	LogLevelFromFlag bool `yaml:"-"`
}

func defConfig() *Config {
	return &Config{
		LogLevel:        zapcore.InfoLevel,
		IntervalSeconds: defaultInterval,
		FallbackMode:    defaultFallbackMode,
		DBFile:          defaultDBFile,
		HomeAssistant:   NewHomeAssistantConfig(),
		MQTTConfig:      NewMQTTConfig(),
		Publish:         NewPublishConfig(),
		Curve:           NewCurveConfig(),
		Defaults:        NewDefaultsConfig(),
		Inputs:          NewInputsConfig(),
		Monitor:         NewMonitorConfig(),
		ExtraFields:     command.InertExtraFields(),
		HTTP:            NewHTTPConfig(),
	}
}

func (cfg *Config) Interval() time.Duration {
	return time.Duration(cfg.IntervalSeconds) * time.Second
}

// FillDefaults restores sections an override file set to null.
func (cfg *Config) FillDefaults() {
	def := defConfig()
	if cfg.HomeAssistant == nil {
		cfg.HomeAssistant = def.HomeAssistant
	}
	if cfg.MQTTConfig == nil {
		cfg.MQTTConfig = def.MQTTConfig
	}
	if cfg.Publish == nil {
		cfg.Publish = def.Publish
	}
	if cfg.Curve == nil {
		cfg.Curve = def.Curve
	}
	if cfg.Defaults == nil {
		cfg.Defaults = def.Defaults
	}
	if cfg.Monitor == nil {
		cfg.Monitor = def.Monitor
	}
	if cfg.HTTP == nil {
		cfg.HTTP = def.HTTP
	}
	if cfg.IntervalSeconds == 0 {
		cfg.IntervalSeconds = defaultInterval
	}
	if cfg.Inputs == nil {
		cfg.Inputs = make(InputsConfig)
	}
	cfg.HomeAssistant.FillDefaults()
	cfg.MQTTConfig.FillDefaults()
	cfg.Inputs.FillDefaults()
}

func (cfg *Config) Validate() error {
	if cfg.IntervalSeconds < 1 {
		return errors.Errorf("interval_seconds must be positive, got %d", cfg.IntervalSeconds)
	}
	if err := cfg.Curve.Validate(); err != nil {
		return err
	}
	if err := cfg.Publish.Validate(); err != nil {
		return err
	}
	if err := cfg.MQTTConfig.Validate(); err != nil {
		return err
	}
	return cfg.Inputs.Validate()
}

// RequireToken fails when no Home Assistant credential was configured.
func (cfg *Config) RequireToken() error {
	if strings.TrimSpace(cfg.HomeAssistant.Token) == "" {
		return ErrMissingToken
	}
	return nil
}

func prettyPrint(cfg *Config) {
	shown := *cfg
	ha := *cfg.HomeAssistant
	mq := *cfg.MQTTConfig
	if ha.Token != "" {
		ha.Token = redacted
	}
	if mq.Password != "" {
		mq.Password = redacted
	}
	shown.HomeAssistant, shown.MQTTConfig = &ha, &mq

	d, err := yaml.Marshal(&shown)
	if err != nil {
		logger.L().Error("Failed to marshal config for pretty print", err)
		return
	}
	logger.L().Debugf("--- Config ---\n%s\n\n", string(d))
}

// Get parses the command line and loads the layered configuration.
func Get() (*Config, error) {
	helpFlag := false
	getopt.FlagLong(&helpFlag, "help", 'h', "display help")
	logLevel := getopt.StringLong("log-level", 'l', "", "log levels: debug, info, warn, error, dpanic, panic, fatal")
	configFile := getopt.StringLong("config", 'c', defaultConfigFile, "config file pathname")
	dbFile := getopt.StringLong("db", 'd', "", "DB file pathname, overrides db_file")

	getopt.Parse()
	if helpFlag {
		getopt.Usage()
		os.Exit(0)
	}

	cfg, err := Load(*configFile)
	if err != nil {
		return nil, err
	}
	logger.L().Infof("Using config file `%v`", *configFile)

	if *dbFile != "" {
		cfg.DBFile = *dbFile
	}
	if *logLevel != "" {
		if err := cfg.LogLevel.Set(*logLevel); err != nil {
			logger.L().Errorf("Wrong log level `%v`: %v", *logLevel, err)
		} else {
			cfg.LogLevelFromFlag = true
		}
	}
	logger.SetLogLevel(cfg.LogLevel)

	prettyPrint(cfg)

	return cfg, nil
}

// Load resolves defaults, then the config file (when present), then the environment.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// inputs are left out of the base layer: FillDefaults completes them per
	// entry, so an entity set in the file does not inherit the default attribute
	def := defConfig()
	def.Inputs = InputsConfig{}
	base, err := yaml.Marshal(def)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal default config")
	}
	if err := v.ReadConfig(bytes.NewReader(base)); err != nil {
		return nil, errors.Wrap(err, "failed to read default config")
	}

	if configFile != "" && fileExists(configFile) {
		v.SetConfigFile(configFile)
		if err := v.MergeInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", configFile)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, env); err != nil {
			return nil, errors.Wrapf(err, "failed to bind %s", env)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg, decoderOptions); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	cfg.FillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.WithMessage(err, "invalid config")
	}
	return cfg, nil
}

func decoderOptions(dc *mapstructure.DecoderConfig) {
	dc.TagName = "yaml"
	dc.WeaklyTypedInput = true
	dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
		setpointHook,
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
	)
}

var setpointType = reflect.TypeOf(command.Setpoint{})

// setpointHook lets plain yaml numbers stand for a command.Setpoint.
func setpointHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != setpointType {
		return data, nil
	}
	switch from.Kind() {
	case reflect.Float32, reflect.Float64:
		return command.Temperature(reflect.ValueOf(data).Float()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return command.Temperature(float64(reflect.ValueOf(data).Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return command.Temperature(float64(reflect.ValueOf(data).Uint())), nil
	}
	return data, nil
}

func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	return err == nil && !info.IsDir()
}
