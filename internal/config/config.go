// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

const (
	SourceNMEA      = "nmea"
	SourceSimulated = "simulated"
)

// Config holds all application configuration values.
type Config struct {
	LogLevel  string `toml:"log_level"`
	SubjectID string `toml:"subject_id"` // initial value, editable at runtime

	MQTT     MQTTConfig     `toml:"mqtt"`
	Location LocationConfig `toml:"location"`
	Web      WebConfig      `toml:"web"`
}

type MQTTConfig struct {
	Broker         string        `toml:"broker"`
	Channel        string        `toml:"channel"`
	QoS            int           `toml:"qos"`
	Retained       bool          `toml:"retained"`
	ConnectTimeout time.Duration `toml:"connect_timeout"`
	PublishTimeout time.Duration `toml:"publish_timeout"`
}

type LocationConfig struct {
	Source      string        `toml:"source"` // "nmea" or "simulated"
	Interval    time.Duration `toml:"interval"`
	MinDistance float64       `toml:"min_distance_m"`

	// GPS
	SerialPort string `toml:"serial_port"`
	BaudRate   int    `toml:"baud_rate"`

	// Simulated walk
	OriginLat  float64 `toml:"origin_lat"`
	OriginLon  float64 `toml:"origin_lon"`
	SpeedKmh   float64 `toml:"speed_kmh"`
	HeadingDeg float64 `toml:"heading_deg"`
}

type WebConfig struct {
	Listen string `toml:"listen"` // empty disables the HTTP control surface
}

var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the configuration used for keys the file leaves out.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		MQTT: MQTTConfig{
			Broker:         "tcp://localhost:1883",
			Channel:        "assignment/location",
			ConnectTimeout: 10 * time.Second,
			PublishTimeout: 5 * time.Second,
		},
		Location: LocationConfig{
			Source:      SourceNMEA,
			Interval:    5 * time.Second,
			MinDistance: 2,
			SerialPort:  "/dev/serial0",
			BaudRate:    9600,
			SpeedKmh:    5,
		},
		Web: WebConfig{
			Listen: ":8080",
		},
	}
}

// Load reads the configuration file on top of Default and applies
// environment overrides.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	md, err := toml.DecodeFile(configPath, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load config file %s", configPath)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, errors.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PUBLISHER_BROKER"); v != "" {
		c.MQTT.Broker = v
	}
	if v := os.Getenv("PUBLISHER_SUBJECT_ID"); v != "" {
		c.SubjectID = v
	}
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTT.Broker == "" {
		return errors.New("mqtt.broker is required")
	}
	if c.MQTT.Channel == "" {
		return errors.New("mqtt.channel is required")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return errors.Errorf("mqtt.qos must be 0-2, got %d", c.MQTT.QoS)
	}
	if c.Location.Interval < 0 {
		return errors.Errorf("location.interval must not be negative, got %s", c.Location.Interval)
	}
	if c.Location.MinDistance < 0 {
		return errors.Errorf("location.min_distance_m must not be negative, got %g", c.Location.MinDistance)
	}

	switch c.Location.Source {
	case SourceNMEA:
		if c.Location.SerialPort == "" {
			return errors.New("location.serial_port is required for the nmea source")
		}
		if c.Location.BaudRate <= 0 {
			return errors.Errorf("location.baud_rate must be positive, got %d", c.Location.BaudRate)
		}
	case SourceSimulated:
		if c.Location.OriginLat < -90 || c.Location.OriginLat > 90 {
			return errors.Errorf("location.origin_lat must be within ±90, got %g", c.Location.OriginLat)
		}
		if c.Location.OriginLon < -180 || c.Location.OriginLon > 180 {
			return errors.Errorf("location.origin_lon must be within ±180, got %g", c.Location.OriginLon)
		}
	default:
		return errors.Errorf("location.source must be %q or %q, got %q", SourceNMEA, SourceSimulated, c.Location.Source)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return errors.Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel)
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Only the first call loads; later calls return its error.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance, nil before InitGlobal.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
