// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/absmach/mqttbench/packets/codec"
	"github.com/absmach/mqttbench/topics"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for a benchmark session.
type Config struct {
	Broker    BrokerConfig    `yaml:"broker"`
	Bench     BenchConfig     `yaml:"bench"`
	Run       RunConfig       `yaml:"run"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// BrokerConfig describes the broker under test.
type BrokerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	Transport      string        `yaml:"transport"` // "tcp", "tls" or "ws"
	WSPath         string        `yaml:"ws_path"`
	TLSSkipVerify  bool          `yaml:"tls_skip_verify"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// BenchConfig holds the workload parameters.
type BenchConfig struct {
	// Number of units to push through the broker
	Count int `yaml:"count"`

	// Maximum units in flight (credit limit)
	Preload int `yaml:"preload"`

	Topic          string        `yaml:"topic"`
	PayloadSize    int           `yaml:"payload_size"`
	ClientIDPrefix string        `yaml:"client_id_prefix"`
	KeepAlive      time.Duration `yaml:"keep_alive"`

	// Publishes per second on the publisher connection (0 = unlimited)
	PublishRate float64 `yaml:"publish_rate"`

	// Parse every echoed unit and compare it with what was sent
	Verify bool `yaml:"verify"`

	// Append one JSON line per benchmark run to this file
	ResultsFile string `yaml:"results_file"`
}

// RunConfig selects which scenarios run.
type RunConfig struct {
	Grep string `yaml:"grep"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	MetricsEnabled  bool    `yaml:"metrics_enabled"`
	TracesEnabled   bool    `yaml:"traces_enabled"`
	OTLPEndpoint    string  `yaml:"otlp_endpoint"`
	ServiceName     string  `yaml:"service_name"`
	ServiceVersion  string  `yaml:"service_version"`
	TraceSampleRate float64 `yaml:"trace_sample_rate"` // 0.0 to 1.0
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Broker: BrokerConfig{
			Host:           "127.0.0.1",
			Port:           1883,
			Transport:      "tcp",
			WSPath:         "/mqtt",
			ConnectTimeout: 10 * time.Second,
		},
		Bench: BenchConfig{
			Count:          100,
			Preload:        10,
			Topic:          "a/b",
			PayloadSize:    1024,
			ClientIDPrefix: "HIMQTT-Test",
			KeepAlive:      60 * time.Second,
		},
		Run: RunConfig{
			Grep: "test",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint:    "localhost:4317",
			ServiceName:     "mqttbench",
			ServiceVersion:  "1.0.0",
			TraceSampleRate: 1.0,
		},
	}
}

// Load loads configuration from a YAML file.
// If the file doesn't exist, returns default configuration.
func Load(filename string) (*Config, error) {
	if filename == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Broker.Host == "" {
		return fmt.Errorf("broker.host cannot be empty")
	}
	if c.Broker.Port < 1 || c.Broker.Port > 65535 {
		return fmt.Errorf("broker.port must be between 1 and 65535")
	}
	validTransports := map[string]bool{"tcp": true, "tls": true, "ws": true}
	if !validTransports[c.Broker.Transport] {
		return fmt.Errorf("broker.transport must be one of: tcp, tls, ws")
	}
	if c.Broker.Transport == "ws" && !strings.HasPrefix(c.Broker.WSPath, "/") {
		return fmt.Errorf("broker.ws_path must start with '/'")
	}
	if c.Broker.ConnectTimeout <= 0 {
		return fmt.Errorf("broker.connect_timeout must be positive")
	}

	if c.Bench.Count < 1 {
		return fmt.Errorf("bench.count must be at least 1")
	}
	if c.Bench.Preload < 1 {
		return fmt.Errorf("bench.preload must be at least 1")
	}
	if err := topics.ValidateName(c.Bench.Topic); err != nil {
		return fmt.Errorf("bench.topic: %w", err)
	}
	if c.Bench.PayloadSize < 0 {
		return fmt.Errorf("bench.payload_size cannot be negative")
	}
	if 2+len(c.Bench.Topic)+c.Bench.PayloadSize > codec.MaxVBI {
		return fmt.Errorf("bench.payload_size does not fit in one PUBLISH packet")
	}
	if c.Bench.PublishRate < 0 {
		return fmt.Errorf("bench.publish_rate cannot be negative")
	}
	if c.Bench.KeepAlive < 0 || c.Bench.KeepAlive > 0xFFFF*time.Second {
		return fmt.Errorf("bench.keep_alive must be between 0 and 65535 seconds")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		return fmt.Errorf("log.format must be one of: text, json")
	}

	if c.Telemetry.MetricsEnabled || c.Telemetry.TracesEnabled {
		if c.Telemetry.ServiceName == "" {
			return fmt.Errorf("telemetry.service_name cannot be empty when telemetry is enabled")
		}
		if c.Telemetry.OTLPEndpoint == "" {
			return fmt.Errorf("telemetry.otlp_endpoint cannot be empty when telemetry is enabled")
		}
		if c.Telemetry.TraceSampleRate < 0.0 || c.Telemetry.TraceSampleRate > 1.0 {
			return fmt.Errorf("telemetry.trace_sample_rate must be between 0.0 and 1.0")
		}
	}

	return nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Addr returns the broker address as host:port.
func (b BrokerConfig) Addr() string {
	return net.JoinHostPort(b.Host, strconv.Itoa(b.Port))
}

// Apply overrides fields from a flat option mapping, as produced by the
// command line. Short aliases are accepted. Unknown keys are an error.
func (c *Config) Apply(opts map[string]string) error {
	for key, val := range opts {
		name, ok := aliases[key]
		if !ok {
			name = key
		}
		set, ok := setters[name]
		if !ok {
			return fmt.Errorf("unknown option %q", key)
		}
		if err := set(c, val); err != nil {
			return fmt.Errorf("option %q: %w", key, err)
		}
	}
	return c.Validate()
}

var aliases = map[string]string{
	"h": "host",
	"p": "port",
	"c": "count",
	"l": "preload",
	"g": "grep",
	"t": "transport",
}

var setters = map[string]func(*Config, string) error{
	"host": func(c *Config, v string) error {
		c.Broker.Host = v
		return nil
	},
	"port": func(c *Config, v string) error {
		return setInt(&c.Broker.Port, v)
	},
	"transport": func(c *Config, v string) error {
		c.Broker.Transport = v
		return nil
	},
	"ws_path": func(c *Config, v string) error {
		c.Broker.WSPath = v
		return nil
	},
	"tls_skip_verify": func(c *Config, v string) error {
		return setBool(&c.Broker.TLSSkipVerify, v)
	},
	"count": func(c *Config, v string) error {
		return setInt(&c.Bench.Count, v)
	},
	"preload": func(c *Config, v string) error {
		return setInt(&c.Bench.Preload, v)
	},
	"topic": func(c *Config, v string) error {
		c.Bench.Topic = v
		return nil
	},
	"payload_size": func(c *Config, v string) error {
		return setInt(&c.Bench.PayloadSize, v)
	},
	"publish_rate": func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		c.Bench.PublishRate = f
		return nil
	},
	"verify": func(c *Config, v string) error {
		return setBool(&c.Bench.Verify, v)
	},
	"results_file": func(c *Config, v string) error {
		c.Bench.ResultsFile = v
		return nil
	},
	"grep": func(c *Config, v string) error {
		c.Run.Grep = v
		return nil
	},
	"log_level": func(c *Config, v string) error {
		c.Log.Level = v
		return nil
	},
	"log_format": func(c *Config, v string) error {
		c.Log.Format = v
		return nil
	},
}

func setInt(dst *int, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func setBool(dst *bool, v string) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}
	*dst = b
	return nil
}
