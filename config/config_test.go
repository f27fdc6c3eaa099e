// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/absmach/mqttbench/packets/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Collaborator defaults
	assert.Equal(t, "127.0.0.1", cfg.Broker.Host)
	assert.Equal(t, 1883, cfg.Broker.Port)
	assert.Equal(t, 100, cfg.Bench.Count)
	assert.Equal(t, 10, cfg.Bench.Preload)

	assert.Equal(t, "a/b", cfg.Bench.Topic)
	assert.Equal(t, 1024, cfg.Bench.PayloadSize)
	assert.Equal(t, 60*time.Second, cfg.Bench.KeepAlive)
	assert.Equal(t, "test", cfg.Run.Grep)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "127.0.0.1:1883", cfg.Broker.Addr())
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "default config is valid",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "empty host",
			modify:  func(c *Config) { c.Broker.Host = "" },
			wantErr: true,
		},
		{
			name:    "port out of range",
			modify:  func(c *Config) { c.Broker.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "unknown transport",
			modify:  func(c *Config) { c.Broker.Transport = "quic" },
			wantErr: true,
		},
		{
			name: "ws path without slash",
			modify: func(c *Config) {
				c.Broker.Transport = "ws"
				c.Broker.WSPath = "mqtt"
			},
			wantErr: true,
		},
		{
			name:    "zero count",
			modify:  func(c *Config) { c.Bench.Count = 0 },
			wantErr: true,
		},
		{
			name:    "zero preload",
			modify:  func(c *Config) { c.Bench.Preload = 0 },
			wantErr: true,
		},
		{
			name:    "preload above count",
			modify:  func(c *Config) { c.Bench.Preload = 500 },
			wantErr: false,
		},
		{
			name:    "wildcard topic",
			modify:  func(c *Config) { c.Bench.Topic = "a/#" },
			wantErr: true,
		},
		{
			name:    "empty payload",
			modify:  func(c *Config) { c.Bench.PayloadSize = 0 },
			wantErr: false,
		},
		{
			name:    "negative payload",
			modify:  func(c *Config) { c.Bench.PayloadSize = -1 },
			wantErr: true,
		},
		{
			name:    "largest payload one packet carries",
			modify:  func(c *Config) { c.Bench.PayloadSize = codec.MaxVBI - 2 - len(c.Bench.Topic) },
			wantErr: false,
		},
		{
			name:    "payload overflows remaining length",
			modify:  func(c *Config) { c.Bench.PayloadSize = codec.MaxVBI - 1 - len(c.Bench.Topic) },
			wantErr: true,
		},
		{
			name:    "negative publish rate",
			modify:  func(c *Config) { c.Bench.PublishRate = -1 },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.Log.Level = "invalid" },
			wantErr: true,
		},
		{
			name: "sample rate out of range with telemetry",
			modify: func(c *Config) {
				c.Telemetry.TracesEnabled = true
				c.Telemetry.TraceSampleRate = 2
			},
			wantErr: true,
		},
		{
			name:    "sample rate ignored without telemetry",
			modify:  func(c *Config) { c.Telemetry.TraceSampleRate = 2 },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLoadNonExistent(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, Default(), cfg)
}

func TestLoadPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	data := "broker:\n  port: 1884\nbench:\n  count: 5000\n  preload: 64\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1884, cfg.Broker.Port)
	assert.Equal(t, 5000, cfg.Bench.Count)
	assert.Equal(t, 64, cfg.Bench.Preload)
	assert.Equal(t, "127.0.0.1", cfg.Broker.Host)
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bench:\n  count: 0\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveLoad(t *testing.T) {
	tmpfile := filepath.Join(t.TempDir(), "config.yaml")

	cfg := Default()
	cfg.Broker.Transport = "ws"
	cfg.Bench.PublishRate = 250
	cfg.Log.Level = "debug"

	require.NoError(t, cfg.Save(tmpfile))

	loaded, err := Load(tmpfile)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestApply(t *testing.T) {
	tests := []struct {
		name    string
		opts    map[string]string
		check   func(t *testing.T, c *Config)
		wantErr bool
	}{
		{
			name: "short aliases",
			opts: map[string]string{"h": "broker.local", "p": "1884", "c": "500", "l": "32", "g": "benchmark"},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "broker.local", c.Broker.Host)
				assert.Equal(t, 1884, c.Broker.Port)
				assert.Equal(t, 500, c.Bench.Count)
				assert.Equal(t, 32, c.Bench.Preload)
				assert.Equal(t, "benchmark", c.Run.Grep)
			},
		},
		{
			name: "long names",
			opts: map[string]string{"host": "::1", "count": "7", "verify": "true", "publish_rate": "12.5"},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "::1", c.Broker.Host)
				assert.Equal(t, "[::1]:1883", c.Broker.Addr())
				assert.Equal(t, 7, c.Bench.Count)
				assert.True(t, c.Bench.Verify)
				assert.Equal(t, 12.5, c.Bench.PublishRate)
			},
		},
		{
			name:    "unknown option",
			opts:    map[string]string{"x": "1"},
			wantErr: true,
		},
		{
			name:    "not a number",
			opts:    map[string]string{"port": "mqtt"},
			wantErr: true,
		},
		{
			name:    "fails validation",
			opts:    map[string]string{"preload": "0"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			err := cfg.Apply(tt.opts)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}
