// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/absmach/mqttbench/bench"
	"github.com/absmach/mqttbench/config"
	"github.com/absmach/mqttbench/runner"
	"github.com/absmach/mqttbench/telemetry"
	"github.com/google/uuid"
)

const usageHeader = `MQTT 3.1 tests and benchmarks

Usage:
  mqttbench [-config file] [-h host] [-p port] [-c count] [-l preload] [-g grep]

Examples:
  Tests only (default):
    mqttbench -h localhost -p 1883 -g test
  Benchmarks:
    mqttbench -g benchmark -c 10000 -l 100

Flags:
`

// overrideFlags are collected verbatim into the mapping handed to
// config.Apply. Short and long spellings resolve to the same key there.
var overrideFlags = []struct {
	name  string
	usage string
}{
	{"h", "Broker host (default \"127.0.0.1\")"},
	{"host", "Broker host"},
	{"p", "Broker port (default 1883)"},
	{"port", "Broker port"},
	{"c", "Number of messages to benchmark (default 100)"},
	{"count", "Number of messages to benchmark"},
	{"l", "Messages kept in flight (default 10)"},
	{"preload", "Messages kept in flight"},
	{"g", "Run scenarios whose name contains this (default \"test\")"},
	{"grep", "Run scenarios whose name contains this"},
	{"t", "Transport: tcp, tls or ws"},
	{"transport", "Transport: tcp, tls or ws"},
	{"topic", "Benchmark topic"},
	{"payload-size", "Benchmark payload size in bytes"},
	{"publish-rate", "Maximum publishes per second (0 = unlimited)"},
	{"log-level", "Log level: debug, info, warn or error"},
	{"log-format", "Log format: text or json"},
}

var boolOverrideFlags = []struct {
	name  string
	usage string
}{
	{"verify", "Check every echoed publish byte for byte"},
	{"tls-skip-verify", "Skip broker certificate verification"},
}

type cliFlags struct {
	configFile string
	jsonOut    string
	list       bool
	overrides  map[string]string
}

func (cf *cliFlags) collect(name string) func(string) error {
	key := strings.ReplaceAll(name, "-", "_")
	return func(v string) error {
		cf.overrides[key] = v
		return nil
	}
}

func parseFlags(args []string, output io.Writer) (*cliFlags, error) {
	fs := flag.NewFlagSet("mqttbench", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprint(output, usageHeader)
		fs.PrintDefaults()
	}

	cf := &cliFlags{overrides: make(map[string]string)}
	fs.StringVar(&cf.configFile, "config", "", "Path to configuration file")
	fs.StringVar(&cf.jsonOut, "json-out", "", "Append one JSON line per benchmark result to this file")
	fs.BoolVar(&cf.list, "list", false, "Print the available scenarios and exit")
	for _, f := range overrideFlags {
		fs.Func(f.name, f.usage, cf.collect(f.name))
	}
	for _, f := range boolOverrideFlags {
		fs.BoolFunc(f.name, f.usage, cf.collect(f.name))
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	if cf.jsonOut != "" {
		cf.overrides["results_file"] = cf.jsonOut
	}
	return cf, nil
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	logLevel := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel})
	}
	return slog.New(handler)
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cf, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		return 2
	}

	cfg, err := config.Load(cf.configFile)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}
	if err := cfg.Apply(cf.overrides); err != nil {
		slog.Error("Invalid arguments", "error", err)
		return 1
	}

	logger := newLogger(cfg.Log, stdout)
	slog.SetDefault(logger)

	instanceID := uuid.NewString()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var otelShutdown func(context.Context) error
	if cfg.Telemetry.MetricsEnabled || cfg.Telemetry.TracesEnabled {
		shutdown, err := telemetry.InitProvider(ctx, cfg.Telemetry, instanceID)
		if err != nil {
			slog.Error("Failed to initialize OpenTelemetry", "error", err)
			return 1
		}
		otelShutdown = shutdown
		slog.Info("OpenTelemetry initialized",
			"endpoint", cfg.Telemetry.OTLPEndpoint,
			"metrics", cfg.Telemetry.MetricsEnabled,
			"traces", cfg.Telemetry.TracesEnabled)
	}
	defer func() {
		if otelShutdown == nil {
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shutdown OpenTelemetry", "error", err)
		}
	}()

	metrics, err := bench.NewMetrics(nil)
	if err != nil {
		slog.Error("Failed to create metrics", "error", err)
		return 1
	}

	scenarios := runner.Scenarios(bench.WithLogger(logger), bench.WithMetrics(metrics))
	if cf.list {
		for _, sc := range scenarios {
			fmt.Fprintf(stdout, "%-16s %s\n", sc.Name, sc.Description)
		}
		return 0
	}

	selected := runner.Filter(scenarios, cfg.Run.Grep)
	if len(selected) == 0 {
		slog.Warn("No tests matching", "grep", cfg.Run.Grep)
		return 0
	}

	slog.Info("Configuration loaded",
		"instance_id", instanceID,
		"broker", cfg.Broker.Addr(),
		"transport", cfg.Broker.Transport,
		"count", cfg.Bench.Count,
		"preload", cfg.Bench.Preload,
		"grep", cfg.Run.Grep)

	sum := runner.Run(ctx, cfg, selected, logger)
	if !sum.OK() {
		return 1
	}
	return 0
}
