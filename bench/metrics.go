// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package bench

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/absmach/mqttbench/bench"

// Metrics holds OpenTelemetry metric instruments for benchmark runs.
type Metrics struct {
	meter metric.Meter

	// Counters
	runsTotal     metric.Int64Counter
	unitsSent     metric.Int64Counter
	unitsReceived metric.Int64Counter
	bytesReceived metric.Int64Counter
	errorsTotal   metric.Int64Counter

	// UpDownCounters (Gauges)
	unitsInflight metric.Int64UpDownCounter

	// Histograms
	handshakeDuration metric.Float64Histogram
	runDuration       metric.Float64Histogram
	throughput        metric.Float64Histogram
}

// NewMetrics creates the instruments on mp, or on the global provider
// when mp is nil.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	m := &Metrics{
		meter: mp.Meter(instrumentationName),
	}

	var err error

	m.runsTotal, err = m.meter.Int64Counter(
		"mqttbench.runs.total",
		metric.WithDescription("Total runs by scenario and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create runsTotal counter: %w", err)
	}

	m.unitsSent, err = m.meter.Int64Counter(
		"mqttbench.units.sent.total",
		metric.WithDescription("Total PUBLISH units written by the publisher"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create unitsSent counter: %w", err)
	}

	m.unitsReceived, err = m.meter.Int64Counter(
		"mqttbench.units.received.total",
		metric.WithDescription("Total PUBLISH units reassembled by the subscriber"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create unitsReceived counter: %w", err)
	}

	m.bytesReceived, err = m.meter.Int64Counter(
		"mqttbench.bytes.received.total",
		metric.WithDescription("Total bytes received by the subscriber"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create bytesReceived counter: %w", err)
	}

	m.errorsTotal, err = m.meter.Int64Counter(
		"mqttbench.errors.total",
		metric.WithDescription("Total errors by type"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create errorsTotal counter: %w", err)
	}

	m.unitsInflight, err = m.meter.Int64UpDownCounter(
		"mqttbench.units.inflight",
		metric.WithDescription("Units sent and not yet received"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create unitsInflight gauge: %w", err)
	}

	m.handshakeDuration, err = m.meter.Float64Histogram(
		"mqttbench.handshake.duration.ms",
		metric.WithDescription("Dial to accepted CONNACK in milliseconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create handshakeDuration histogram: %w", err)
	}

	m.runDuration, err = m.meter.Float64Histogram(
		"mqttbench.run.duration.ms",
		metric.WithDescription("Benchmark duration in milliseconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create runDuration histogram: %w", err)
	}

	m.throughput, err = m.meter.Float64Histogram(
		"mqttbench.run.throughput",
		metric.WithDescription("Completed units per second"),
		metric.WithUnit("{message}/s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create throughput histogram: %w", err)
	}

	return m, nil
}

// RecordRun records the outcome of a run.
func (m *Metrics) RecordRun(scenario, outcome string) {
	m.runsTotal.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("scenario", scenario),
		attribute.String("outcome", outcome),
	))
}

// RecordSent records a unit handed to the publisher.
func (m *Metrics) RecordSent() {
	ctx := context.Background()
	m.unitsSent.Add(ctx, 1)
	m.unitsInflight.Add(ctx, 1)
}

// RecordReceived records units completed by a subscriber chunk of size bytes.
func (m *Metrics) RecordReceived(units, size int) {
	ctx := context.Background()
	m.bytesReceived.Add(ctx, int64(size))
	if units > 0 {
		m.unitsReceived.Add(ctx, int64(units))
		m.unitsInflight.Add(ctx, -int64(units))
	}
}

// RecordError records an error by type.
func (m *Metrics) RecordError(errorType string) {
	m.errorsTotal.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("type", errorType),
	))
}

// RecordHandshake records the handshake duration of a connection role.
func (m *Metrics) RecordHandshake(role string, durationMs float64) {
	m.handshakeDuration.Record(context.Background(), durationMs, metric.WithAttributes(
		attribute.String("role", role),
	))
}

// RecordThroughput records a finished benchmark.
func (m *Metrics) RecordThroughput(scenario string, durationMs, msgsPerSec float64) {
	attrs := metric.WithAttributes(attribute.String("scenario", scenario))
	ctx := context.Background()
	m.runDuration.Record(ctx, durationMs, attrs)
	m.throughput.Record(ctx, msgsPerSec, attrs)
}

// RecordAbandoned removes units still in flight when a run stops.
func (m *Metrics) RecordAbandoned(units int) {
	if units > 0 {
		m.unitsInflight.Add(context.Background(), -int64(units))
	}
}
