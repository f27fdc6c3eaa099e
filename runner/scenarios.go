// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package runner

import (
	"github.com/absmach/mqttbench/bench"
	"github.com/absmach/mqttbench/client"
)

// Scenario names.
const (
	TestConnect   = "test_connect"
	TestSubscribe = "test_subscribe"
	TestPubSub    = "test_pubsub"
	Benchmark1x1  = "benchmark_1x1"
)

// Scenarios returns the built-in scenarios. They share one client
// identifier counter, so identifiers stay unique across the whole batch.
// opts are applied to every run.
func Scenarios(opts ...bench.Option) []Scenario {
	opts = append([]bench.Option{bench.WithIDCounter(client.NewIDCounter())}, opts...)

	return []Scenario{
		{
			Name:        TestConnect,
			Description: "Subscriber completes the CONNECT/CONNACK handshake.",
			Run:         bench.NewEntry(TestConnect, bench.GoalConnect, opts...),
		},
		{
			Name:        TestSubscribe,
			Description: "Subscriber connects and receives the exact SUBACK for its subscription.",
			Run:         bench.NewEntry(TestSubscribe, bench.GoalSubscribe, opts...),
		},
		{
			Name:        TestPubSub,
			Description: "One publish is routed back to the subscriber byte for byte.",
			Run:         bench.NewEntry(TestPubSub, bench.GoalEcho, opts...),
		},
		{
			Name:        Benchmark1x1,
			Description: "One publisher pipelines count publishes with preload in flight to one subscriber.",
			Run:         bench.NewEntry(Benchmark1x1, bench.GoalThroughput, opts...),
		},
	}
}
