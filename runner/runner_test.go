// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package runner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/absmach/mqttbench/bench"
	"github.com/absmach/mqttbench/config"
	"github.com/absmach/mqttbench/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func scenario(name string, run func(done bench.Completion)) Scenario {
	return Scenario{
		Name: name,
		Run: func(_ context.Context, _ *config.Config, done bench.Completion) {
			run(done)
		},
	}
}

func names(scs []Scenario) []string {
	out := make([]string, 0, len(scs))
	for _, sc := range scs {
		out = append(out, sc.Name)
	}
	return out
}

func TestFilter(t *testing.T) {
	all := Scenarios()

	cases := []struct {
		grep string
		want []string
	}{
		{grep: "test", want: []string{TestConnect, TestSubscribe, TestPubSub}},
		{grep: "benchmark", want: []string{Benchmark1x1}},
		{grep: "sub", want: []string{TestSubscribe, TestPubSub}},
		{grep: "", want: []string{TestConnect, TestSubscribe, TestPubSub, Benchmark1x1}},
		{grep: "nothing", want: []string{}},
	}

	for _, tc := range cases {
		t.Run(tc.grep, func(t *testing.T) {
			assert.Equal(t, tc.want, names(Filter(all, tc.grep)))
		})
	}
}

func TestRunTallies(t *testing.T) {
	boom := errors.New("boom")
	var order []string

	scs := []Scenario{
		scenario("succeed", func(done bench.Completion) {
			order = append(order, "succeed")
			done.Succeed()
		}),
		scenario("fail", func(done bench.Completion) {
			order = append(order, "fail")
			done.Fail(boom)
		}),
		scenario("exit0", func(done bench.Completion) {
			order = append(order, "exit0")
			done.Exit(0)
		}),
		scenario("exit1", func(done bench.Completion) {
			order = append(order, "exit1")
			done.Exit(1)
		}),
		scenario("async", func(done bench.Completion) {
			order = append(order, "async")
			go func() {
				time.Sleep(10 * time.Millisecond)
				done.Succeed()
			}()
		}),
		scenario("panic", func(done bench.Completion) {
			order = append(order, "panic")
			panic("oops")
		}),
	}

	sum := Run(context.Background(), config.Default(), scs, testLogger())

	assert.Equal(t, []string{"succeed", "fail", "exit0", "exit1", "async", "panic"}, order)
	assert.Equal(t, 6, sum.Total)
	assert.Equal(t, 3, sum.Passed)
	assert.Equal(t, 3, sum.Failed)
	assert.Equal(t, 0, sum.Skipped)
	assert.False(t, sum.OK())

	require.Len(t, sum.Outcomes, 6)
	assert.ErrorIs(t, sum.Outcomes[1].Err, boom)
	assert.Equal(t, 1, sum.Outcomes[1].Code)
	assert.NoError(t, sum.Outcomes[2].Err)
	assert.ErrorIs(t, sum.Outcomes[3].Err, ErrExitCode)
	assert.ErrorContains(t, sum.Outcomes[5].Err, "oops")
}

func TestRunSkipsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	scs := []Scenario{
		scenario("first", func(done bench.Completion) {
			cancel()
			done.Succeed()
		}),
		scenario("second", func(done bench.Completion) { done.Succeed() }),
	}

	sum := Run(ctx, config.Default(), scs, testLogger())
	assert.Equal(t, 1, sum.Passed)
	assert.Equal(t, 1, sum.Skipped)
	assert.True(t, sum.Outcomes[1].Skipped)
	assert.False(t, sum.OK())
}

func TestTestReportsOnce(t *testing.T) {
	tt := NewTest("x", testLogger())
	tt.Exit(3)
	tt.Succeed()
	tt.Fail(errors.New("late"))

	select {
	case <-tt.Done():
	default:
		t.Fatal("done not closed")
	}
	assert.Equal(t, 3, tt.Code())
	assert.ErrorIs(t, tt.Err(), ErrExitCode)
}

func TestRunScenariosAgainstBroker(t *testing.T) {
	b := testutil.NewBroker(t)

	host, port, err := net.SplitHostPort(b.Addr())
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Broker.Host = host
	cfg.Broker.Port = p
	cfg.Broker.ConnectTimeout = 2 * time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	sum := Run(ctx, cfg, Scenarios(bench.WithLogger(testLogger())), testLogger())
	require.True(t, sum.OK(), "outcomes: %+v", sum.Outcomes)
	assert.Equal(t, 4, sum.Passed)

	// One counter for the batch: connect, subscribe, pubsub (2), benchmark (2).
	assert.Equal(t, []string{
		"HIMQTT-Test0002",
		"HIMQTT-Test0003",
		"HIMQTT-Test0004",
		"HIMQTT-Test0005",
		"HIMQTT-Test0006",
		"HIMQTT-Test0007",
	}, b.ClientIDs())
	assert.Equal(t, 1+cfg.Bench.Count, b.Published())
}

func TestRunFailsWithoutBroker(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	_, port, _ := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, ln.Close())

	cfg := config.Default()
	cfg.Broker.Port, _ = strconv.Atoi(port)

	sum := Run(context.Background(), cfg, Filter(Scenarios(bench.WithLogger(testLogger())), "test"), testLogger())
	assert.Equal(t, 3, sum.Failed)
	for _, out := range sum.Outcomes {
		assert.NotZero(t, out.Code, out.Name)
	}
}
