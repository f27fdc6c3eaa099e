// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package runner executes named test and benchmark scenarios one after
// another and tallies their outcomes.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/absmach/mqttbench/bench"
	"github.com/absmach/mqttbench/config"
)

// ErrExitCode is reported for a scenario that exited with a non-zero code.
var ErrExitCode = errors.New("scenario exited with non-zero code")

// Scenario is a runnable test or benchmark.
type Scenario struct {
	Name        string
	Description string
	Run         bench.Entry
}

// Filter returns the scenarios whose name contains grep, in order.
func Filter(scenarios []Scenario, grep string) []Scenario {
	var out []Scenario
	for _, sc := range scenarios {
		if strings.Contains(sc.Name, grep) {
			out = append(out, sc)
		}
	}
	return out
}

// Outcome is the result of one scenario.
type Outcome struct {
	Name     string
	Code     int
	Err      error
	Skipped  bool
	Duration time.Duration
}

// Summary tallies a batch of scenarios.
type Summary struct {
	Total    int
	Passed   int
	Failed   int
	Skipped  int
	Outcomes []Outcome
}

// OK reports whether every scenario ran and passed.
func (s Summary) OK() bool {
	return s.Failed == 0 && s.Skipped == 0
}

// Run executes scenarios sequentially; the next starts only after the
// previous one has reported. Once ctx is done the remaining scenarios
// are skipped.
func Run(ctx context.Context, cfg *config.Config, scenarios []Scenario, logger *slog.Logger) Summary {
	if logger == nil {
		logger = slog.Default()
	}

	sum := Summary{Total: len(scenarios)}
	logger.Info("tests_found", slog.Int("count", len(scenarios)))

	for _, sc := range scenarios {
		if ctx.Err() != nil {
			logger.Warn("test_skipped", slog.String("test", sc.Name))
			sum.Skipped++
			sum.Outcomes = append(sum.Outcomes, Outcome{Name: sc.Name, Skipped: true})
			continue
		}

		out := runOne(ctx, cfg, sc, logger)
		if out.Code == 0 {
			sum.Passed++
			logger.Info("test_completed", slog.String("test", sc.Name), slog.Duration("duration", out.Duration))
		} else {
			sum.Failed++
			attrs := []any{slog.String("test", sc.Name), slog.Int("code", out.Code), slog.Duration("duration", out.Duration)}
			if out.Err != nil {
				attrs = append(attrs, slog.String("error", out.Err.Error()))
			}
			logger.Error("test_failed", attrs...)
		}
		sum.Outcomes = append(sum.Outcomes, out)
	}

	logger.Info("tests_finished",
		slog.Int("total", sum.Total),
		slog.Int("passed", sum.Passed),
		slog.Int("failed", sum.Failed),
		slog.Int("skipped", sum.Skipped))
	return sum
}

func runOne(ctx context.Context, cfg *config.Config, sc Scenario, logger *slog.Logger) Outcome {
	logger.Info("test_loading", slog.String("test", sc.Name), slog.String("description", sc.Description))

	t := NewTest(sc.Name, logger)
	start := time.Now()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				t.Fail(fmt.Errorf("scenario panicked: %v", r))
			}
		}()
		sc.Run(ctx, cfg, t)
	}()
	<-t.Done()

	return Outcome{
		Name:     sc.Name,
		Code:     t.Code(),
		Err:      t.Err(),
		Duration: time.Since(start),
	}
}

// Test is the completion handle given to a running scenario. The first
// report wins; later ones are logged and dropped.
type Test struct {
	name   string
	logger *slog.Logger

	once sync.Once
	done chan struct{}
	code int
	err  error
}

var _ bench.Completion = (*Test)(nil)

// NewTest returns a handle for the scenario called name.
func NewTest(name string, logger *slog.Logger) *Test {
	if logger == nil {
		logger = slog.Default()
	}
	return &Test{
		name:   name,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Succeed reports a pass.
func (t *Test) Succeed() {
	t.complete(0, nil)
}

// Fail reports a failure caused by err.
func (t *Test) Fail(err error) {
	if err == nil {
		err = errors.New("scenario failed")
	}
	t.complete(1, err)
}

// Exit reports a raw exit code; zero is a pass.
func (t *Test) Exit(code int) {
	var err error
	if code != 0 {
		err = fmt.Errorf("%w: %d", ErrExitCode, code)
	}
	t.complete(code, err)
}

func (t *Test) complete(code int, err error) {
	reported := false
	t.once.Do(func() {
		t.code, t.err = code, err
		reported = true
		close(t.done)
	})
	if !reported {
		t.logger.Warn("test_reported_twice", slog.String("test", t.name), slog.Int("code", code))
	}
}

// Done is closed once the scenario has reported.
func (t *Test) Done() <-chan struct{} {
	return t.done
}

// Code returns the reported exit code. Valid after Done is closed.
func (t *Test) Code() int {
	return t.code
}

// Err returns the reported failure, if any. Valid after Done is closed.
func (t *Test) Err() error {
	return t.err
}
