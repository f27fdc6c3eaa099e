// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package bench

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/absmach/mqttbench/client"
	"github.com/absmach/mqttbench/config"
	"github.com/absmach/mqttbench/packets"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SubscriptionID is the message identifier of the SUBSCRIBE request.
const SubscriptionID uint16 = 0x1234

// Connection roles.
const (
	RoleSubscriber = "subscriber"
	RolePublisher  = "publisher"
)

const eventBuffer = 64

// Goal selects how far a run goes before it succeeds.
type Goal int

// Goals.
const (
	// GoalConnect stops once the subscriber handshake is accepted.
	GoalConnect Goal = iota
	// GoalSubscribe stops once the SUBACK matched.
	GoalSubscribe
	// GoalEcho sends one unit and checks the echoed bytes.
	GoalEcho
	// GoalThroughput runs the full benchmark.
	GoalThroughput
)

func (g Goal) String() string {
	switch g {
	case GoalConnect:
		return "connect"
	case GoalSubscribe:
		return "subscribe"
	case GoalEcho:
		return "echo"
	case GoalThroughput:
		return "throughput"
	default:
		return "unknown"
	}
}

// Outcome kinds.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeExit    = "exit"
)

type outcome struct {
	kind string
	err  error
	code int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithName sets the scenario name used in logs, metrics and results.
func WithName(name string) Option {
	return func(o *Orchestrator) {
		o.name = name
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithMetrics sets the metric instruments.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithTracerProvider sets the provider the run span is created on.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Orchestrator) {
		o.tracer = tp.Tracer(instrumentationName)
	}
}

// WithIDCounter shares a client identifier counter across runs.
func WithIDCounter(ids *client.IDCounter) Option {
	return func(o *Orchestrator) {
		o.ids = ids
	}
}

// WithClock replaces the time source used for measurements.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// WithTLSConfig overrides the TLS configuration built from the broker section.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(o *Orchestrator) {
		o.tlsConfig = cfg
	}
}

// WithPayload sets the unit payload instead of random bytes.
func WithPayload(p []byte) Option {
	return func(o *Orchestrator) {
		o.payload = p
	}
}

// Orchestrator drives one run: subscriber handshake, subscription,
// publisher handshake and the pipelined exchange. Every event of both
// connections is handled on the goroutine calling Run, so the window and
// accumulator need no locking.
type Orchestrator struct {
	cfg       *config.Config
	goal      Goal
	name      string
	logger    *slog.Logger
	metrics   *Metrics
	tracer    trace.Tracer
	ids       *client.IDCounter
	now       func() time.Time
	tlsConfig *tls.Config
	payload   []byte

	ctx      context.Context
	machine  *Machine
	events   chan client.Event
	open     int
	sub      *client.Conn
	pub      *client.Conn
	dialedAt map[*client.Conn]time.Time
	subAck   *packets.Expect
	unit     []byte
	reasm    *Reassembler
	pipe     *Pipeline
	frames   *packets.FrameBuffer
	echoed   int
	span     trace.Span
	outcome  *outcome
	result   Result
}

// New prepares a run of goal against the broker in cfg.
func New(cfg *config.Config, goal Goal, opts ...Option) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &Orchestrator{
		cfg:      cfg,
		goal:     goal,
		name:     goal.String(),
		now:      time.Now,
		dialedAt: make(map[*client.Conn]time.Time),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(instrumentationName)
	}
	if o.ids == nil {
		o.ids = client.NewIDCounter()
	}
	if o.metrics == nil {
		m, err := NewMetrics(nil)
		if err != nil {
			return nil, err
		}
		o.metrics = m
	}
	if o.payload == nil {
		o.payload = make([]byte, cfg.Bench.PayloadSize)
		if _, err := rand.Read(o.payload); err != nil {
			return nil, fmt.Errorf("failed to generate payload: %w", err)
		}
	}
	if o.tlsConfig == nil && cfg.Broker.Transport == client.TransportTLS {
		o.tlsConfig = &tls.Config{
			ServerName:         cfg.Broker.Host,
			InsecureSkipVerify: cfg.Broker.TLSSkipVerify,
		}
	}

	o.unit = (&packets.Publish{Topic: cfg.Bench.Topic, Payload: o.payload}).Encode()
	reasm, err := NewReassembler(len(o.unit))
	if err != nil {
		return nil, err
	}
	o.reasm = reasm
	if goal == GoalEcho || cfg.Bench.Verify {
		o.frames = &packets.FrameBuffer{}
	}

	o.result = Result{
		RunID:     uuid.NewString(),
		Scenario:  o.name,
		Goal:      goal.String(),
		Addr:      cfg.Broker.Addr(),
		Transport: cfg.Broker.Transport,
		Count:     o.target(),
		Preload:   cfg.Bench.Preload,
		UnitSize:  len(o.unit),
	}
	o.logger = o.logger.With(slog.String("run_id", o.result.RunID), slog.String("scenario", o.name))
	o.machine = NewMachine(o.onTransition)

	return o, nil
}

// NewEntry returns an Entry that runs goal under name.
func NewEntry(name string, goal Goal, opts ...Option) Entry {
	return func(ctx context.Context, cfg *config.Config, done Completion) {
		o, err := New(cfg, goal, append([]Option{WithName(name)}, opts...)...)
		if err != nil {
			done.Fail(err)
			return
		}
		o.Run(ctx, done)
	}
}

// State returns the current run phase.
func (o *Orchestrator) State() State {
	return o.machine.State()
}

// Result returns the run summary. It is complete once Run has returned.
func (o *Orchestrator) Result() Result {
	return o.result
}

// Run executes the run and reports its outcome to done. It returns once
// every connection it opened has closed. Cancelling ctx fails the run.
func (o *Orchestrator) Run(ctx context.Context, done Completion) {
	ctx, o.span = o.tracer.Start(ctx, "bench.run", trace.WithAttributes(
		attribute.String("run_id", o.result.RunID),
		attribute.String("scenario", o.name),
		attribute.String("goal", o.goal.String()),
		attribute.String("broker.addr", o.result.Addr),
		attribute.Int("bench.count", o.result.Count),
		attribute.Int("bench.preload", o.result.Preload),
	))
	defer o.span.End()
	o.ctx = ctx

	o.logger.Info("run_starting",
		slog.String("addr", o.result.Addr),
		slog.String("transport", o.result.Transport),
		slog.String("goal", o.goal.String()))

	o.events = make(chan client.Event, eventBuffer)
	if o.fire(TriggerDial) {
		sub, err := o.dial(ctx, RoleSubscriber)
		if err != nil {
			o.fail(err)
		}
		o.sub = sub
	}

	cancelled := ctx.Done()
	for o.open > 0 {
		select {
		case ev := <-o.events:
			o.handle(ev)
		case <-cancelled:
			cancelled = nil
			o.fail(fmt.Errorf("run interrupted: %w", context.Cause(ctx)))
		}
	}

	o.report(done)
}

func (o *Orchestrator) dial(ctx context.Context, role string) (*client.Conn, error) {
	opts := client.NewOptions().
		SetAddr(o.cfg.Broker.Addr()).
		SetTransport(o.cfg.Broker.Transport).
		SetTLSConfig(o.tlsConfig).
		SetIDCounter(o.ids).
		SetLogger(o.logger)
	opts.WSPath = o.cfg.Broker.WSPath
	opts.ConnectTimeout = o.cfg.Broker.ConnectTimeout
	opts.ClientIDPrefix = o.cfg.Bench.ClientIDPrefix
	opts.KeepAlive = o.cfg.Bench.KeepAlive
	if role == RolePublisher && o.cfg.Bench.PublishRate > 0 {
		opts.SetWriteRate(o.cfg.Bench.PublishRate, 1)
	}

	c, err := client.New(role, opts, o.events)
	if err != nil {
		return nil, err
	}
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	o.open++
	o.dialedAt[c] = o.now()
	return c, nil
}

func (o *Orchestrator) handle(ev client.Event) {
	if ev.Kind == client.EventClose {
		o.open--
		o.onClose(ev.Conn, ev.Err)
		return
	}
	if ev.Kind == client.EventError {
		o.onError(ev.Conn, ev.Err)
		return
	}
	if o.outcome != nil {
		return
	}

	switch ev.Kind {
	case client.EventDialed:
		o.logger.Debug("conn_dialed", slog.String("conn", ev.Conn.Name()))
		if ev.Conn == o.sub {
			o.fire(TriggerDialed)
		}
	case client.EventConnect:
		o.onConnect(ev.Conn)
	case client.EventData:
		o.onData(ev.Conn, ev.Data)
	}
}

func (o *Orchestrator) onConnect(c *client.Conn) {
	if at, ok := o.dialedAt[c]; ok {
		o.metrics.RecordHandshake(c.Name(), float64(o.now().Sub(at))/float64(time.Millisecond))
	}
	o.logger.Info("conn_ready", slog.String("conn", c.Name()), slog.String("client_id", c.ClientID()))

	if c != o.sub {
		if o.fire(TriggerStart) {
			o.start()
		}
		return
	}

	if !o.fire(TriggerConnAck) {
		return
	}
	if o.goal == GoalConnect {
		o.succeed()
		return
	}

	sub := &packets.Subscribe{ID: SubscriptionID, Topic: o.cfg.Bench.Topic}
	o.subAck = packets.ExpectSubAck(sub.ID, sub.QoS)
	if err := c.Write(sub.Encode()); err != nil {
		o.fail(err)
		return
	}
	o.fire(TriggerSubscribe)
}

func (o *Orchestrator) onData(c *client.Conn, data []byte) {
	state := o.machine.State()
	if c != o.sub {
		o.fail(fmt.Errorf("%w: %d bytes on %s in state %s", ErrUnexpectedData, len(data), c.Name(), state))
		return
	}

	switch state {
	case StateAwaitingSubAck:
		done, err := o.subAck.Feed(data)
		if err != nil {
			o.fail(err)
			return
		}
		if !done || !o.fire(TriggerSubAck) {
			return
		}
		o.logger.Info("subscribed", slog.String("topic", o.cfg.Bench.Topic))
		if o.goal == GoalSubscribe {
			o.succeed()
			return
		}
		pub, err := o.dial(o.ctx, RolePublisher)
		if err != nil {
			o.fail(err)
			return
		}
		o.pub = pub
	case StateBenchmarking:
		o.onUnits(data)
	default:
		o.fail(fmt.Errorf("%w: %d bytes on %s in state %s", ErrUnexpectedData, len(data), c.Name(), state))
	}
}

func (o *Orchestrator) start() {
	p, err := NewPipeline(o.target(), o.cfg.Bench.Preload, o.send)
	if err != nil {
		o.fail(err)
		return
	}
	p.SetClock(o.now)
	o.pipe = p

	o.logger.Info("benchmark_starting",
		slog.Int("count", o.target()),
		slog.Int("preload", o.cfg.Bench.Preload),
		slog.Int("unit_size", len(o.unit)))
	if err := p.Start(); err != nil {
		o.fail(err)
	}
}

func (o *Orchestrator) send() error {
	if err := o.pub.Write(o.unit); err != nil {
		return err
	}
	o.metrics.RecordSent()
	return nil
}

func (o *Orchestrator) onUnits(data []byte) {
	n := o.reasm.Consume(data)
	o.metrics.RecordReceived(n, len(data))

	if o.frames != nil {
		frames, err := o.frames.Write(data)
		if err != nil {
			o.fail(err)
			return
		}
		for _, f := range frames {
			if err := o.checkEcho(f); err != nil {
				o.fail(err)
				return
			}
		}
	}

	for range n {
		done, err := o.pipe.Ack()
		if err != nil {
			o.fail(err)
			return
		}
		if done {
			o.succeed()
			return
		}
	}
}

func (o *Orchestrator) checkEcho(frame []byte) error {
	p, err := packets.ParsePublish(frame)
	if err != nil {
		return err
	}
	o.echoed++
	if p.Topic != o.cfg.Bench.Topic || !bytes.Equal(p.Payload, o.payload) {
		return fmt.Errorf("%w: unit %d on topic %q", ErrEchoMismatch, o.echoed, p.Topic)
	}
	return nil
}

func (o *Orchestrator) onError(c *client.Conn, err error) {
	o.logger.Debug("conn_error", slog.String("conn", c.Name()), slog.String("error", err.Error()))
	o.metrics.RecordError(errorType(err))
	if errors.Is(err, packets.ErrProtocolViolation) {
		o.fail(err)
	}
}

// onClose ends the run if it is still going: the close error, if any, is
// the exit signal.
func (o *Orchestrator) onClose(c *client.Conn, err error) {
	o.logger.Debug("conn_closed", slog.String("conn", c.Name()), slog.Bool("with_error", err != nil))
	if o.outcome != nil {
		return
	}
	code := 0
	if err != nil {
		code = 1
	}
	o.terminate(&outcome{kind: OutcomeExit, err: err, code: code})
}

func (o *Orchestrator) succeed() {
	o.terminate(&outcome{kind: OutcomeSuccess})
}

func (o *Orchestrator) fail(err error) {
	o.terminate(&outcome{kind: OutcomeFailure, err: err, code: 1})
}

// terminate records the first outcome and closes both connections.
func (o *Orchestrator) terminate(out *outcome) {
	if o.outcome != nil {
		return
	}
	o.outcome = out
	if o.machine.Can(TriggerClose) {
		_ = o.machine.Fire(TriggerClose)
	}
	for _, c := range []*client.Conn{o.sub, o.pub} {
		if c != nil {
			c.Close()
		}
	}
}

func (o *Orchestrator) fire(t Trigger) bool {
	if err := o.machine.Fire(t); err != nil {
		o.fail(err)
		return false
	}
	return true
}

func (o *Orchestrator) onTransition(from, to State, t Trigger) {
	o.logger.Debug("state_changed",
		slog.String("from", from.String()),
		slog.String("to", to.String()),
		slog.String("trigger", string(t)))
	if o.span != nil {
		o.span.AddEvent(to.String())
	}
}

func (o *Orchestrator) target() int {
	if o.goal == GoalEcho {
		return 1
	}
	return o.cfg.Bench.Count
}

func (o *Orchestrator) report(done Completion) {
	out := o.outcome
	r := &o.result
	r.Timestamp = o.now().UTC().Format(time.RFC3339)
	r.Residual = o.reasm.Buffered()
	r.Pass = out.kind == OutcomeSuccess
	if out.err != nil {
		r.Notes = out.err.Error()
	}
	if o.pipe != nil {
		tp := o.pipe.Throughput()
		r.Sent = o.pipe.Sent()
		r.Completed = tp.Units
		r.DurationMS = float64(tp.Elapsed) / float64(time.Millisecond)
		r.MsgsPerSec = tp.MsgsPerSec
		o.metrics.RecordAbandoned(o.pipe.Pending())
	}

	o.metrics.RecordRun(o.name, out.kind)
	o.span.SetAttributes(
		attribute.String("outcome", out.kind),
		attribute.Int("bench.completed", r.Completed),
		attribute.Float64("bench.msgs_per_sec", r.MsgsPerSec),
	)
	if out.err != nil {
		o.span.RecordError(out.err)
		o.span.SetStatus(codes.Error, out.err.Error())
	}

	if o.goal == GoalThroughput && o.pipe != nil {
		if r.Pass {
			o.metrics.RecordThroughput(o.name, r.DurationMS, r.MsgsPerSec)
			o.logger.Info("benchmark_completed",
				slog.Int("count", r.Completed),
				slog.Float64("time_delta_ms", r.DurationMS),
				slog.Float64("msgs_per_sec", r.MsgsPerSec))
		}
		if path := o.cfg.Bench.ResultsFile; path != "" {
			if err := AppendResult(path, r); err != nil {
				o.logger.Error("results_write_failed", slog.String("path", path), slog.String("error", err.Error()))
			}
		}
	}

	switch out.kind {
	case OutcomeSuccess:
		o.logger.Info("run_completed")
		done.Succeed()
	case OutcomeFailure:
		o.logger.Error("run_failed", slog.String("error", out.err.Error()))
		done.Fail(out.err)
	default:
		o.logger.Warn("run_exited", slog.Int("code", out.code), slog.Bool("with_error", out.err != nil))
		done.Exit(out.code)
	}
}

func errorType(err error) string {
	var perr *packets.ProtocolError
	switch {
	case errors.As(err, &perr):
		return "protocol_" + perr.Reason
	case errors.Is(err, client.ErrConnectFailed):
		return "connect"
	case errors.Is(err, client.ErrWriteFailed):
		return "write"
	case errors.Is(err, client.ErrConnectionLost):
		return "connection_lost"
	default:
		return "other"
	}
}
