// Package telemetry is the logging and metrics facade used by every internal
// package. Wire-level malformed input and discovery/lease events are logged
// here rather than surfaced as user errors, per spec.md §7.
package telemetry

import (
	"context"
	"log"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Logger is a package-prefixed logger, matching the teacher's
// `log.Printf("pkgname: message", ...)` convention.
type Logger struct {
	prefix string
}

// NewLogger returns a Logger that prefixes every line with name.
func NewLogger(name string) *Logger {
	return &Logger{prefix: name}
}

func (l *Logger) Printf(format string, args ...any) {
	log.Printf(l.prefix+": "+format, args...)
}

func (l *Logger) Println(args ...any) {
	all := append([]any{l.prefix + ":"}, args...)
	log.Println(all...)
}

// Meter wraps an optional otel meter. When no MeterProvider has been
// injected, every method is a no-op so protocol behavior never depends on
// whether telemetry is configured.
type Meter struct {
	counters map[string]metric.Int64Counter
	meter    metric.Meter
}

// NewMeter creates a Meter bound to the given otel Meter. Pass nil for a
// fully inert no-op meter (the default when a host process injects no
// MeterProvider).
func NewMeter(m metric.Meter) *Meter {
	return &Meter{meter: m, counters: make(map[string]metric.Int64Counter)}
}

// Count increments the named counter by delta, lazily registering it on
// first use. A nil underlying meter makes this a no-op.
func (m *Meter) Count(ctx context.Context, name string, delta int64, attrs ...metric.AddOption) {
	if m == nil || m.meter == nil {
		return
	}
	c, ok := m.counters[name]
	if !ok {
		var err error
		c, err = m.meter.Int64Counter(name)
		if err != nil {
			return
		}
		m.counters[name] = c
	}
	c.Add(ctx, delta, attrs...)
}

// Tracer wraps an optional otel tracer. A nil underlying TracerProvider
// makes StartSpan a no-op (trace.NewNoopTracerProvider's tracer), so entity
// operations never depend on whether a host process injected one.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer bound to the given otel TracerProvider's tracer
// named name. Pass nil for the global no-op provider.
func NewTracer(provider trace.TracerProvider, name string) *Tracer {
	if provider == nil {
		provider = trace.NewNoopTracerProvider()
	}
	return &Tracer{tracer: provider.Tracer(name)}
}

// StartSpan starts a span named op, returning the derived context and a
// closer the caller should `defer`.
func (t *Tracer) StartSpan(ctx context.Context, op string) (context.Context, func()) {
	if t == nil || t.tracer == nil {
		return ctx, func() {}
	}
	ctx, span := t.tracer.Start(ctx, op)
	return ctx, func() { span.End() }
}
