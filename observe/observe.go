// Package observe reports the render and sync passes of an engine as
// Prometheus metrics and OpenTelemetry spans.
//
//	o := observe.New(observe.WithRegistry(reg))
//	e := core.NewEngine(core.WithObserver(o))
//
// Metrics collected:
//   - vmr_passes_total: passes by kind (render, sync) and status
//   - vmr_pass_duration_seconds: pass duration by kind
//   - vmr_directives_total: directive applications by name
//   - vmr_read_failures_total: expressions that failed to evaluate
//
// Spans are started from the global tracer provider, configure it with
// otel.SetTracerProvider before the first pass.
package observe

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultTracerName = "github.com/gowade/vmr"

type (
	Config struct {
		// Namespace is the metrics namespace (default: "vmr").
		Namespace   string
		Subsystem   string
		ConstLabels prometheus.Labels
		// Buckets of the pass duration histogram.
		Buckets []float64
		// Registry defaults to prometheus.DefaultRegisterer.
		Registry   prometheus.Registerer
		TracerName string
	}

	Option func(*Config)

	// Observer implements core.Observer.
	Observer struct {
		passes       *prometheus.CounterVec
		duration     *prometheus.HistogramVec
		directives   *prometheus.CounterVec
		readFailures prometheus.Counter

		tracer trace.Tracer
	}
)

func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func WithTracerName(name string) Option {
	return func(c *Config) {
		c.TracerName = name
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "vmr",
		// DOM passes are much shorter than requests.
		Buckets:    []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		Registry:   prometheus.DefaultRegisterer,
		TracerName: defaultTracerName,
	}
}

// register returns the collector already registered under the same
// description, so several observers can share a registry.
func register[C prometheus.Collector](r prometheus.Registerer, c C) C {
	if err := r.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}

		panic(err)
	}

	return c
}

func New(opts ...Option) *Observer {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.Registry == nil {
		cfg.Registry = prometheus.DefaultRegisterer
	}

	return &Observer{
		passes: register(cfg.Registry, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "passes_total",
			Help:        "Total number of render and sync passes",
			ConstLabels: cfg.ConstLabels,
		}, []string{"kind", "status"})),

		duration: register(cfg.Registry, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "pass_duration_seconds",
			Help:        "Pass duration in seconds",
			ConstLabels: cfg.ConstLabels,
			Buckets:     cfg.Buckets,
		}, []string{"kind"})),

		directives: register(cfg.Registry, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "directives_total",
			Help:        "Total number of directive applications",
			ConstLabels: cfg.ConstLabels,
		}, []string{"directive"})),

		readFailures: register(cfg.Registry, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "read_failures_total",
			Help:        "Total number of expressions that failed to evaluate",
			ConstLabels: cfg.ConstLabels,
		})),

		tracer: otel.Tracer(cfg.TracerName),
	}
}

// StartPass starts a span named after the kind of pass. The returned
// function ends it and records the outcome.
func (o *Observer) StartPass(ctx context.Context, kind string) (context.Context, func(err error)) {
	start := time.Now()
	spanCtx, span := o.tracer.Start(ctx, "vmr."+kind,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("vmr.pass", kind)),
	)

	return spanCtx, func(err error) {
		status := "ok"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		o.passes.WithLabelValues(kind, status).Inc()
		o.duration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
		span.End()
	}
}

func (o *Observer) Directive(name string) {
	o.directives.WithLabelValues(name).Inc()
}

// ReadFailure counts a failed read. The expression is not used as a
// label, it is already in the engine's log.
func (o *Observer) ReadFailure(expression string) {
	o.readFailures.Inc()
}
