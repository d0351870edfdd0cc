package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/unkn0wn-root/daakiya/internal/nettrace"
	"github.com/unkn0wn-root/daakiya/internal/restfile"
)

var (
	tracerName  = "github.com/unkn0wn-root/daakiya/internal/telemetry"
	httpHostKey = attribute.Key("http.host")
)

type Instrumenter interface {
	Start(ctx context.Context, info RequestStart) (context.Context, RequestSpan)
	Shutdown(ctx context.Context) error
}

type RequestStart struct {
	Name        string
	Request     *restfile.ResolvedRequest
	HTTPRequest *http.Request
}

// RequestResult mirrors the canonical response; Failure is set when no
// HTTP response was obtained. Timeline and Budget are optional.
type RequestResult struct {
	StatusCode int
	Size       int64
	Elapsed    time.Duration
	Failure    *restfile.Failure
	Timeline   *nettrace.Timeline
	Budget     *nettrace.Budget
}

type RequestSpan interface {
	End(result RequestResult)
}

type providerOptions struct {
	exporter       sdktrace.SpanExporter
	spanProcessors []sdktrace.SpanProcessor
}

type Option func(*providerOptions)

func WithSpanProcessor(proc sdktrace.SpanProcessor) Option {
	return func(opts *providerOptions) {
		if proc != nil {
			opts.spanProcessors = append(opts.spanProcessors, proc)
		}
	}
}

func WithExporter(exp sdktrace.SpanExporter) Option {
	return func(opts *providerOptions) {
		if exp != nil {
			opts.exporter = exp
		}
	}
}

type manager struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	shutdown sync.Once
}

func New(cfg Config, opts ...Option) (Instrumenter, error) {
	builder := providerOptions{}
	for _, opt := range opts {
		opt(&builder)
	}

	if !cfg.Enabled() && builder.exporter == nil && len(builder.spanProcessors) == 0 {
		return Noop(), nil
	}

	res, err := resource.New(
		context.Background(),
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(buildResourceAttributes(cfg)...),
	)
	if err != nil {
		return nil, err
	}

	exporter := builder.exporter
	if exporter == nil && cfg.Enabled() {
		exporter, err = newExporter(cfg)
		if err != nil {
			return nil, err
		}
	}

	var tpOpts []sdktrace.TracerProviderOption
	tpOpts = append(tpOpts, sdktrace.WithResource(res))
	if exporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exporter))
	}
	for _, proc := range builder.spanProcessors {
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(proc))
	}

	tp := sdktrace.NewTracerProvider(tpOpts...)
	return &manager{tracer: tp.Tracer(tracerName), provider: tp}, nil
}

func (m *manager) Start(ctx context.Context, info RequestStart) (context.Context, RequestSpan) {
	if info.HTTPRequest == nil && info.Request == nil {
		return ctx, noopSpan{}
	}

	ctx, span := m.tracer.Start(
		ctx,
		spanNameFor(info),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(buildSpanAttributes(info)...),
	)
	return ctx, &requestSpan{span: span}
}

func (m *manager) Shutdown(ctx context.Context) error {
	if m == nil || m.provider == nil {
		return nil
	}
	var shutdownErr error
	m.shutdown.Do(func() {
		shutdownErr = m.provider.Shutdown(ctx)
	})
	return shutdownErr
}

type requestSpan struct {
	span trace.Span
}

func (rs *requestSpan) End(result RequestResult) {
	if rs == nil || rs.span == nil {
		return
	}

	rs.span.SetAttributes(
		attribute.Int64("daakiya.response.size", result.Size),
		attribute.Int64("daakiya.response.time_ms", result.Elapsed.Milliseconds()),
	)
	if result.StatusCode > 0 {
		rs.span.SetAttributes(semconv.HTTPStatusCodeKey.Int(result.StatusCode))
	}
	rs.recordTimeline(result.Timeline, result.Budget)

	switch {
	case result.Failure != nil:
		rs.span.SetAttributes(attribute.String("daakiya.failure.kind", string(result.Failure.Kind)))
		rs.span.RecordError(errors.New(result.Failure.Message))
		rs.span.SetStatus(codes.Error, result.Failure.Message)
	case result.StatusCode >= 400:
		rs.span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", result.StatusCode))
	default:
		rs.span.SetStatus(codes.Ok, "OK")
	}
	rs.span.End()
}

func (rs *requestSpan) recordTimeline(tl *nettrace.Timeline, budget *nettrace.Budget) {
	if tl == nil {
		return
	}
	rs.span.SetAttributes(attribute.Int64("daakiya.trace.duration_ms", tl.Duration.Milliseconds()))
	if strings.TrimSpace(tl.Err) != "" {
		rs.span.AddEvent(
			"daakiya.trace.error",
			trace.WithAttributes(attribute.String("daakiya.error", tl.Err)),
		)
	}

	for _, phase := range tl.Phases {
		attrs := []attribute.KeyValue{
			attribute.String("daakiya.trace.phase", string(phase.Kind)),
			attribute.Int64("daakiya.trace.phase_duration_ms", phase.Duration.Milliseconds()),
		}
		if phase.Meta.Addr != "" {
			attrs = append(attrs, attribute.String("daakiya.trace.addr", phase.Meta.Addr))
		}
		if phase.Meta.Reused {
			attrs = append(attrs, attribute.Bool("daakiya.trace.reused", true))
		}
		if phase.Err != "" {
			attrs = append(attrs, attribute.String("daakiya.trace.phase_error", phase.Err))
		}
		options := []trace.EventOption{trace.WithAttributes(attrs...)}
		if !phase.End.IsZero() {
			options = append(options, trace.WithTimestamp(phase.End))
		}
		rs.span.AddEvent("daakiya.trace.phase", options...)
	}

	if budget == nil || budget.IsZero() {
		return
	}
	breaches := nettrace.EvaluateBudget(tl, *budget)
	rs.span.SetAttributes(attribute.Bool("daakiya.trace.within_budget", len(breaches) == 0))
	for _, breach := range breaches {
		rs.span.AddEvent("daakiya.trace.budget_breach", trace.WithAttributes(
			attribute.String("daakiya.trace.breach_phase", string(breach.Kind)),
			attribute.Int64("daakiya.trace.breach_limit_ms", breach.Limit.Milliseconds()),
			attribute.Int64("daakiya.trace.breach_actual_ms", breach.Actual.Milliseconds()),
			attribute.Int64("daakiya.trace.breach_over_ms", breach.Over.Milliseconds()),
		))
	}
}

func Noop() Instrumenter {
	return noopInstrumenter{}
}

type noopInstrumenter struct{}

type noopSpan struct{}

func (noopInstrumenter) Start(ctx context.Context, _ RequestStart) (context.Context, RequestSpan) {
	return ctx, noopSpan{}
}

func (noopInstrumenter) Shutdown(context.Context) error { return nil }

func (noopSpan) End(RequestResult) {}

func newExporter(cfg Config) (sdktrace.SpanExporter, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("telemetry endpoint is required")
	}

	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	clientOpts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		clientOpts = append(clientOpts, otlptracegrpc.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		clientOpts = append(clientOpts, otlptracegrpc.WithHeaders(cfg.Headers))
	}

	client := otlptracegrpc.NewClient(clientOpts...)
	return otlptrace.New(ctx, client)
}

func buildResourceAttributes(cfg Config) []attribute.KeyValue {
	name := cfg.ServiceName
	if strings.TrimSpace(name) == "" {
		name = defaultServiceName
	}
	attrs := []attribute.KeyValue{
		semconv.ServiceName(name),
	}
	if strings.TrimSpace(cfg.Version) != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.Version))
	}
	return attrs
}

func buildSpanAttributes(info RequestStart) []attribute.KeyValue {
	var attrs []attribute.KeyValue

	switch {
	case info.HTTPRequest != nil && info.HTTPRequest.Method != "":
		attrs = append(attrs, semconv.HTTPMethodKey.String(info.HTTPRequest.Method))
	case info.Request != nil && info.Request.Method != "":
		attrs = append(attrs, semconv.HTTPMethodKey.String(info.Request.Method.String()))
	}

	if req := info.HTTPRequest; req != nil && req.URL != nil {
		if scheme := req.URL.Scheme; scheme != "" {
			attrs = append(attrs, semconv.HTTPSchemeKey.String(scheme))
		}
		if host := req.URL.Host; host != "" {
			attrs = append(attrs, httpHostKey.String(host))
		}
		if target := req.URL.RequestURI(); target != "" {
			attrs = append(attrs, semconv.HTTPTargetKey.String(target))
		}
		attrs = append(attrs, semconv.HTTPURLKey.String(req.URL.String()))
	} else if info.Request != nil && info.Request.URL != "" {
		attrs = append(attrs, semconv.HTTPURLKey.String(info.Request.URL))
	}

	if name := strings.TrimSpace(info.Name); name != "" {
		attrs = append(attrs, attribute.String("daakiya.request.name", name))
	}
	if info.Request != nil {
		attrs = append(attrs,
			attribute.Bool("daakiya.request.has_body", info.Request.HasBody()),
			attribute.Int("daakiya.request.headers", len(info.Request.Headers)),
		)
		if n := len(info.Request.Warnings); n > 0 {
			attrs = append(attrs, attribute.Int("daakiya.request.warnings", n))
		}
	}
	return attrs
}

func spanNameFor(info RequestStart) string {
	if name := strings.TrimSpace(info.Name); name != "" {
		return name
	}
	if req := info.HTTPRequest; req != nil && req.Method != "" {
		if req.URL != nil && req.URL.Host != "" {
			return fmt.Sprintf("%s %s", req.Method, req.URL.Host)
		}
		return req.Method
	}
	if info.Request != nil && info.Request.Method != "" {
		return info.Request.Method.String()
	}
	return "http.request"
}
