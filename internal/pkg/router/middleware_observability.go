package router

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/julienschmidt/httprouter"
	"github.com/shandysiswandi/stepup/internal/pkg/config"
	"github.com/shandysiswandi/stepup/internal/pkg/instrument"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const maxLoggedBodyBytes = 32 * 1024

// secretFields never reach the logs whatever instrument.log_mask_fields says:
// one-time codes, passwords and bearer tokens.
var secretFields = []string{"authorization", "password", "code", "token"}

const masked = "***"

type maskSet map[string]struct{}

func newMaskSet(cfg config.Config) maskSet {
	m := make(maskSet, len(secretFields))
	for _, f := range secretFields {
		m[f] = struct{}{}
	}
	if cfg == nil {
		return m
	}
	for _, f := range cfg.GetArray("instrument.log_mask_fields") {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			m[f] = struct{}{}
		}
	}
	return m
}

func (m maskSet) has(key string) bool {
	_, ok := m[strings.ToLower(key)]
	return ok
}

func (m maskSet) headers(h http.Header) http.Header {
	out := h.Clone()
	for key := range out {
		if m.has(key) {
			out.Set(key, masked)
		}
	}
	return out
}

func (m maskSet) value(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			if m.has(k) {
				out[k] = masked
				continue
			}
			out[k] = m.value(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = m.value(item)
		}
		return out
	default:
		return v
	}
}

// body renders a captured payload for logging. Anything that is not JSON is
// logged as text only when it is valid UTF-8.
func (m maskSet) body(raw []byte, truncated bool) any {
	if len(raw) == 0 {
		return nil
	}

	var out any
	var decoded any
	switch {
	case json.Unmarshal(raw, &decoded) == nil:
		out = m.value(decoded)
	case utf8.Valid(raw):
		out = string(raw)
	default:
		out = "<binary body omitted>"
	}

	if truncated {
		return map[string]any{"body": out, "truncated": true}
	}
	return out
}

// statusRecorder captures what the handler wrote so it can be logged after
// the response is sent.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int
	body    bytes.Buffer
	capped  bool
	err     error
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func (rec *statusRecorder) Write(p []byte) (int, error) {
	if rec.status == 0 {
		rec.status = http.StatusOK
	}

	if !rec.capped {
		room := maxLoggedBodyBytes - rec.body.Len()
		rec.capped = len(p) > room
		rec.body.Write(p[:min(len(p), room)])
	}

	n, err := rec.ResponseWriter.Write(p)
	rec.written += n
	return n, err
}

// SetError attaches the handler error to the span of the request.
func (rec *statusRecorder) SetError(err error) {
	rec.err = err
}

func (rec *statusRecorder) statusCode() int {
	return cmp.Or(rec.status, http.StatusOK)
}

func matchedRoutePath(r *http.Request) string {
	return cmp.Or(httprouter.ParamsFromContext(r.Context()).MatchedRoutePath(), r.URL.Path)
}

// peekBody reads up to the log limit and puts the bytes back for the handler.
func peekBody(r *http.Request) (raw []byte, truncated bool) {
	if r.Body == nil {
		return nil, false
	}

	//nolint:errcheck // best effort for logging only
	raw, _ = io.ReadAll(io.LimitReader(r.Body, maxLoggedBodyBytes+1))
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(raw), r.Body))
	if len(raw) > maxLoggedBodyBytes {
		return raw[:maxLoggedBodyBytes], true
	}
	return raw, false
}

type serverMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// newServerMetrics leaves an instrument nil when the meter rejects it, and
// record skips nil instruments.
func newServerMetrics(meter metric.Meter) serverMetrics {
	var sm serverMetrics
	var err error

	sm.requests, err = meter.Int64Counter("http.server.request.count",
		metric.WithDescription("HTTP requests served"),
		metric.WithUnit("{request}"))
	if err != nil {
		slog.Warn("http request counter disabled", "error", err)
	}

	sm.duration, err = meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("Duration of HTTP server requests"),
		metric.WithUnit("s"))
	if err != nil {
		slog.Warn("http duration histogram disabled", "error", err)
	}

	return sm
}

func (sm serverMetrics) record(ctx context.Context, elapsed time.Duration, attrs ...attribute.KeyValue) {
	set := metric.WithAttributeSet(attribute.NewSet(attrs...))
	if sm.requests != nil {
		sm.requests.Add(ctx, 1, set)
	}
	if sm.duration != nil {
		sm.duration.Record(ctx, elapsed.Seconds(), set)
	}
}

// endSpan marks 5xx responses as errors; client errors only record the cause.
func endSpan(span trace.Span, status int, err error) {
	if err != nil {
		span.RecordError(err)
	}
	if status < http.StatusInternalServerError {
		span.SetStatus(codes.Ok, "")
		return
	}
	desc := http.StatusText(status)
	if err != nil {
		desc = err.Error()
	}
	span.SetStatus(codes.Error, desc)
}

func middlewareObservability(cfg config.Config, ins instrument.Instrumentation) Middleware {
	mask := newMaskSet(cfg)
	tracer := ins.Tracer("stepup/router")
	metrics := newServerMetrics(ins.Meter("stepup/router"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			route := matchedRoutePath(r)
			base := []attribute.KeyValue{
				semconv.HTTPRequestMethodKey.String(r.Method),
				semconv.HTTPRouteKey.String(route),
			}

			ctx, span := tracer.Start(r.Context(), r.Method+" "+route,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(base...),
				trace.WithAttributes(
					semconv.ClientAddressKey.String(r.RemoteAddr),
					semconv.NetworkProtocolVersionKey.String(r.Proto),
					semconv.ServerAddressKey.String(r.Host),
					semconv.UserAgentOriginalKey.String(r.UserAgent()),
				),
			)
			defer span.End()

			reqBody, reqTruncated := peekBody(r)
			slog.InfoContext(ctx, "request received",
				"method", r.Method,
				"path", route,
				"client_ip", r.RemoteAddr,
				"headers", mask.headers(r.Header),
				"body", mask.body(reqBody, reqTruncated),
			)

			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r.WithContext(ctx))

			status := rec.statusCode()
			elapsed := time.Since(start)

			span.SetAttributes(
				semconv.HTTPResponseStatusCodeKey.Int(status),
				semconv.HTTPResponseBodySizeKey.Int(rec.written),
			)
			endSpan(span, status, rec.err)
			metrics.record(ctx, elapsed, append(base, semconv.HTTPResponseStatusCodeKey.Int(status))...)

			slog.InfoContext(ctx, "response sent",
				"method", r.Method,
				"path", route,
				"status", status,
				"bytes", rec.written,
				"latency_ms", elapsed.Milliseconds(),
				"body", mask.body(rec.body.Bytes(), rec.capped),
			)
		})
	}
}
