package instrument

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// alwaysMasked are attribute keys that carry credentials in this service.
var alwaysMasked = []string{"password", "code", "token", "authorization"}

// newLogger builds the process logger: JSON to out, fanned out to the OTLP
// log bridge when lp is set, with masking and the correlation id on top.
func newLogger(out io.Writer, cfg *Config, lp *sdklog.LoggerProvider) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	var handler slog.Handler = slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level:       level,
		AddSource:   true,
		ReplaceAttr: replaceAttr,
	})
	if lp != nil {
		handler = &multiHandler{handlers: []slog.Handler{
			handler,
			otelslog.NewHandler(cfg.ServiceName, otelslog.WithLoggerProvider(lp)),
		}}
	}

	return slog.New(&contextHandler{
		Handler:     &maskHandler{handler: handler, keys: newMaskKeys(cfg.MaskFields)},
		serviceName: cfg.ServiceName,
	})
}

func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.TimeKey:
		a.Key = "ts"
	case slog.LevelKey:
		a.Key = "severity"
	case slog.SourceKey:
		src, ok := a.Value.Any().(*slog.Source)
		if !ok {
			return a
		}
		_, rel, found := strings.Cut(src.File, "/internal/")
		if !found {
			return slog.Attr{}
		}
		return slog.String("file", fmt.Sprintf("%s:%d", filepath.Join("internal", rel), src.Line))
	}
	return a
}

type contextHandler struct {
	slog.Handler
	serviceName string
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if cID := GetCorrelationID(ctx); cID != "" {
		r.AddAttrs(slog.String("_cID", cID))
	}
	r.AddAttrs(slog.String("service", h.serviceName))

	return h.Handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithAttrs(attrs), serviceName: h.serviceName}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithGroup(name), serviceName: h.serviceName}
}

type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, h := range m.handlers {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return m.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	return m.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (m *multiHandler) each(fn func(slog.Handler) slog.Handler) slog.Handler {
	out := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		out[i] = fn(h)
	}
	return &multiHandler{handlers: out}
}

type maskKeys map[string]struct{}

func newMaskKeys(extra []string) maskKeys {
	keys := make(maskKeys, len(alwaysMasked)+len(extra))
	for _, f := range slices.Concat(alwaysMasked, extra) {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			keys[f] = struct{}{}
		}
	}
	return keys
}

func (k maskKeys) has(key string) bool {
	_, ok := k[strings.ToLower(key)]
	return ok
}

func (k maskKeys) attr(a slog.Attr) slog.Attr {
	if k.has(a.Key) {
		return slog.String(a.Key, "***")
	}

	switch a.Value.Kind() {
	case slog.KindGroup:
		group := a.Value.Group()
		out := make([]slog.Attr, len(group))
		for i, ga := range group {
			out[i] = k.attr(ga)
		}
		a.Value = slog.GroupValue(out...)
	case slog.KindString:
		if s := a.Value.String(); s != "" && (s[0] == '{' || s[0] == '[') {
			if masked, ok := k.json([]byte(s)); ok {
				a.Value = slog.StringValue(masked)
			}
		}
	case slog.KindAny:
		switch v := a.Value.Any().(type) {
		case map[string]any, []any:
			a.Value = slog.AnyValue(k.data(v))
		case map[string]string:
			conv := make(map[string]any, len(v))
			for key, val := range v {
				conv[key] = val
			}
			a.Value = slog.AnyValue(k.data(conv))
		case []byte:
			if masked, ok := k.json(v); ok {
				a.Value = slog.StringValue(masked)
			}
		}
	}

	return a
}

func (k maskKeys) json(payload []byte) (string, bool) {
	var body any
	if len(payload) == 0 || json.Unmarshal(payload, &body) != nil {
		return "", false
	}
	out, err := json.Marshal(k.data(body))
	if err != nil {
		return "", false
	}
	return string(out), true
}

func (k maskKeys) data(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for key, item := range val {
			if k.has(key) {
				out[key] = "***"
				continue
			}
			out[key] = k.data(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = k.data(item)
		}
		return out
	default:
		return v
	}
}

type maskHandler struct {
	handler slog.Handler
	keys    maskKeys
}

func (h *maskHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *maskHandler) Handle(ctx context.Context, record slog.Record) error {
	masked := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	record.Attrs(func(a slog.Attr) bool {
		masked.AddAttrs(h.keys.attr(a))
		return true
	})

	return h.handler.Handle(ctx, masked)
}

func (h *maskHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = h.keys.attr(a)
	}
	return &maskHandler{handler: h.handler.WithAttrs(out), keys: h.keys}
}

func (h *maskHandler) WithGroup(name string) slog.Handler {
	return &maskHandler{handler: h.handler.WithGroup(name), keys: h.keys}
}
