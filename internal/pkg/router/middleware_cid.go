package router

import (
	"net/http"
	"strings"

	"github.com/shandysiswandi/stepup/internal/pkg/instrument"
	"github.com/shandysiswandi/stepup/internal/pkg/uid"
)

// correlationHeaders are read in order. The response always carries the
// first one.
var correlationHeaders = []string{"X-Correlation-ID", "X-Request-ID"}

const maxCorrelationIDLen = 128

// inboundCorrelationID returns the caller's id, skipping values that could
// split a header line.
func inboundCorrelationID(h http.Header) string {
	for _, name := range correlationHeaders {
		v := strings.TrimSpace(h.Get(name))
		if v == "" || strings.ContainsAny(v, "\r\n") {
			continue
		}
		return v[:min(len(v), maxCorrelationIDLen)]
	}
	return ""
}

func middlewareCorrelationID(gen uid.StringID) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cid := inboundCorrelationID(r.Header)
			if cid == "" && gen != nil {
				cid = gen.Generate()
			}
			if cid != "" {
				w.Header().Set(correlationHeaders[0], cid)
				r = r.WithContext(instrument.SetCorrelationID(r.Context(), cid))
			}

			next.ServeHTTP(w, r)
		})
	}
}
