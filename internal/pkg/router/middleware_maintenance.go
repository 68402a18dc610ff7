package router

import (
	"net/http"
	"slices"

	"github.com/shandysiswandi/stepup/internal/pkg/config"
)

// middlewareMaintenance answers 503 for the route patterns listed in
// app.maintenance.endpoints. The list is read per request so it follows
// config reloads; "*" closes everything but the health check.
func middlewareMaintenance(cfg config.Config) Middleware {
	return func(next http.Handler) http.Handler {
		if cfg == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			closed := cfg.GetArray("app.maintenance.endpoints")
			route := matchedRoutePath(r)
			if route != "/health" && (slices.Contains(closed, "*") || slices.Contains(closed, route)) {
				w.Header().Set("Retry-After", "60")
				writeJSON(w, errorResponse{Message: "service is under maintenance"}, http.StatusServiceUnavailable)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
