package router

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/shandysiswandi/stepup/internal/pkg/stacktrace"
)

// middlewareRecoverer turns a handler panic into a 500 and logs the frames
// that belong to this module. http.ErrAbortHandler is re-raised so net/http
// can abort the connection.
func middlewareRecoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			//nolint:errorlint // sentinel panic value
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}

			stack := debug.Stack()
			if paths := stacktrace.InternalPaths(stack); len(paths) > 0 {
				slog.ErrorContext(r.Context(), "handler panicked", "panic", rvr, "stack", paths)
			} else {
				slog.ErrorContext(r.Context(), "handler panicked", "panic", rvr, "stack", string(stack))
			}

			writeJSON(w, errorResponse{Message: "Internal server error"}, http.StatusInternalServerError)
		}()

		next.ServeHTTP(w, r)
	})
}
