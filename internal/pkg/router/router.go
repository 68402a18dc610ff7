package router

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/shandysiswandi/stepup/internal/pkg/config"
	"github.com/shandysiswandi/stepup/internal/pkg/goerror"
	"github.com/shandysiswandi/stepup/internal/pkg/instrument"
	"github.com/shandysiswandi/stepup/internal/pkg/uid"
	"github.com/shandysiswandi/stepup/internal/pkg/validator"
)

type errorResponse struct {
	Message string            `json:"message" example:"Validation error"`
	Error   map[string]string `json:"error,omitempty"`
}

type successResponse struct {
	Message string         `json:"message" example:"request has been successfully"`
	Data    any            `json:"data" swaggertype:"object"`
	Meta    map[string]any `json:"meta,omitempty" swaggertype:"object"`
}

// Handler returns a payload to encode as the data of a success envelope,
// or an error rendered through goerror.
//
// A payload may refine the envelope by implementing StatusCode() int,
// Message() string or Meta() map[string]any.
type Handler func(r *Request) (any, error)

// Config holds dependencies required to build a Router.
type Config struct {
	Config config.Config
	// UUID generates request correlation IDs.
	UUID uid.StringID
	// Sessions resolves bearer tokens on every route except publicRoutes.
	Sessions   SessionResolver
	Instrument instrument.Instrumentation
	// ServiceName is echoed by the root endpoint.
	ServiceName string
}

// routeKey is a method and a route pattern as registered.
type routeKey struct{ method, pattern string }

var publicRoutes = map[routeKey]struct{}{
	{http.MethodGet, "/"}:                 {},
	{http.MethodGet, "/health"}:           {},
	{http.MethodPost, "/api/v1/login"}:    {},
	{http.MethodPost, "/api/v1/register"}: {},
}

// Router is an http.Handler that wraps httprouter and a middleware chain.
type Router struct {
	hr  *httprouter.Router
	mws []Middleware
}

// NewRouter builds the application router with the standard middleware
// chain and the root and health endpoints.
func NewRouter(cfg Config) *Router {
	hr := &httprouter.Router{
		RedirectTrailingSlash:  true,
		RedirectFixedPath:      true,
		HandleMethodNotAllowed: true,
		HandleOPTIONS:          true,
		SaveMatchedRoutePath:   true,
		NotFound: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, errorResponse{Message: "endpoint not found"}, http.StatusNotFound)
		}),
		MethodNotAllowed: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, errorResponse{Message: "method not allowed"}, http.StatusMethodNotAllowed)
		}),
	}

	ro := &Router{
		hr: hr,
		mws: []Middleware{
			middlewareRecoverer,
			middlewareIP,
			middlewareCorrelationID(cfg.UUID),
			middlewareObservability(cfg.Config, cfg.Instrument),
			middlewareMaintenance(cfg.Config),
			middlewareAuthentication(cfg.Sessions, publicRoutes),
		},
	}

	service := cfg.ServiceName
	if service == "" {
		service = "stepup"
	}
	ro.GET("/", func(*Request) (any, error) {
		return map[string]string{"service": service}, nil
	})
	ro.GET("/health", func(*Request) (any, error) {
		return map[string]string{"status": "UP"}, nil
	})

	return ro
}

func (r *Router) GET(path string, h Handler, mws ...Middleware) {
	r.endpoint(http.MethodGet, path, h, mws...)
}

func (r *Router) POST(path string, h Handler, mws ...Middleware) {
	r.endpoint(http.MethodPost, path, h, mws...)
}

func (r *Router) PATCH(path string, h Handler, mws ...Middleware) {
	r.endpoint(http.MethodPatch, path, h, mws...)
}

func (r *Router) DELETE(path string, h Handler, mws ...Middleware) {
	r.endpoint(http.MethodDelete, path, h, mws...)
}

func (r *Router) endpoint(method, path string, h Handler, mws ...Middleware) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		resp, err := h(&Request{Request: req})
		if err != nil {
			if rec, ok := w.(*statusRecorder); ok {
				rec.SetError(err)
			}
			writeError(w, err)
			return
		}
		writeResult(w, resp)
	})

	r.hr.Handler(method, path, Chain(handler, append(r.mws, mws...)...))
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.hr.ServeHTTP(w, req)
}

// writeError renders err as an errorResponse. Anything that is not a
// *goerror.Error is an unexpected failure and gets a bare 500.
func writeError(w http.ResponseWriter, err error) {
	var gerr *goerror.Error
	if !errors.As(err, &gerr) {
		writeJSON(w, errorResponse{Message: "Internal server error"}, http.StatusInternalServerError)
		return
	}

	resp := errorResponse{Message: gerr.Msg(), Error: gerr.Fields()}
	var verr validator.V10ValidationError
	if errors.As(err, &verr) {
		resp.Error = verr.Values()
	}
	if len(resp.Error) == 0 {
		resp.Error = nil
	}

	writeJSON(w, resp, gerr.StatusCode())
}

func writeResult(w http.ResponseWriter, resp any) {
	status := http.StatusOK
	if sc, ok := resp.(interface{ StatusCode() int }); ok {
		status = sc.StatusCode()
	}
	if resp == nil || status == http.StatusNoContent {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	out := successResponse{Message: "request has been successfully", Data: resp}
	if m, ok := resp.(interface{ Message() string }); ok {
		out.Message = m.Message()
	}
	if m, ok := resp.(interface{ Meta() map[string]any }); ok {
		out.Meta = m.Meta()
	}

	writeJSON(w, out, status)
}

func writeJSON(w http.ResponseWriter, data any, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
