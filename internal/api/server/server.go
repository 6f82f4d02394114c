// Package server provides the proxycfg lookup service: a small REST API
// answering which proxy, if any, the system would use for a URL.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rennerdo30/proxycfg/internal/logging"
	"github.com/rennerdo30/proxycfg/internal/metrics"
	"github.com/rennerdo30/proxycfg/internal/sysproxy"
	"github.com/rennerdo30/proxycfg/internal/version"
)

// API provides the lookup service.
type API struct {
	source             ConfigSource
	metrics            *metrics.Metrics
	auth               *tokenAuth
	missingSchemeError bool
	sources            []string
	lookups            *LookupLog
	startTime          time.Time
}

// Config holds API configuration.
type Config struct {
	Source  ConfigSource
	Metrics *metrics.Metrics // optional; enables /metrics

	// Bearer token for /api/v1 and /proxy.pac, given in plain text or as a
	// bcrypt hash. Either one is accepted.
	Token     string
	TokenHash string

	// MissingSchemeError reports a URL whose scheme has no proxy as 404
	// instead of a direct connection.
	MissingSchemeError bool

	Sources       []string // provider names, for /api/v1/status
	LookupLogSize int
}

// New creates a new API server.
func New(cfg Config) *API {
	return &API{
		source:             cfg.Source,
		metrics:            cfg.Metrics,
		auth:               newTokenAuth(cfg.Token, cfg.TokenHash),
		missingSchemeError: cfg.MissingSchemeError,
		sources:            cfg.Sources,
		lookups:            NewLookupLog(cfg.LookupLogSize),
		startTime:          time.Now(),
	}
}

// Router returns the HTTP router for the API.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(a.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/api/v1/health", a.handleHealth)
	r.Get("/api/v1/version", a.handleVersion)
	if a.metrics != nil {
		r.Handle("/metrics", a.metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		if a.auth.enabled() {
			r.Use(a.auth.middleware)
		}
		r.Get("/api/v1/status", a.handleStatus)
		r.Get("/api/v1/config", a.handleGetConfig)
		r.Get("/api/v1/proxy", a.handleLookup)
		r.Get("/api/v1/lookups", a.handleLookups)
		r.Get("/proxy.pac", a.handlePAC)
	})

	return r
}

// requestLogger attaches a request-scoped logger and records request
// metrics keyed by route pattern.
func (a *API) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logging.ContextWith(r.Context(),
			"component", "api",
			"request_id", middleware.GetReqID(r.Context()),
		)
		r = r.WithContext(ctx)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)

		logging.FromContext(ctx).Debug("request",
			"method", r.Method,
			"route", route,
			"status", status,
			"duration", duration,
		)
		if a.metrics != nil {
			a.metrics.RecordRequest(r.Method, route, strconv.Itoa(status), duration)
		}
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (a *API) handleVersion(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, version.GetInfo())
}

func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "running",
		"time":    time.Now().Format(time.RFC3339),
		"version": version.Short(),
		"uptime":  time.Since(a.startTime).Round(time.Second).String(),
		"sources": a.sources,
		"lookups": a.lookups.Len(),
	}

	cfg, err := a.source.Resolve()
	if err != nil {
		response["resolved"] = false
		response["error"] = err.Error()
		response["kind"] = sysproxy.ErrorKind(err)
	} else {
		response["resolved"] = true
		response["source"] = cfg.Source()
	}

	a.writeJSON(w, http.StatusOK, response)
}

func (a *API) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := a.source.Resolve()
	if err != nil {
		a.writeResolveError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, cfg.Settings())
}

// lookupResponse is the body of GET /api/v1/proxy.
type lookupResponse struct {
	sysproxy.Decision

	URL    string `json:"url"`
	Source string `json:"source"`
	Direct bool   `json:"direct"`
	Error  string `json:"error,omitempty"`
}

func (a *API) handleLookup(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		a.writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": "missing url query parameter",
		})
		return
	}

	target, err := sysproxy.ParseTarget(raw)
	if err != nil {
		a.writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":   "invalid url",
			"message": err.Error(),
		})
		return
	}

	cfg, err := a.source.Resolve()
	if err != nil {
		a.writeResolveError(w, err)
		return
	}

	d := sysproxy.Decide(cfg, target)
	if a.metrics != nil {
		a.metrics.ObserveDecision(d)
	}
	a.lookups.Add(LookupEntry{
		Timestamp: time.Now(),
		URL:       raw,
		ClientIP:  r.RemoteAddr,
		Source:    cfg.Source(),
		Decision:  d,
	})
	logging.FromContext(r.Context()).Debug("lookup",
		"url", raw,
		"outcome", d.Outcome.String(),
		"proxy", d.Proxy,
	)

	resp := lookupResponse{
		URL:      raw,
		Source:   cfg.Source(),
		Direct:   d.Outcome != sysproxy.OutcomeProxy,
		Decision: d,
	}
	status := http.StatusOK
	if d.Outcome == sysproxy.OutcomeNoProxyForScheme && a.missingSchemeError {
		resp.Error = d.Err().Error()
		status = http.StatusNotFound
	}
	a.writeJSON(w, status, resp)
}

func (a *API) handleLookups(w http.ResponseWriter, r *http.Request) {
	if since := r.URL.Query().Get("since"); since != "" {
		id, err := strconv.ParseInt(since, 10, 64)
		if err != nil {
			http.Error(w, "invalid since parameter", http.StatusBadRequest)
			return
		}
		a.writeJSON(w, http.StatusOK, a.lookups.Since(id))
		return
	}

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil {
			http.Error(w, "invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = n
	}
	a.writeJSON(w, http.StatusOK, a.lookups.Recent(limit))
}

// writeResolveError maps resolution failures to a status code. Malformed
// settings are the system's fault, so they are reported as 502.
func (a *API) writeResolveError(w http.ResponseWriter, err error) {
	status := http.StatusServiceUnavailable
	if errors.Is(err, sysproxy.ErrInvalidConfig) {
		status = http.StatusBadGateway
	}
	a.writeJSON(w, status, map[string]interface{}{
		"error": err.Error(),
		"kind":  sysproxy.ErrorKind(err),
	})
}

func (a *API) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
