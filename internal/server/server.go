// Package server exposes aircraft lookups over HTTP.
//
// Endpoints:
//
//	GET  /aircraft/{icao}  resolve one identifier
//	POST /aircraft         resolve {"icao": ["...", ...]}
//	GET  /stats            shard scheduler state
//	GET  /health           database health (503 when unhealthy)
//	GET  /metrics          Prometheus metrics (when configured)
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-logr/logr"

	"github.com/dreamware/acdb/internal/health"
	"github.com/dreamware/acdb/internal/resolver"
	"github.com/dreamware/acdb/internal/scheduler"
	"github.com/dreamware/acdb/internal/shard"
	"github.com/dreamware/acdb/internal/transport"
)

// maxBatch limits the identifiers accepted by one batch request.
const maxBatch = 1000

// Lookup resolves identifiers.
type Lookup interface {
	Resolve(ctx context.Context, key string) (resolver.Result, error)
	ResolveAll(ctx context.Context, keys []string) ([]resolver.Result, []error)
}

// StatsSource reports scheduler state.
type StatsSource interface {
	Stats() scheduler.Stats
}

// HealthSource reports database health.
type HealthSource interface {
	Report() health.Report
}

// Server holds the HTTP handlers.
type Server struct {
	lookup  Lookup
	stats   StatsSource
	health  HealthSource
	metrics http.Handler
	log     logr.Logger
}

// New creates a Server. metrics may be nil to disable /metrics.
func New(lookup Lookup, stats StatsSource, metrics http.Handler, log logr.Logger) *Server {
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	return &Server{
		lookup:  lookup,
		stats:   stats,
		metrics: metrics,
		log:     log.WithName("server"),
	}
}

// SetHealth attaches a health source to /health. Without one the endpoint
// only reports liveness.
func (s *Server) SetHealth(h HealthSource) {
	s.health = h
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /aircraft/{icao}", s.handleAircraft)
	mux.HandleFunc("POST /aircraft", s.handleBatch)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /health", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return mux
}

// Response is the JSON body describing one lookup.
type Response struct {
	ICAO    string        `json:"icao"`
	Outcome string        `json:"outcome"`
	Record  *shard.Record `json:"record,omitempty"`
	Error   *ErrorDetail  `json:"error,omitempty"`
}

// ErrorDetail carries the diagnostic of a failed shard fetch.
type ErrorDetail struct {
	URL        string `json:"url,omitempty"`
	Status     string `json:"status"`
	StatusCode int    `json:"status_code,omitempty"`
	Message    string `json:"message"`
}

// NewResponse converts a lookup result into its JSON body and HTTP status.
func NewResponse(res resolver.Result, err error) (Response, int) {
	resp := Response{ICAO: res.Key, Outcome: res.Outcome.String(), Record: res.Record}
	if err != nil {
		resp.Outcome = "failed"
		resp.Record = nil
		resp.Error = &ErrorDetail{Status: string(transport.StatusError), Message: err.Error()}

		var fe *transport.FetchError
		if errors.As(err, &fe) {
			resp.Error.URL = fe.URL
			resp.Error.Status = string(fe.Status)
			resp.Error.StatusCode = fe.StatusCode
		}
		if fe != nil && fe.Status == transport.StatusTimeout {
			return resp, http.StatusGatewayTimeout
		}
		return resp, http.StatusBadGateway
	}

	switch res.Outcome {
	case resolver.Found:
		return resp, http.StatusOK
	case resolver.Strange:
		return resp, http.StatusConflict
	default:
		return resp, http.StatusNotFound
	}
}

func (s *Server) handleAircraft(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	icao := r.PathValue("icao")

	res, err := s.lookup.Resolve(r.Context(), icao)
	resp, code := NewResponse(res, err)

	s.log.V(1).Info("lookup", "icao", icao, "outcome", resp.Outcome, "duration", time.Since(start))
	writeJSON(w, code, resp)
}

type batchRequest struct {
	ICAO []string `json:"icao"`
}

type batchResponse struct {
	Results []Response `json:"results"`
	Count   int        `json:"count"`
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if len(req.ICAO) > maxBatch {
		http.Error(w, "too many identifiers", http.StatusRequestEntityTooLarge)
		return
	}

	results, errs := s.lookup.ResolveAll(r.Context(), req.ICAO)
	out := batchResponse{Results: make([]Response, len(results)), Count: len(results)}
	for i := range results {
		out.Results[i], _ = NewResponse(results[i], errs[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.stats.Stats())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if s.health == nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	rep := s.health.Report()
	code := http.StatusOK
	if rep.Status == health.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, rep)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
