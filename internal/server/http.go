package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"orderbook-aggregator/internal/config"
	"orderbook-aggregator/internal/depth"
	"orderbook-aggregator/internal/state"
)

type HTTPServer struct {
	cfg     config.Config
	st      *state.State
	hub     *hub
	log     *slog.Logger
	mux     *http.ServeMux
	metrics http.Handler

	// latest is written only by the aggregator task via Publish.
	latest atomic.Pointer[depth.View]
}

// NewHTTPServer wires routes and starts the WS hub. metricsHandler may be nil.
func NewHTTPServer(cfg config.Config, st *state.State, metricsHandler http.Handler, logger *slog.Logger) *HTTPServer {
	s := &HTTPServer{
		cfg:     cfg,
		st:      st,
		log:     logger,
		mux:     http.NewServeMux(),
		metrics: metricsHandler,
	}
	empty := depth.EmptyView()
	s.latest.Store(&empty)
	s.hub = newHub(logger, s.bookMessage)
	s.routes()
	go s.hub.run()
	return s
}

func (s *HTTPServer) Router() http.Handler { return s.mux }

// Publish stores v as the current book and pushes it to every WS client.
func (s *HTTPServer) Publish(v depth.View) {
	s.latest.Store(&v)
	s.hub.send(marshalWS("book", v))
}

func (s *HTTPServer) Latest() depth.View { return *s.latest.Load() }

// --------- WS broadcasts ----------

func (s *HTTPServer) BroadcastStatus() {
	s.hub.send(marshalWS("status", map[string]any{
		"venues": s.st.Statuses(s.enabledVenues(), time.Now()),
	}))
}

func (s *HTTPServer) bookMessage() []byte {
	return marshalWS("book", s.Latest())
}

// --------- Routes ----------

func (s *HTTPServer) routes() {
	s.mux.HandleFunc("/ws", s.hub.serveWS)

	s.mux.HandleFunc("/api/book", s.apiBook)
	s.mux.HandleFunc("/api/health", s.apiHealth)
	s.mux.HandleFunc("/api/config", s.apiConfig)
	if s.metrics != nil {
		s.mux.Handle("/metrics", s.metrics)
	}
}

func (s *HTTPServer) apiBook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET required", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.Latest())
}

func (s *HTTPServer) apiHealth(w http.ResponseWriter, r *http.Request) {
	statuses := s.st.Statuses(s.enabledVenues(), time.Now())
	ok := false
	for _, vs := range statuses {
		if vs.Connected && !vs.Stale {
			ok = true
		}
	}
	code := http.StatusOK
	if !ok {
		code = http.StatusServiceUnavailable
	}
	writeJSONStatus(w, code, map[string]any{
		"ok":     ok,
		"venues": statuses,
	})
}

func (s *HTTPServer) apiConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"levels":            s.cfg.Levels,
		"mergePolicy":       s.cfg.MergePolicy,
		"pair":              s.cfg.Pair,
		"venues":            s.enabledVenues(),
		"staleAfterSeconds": s.cfg.StaleAfterSeconds,
	})
}

func (s *HTTPServer) enabledVenues() []depth.Venue {
	var out []depth.Venue
	for _, v := range depth.Venues() {
		if s.cfg.Venue(v).Enabled {
			out = append(out, v)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
