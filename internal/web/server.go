// Package web provides the HTTP status endpoint for the heating controller.
package web

import (
	"context"
	"log"
	"net"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/Xevi8X/central-heating-controller/internal/metrics"
	"github.com/Xevi8X/central-heating-controller/internal/status"
)

// Server serves the status history over HTTP.
type Server struct {
	httpServer *http.Server
	history    *status.History
	tracker    *status.Tracker
}

// New creates a Server reading from history and, when non-nil, tracker.
// A non-nil m is exposed on /metrics.
func New(addr string, history *status.History, tracker *status.Tracker, m *metrics.Metrics) *Server {
	s := &Server{history: history, tracker: tracker}

	r := mux.NewRouter()
	r.HandleFunc("/", s.handleReport).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleReport).Methods(http.MethodGet)
	r.HandleFunc("/index.json", s.handleJSON).Methods(http.MethodGet)
	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	if m != nil {
		r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	}

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: handlers.LoggingHandler(log.Writer(), r),
	}
	return s
}

// Handler returns the server's root handler. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// handleReport never waits on a control cycle: History takes its own short
// lock and copies the entries out.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report := s.history.Report()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(report))
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	if s.tracker == nil {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok\n"))
}
