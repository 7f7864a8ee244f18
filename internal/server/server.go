// Package server exposes one device meter over HTTP: raw log lines are
// posted in, events and estimates are read back.
package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"github.com/ja7ad/energylog/pkg/meter"
	"github.com/ja7ad/energylog/pkg/report"
)

// maxBodyBytes bounds a single POST /logs request.
const maxBodyBytes = 8 << 20

// Server serialises all access to its meter.
type Server struct {
	mu    sync.Mutex
	meter *meter.Meter
}

func New(m *meter.Meter) *Server {
	return &Server{meter: m}
}

// Router returns the API routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.HandleFunc("/logs", s.postLogs).Methods(http.MethodPost)
	r.HandleFunc("/logs", s.deleteLogs).Methods(http.MethodDelete)
	r.HandleFunc("/events", s.getEvents).Methods(http.MethodGet)
	r.HandleFunc("/estimate", s.getEstimate).Methods(http.MethodGet)

	return r
}

type ingestResponse struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
	Events   int `json:"events"`
}

type eventsResponse struct {
	Events []string `json:"events"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) postLogs(w http.ResponseWriter, r *http.Request) {
	sc := bufio.NewScanner(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	sc.Buffer(make([]byte, 0, 64*1024), maxBodyBytes)
	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	s.mu.Lock()
	accepted := s.meter.BatchAddLogs(lines)
	total := s.meter.Len()
	s.mu.Unlock()

	slog.Debug("logs ingested", "session", s.meter.ID(), "accepted", accepted, "rejected", len(lines)-accepted)
	writeJSON(w, http.StatusOK, ingestResponse{Accepted: accepted, Rejected: len(lines) - accepted, Events: total})
}

func (s *Server) deleteLogs(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	s.meter.Reset()
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	keys := s.meter.Keys()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, eventsResponse{Events: keys})
}

// getEstimate works on a copy of the consumer so repeated calls agree.
func (s *Server) getEstimate(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	rep := report.New(s.meter, s.meter.Preview())
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, rep)
}

// writeJSON encodes v before committing the status, so an encoding failure
// still yields a 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		slog.Error("encode response", "err", err)
		http.Error(w, "encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Warn("write response", "err", err)
	}
}
