package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"sisedash/internal/dashboard"
	"sisedash/internal/snapshot"
)

// DashboardServer serves the dashboard HTTP API.
type DashboardServer struct {
	svc *dashboard.Service
	log *slog.Logger
}

// NewDashboardServer creates a new dashboard HTTP server.
func NewDashboardServer(svc *dashboard.Service, log *slog.Logger) *DashboardServer {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &DashboardServer{svc: svc, log: log}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *DashboardServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/snapshots", s.handleSnapshots)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/tickers/{code}", s.handleTicker)
}

// Handler returns an http.Handler with CORS and request logging.
func (s *DashboardServer) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(s.logRequests(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *DashboardServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed", time.Since(start).Round(time.Millisecond),
		)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// writeServiceError maps service errors to status codes.
func (s *DashboardServer) writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, snapshot.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.log.Error("request failed", "error", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}

func (s *DashboardServer) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	snaps, err := s.svc.Snapshots()
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, SnapshotsResponse{Snapshots: convertSnapshots(snaps)})
}

func (s *DashboardServer) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := dashboard.Request{
		SnapshotID: strings.TrimSpace(q.Get("snapshot")),
		Query:      q.Get("q"),
	}
	if req.SnapshotID != "" && !snapshot.ValidID(req.SnapshotID) {
		writeError(w, http.StatusBadRequest, "snapshot must be YYYYMMDD_HHMMSS")
		return
	}
	if v := q.Get("enrich"); v != "" {
		enrich, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "enrich must be a boolean")
			return
		}
		req.Enrich = enrich
	}

	page, err := s.svc.Build(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, convertPage(page))
}

func (s *DashboardServer) handleTicker(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.PathValue("code"))
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if code == "" {
		writeError(w, http.StatusBadRequest, "code required")
		return
	}
	if name == "" {
		writeError(w, http.StatusBadRequest, "name required")
		return
	}
	code = snapshot.PadCode(code)

	d := s.svc.Detail(r.Context(), code, name)
	resp := TickerResponse{Code: code, Name: name, DetailJSON: convertDetail(d)}
	if d.Err != nil {
		s.log.Warn("ticker detail failed", "code", code, "error", d.Err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(resp)
		return
	}
	writeJSON(w, resp)
}
