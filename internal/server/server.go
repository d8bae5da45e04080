// Package server exposes the telemetry core over HTTP: a consistent snapshot
// of the recent history, a websocket live push, service status and the
// static frontend.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/curbz/skyscope/internal/history"
	"github.com/curbz/skyscope/internal/ingest"
	"github.com/curbz/skyscope/internal/model"
	"github.com/curbz/skyscope/internal/watch"
	"github.com/curbz/skyscope/pkg/geometry"
)

// Config is the server section of the service configuration.
type Config struct {
	Addr      string `yaml:"addr"`
	AssetsDir string `yaml:"assets_dir"`
}

// StatusSource reports ingestion health for /api/status.
type StatusSource interface {
	Status() ingest.Status
}

// Server holds read-side handles to the telemetry core. It never mutates the
// history buffer and never publishes.
type Server struct {
	cfg      Config
	hist     *history.Buffer
	bc       *watch.Broadcaster
	stat     StatusSource
	log      *logrus.Entry
	upgrader websocket.Upgrader
}

// New wires the HTTP layer to an existing history buffer and broadcaster.
// stat may be nil, in which case /api/status reports 404.
func New(cfg Config, hist *history.Buffer, bc *watch.Broadcaster, stat StatusSource) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":12345"
	}
	return &Server{
		cfg:  cfg,
		hist: hist,
		bc:   bc,
		stat: stat,
		log:  logrus.WithField("component", "server"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Addr returns the listen address, with the default applied.
func (s *Server) Addr() string { return s.cfg.Addr }

// Routes builds the handler mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/points_history", s.handlePointsHistory)
	mux.HandleFunc("/ws", s.handleWS)
	if s.cfg.AssetsDir != "" {
		mux.Handle("/", s.withLogging(http.FileServer(http.Dir(s.cfg.AssetsDir))))
	}
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.stat == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.stat.Status()); err != nil {
		s.log.WithError(err).Warn("encode status")
	}
}

// handlePointsHistory serializes a snapshot of the history buffer as an array
// of ["ident",[lat,lon]] tuples. An optional near=<lat>,<lon> query parameter
// (with radius=<nm>, default 100) restricts it to points within a great
// circle distance of the given position. Filtering happens on the snapshot
// copy, never under the buffer lock.
func (s *Server) handlePointsHistory(w http.ResponseWriter, r *http.Request) {
	points := s.hist.Snapshot()

	if near := r.URL.Query().Get("near"); near != "" {
		var lat, lon float64
		if _, err := fmt.Sscanf(near, "%f,%f", &lat, &lon); err != nil {
			http.Error(w, "near must be <lat>,<lon>", http.StatusBadRequest)
			return
		}
		radius := 100.0
		if rs := r.URL.Query().Get("radius"); rs != "" {
			v, err := strconv.ParseFloat(rs, 64)
			if err != nil || v <= 0 {
				http.Error(w, "radius must be a positive number of nautical miles", http.StatusBadRequest)
				return
			}
			radius = v
		}
		kept := make([]model.TrackPoint, 0, len(points))
		for _, p := range points {
			if geometry.DistNM(float64(p.Lat), float64(p.Lon), lat, lon) <= radius {
				kept = append(kept, p)
			}
		}
		points = kept
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(points); err != nil {
		s.log.WithError(err).Warn("encode points history")
	}
}

func (s *Server) withLogging(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.log.Debugf("%s %s", r.Method, r.URL.Path)
		h.ServeHTTP(w, r)
	})
}
