package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/meltforce/tinylifts/internal/logbook"
	"github.com/meltforce/tinylifts/internal/metrics"
	"github.com/meltforce/tinylifts/internal/storage"
	"github.com/meltforce/tinylifts/internal/timing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store   storage.Store
	lb      *logbook.Logbook
	clock   timing.Clock
	metrics *metrics.Manager
	log     *slog.Logger
	router  chi.Router
}

// New creates a new Server with all routes configured.
func New(store storage.Store, lb *logbook.Logbook, clock timing.Clock, m *metrics.Manager, log *slog.Logger) *Server {
	s := &Server{
		store:   store,
		lb:      lb,
		clock:   clock,
		metrics: m,
		log:     log,
		router:  chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(RequestMetrics(s.metrics))
	s.router.Use(CORS)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/workouts", s.handleListWorkouts)
		r.Get("/workouts/{id}", s.handleGetWorkout)

		r.Get("/exercises", s.handleListExercises)
		r.Get("/exercises/{id}", s.handleGetExercise)
		r.Put("/exercises/{id}", s.handleUpdateExercise)
		r.Get("/exercises/{id}/history", s.handleExerciseHistory)
		r.Get("/exercises/{id}/progression", s.handleProgression)

		r.Get("/sessions", s.handleListSessions)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Get("/sessions/{id}/volume", s.handleSessionVolume)
		r.Get("/calendar", s.handleCalendar)
		r.Get("/stats", s.handleStats)

		r.Post("/ingest/alpha", s.handleAlphaIngest)

		r.Route("/active", func(r chi.Router) {
			r.Get("/", s.handleActive)
			r.Post("/", s.handleStartSession)
			r.Post("/end", s.handleEndSession)
			r.Post("/sets", s.handleLogSet)
			r.Get("/inputs/{exerciseID}", s.handleGetInput)
			r.Put("/inputs/{exerciseID}", s.handleSetInput)
		})

		r.Route("/rest", func(r chi.Router) {
			r.Get("/", s.handleRestState)
			r.Post("/start", s.handleRestStart)
			r.Post("/pause", s.handleRestPause)
			r.Post("/resume", s.handleRestResume)
			r.Post("/reset", s.handleRestReset)
			r.Post("/adjust", s.handleRestAdjust)
		})

		r.Route("/metronome", func(r chi.Router) {
			r.Get("/", s.handleMetronomeState)
			r.Post("/start", s.handleMetronomeStart)
			r.Post("/stop", s.handleMetronomeStop)
			r.Post("/toggle", s.handleMetronomeToggle)
		})
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// SetMetrics exposes g on /metrics in the Prometheus text format.
func (s *Server) SetMetrics(g prometheus.Gatherer) {
	s.router.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}

// SetMCP mounts the MCP streamable HTTP handler on /mcp.
func (s *Server) SetMCP(h http.Handler) {
	s.router.Handle("/mcp", h)
	s.router.Handle("/mcp/*", h)
}
