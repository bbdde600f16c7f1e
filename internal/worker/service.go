// Package worker provides the HTTP service for moodlens.
package worker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/moodlens/internal/companion"
	"github.com/thebtf/moodlens/internal/config"
	"github.com/thebtf/moodlens/internal/journal"
	"github.com/thebtf/moodlens/internal/worker/sse"
	"github.com/thebtf/moodlens/pkg/models"
)

// ShutdownTimeout bounds graceful shutdown of the HTTP server.
const ShutdownTimeout = 10 * time.Second

// Service serves the journal, insights and companion chat over HTTP.
type Service struct {
	version        string
	config         *config.Config
	journal        *journal.Store
	chatManager    *companion.Manager
	sseBroadcaster *sse.Broadcaster
	metrics        *Metrics
	router         *chi.Mux
	server         *http.Server

	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
	ready     atomic.Bool
}

// NewService wires the service around an already loaded journal store.
func NewService(version string, cfg *config.Config, store *journal.Store, responder *companion.Responder) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	broadcaster := sse.NewBroadcaster(cfg.AllowedOrigins...)
	delayMin, delayMax := cfg.ThinkingDelay()

	manager := companion.NewManager(companion.SessionOptions{
		Journal:   store,
		Clock:     store.Clock(),
		Responder: responder,
		Notifier: companion.NotifierFunc(func(e companion.Event) {
			broadcaster.Publish(e.Type, e)
		}),
		Metrics:           companion.NewMetrics(),
		DelayMin:          delayMin,
		DelayMax:          delayMax,
		ProactiveDisabled: !cfg.Proactive,
	})

	svc := &Service{
		version:        version,
		config:         cfg,
		journal:        store,
		chatManager:    manager,
		sseBroadcaster: broadcaster,
		metrics:        NewMetrics(),
		router:         chi.NewRouter(),
		ctx:            ctx,
		cancel:         cancel,
		startTime:      time.Now(),
	}
	svc.server = &http.Server{
		Handler:           svc.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	svc.trackSessions()
	svc.setupRoutes()
	return svc
}

// trackSessions announces conversations opening and closing on the event stream.
func (s *Service) trackSessions() {
	s.chatManager.SetOnSessionCreated(func(id string) {
		s.sseBroadcaster.Publish(sse.EventChatSession, map[string]any{"session_id": id, "open": true})
	})
	s.chatManager.SetOnSessionDeleted(func(id string) {
		s.sseBroadcaster.Publish(sse.EventChatSession, map[string]any{"session_id": id, "open": false})
	})
}

// Handler exposes the router, mainly for tests and embedding.
func (s *Service) Handler() http.Handler { return s.router }

// Start listens on the configured address and serves until Shutdown.
// Start after Shutdown returns nil without serving.
func (s *Service) Start() error {
	if s.ctx.Err() != nil {
		return nil
	}
	addr := net.JoinHostPort(s.config.WorkerHost, strconv.Itoa(s.config.WorkerPort))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	s.ready.Store(true)

	log.Info().
		Str("addr", listener.Addr().String()).
		Str("version", s.version).
		Str("source", string(s.journal.Source())).
		Msg("Worker listening")

	err = s.server.Serve(listener)
	s.ready.Store(false)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests, closes SSE streams and stops the chat sweep.
func (s *Service) Shutdown(ctx context.Context) error {
	s.ready.Store(false)
	s.cancel()
	s.chatManager.Shutdown()
	return s.server.Shutdown(ctx)
}

func (s *Service) setupRoutes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/", serveIndex)
	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireReady)

		r.Get("/journal/{date}", s.handleGetDay)

		r.Route("/schedules", func(r chi.Router) {
			r.Get("/", s.handleListSchedules)
			r.Post("/", s.handleCreateSchedule)
			r.Patch("/{id}", s.handleUpdateSchedule)
			r.Post("/{id}/toggle", s.handleToggleSchedule)
			r.Delete("/{id}", s.handleDeleteSchedule)
		})

		r.Route("/moods", func(r chi.Router) {
			r.Get("/", s.handleListMoods)
			r.Post("/", s.handleCreateMood)
			r.Patch("/{id}", s.handleUpdateMood)
			r.Delete("/{id}", s.handleDeleteMood)
		})

		r.Get("/notes/{date}", s.handleGetNote)
		r.Put("/notes/{date}", s.handlePutNote)

		r.Route("/insights", func(r chi.Router) {
			r.Get("/calendar", s.handleCalendar)
			r.Get("/trend", s.handleTrend)
			r.Get("/scenes", s.handleScenes)
			r.Get("/overview", s.handleOverview)
		})

		r.Route("/chat/{session}", func(r chi.Router) {
			r.Get("/messages", s.handleGetMessages)
			r.Post("/messages", s.handleSendMessage)
			r.Post("/init", s.handleInitChat)
			r.Post("/proactive", s.handleToggleProactive)
			r.Post("/nudge", s.handleNudge)
			r.Delete("/", s.handleDeleteChat)
		})

		r.Get("/rules", s.handleRules)
		r.Get("/events", s.sseBroadcaster.HandleSSE)
	})
}

func (s *Service) requireReady(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.ready.Load() {
			writeError(w, http.StatusServiceUnavailable, "service is starting")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs each request and records it in the HTTP metrics.
func (s *Service) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		elapsed := time.Since(start)
		s.metrics.recordRequest(r.Context(), r.Method, route, ww.Status(), elapsed)

		event := log.Debug()
		if ww.Status() >= http.StatusInternalServerError {
			event = log.Warn()
		}
		event.
			Str("method", r.Method).
			Str("route", route).
			Int("status", ww.Status()).
			Dur("elapsed", elapsed).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := http.StatusOK
	state := "ok"
	if !s.ready.Load() {
		status = http.StatusServiceUnavailable
		state = "starting"
	}
	writeJSON(w, status, map[string]any{
		"status":        state,
		"version":       s.version,
		"uptime":        time.Since(s.startTime).Round(time.Second).String(),
		"source":        s.journal.Source(),
		"chat_sessions": s.chatManager.GetActiveSessionCount(),
		"sse_clients":   s.sseBroadcaster.ClientCount(),
		"journal":       s.journal.Metrics().Snapshot(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps journal errors onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, journal.ErrRemoteWrite):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, journal.ErrInvalidInput),
		errors.Is(err, models.ErrInvalidDate),
		errors.Is(err, models.ErrInvalidTime),
		errors.Is(err, models.ErrEmptyContent),
		errors.Is(err, models.ErrUnknownMood),
		errors.Is(err, models.ErrIntensityRange):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, journal.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.Error().Err(err).Msg("Unhandled store error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: decode body: %w", journal.ErrInvalidInput, err)
	}
	return nil
}
