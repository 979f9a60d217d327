// Package web provides the live gesture dashboard. It is the display
// surface for capture results: one region for prediction and status text,
// one for the elapsed collection time.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/teslashibe/go-gesture/pkg/capture"
	"github.com/teslashibe/go-gesture/pkg/hub"
)

// maxWindows is how many recent results /api/windows keeps.
const maxWindows = 50

// Config configures the dashboard server.
type Config struct {
	Port         int
	WindowLength int    // shown in the elapsed text
	StaticDir    string // optional; served at /
	Debug        bool   // request logging
	Version      string
}

// View is what the two display regions currently show.
type View struct {
	Prediction     string    `json:"prediction"`
	Elapsed        string    `json:"elapsed"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// WindowEntry is one classified window.
type WindowEntry struct {
	ID             string    `json:"id"`
	Seq            uint64    `json:"seq"`
	Samples        int       `json:"samples"`
	StartedAt      time.Time `json:"started_at"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
	Outcome        string    `json:"outcome"`
	Label          string    `json:"label,omitempty"`
	Error          string    `json:"error,omitempty"`
	Text           string    `json:"text"`
	LatencyMs      int64     `json:"latency_ms"`
}

// StatusUpdate is pushed to /ws/status subscribers.
type StatusUpdate struct {
	View    View            `json:"view"`
	Capture *capture.Status `json:"capture,omitempty"`
}

// Server is the web dashboard server
type Server struct {
	app    *fiber.App
	cfg    Config
	logger *slog.Logger

	// State
	view   View
	viewMu sync.RWMutex

	// Recent results, newest last
	windows   []WindowEntry
	windowsMu sync.RWMutex

	// Hub for websocket broadcast
	statusHub *hub.Hub

	status func() capture.Status
}

// NewServer creates a new web dashboard server
func NewServer(cfg Config, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		cfg:       cfg,
		logger:    log.With("component", "web"),
		windows:   make([]WindowEntry, 0, maxWindows),
		statusHub: hub.New("status", log),
	}

	app := fiber.New(fiber.Config{
		AppName:               "go-gesture",
		DisableStartupMessage: true,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New())
	if cfg.Debug {
		app.Use(logger.New())
	}

	app.Get("/health", s.handleHealth)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/windows", s.handleWindows)

	// WebSocket upgrade middleware
	app.Use("/ws/status", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	s.app = app
	return s
}

// App exposes the fiber app so other components can mount routes on the
// same listener.
func (s *Server) App() *fiber.App {
	return s.app
}

// SetStatusSource sets where capture counters come from.
func (s *Server) SetStatusSource(fn func() capture.Status) {
	s.status = fn
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.statusHub.Run(hubCtx)

	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.logger.Info("dashboard listening",
		"addr", addr,
		"status", fmt.Sprintf("http://localhost:%d/api/status", s.cfg.Port),
		"devices", fmt.Sprintf("ws://localhost:%d/ws/device/:id", s.cfg.Port),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- s.app.Listen(addr) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// ShowPrediction implements capture.ResultSink.
func (s *Server) ShowPrediction(text string) {
	s.updateView(func(v *View) {
		v.Prediction = text
	})
}

// ShowElapsed implements capture.ResultSink.
func (s *Server) ShowElapsed(seconds float64) {
	s.updateView(func(v *View) {
		v.ElapsedSeconds = seconds
		v.Elapsed = capture.ElapsedText(s.cfg.WindowLength, seconds)
	})
}

// RecordResult appends a classified window to the recent list.
func (s *Server) RecordResult(r capture.Result) {
	entry := WindowEntry{
		ID:             r.Window.ID,
		Seq:            r.Window.Seq,
		Samples:        r.Window.Samples,
		StartedAt:      r.Window.StartedAt,
		ElapsedSeconds: r.Window.ElapsedSeconds,
		Outcome:        r.Outcome,
		Label:          r.Label,
		Text:           r.Text,
		LatencyMs:      r.Latency.Milliseconds(),
	}
	if r.Err != nil {
		entry.Error = r.Err.Error()
	}

	s.windowsMu.Lock()
	s.windows = append(s.windows, entry)
	if len(s.windows) > maxWindows {
		s.windows = s.windows[1:]
	}
	s.windowsMu.Unlock()
}

// View returns what the display currently shows.
func (s *Server) View() View {
	s.viewMu.RLock()
	defer s.viewMu.RUnlock()
	return s.view
}

// updateView changes the view and broadcasts it to clients.
func (s *Server) updateView(update func(*View)) {
	s.viewMu.Lock()
	update(&s.view)
	s.view.UpdatedAt = time.Now()
	s.viewMu.Unlock()

	if err := s.statusHub.BroadcastJSON(s.snapshot()); err != nil {
		s.logger.Warn("status broadcast failed", "error", err)
	}
}

// snapshot combines the view with capture counters.
func (s *Server) snapshot() StatusUpdate {
	u := StatusUpdate{View: s.View()}
	if s.status != nil {
		st := s.status()
		u.Capture = &st
	}
	return u
}

var _ capture.ResultSink = (*Server)(nil)
