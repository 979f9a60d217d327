package web

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-gesture/pkg/hub"
)

// handleHealth reports liveness
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": s.cfg.Version,
	})
}

// handleStatus returns the display text and capture counters
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.snapshot())
}

// handleWindows returns recent classified windows, newest first
func (s *Server) handleWindows(c *fiber.Ctx) error {
	s.windowsMu.RLock()
	out := make([]WindowEntry, len(s.windows))
	for i, w := range s.windows {
		out[len(s.windows)-1-i] = w
	}
	s.windowsMu.RUnlock()

	limit := c.QueryInt("limit", len(out))
	if limit >= 0 && limit < len(out) {
		out = out[:limit]
	}
	return c.JSON(fiber.Map{
		"windows": out,
		"count":   len(out),
	})
}

// handleStatusWS streams view updates; the current view is sent first
func (s *Server) handleStatusWS(c *websocket.Conn) {
	greeting, err := json.Marshal(s.snapshot())
	if err != nil {
		greeting = nil
	}
	client := hub.NewClient(s.statusHub, c, greeting)
	if client == nil {
		return
	}
	client.Run()
}
