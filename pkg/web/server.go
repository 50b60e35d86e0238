// Package web exposes the monitor's operational surface: a health
// check, a JSON status snapshot, and a websocket stream of cycle
// events. Machine-readable only; nothing here serves a frontend.
package web

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/binsort/binwatch/pkg/hub"
)

// Status is the snapshot served at /api/status.
type Status struct {
	StartedAt         time.Time `json:"started_at"`
	UptimeSec         int64     `json:"uptime_sec"`
	Cycles            uint64    `json:"cycles"`
	LastOutcome       string    `json:"last_outcome,omitempty"`
	LastLabel         string    `json:"last_label,omitempty"`
	LastChangedPixels int       `json:"last_changed_pixels"`
	LastCycleAt       time.Time `json:"last_cycle_at,omitempty"`
	SerialLines       uint64    `json:"serial_lines"`
	EventClients      int       `json:"event_clients"`
}

// Server is the operational HTTP server.
type Server struct {
	app    *fiber.App
	addr   string
	logger *slog.Logger

	startedAt time.Time

	// State
	status   Status
	statusMu sync.RWMutex

	// Hub for websocket broadcast (thread-safe!)
	eventHub *hub.Hub
}

// NewServer creates the operational server on addr.
func NewServer(addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		addr:      addr,
		logger:    logger.With("component", "web"),
		startedAt: time.Now(),
		eventHub:  hub.New("events", logger),
	}

	app := fiber.New(fiber.Config{
		AppName:               "binwatch",
		DisableStartupMessage: true,
	})

	app.Get("/healthz", s.handleHealth)

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/events", websocket.New(s.handleEventsWS))

	s.app = app
	return s
}

// Start starts the server and blocks until shutdown.
func (s *Server) Start() error {
	go s.eventHub.Run()
	s.logger.Info("status server listening", "addr", s.addr)
	return s.app.Listen(s.addr)
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("status server failed", "error", err)
		}
	}()
}

// UpdateStatus applies update to the status snapshot under lock.
func (s *Server) UpdateStatus(update func(*Status)) {
	s.statusMu.Lock()
	update(&s.status)
	s.statusMu.Unlock()
}

// PublishEvent broadcasts v as JSON to all event stream clients.
func (s *Server) PublishEvent(v interface{}) {
	if err := s.eventHub.BroadcastJSON(v); err != nil {
		s.logger.Error("encode event failed", "error", err)
	}
}

// handleHealth answers liveness probes.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleStatus returns the current snapshot.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	s.statusMu.RLock()
	st := s.status
	s.statusMu.RUnlock()

	st.StartedAt = s.startedAt
	st.UptimeSec = int64(time.Since(s.startedAt).Seconds())
	st.EventClients = s.eventHub.ClientCount()
	return c.JSON(st)
}

// handleEventsWS attaches one observer to the event hub.
func (s *Server) handleEventsWS(conn *websocket.Conn) {
	client := hub.NewClient(s.eventHub, conn)
	client.Run()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
