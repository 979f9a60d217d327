// Package devicehub accepts WebSocket connections from wearable bridges
// and turns their messages into sensor events.
package devicehub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/teslashibe/go-gesture/internal/observe"
	"github.com/teslashibe/go-gesture/pkg/protocol"
	"github.com/teslashibe/go-gesture/pkg/sensor"
)

// ErrNotConnected is returned when sending to an unknown device.
var ErrNotConnected = errors.New("devicehub: device not connected")

// DeviceConnection represents a connected wearable bridge
type DeviceConnection struct {
	ID        string
	Conn      *websocket.Conn
	Connected time.Time
	LastSeen  time.Time
	Readings  uint64

	mu sync.Mutex
}

// Send sends a message to the device
func (d *DeviceConnection) Send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Conn.WriteMessage(websocket.TextMessage, data)
}

func (d *DeviceConnection) touch(readings int) {
	d.mu.Lock()
	d.LastSeen = time.Now()
	d.Readings += uint64(readings)
	d.mu.Unlock()
}

// Hub manages WebSocket connections from devices
type Hub struct {
	mu      sync.RWMutex
	devices map[string]*DeviceConnection
	logger  *slog.Logger
	metrics *observe.Metrics

	// Callbacks
	onEvent      func(deviceID string, ev sensor.Event)
	onConnect    func(deviceID string)
	onDisconnect func(deviceID string)

	// Stats
	messagesReceived atomic.Uint64
	messagesSent     atomic.Uint64
	readingsReceived atomic.Uint64
	messagesRejected atomic.Uint64
}

// NewHub creates a new device hub. Nil arguments use the defaults.
func NewHub(logger *slog.Logger, metrics *observe.Metrics) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Hub{
		devices: make(map[string]*DeviceConnection),
		logger:  logger.With("component", "devicehub"),
		metrics: metrics,
	}
}

// OnEvent sets the callback for incoming sensor readings. It is called on
// the connection's read goroutine and must not block.
func (h *Hub) OnEvent(callback func(deviceID string, ev sensor.Event)) {
	h.mu.Lock()
	h.onEvent = callback
	h.mu.Unlock()
}

// OnConnect sets the callback for new device connections
func (h *Hub) OnConnect(callback func(deviceID string)) {
	h.mu.Lock()
	h.onConnect = callback
	h.mu.Unlock()
}

// OnDisconnect sets the callback for closed device connections
func (h *Hub) OnDisconnect(callback func(deviceID string)) {
	h.mu.Lock()
	h.onDisconnect = callback
	h.mu.Unlock()
}

// RegisterRoutes registers WebSocket routes on a Fiber app
func (h *Hub) RegisterRoutes(app *fiber.App) {
	// WebSocket upgrade middleware
	app.Use("/ws/device", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// Device connection endpoint
	app.Get("/ws/device", websocket.New(h.handleDevice))
	app.Get("/ws/device/:id", websocket.New(h.handleDevice))
}

// handleDevice handles a device WebSocket connection
func (h *Hub) handleDevice(c *websocket.Conn) {
	// Get device ID from path or generate one
	deviceID := c.Params("id")
	if deviceID == "" {
		deviceID = generateDeviceID()
	}

	device := &DeviceConnection{
		ID:        deviceID,
		Conn:      c,
		Connected: time.Now(),
		LastSeen:  time.Now(),
	}

	// Register device. A reconnect under the same ID replaces the old entry.
	h.mu.Lock()
	h.devices[deviceID] = device
	deviceCount := len(h.devices)
	connectCb := h.onConnect
	h.mu.Unlock()

	h.metrics.ConnectedDevices.Add(context.Background(), 1)
	h.logger.Info("device connected", "device", deviceID, "total", deviceCount)
	if connectCb != nil {
		connectCb(deviceID)
	}

	defer func() {
		h.mu.Lock()
		if h.devices[deviceID] == device {
			delete(h.devices, deviceID)
		}
		deviceCount := len(h.devices)
		disconnectCb := h.onDisconnect
		h.mu.Unlock()

		h.metrics.ConnectedDevices.Add(context.Background(), -1)
		h.logger.Info("device disconnected", "device", deviceID, "total", deviceCount)
		if disconnectCb != nil {
			disconnectCb(deviceID)
		}
	}()

	// Read loop
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			h.logger.Debug("device read ended", "device", deviceID, "error", err)
			return
		}

		h.messagesReceived.Add(1)
		n := h.handleMessage(device, data)
		device.touch(n)
	}
}

// handleMessage processes one message and returns how many readings it
// delivered.
func (h *Hub) handleMessage(device *DeviceConnection, data []byte) int {
	ctx := context.Background()

	msg, err := protocol.ParseMessage(data)
	if err != nil {
		h.reject(device, "parse", err)
		return 0
	}
	h.metrics.RecordDeviceMessage(ctx, string(msg.Type))

	switch {
	case msg.Type == protocol.TypePing:
		ping, err := msg.GetPingData()
		if err != nil {
			ping = &protocol.PingData{}
		}
		pingTS := ping.Timestamp
		if pingTS == 0 {
			pingTS = msg.Timestamp
		}
		if err := h.SendPong(device.ID, ping.ID, pingTS); err != nil {
			h.logger.Warn("pong failed", "device", device.ID, "error", err)
		}
		return 0

	case msg.Type == protocol.TypePong:
		return 0

	case msg.Type.IsSensor():
		events, err := msg.Events()
		if err != nil {
			h.reject(device, "decode", err)
			return 0
		}

		h.mu.RLock()
		eventCb := h.onEvent
		h.mu.RUnlock()

		delivered := 0
		for _, ev := range events {
			if len(ev.Values) != ev.Channel.Arity() {
				h.reject(device, "arity", fmt.Errorf("%w: %s wants %d components, got %d",
					sensor.ErrArity, ev.Channel, ev.Channel.Arity(), len(ev.Values)))
				continue
			}
			delivered++
			if eventCb != nil {
				eventCb(device.ID, ev)
			}
		}
		h.readingsReceived.Add(uint64(delivered))
		return delivered
	}

	h.reject(device, "unknown_type", fmt.Errorf("unsupported message type %q", msg.Type))
	return 0
}

// reject counts a bad message and tells the device why.
func (h *Hub) reject(device *DeviceConnection, reason string, err error) {
	h.messagesRejected.Add(1)
	h.metrics.RecordDropped(context.Background(), reason)
	h.logger.Warn("rejected device message", "device", device.ID, "reason", reason, "error", err)

	msg, merr := protocol.NewErrorMessage(err)
	if merr != nil {
		return
	}
	h.messagesSent.Add(1)
	if serr := device.Send(msg); serr != nil {
		h.logger.Debug("error reply failed", "device", device.ID, "error", serr)
	}
}

// SendStatus sends the capture status to a device
func (h *Hub) SendStatus(deviceID string, status protocol.StatusData) error {
	msg, err := protocol.NewStatusMessage(status)
	if err != nil {
		return err
	}
	return h.sendToDevice(deviceID, msg)
}

// SendPong sends a pong response to a device
func (h *Hub) SendPong(deviceID, pingID string, pingTS int64) error {
	msg, err := protocol.NewPongMessage(pingID, pingTS, time.Now().UnixMilli())
	if err != nil {
		return err
	}
	return h.sendToDevice(deviceID, msg)
}

// sendToDevice sends a message to a specific device
func (h *Hub) sendToDevice(deviceID string, msg *protocol.Message) error {
	h.mu.RLock()
	device, ok := h.devices[deviceID]
	h.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotConnected, deviceID)
	}

	h.messagesSent.Add(1)
	return device.Send(msg)
}

// Broadcast sends a message to all connected devices
func (h *Hub) Broadcast(msg *protocol.Message) {
	for _, device := range h.GetDevices() {
		h.messagesSent.Add(1)
		if err := device.Send(msg); err != nil {
			h.logger.Debug("broadcast failed", "device", device.ID, "error", err)
		}
	}
}

// BroadcastStatus sends the capture status to every device
func (h *Hub) BroadcastStatus(status protocol.StatusData) error {
	msg, err := protocol.NewStatusMessage(status)
	if err != nil {
		return err
	}
	h.Broadcast(msg)
	return nil
}

// GetDevice returns a device connection by ID
func (h *Hub) GetDevice(deviceID string) *DeviceConnection {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.devices[deviceID]
}

// GetDevices returns all connected devices
func (h *Hub) GetDevices() []*DeviceConnection {
	h.mu.RLock()
	defer h.mu.RUnlock()

	devices := make([]*DeviceConnection, 0, len(h.devices))
	for _, d := range h.devices {
		devices = append(devices, d)
	}
	return devices
}

// DeviceCount returns the number of connected devices
func (h *Hub) DeviceCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.devices)
}

// Stats contains hub statistics
type Stats struct {
	DeviceCount      int    `json:"device_count"`
	MessagesReceived uint64 `json:"messages_received"`
	MessagesSent     uint64 `json:"messages_sent"`
	ReadingsReceived uint64 `json:"readings_received"`
	MessagesRejected uint64 `json:"messages_rejected"`
}

// GetStats returns hub statistics
func (h *Hub) GetStats() Stats {
	return Stats{
		DeviceCount:      h.DeviceCount(),
		MessagesReceived: h.messagesReceived.Load(),
		MessagesSent:     h.messagesSent.Load(),
		ReadingsReceived: h.readingsReceived.Load(),
		MessagesRejected: h.messagesRejected.Load(),
	}
}

// DeviceInfo contains info about a connected device
type DeviceInfo struct {
	ID        string    `json:"id"`
	Connected time.Time `json:"connected"`
	LastSeen  time.Time `json:"last_seen"`
	Readings  uint64    `json:"readings"`
}

// GetDeviceInfos returns info about all connected devices
func (h *Hub) GetDeviceInfos() []DeviceInfo {
	devices := h.GetDevices()
	infos := make([]DeviceInfo, 0, len(devices))
	for _, d := range devices {
		d.mu.Lock()
		infos = append(infos, DeviceInfo{
			ID:        d.ID,
			Connected: d.Connected,
			LastSeen:  d.LastSeen,
			Readings:  d.Readings,
		})
		d.mu.Unlock()
	}
	return infos
}

// RegisterAPIRoutes registers API routes for device management
func (h *Hub) RegisterAPIRoutes(api fiber.Router) {
	devices := api.Group("/devices")

	// List connected devices
	devices.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"devices": h.GetDeviceInfos(),
			"count":   h.DeviceCount(),
		})
	})

	// Get hub stats
	devices.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(h.GetStats())
	})

	// Ping a device
	devices.Post("/:id/ping", func(c *fiber.Ctx) error {
		msg, err := protocol.NewPingMessage(uuid.NewString())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		if err := h.sendToDevice(c.Params("id"), msg); err != nil {
			status := fiber.StatusInternalServerError
			if errors.Is(err, ErrNotConnected) {
				status = fiber.StatusNotFound
			}
			return c.Status(status).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"status": "sent"})
	})
}

// generateDeviceID generates a unique device ID
func generateDeviceID() string {
	return "device-" + uuid.NewString()[:8]
}
