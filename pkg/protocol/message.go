// Package protocol defines the WebSocket message types exchanged between a
// wearable bridge and the gesture service.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Device → Service messages. The sensor types match sensor channel names.
	TypeAcceleration    MessageType = "acceleration"     // Linear acceleration x, y, z
	TypeGravity         MessageType = "gravity"          // Gravity vector x, y, z
	TypeAngularVelocity MessageType = "angular_velocity" // Gyroscope x, y, z
	TypeOrientation     MessageType = "orientation"      // Quaternion x, y, z, w
	TypeBatch           MessageType = "batch"            // Several readings at once

	// Service → Device messages
	TypeStatus MessageType = "status" // Collection state and last result
	TypeError  MessageType = "error"  // A message was rejected

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: missing type")
	}
	return &msg, nil
}

// IsSensor reports whether t carries sensor readings.
func (t MessageType) IsSensor() bool {
	switch t {
	case TypeAcceleration, TypeGravity, TypeAngularVelocity, TypeOrientation, TypeBatch:
		return true
	}
	return false
}

// =============================================================================
// Device → Service Message Types
// =============================================================================

// VectorData is one channel reading. W is only sent for orientation.
type VectorData struct {
	X float64  `json:"x"`
	Y float64  `json:"y"`
	Z float64  `json:"z"`
	W *float64 `json:"w,omitempty"`
}

// Values returns the components in wire order.
func (v VectorData) Values() []float64 {
	if v.W != nil {
		return []float64{v.X, v.Y, v.Z, *v.W}
	}
	return []float64{v.X, v.Y, v.Z}
}

// ReadingData is one entry of a batch.
type ReadingData struct {
	Channel string    `json:"channel"`
	Values  []float64 `json:"values"`
}

// BatchData carries readings in arrival order.
type BatchData struct {
	Readings []ReadingData `json:"readings"`
}

// =============================================================================
// Service → Device Message Types
// =============================================================================

// StatusData tells the device what the capture loop is doing.
type StatusData struct {
	State      string `json:"state"` // "collecting" or "idle"
	Buffered   int    `json:"buffered"`
	Windows    uint64 `json:"windows"`
	Prediction string `json:"prediction,omitempty"`
}

// ErrorData explains why a message was rejected.
type ErrorData struct {
	Message string `json:"message"`
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
