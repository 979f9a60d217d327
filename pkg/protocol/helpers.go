package protocol

import (
	"fmt"
	"time"

	"github.com/teslashibe/go-gesture/pkg/sensor"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewVectorMessage creates a sensor reading message for ch.
func NewVectorMessage(ch sensor.Channel, v sensor.Vector) (*Message, error) {
	if !ch.Valid() {
		return nil, fmt.Errorf("%w: %d", sensor.ErrUnknownChannel, int(ch))
	}
	if len(v) < 3 {
		return nil, fmt.Errorf("%w: %s needs at least 3 components, got %d", sensor.ErrArity, ch, len(v))
	}
	data := VectorData{X: v[0], Y: v[1], Z: v[2]}
	if len(v) > 3 {
		w := v[3]
		data.W = &w
	}
	return NewMessage(MessageType(ch.String()), data)
}

// NewBatchMessage creates a batch of sensor readings.
func NewBatchMessage(events []sensor.Event) (*Message, error) {
	readings := make([]ReadingData, 0, len(events))
	for _, e := range events {
		readings = append(readings, ReadingData{
			Channel: e.Channel.String(),
			Values:  e.Values,
		})
	}
	return NewMessage(TypeBatch, BatchData{Readings: readings})
}

// NewStatusMessage creates a status message
func NewStatusMessage(status StatusData) (*Message, error) {
	return NewMessage(TypeStatus, status)
}

// NewErrorMessage creates an error message
func NewErrorMessage(err error) (*Message, error) {
	return NewMessage(TypeError, ErrorData{Message: err.Error()})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
	})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// Events decodes a sensor message into events. Arity is not checked here;
// the sensor cache rejects vectors of the wrong shape.
func (m *Message) Events() ([]sensor.Event, error) {
	switch m.Type {
	case TypeBatch:
		data, err := m.GetBatchData()
		if err != nil {
			return nil, err
		}
		events := make([]sensor.Event, 0, len(data.Readings))
		for _, r := range data.Readings {
			ch, err := sensor.ParseChannel(r.Channel)
			if err != nil {
				return nil, err
			}
			events = append(events, sensor.Event{Channel: ch, Values: r.Values})
		}
		return events, nil

	case TypeAcceleration, TypeGravity, TypeAngularVelocity, TypeOrientation:
		ch, err := sensor.ParseChannel(string(m.Type))
		if err != nil {
			return nil, err
		}
		data, err := m.GetVectorData()
		if err != nil {
			return nil, err
		}
		return []sensor.Event{{Channel: ch, Values: data.Values()}}, nil
	}
	return nil, fmt.Errorf("%w: message type %q", sensor.ErrUnknownChannel, m.Type)
}

// GetVectorData extracts a sensor reading from a message
func (m *Message) GetVectorData() (*VectorData, error) {
	if m.Data == nil {
		return nil, fmt.Errorf("%s message without data", m.Type)
	}
	var data VectorData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetBatchData extracts a batch from a message
func (m *Message) GetBatchData() (*BatchData, error) {
	var data BatchData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetStatusData extracts status data from a message
func (m *Message) GetStatusData() (*StatusData, error) {
	var data StatusData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetErrorData extracts error data from a message
func (m *Message) GetErrorData() (*ErrorData, error) {
	var data ErrorData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
