// Package sensor holds the latest value reported for each wearable motion
// channel and projects a snapshot of those values into a fixed-length sample.
package sensor

import (
	"errors"
	"fmt"
)

// Channel identifies one sensor modality.
type Channel int

const (
	Acceleration Channel = iota
	Gravity
	AngularVelocity
	Orientation

	numChannels
)

var channelNames = [numChannels]string{
	Acceleration:    "acceleration",
	Gravity:         "gravity",
	AngularVelocity: "angular_velocity",
	Orientation:     "orientation",
}

var channelArity = [numChannels]int{
	Acceleration:    3,
	Gravity:         3,
	AngularVelocity: 3,
	Orientation:     4, // quaternion x, y, z, w
}

// Channels lists every channel in canonical order.
var Channels = []Channel{Acceleration, Gravity, AngularVelocity, Orientation}

func (c Channel) String() string {
	if c.Valid() {
		return channelNames[c]
	}
	return fmt.Sprintf("channel(%d)", int(c))
}

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	return c >= 0 && c < numChannels
}

// Arity returns the number of components a channel carries, or 0 if unknown.
func (c Channel) Arity() int {
	if !c.Valid() {
		return 0
	}
	return channelArity[c]
}

// ParseChannel maps a wire name to a Channel.
func ParseChannel(name string) (Channel, error) {
	for i, n := range channelNames {
		if n == name {
			return Channel(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownChannel, name)
}

// Errors returned by Cache.Update.
var (
	ErrUnknownChannel = errors.New("sensor: unknown channel")
	ErrArity          = errors.New("sensor: vector arity mismatch")
)

// Vector is one channel reading.
type Vector []float64

// Event is a single reading delivered by the device layer.
type Event struct {
	Channel Channel
	Values  Vector
}
