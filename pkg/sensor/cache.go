package sensor

import "fmt"

// Cache holds the latest known value of each channel. Every channel starts
// at its zero vector, so a snapshot is always fully defined.
//
// Cache is not safe for concurrent use; the capture engine owns it and is
// the only goroutine that touches it.
type Cache struct {
	values [numChannels][]float64
	fired  [numChannels]bool
}

// NewCache returns a cache with every channel set to its zero vector.
func NewCache() *Cache {
	c := &Cache{}
	for _, ch := range Channels {
		c.values[ch] = make([]float64, ch.Arity())
	}
	return c
}

// Update overwrites the stored value for ch. The vector must match the
// channel's arity exactly; mismatches are rejected and the previous value
// is kept.
func (c *Cache) Update(ch Channel, v Vector) error {
	if !ch.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownChannel, int(ch))
	}
	if len(v) != ch.Arity() {
		return fmt.Errorf("%w: %s wants %d components, got %d", ErrArity, ch, ch.Arity(), len(v))
	}
	copy(c.values[ch], v)
	c.fired[ch] = true
	return nil
}

// Apply is Update for an Event.
func (c *Cache) Apply(e Event) error {
	return c.Update(e.Channel, e.Values)
}

// Snapshot returns a copy of every channel's current value.
func (c *Cache) Snapshot() Snapshot {
	var s Snapshot
	for _, ch := range Channels {
		s.values[ch] = append(Vector(nil), c.values[ch]...)
	}
	return s
}

// Missing lists channels that have never received an event.
func (c *Cache) Missing() []Channel {
	var out []Channel
	for _, ch := range Channels {
		if !c.fired[ch] {
			out = append(out, ch)
		}
	}
	return out
}

// Snapshot is a point-in-time copy of all channels.
type Snapshot struct {
	values [numChannels]Vector
}

// Get returns the value captured for ch.
func (s Snapshot) Get(ch Channel) Vector {
	if !ch.Valid() {
		return nil
	}
	return s.values[ch]
}
