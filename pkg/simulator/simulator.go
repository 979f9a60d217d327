// Package simulator produces synthetic wearable motion readings.
//
// Each channel fires on its own ticker at a native rate that differs from
// the capture sampling period, the way a real watch delivers acceleration,
// gravity, rotation rate and attitude as independent event streams.
package simulator

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-gesture/pkg/sensor"
)

const standardGravity = 9.81

// Motion selects the synthetic movement pattern.
type Motion string

const (
	Still  Motion = "still"
	Wave   Motion = "wave"
	Shake  Motion = "shake"
	Circle Motion = "circle"
)

// Motions lists every supported pattern.
var Motions = []Motion{Still, Wave, Shake, Circle}

// ParseMotion maps a name to a Motion.
func ParseMotion(name string) (Motion, error) {
	for _, m := range Motions {
		if string(m) == name {
			return m, nil
		}
	}
	return "", fmt.Errorf("simulator: unknown motion %q", name)
}

// DefaultRates are the native per-channel update intervals.
func DefaultRates() map[sensor.Channel]time.Duration {
	return map[sensor.Channel]time.Duration{
		sensor.Acceleration:    10 * time.Millisecond, // 100 Hz
		sensor.Gravity:         20 * time.Millisecond,
		sensor.AngularVelocity: 10 * time.Millisecond,
		sensor.Orientation:     time.Second / 60,
	}
}

// Config configures a Simulator.
type Config struct {
	Motion Motion
	Rates  map[sensor.Channel]time.Duration
	Noise  float64 // uniform noise amplitude added to every component
	Seed   uint64
	Buffer int
}

// DefaultConfig returns a waving watch at native rates.
func DefaultConfig() Config {
	return Config{
		Motion: Wave,
		Rates:  DefaultRates(),
		Noise:  0.01,
		Seed:   1,
		Buffer: 512,
	}
}

// Simulator emits sensor events on Out until its context ends.
type Simulator struct {
	cfg   Config
	rng   *rand.Rand
	start time.Time

	Out chan sensor.Event

	produced atomic.Uint64
	dropped  atomic.Uint64
}

// New creates a simulator. Missing rates fall back to DefaultRates.
func New(cfg Config) *Simulator {
	rates := DefaultRates()
	for ch, d := range cfg.Rates {
		if d > 0 {
			rates[ch] = d
		}
	}
	cfg.Rates = rates
	if cfg.Motion == "" {
		cfg.Motion = Wave
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 512
	}
	return &Simulator{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		Out: make(chan sensor.Event, cfg.Buffer),
	}
}

// Run drives every channel ticker until ctx is cancelled, then closes Out.
func (s *Simulator) Run(ctx context.Context) {
	defer close(s.Out)

	s.start = time.Now()
	tickers := make([]*time.Ticker, len(sensor.Channels))
	for i, ch := range sensor.Channels {
		tickers[i] = time.NewTicker(s.cfg.Rates[ch])
		defer tickers[i].Stop()
	}

	for {
		var ch sensor.Channel
		select {
		case <-ctx.Done():
			return
		case <-tickers[0].C:
			ch = sensor.Channels[0]
		case <-tickers[1].C:
			ch = sensor.Channels[1]
		case <-tickers[2].C:
			ch = sensor.Channels[2]
		case <-tickers[3].C:
			ch = sensor.Channels[3]
		}

		ev := sensor.Event{Channel: ch, Values: s.Reading(ch, time.Since(s.start))}
		select {
		case s.Out <- ev:
			s.produced.Add(1)
		default:
			s.dropped.Add(1)
		}
	}
}

// Reading returns the value of ch at offset t into the motion, with noise.
func (s *Simulator) Reading(ch sensor.Channel, t time.Duration) sensor.Vector {
	v := Sample(s.cfg.Motion, ch, t)
	if s.cfg.Noise > 0 {
		for i := range v {
			v[i] += (s.rng.Float64()*2 - 1) * s.cfg.Noise
		}
	}
	return v
}

// Stats returns events produced and dropped.
func (s *Simulator) Stats() (produced, dropped uint64) {
	return s.produced.Load(), s.dropped.Load()
}

// Sample is the noiseless value of ch for motion m at offset t.
func Sample(m Motion, ch sensor.Channel, t time.Duration) sensor.Vector {
	ts := t.Seconds()

	// roll and yaw drive gravity and orientation; their derivatives are the
	// rotation rate.
	var roll, yaw, rollRate, yawRate float64
	accel := sensor.Vector{0, 0, 0}

	switch m {
	case Wave:
		// side to side at 1.5 Hz
		const f, amp = 1.5, 0.6
		w := 2 * math.Pi * f
		roll = amp * math.Sin(w*ts)
		rollRate = amp * w * math.Cos(w*ts)
		accel[0] = 2.5 * math.Sin(w*ts)
	case Shake:
		const f, amp = 5.0, 0.15
		w := 2 * math.Pi * f
		roll = amp * math.Sin(w*ts)
		rollRate = amp * w * math.Cos(w*ts)
		accel[0] = 6 * math.Sin(w*ts)
		accel[1] = 3 * math.Cos(w*ts)
	case Circle:
		const f = 0.75
		w := 2 * math.Pi * f
		yaw = w * ts
		yawRate = w
		accel[0] = 1.5 * math.Cos(w*ts)
		accel[1] = 1.5 * math.Sin(w*ts)
	}

	switch ch {
	case sensor.Acceleration:
		return accel
	case sensor.Gravity:
		return sensor.Vector{
			standardGravity * math.Sin(roll),
			-standardGravity * math.Cos(roll),
			0,
		}
	case sensor.AngularVelocity:
		return sensor.Vector{0, rollRate, yawRate}
	case sensor.Orientation:
		return eulerToQuaternion(roll, 0, yaw)
	}
	return nil
}

// eulerToQuaternion converts roll, pitch and yaw in radians to x, y, z, w.
func eulerToQuaternion(roll, pitch, yaw float64) sensor.Vector {
	cr, sr := math.Cos(roll/2), math.Sin(roll/2)
	cp, sp := math.Cos(pitch/2), math.Sin(pitch/2)
	cy, sy := math.Cos(yaw/2), math.Sin(yaw/2)
	return sensor.Vector{
		sr*cp*cy - cr*sp*sy,
		cr*sp*cy + sr*cp*sy,
		cr*cp*sy - sr*sp*cy,
		cr*cp*cy + sr*sp*sy,
	}
}
