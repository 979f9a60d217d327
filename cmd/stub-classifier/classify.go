package main

import (
	"math"

	"github.com/teslashibe/go-gesture/pkg/sensor"
)

// Component offsets within one sample.
const (
	accOffset  = 0
	gyroOffset = 6
)

// Thresholds tuned against the simulator's motions.
const (
	stillEnergy = 0.3 // m/s² and rad/s
	shakeEnergy = 3.5 // mean acceleration magnitude
)

// Classify labels a flattened window by its acceleration and rotation
// energy. Partial trailing samples are ignored.
func Classify(data []float64) string {
	n := len(data) / sensor.SampleArity
	if n == 0 {
		return "still"
	}

	var acc, gyroY, gyroZ float64
	for i := 0; i < n; i++ {
		s := data[i*sensor.SampleArity : (i+1)*sensor.SampleArity]
		acc += math.Sqrt(s[accOffset]*s[accOffset] + s[accOffset+1]*s[accOffset+1] + s[accOffset+2]*s[accOffset+2])
		gyroY += math.Abs(s[gyroOffset+1])
		gyroZ += math.Abs(s[gyroOffset+2])
	}
	acc /= float64(n)
	gyroY /= float64(n)
	gyroZ /= float64(n)

	switch {
	case acc < stillEnergy && gyroY < stillEnergy && gyroZ < stillEnergy:
		return "still"
	case gyroZ > gyroY:
		return "circle"
	case acc > shakeEnergy:
		return "shake"
	default:
		return "wave"
	}
}
