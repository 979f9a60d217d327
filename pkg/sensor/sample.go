package sensor

// Sample is one instant's concatenated channel snapshot.
type Sample []float64

// segment describes which components of a channel a sample carries.
type segment struct {
	channel Channel
	width   int
}

// sampleLayout fixes the order and width of each channel in a Sample.
// Orientation contributes only x, y, z. The classifier's input layout has
// no slot for w.
var sampleLayout = []segment{
	{Acceleration, 3},
	{Gravity, 3},
	{AngularVelocity, 3},
	{Orientation, 3},
}

// SampleArity is the length of every Sample.
const SampleArity = 12

// SampleColumns names each Sample component in order.
var SampleColumns = []string{
	"acc_x", "acc_y", "acc_z",
	"grav_x", "grav_y", "grav_z",
	"gyro_x", "gyro_y", "gyro_z",
	"ori_x", "ori_y", "ori_z",
}

// Sample projects the snapshot into a Sample.
func (s Snapshot) Sample() Sample {
	out := make(Sample, 0, SampleArity)
	for _, seg := range sampleLayout {
		v := s.values[seg.channel]
		for i := 0; i < seg.width; i++ {
			if i < len(v) {
				out = append(out, v[i])
			} else {
				out = append(out, 0)
			}
		}
	}
	return out
}
