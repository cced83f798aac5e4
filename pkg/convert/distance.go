// Package convert maps filtered raw sensor readings into physical units.
package convert

// MaxDistanceMM is the range reported for a sensor that sees nothing.
const MaxDistanceMM = 800

// IRCalibration is the inverse-linear model mm = Slope / (count - Offset) for
// one IR distance sensor. Counts below Floor are past the sensor's useful
// range and report MaxMM.
type IRCalibration struct {
	Slope  int32 `yaml:"slope"`
	Offset int32 `yaml:"offset"`
	Floor  int32 `yaml:"floor"`
	MaxMM  int32 `yaml:"max_mm"`
}

var (
	DefaultLeft   = IRCalibration{Slope: 929037, Offset: 910, Floor: 2182, MaxMM: MaxDistanceMM}
	DefaultCenter = IRCalibration{Slope: 1107452, Offset: 520, Floor: 2037, MaxMM: MaxDistanceMM}
	DefaultRight  = IRCalibration{Slope: 1186428, Offset: 84, Floor: 2500, MaxMM: MaxDistanceMM}
)

// DistanceFromADC converts a filtered 14-bit ADC count into millimetres.
func (c IRCalibration) DistanceFromADC(count uint32) int32 {
	n := int32(count)
	if n < c.Floor || n <= c.Offset {
		return c.MaxMM
	}
	return c.Slope / (n - c.Offset)
}
