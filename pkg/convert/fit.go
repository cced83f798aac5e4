package convert

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"
)

var ErrTooFewSamples = errors.New("need at least two distinct calibration samples")

// Sample is one calibration observation: the filtered ADC count seen with
// the target at a measured distance.
type Sample struct {
	Count      uint32
	DistanceMM float64
}

// FitIRCalibration fits Slope and Offset by regressing 1/mm on the count:
// 1/mm = count/Slope - Offset/Slope. Floor is set to the count that maps to
// maxMM.
func FitIRCalibration(samples []Sample, maxMM int32) (IRCalibration, error) {
	var xs, ys []float64
	for _, s := range samples {
		if s.DistanceMM <= 0 {
			continue
		}
		xs = append(xs, float64(s.Count))
		ys = append(ys, 1/s.DistanceMM)
	}
	if len(xs) < 2 || stat.Variance(xs, nil) == 0 {
		return IRCalibration{}, ErrTooFewSamples
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	if beta <= 0 {
		return IRCalibration{}, errors.New("readings do not grow as the target gets closer")
	}
	slope := 1 / beta
	offset := -alpha * slope
	floor := offset + slope/float64(maxMM)
	return IRCalibration{
		Slope:  int32(math.Round(slope)),
		Offset: int32(math.Round(offset)),
		Floor:  int32(math.Ceil(floor)),
		MaxMM:  maxMM,
	}, nil
}
