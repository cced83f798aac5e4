package convert

import "github.com/tigerbot-team/tigerbot/rslk-controller/pkg/chassis"

// PulseToRPM converts an encoder period in capture ticks into rpm. The
// capture clock runs at 1.5MHz (2/3us per tick) and each wheel revolution
// is chassis.StepsPerRev pulses.
const PulseToRPM = 250000

// SpeedFromPeriod returns the wheel speed in rpm for a period measured in
// capture ticks. A zero period means no pulse has been timed and reads as 0.
func SpeedFromPeriod(period uint32) uint32 {
	if period == 0 {
		return 0
	}
	return PulseToRPM / period
}

// StepsToMM converts signed encoder steps into millimetres of travel,
// truncating towards zero.
func StepsToMM(steps int32) int32 {
	return steps * chassis.WheelCircumMM / chassis.StepsPerRev
}
