package hardware

import (
	"context"

	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/motor"
)

// Bump switch bits, Bump1 on the far right to Bump6 on the far left.
const (
	Bump1 uint8 = 1 << iota
	Bump2
	Bump3
	Bump4
	Bump5
	Bump6

	AllBumps = Bump1 | Bump2 | Bump3 | Bump4 | Bump5 | Bump6
)

// Operator switch bits.
const (
	SW1 uint8 = 1 << iota
	SW2
)

// Encoder companion (channel B) bits.
const (
	LeftEncoderB uint8 = 1 << iota
	RightEncoderB
)

type Interface interface {
	Start(ctx context.Context) error

	Motors() motor.Driver
	ADC() ADC

	// Discrete inputs, each an active-high bitmask.
	Bumps() DigitalInputs
	Switches() DigitalInputs
	EncoderCompanions() DigitalInputs

	// EdgeCaptureInit registers the handlers called with a 16-bit capture
	// timestamp on each rising edge of the left and right encoder A
	// channels. It must be called before Start.
	EdgeCaptureInit(onLeft, onRight func(timestamp uint16))

	Shutdown()
}

// ADC triggers a conversion on the given channels and returns one raw count
// per channel.
type ADC interface {
	ReadRawADC(channels []int) ([]uint32, error)
}

type DigitalInputs interface {
	ReadDigitalInputs() uint8
}

// CaptureHz is the rate of the edge capture timestamp clock.
const CaptureHz = 1500000
