// Package motor names the motor actions a controller can issue and resolves
// them into per-wheel H-bridge commands.
package motor

type Function uint8

const (
	Stop Function = iota
	Forward
	Backward
	TurnLeft
	TurnRight
	Coast
)

var functionNames = map[Function]string{
	Stop:      "Stop",
	Forward:   "Forward",
	Backward:  "Backward",
	TurnLeft:  "TurnLeft",
	TurnRight: "TurnRight",
	Coast:     "Coast",
}

func (f Function) String() string {
	if n, ok := functionNames[f]; ok {
		return n
	}
	return "Unknown"
}

func ParseFunction(s string) (Function, bool) {
	for f, n := range functionNames {
		if n == s {
			return f, true
		}
	}
	return Stop, false
}

// MaxDuty is the largest duty in permil the drivers accept.
const MaxDuty = 999

// Driver issues a directional PWM command with duties in permil.
type Driver interface {
	SetMotorDuty(fn Function, left, right uint16)
}

// Wheel is the command for one H-bridge channel.
type Wheel struct {
	Reverse bool
	Duty    uint16
	// Sleep releases the bridge so the wheel coasts.
	Sleep bool
}

type wheelModes struct {
	left, right mode
}

type mode uint8

const (
	brake mode = iota
	ahead
	astern
	release
)

var dispatch = map[Function]wheelModes{
	Stop:      {brake, brake},
	Forward:   {ahead, ahead},
	Backward:  {astern, astern},
	TurnLeft:  {astern, ahead},
	TurnRight: {ahead, astern},
	Coast:     {release, release},
}

// Resolve maps fn and the requested duties onto the two wheels. Duties are
// capped at MaxDuty. Unknown functions resolve to Stop.
func Resolve(fn Function, left, right uint16) (Wheel, Wheel) {
	m, ok := dispatch[fn]
	if !ok {
		m = dispatch[Stop]
	}
	return m.left.wheel(left), m.right.wheel(right)
}

func (m mode) wheel(duty uint16) Wheel {
	if duty > MaxDuty {
		duty = MaxDuty
	}
	switch m {
	case ahead:
		return Wheel{Duty: duty}
	case astern:
		return Wheel{Reverse: true, Duty: duty}
	case release:
		return Wheel{Sleep: true}
	default:
		return Wheel{}
	}
}
