package hardware

import (
	"testing"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpiotest"

	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/motor"
)

func TestInputGroupActiveLow(t *testing.T) {
	pins := []*gpiotest.Pin{
		{N: "B1", L: gpio.Low},
		{N: "B2", L: gpio.High},
		{N: "B3", L: gpio.Low},
	}
	g := inputGroup{activeLow: true}
	for _, p := range pins {
		g.pins = append(g.pins, p)
	}
	if got := g.ReadDigitalInputs(); got != 0x05 {
		t.Errorf("active low read %#x, want 0x05", got)
	}
	g.activeLow = false
	if got := g.ReadDigitalInputs(); got != 0x02 {
		t.Errorf("active high read %#x, want 0x02", got)
	}
}

func TestDriveSetsBridgePins(t *testing.T) {
	pwm, dir, sleep := &gpiotest.Pin{N: "PWM"}, &gpiotest.Pin{N: "DIR"}, &gpiotest.Pin{N: "SLP"}
	r := &RSLK{}
	b := bridge{pwm, dir, sleep}

	if err := r.drive(b, motor.Wheel{Reverse: true, Duty: 500}); err != nil {
		t.Fatalf("drive failed: %v", err)
	}
	if sleep.L != gpio.High || dir.L != gpio.High {
		t.Errorf("reverse drive left sleep=%v dir=%v, want both high", sleep.L, dir.L)
	}

	if err := r.drive(b, motor.Wheel{Sleep: true}); err != nil {
		t.Fatalf("coast failed: %v", err)
	}
	if sleep.L != gpio.Low || pwm.L != gpio.Low {
		t.Errorf("coast left sleep=%v pwm=%v, want both low", sleep.L, pwm.L)
	}
}
