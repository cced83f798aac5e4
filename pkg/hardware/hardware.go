package hardware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/host"

	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/motor"
)

// Pins names the GPIOs, as known to periph's gpioreg, that the RSLK chassis
// board is wired to.
type Pins struct {
	Bumps    [6]string `yaml:"bumps"`
	Switches [2]string `yaml:"switches"`

	LeftEncoderA  string `yaml:"left_encoder_a"`
	LeftEncoderB  string `yaml:"left_encoder_b"`
	RightEncoderA string `yaml:"right_encoder_a"`
	RightEncoderB string `yaml:"right_encoder_b"`

	LeftPWM    string `yaml:"left_pwm"`
	LeftDir    string `yaml:"left_dir"`
	LeftSleep  string `yaml:"left_sleep"`
	RightPWM   string `yaml:"right_pwm"`
	RightDir   string `yaml:"right_dir"`
	RightSleep string `yaml:"right_sleep"`

	PWMHz int `yaml:"pwm_hz"`
}

func DefaultPins() Pins {
	return Pins{
		Bumps:         [6]string{"GPIO4", "GPIO17", "GPIO27", "GPIO22", "GPIO5", "GPIO6"},
		Switches:      [2]string{"GPIO20", "GPIO21"},
		LeftEncoderA:  "GPIO23",
		LeftEncoderB:  "GPIO24",
		RightEncoderA: "GPIO25",
		RightEncoderB: "GPIO16",
		LeftPWM:       "GPIO12",
		LeftDir:       "GPIO26",
		LeftSleep:     "GPIO19",
		RightPWM:      "GPIO13",
		RightDir:      "GPIO7",
		RightSleep:    "GPIO8",
		PWMHz:         10000,
	}
}

type inputGroup struct {
	pins      []gpio.PinIO
	activeLow bool
}

func (g inputGroup) ReadDigitalInputs() uint8 {
	var bits uint8
	for i, p := range g.pins {
		if (p.Read() == gpio.Low) == g.activeLow {
			bits |= 1 << uint(i)
		}
	}
	return bits
}

type bridge struct {
	pwm, dir, sleep gpio.PinIO
}

// RSLK drives the chassis board directly from the host's GPIOs.
type RSLK struct {
	bumps, switches, companions inputGroup
	encoderA                    [2]gpio.PinIO
	left, right                 bridge
	pwmFreq                     physic.Frequency

	adc ADC

	onEdge     [2]func(uint16)
	start      time.Time
	captureWG  sync.WaitGroup
	motorsLock sync.Mutex
}

var _ Interface = (*RSLK)(nil)

func New(pins Pins, adc ADC) (*RSLK, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialise periph: %w", err)
	}
	var err error
	byName := func(name string) gpio.PinIO {
		if err != nil {
			return nil
		}
		p := gpioreg.ByName(name)
		if p == nil {
			err = fmt.Errorf("no such GPIO %q", name)
		}
		return p
	}

	r := &RSLK{adc: adc, pwmFreq: physic.Frequency(pins.PWMHz) * physic.Hertz}
	r.bumps.activeLow = true
	for _, n := range pins.Bumps {
		r.bumps.pins = append(r.bumps.pins, byName(n))
	}
	r.switches.activeLow = true
	for _, n := range pins.Switches {
		r.switches.pins = append(r.switches.pins, byName(n))
	}
	r.companions.pins = []gpio.PinIO{byName(pins.LeftEncoderB), byName(pins.RightEncoderB)}
	r.encoderA = [2]gpio.PinIO{byName(pins.LeftEncoderA), byName(pins.RightEncoderA)}
	r.left = bridge{byName(pins.LeftPWM), byName(pins.LeftDir), byName(pins.LeftSleep)}
	r.right = bridge{byName(pins.RightPWM), byName(pins.RightDir), byName(pins.RightSleep)}
	if err != nil {
		return nil, err
	}

	for _, p := range append(r.bumps.pins, r.switches.pins...) {
		if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("failed to configure %s: %w", p, err)
		}
	}
	for _, p := range r.companions.pins {
		if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("failed to configure %s: %w", p, err)
		}
	}
	for _, p := range r.encoderA {
		if err := p.In(gpio.PullUp, gpio.RisingEdge); err != nil {
			return nil, fmt.Errorf("failed to configure %s: %w", p, err)
		}
	}
	for _, b := range []bridge{r.left, r.right} {
		for _, p := range []gpio.PinIO{b.pwm, b.dir, b.sleep} {
			if err := p.Out(gpio.Low); err != nil {
				return nil, fmt.Errorf("failed to configure %s: %w", p, err)
			}
		}
	}
	return r, nil
}

func (r *RSLK) EdgeCaptureInit(onLeft, onRight func(timestamp uint16)) {
	r.onEdge = [2]func(uint16){onLeft, onRight}
}

// Start launches the edge capture goroutines. They exit when ctx is done.
func (r *RSLK) Start(ctx context.Context) error {
	r.start = time.Now()
	for i, p := range r.encoderA {
		if r.onEdge[i] == nil {
			continue
		}
		r.captureWG.Add(1)
		go r.loopCapturing(ctx, p, r.onEdge[i])
	}
	return nil
}

func (r *RSLK) loopCapturing(ctx context.Context, p gpio.PinIO, onEdge func(uint16)) {
	defer r.captureWG.Done()
	defer log.Debug().Str("pin", p.Name()).Msg("Edge capture loop exited")
	for ctx.Err() == nil {
		if p.WaitForEdge(100 * time.Millisecond) {
			onEdge(r.captureTime())
		}
	}
}

// captureTime is the time since Start in 1.5MHz ticks, truncated to the
// width of the hardware capture register.
func (r *RSLK) captureTime() uint16 {
	// 1.5MHz is 3 ticks every 2000ns.
	return uint16(time.Since(r.start).Nanoseconds() * 3 / 2000)
}

func (r *RSLK) Motors() motor.Driver             { return r }
func (r *RSLK) ADC() ADC                         { return r.adc }
func (r *RSLK) Bumps() DigitalInputs             { return r.bumps }
func (r *RSLK) Switches() DigitalInputs          { return r.switches }
func (r *RSLK) EncoderCompanions() DigitalInputs { return r.companions }

func (r *RSLK) SetMotorDuty(fn motor.Function, left, right uint16) {
	l, rw := motor.Resolve(fn, left, right)
	r.motorsLock.Lock()
	defer r.motorsLock.Unlock()
	for _, c := range []struct {
		b bridge
		w motor.Wheel
	}{{r.left, l}, {r.right, rw}} {
		if err := r.drive(c.b, c.w); err != nil {
			log.Error().Err(err).Msg("Motor command failed")
		}
	}
}

func (r *RSLK) drive(b bridge, w motor.Wheel) error {
	if w.Sleep {
		if err := b.pwm.Out(gpio.Low); err != nil {
			return err
		}
		return b.sleep.Out(gpio.Low)
	}
	if err := b.sleep.Out(gpio.High); err != nil {
		return err
	}
	if err := b.dir.Out(gpio.Level(w.Reverse)); err != nil {
		return err
	}
	duty := gpio.Duty(int64(w.Duty) * int64(gpio.DutyMax) / 1000)
	return b.pwm.PWM(duty, r.pwmFreq)
}

// Shutdown lets the wheels coast and waits for the capture loops, which
// exit once the context passed to Start is done.
func (r *RSLK) Shutdown() {
	r.SetMotorDuty(motor.Coast, 0, 0)
	r.captureWG.Wait()
}
