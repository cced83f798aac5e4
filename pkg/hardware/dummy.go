package hardware

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/motor"
)

// InputsFunc adapts a function to DigitalInputs.
type InputsFunc func() uint8

func (f InputsFunc) ReadDigitalInputs() uint8 { return f() }

// Dummy simulates the chassis in memory: motor duties turn into encoder
// edges at a speed proportional to duty, and the IR counts, bumps and
// switches are whatever the test or operator last set.
type Dummy struct {
	// MaxRPM is the wheel speed at full duty.
	MaxRPM float64

	lock      sync.Mutex
	fn        motor.Function
	duty      [2]uint16
	wheels    [2]motor.Wheel
	simTime   time.Duration
	phase     [2]float64
	companion uint8
	bumps     uint8
	switches  uint8
	ir        map[int]uint32
	onEdge    [2]func(uint16)
	wg        sync.WaitGroup
}

var _ Interface = (*Dummy)(nil)

func NewDummy() *Dummy {
	return &Dummy{
		MaxRPM: 150,
		ir:     map[int]uint32{},
	}
}

func (d *Dummy) EdgeCaptureInit(onLeft, onRight func(timestamp uint16)) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.onEdge = [2]func(uint16){onLeft, onRight}
}

// Start advances the simulation in real time until ctx is done.
func (d *Dummy) Start(ctx context.Context) error {
	log.Info().Msg("DHW: Start")
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		const step = time.Millisecond
		ticker := time.NewTicker(step)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				d.Advance(step)
			}
		}
	}()
	return nil
}

type simEdge struct {
	wheel   int
	reverse bool
	ts      uint16
}

// Advance moves simulated time on by dt, firing any encoder edges due.
func (d *Dummy) Advance(dt time.Duration) {
	d.lock.Lock()
	var edges []simEdge
	for i, w := range d.wheels {
		if w.Sleep || w.Duty == 0 {
			continue
		}
		stepsPerSec := float64(w.Duty) / motor.MaxDuty * d.MaxRPM * 360 / 60
		d.phase[i] += stepsPerSec * dt.Seconds()
		n := int(d.phase[i])
		d.phase[i] -= float64(n)
		for k := 1; k <= n; k++ {
			at := d.simTime + dt*time.Duration(k)/time.Duration(n)
			edges = append(edges, simEdge{i, w.Reverse, uint16(at.Nanoseconds() * 3 / 2000)})
		}
	}
	d.simTime += dt
	handlers := d.onEdge
	d.lock.Unlock()

	for _, e := range edges {
		if handlers[e.wheel] == nil {
			continue
		}
		bit := LeftEncoderB
		if e.wheel == 1 {
			bit = RightEncoderB
		}
		d.lock.Lock()
		if e.reverse {
			d.companion &^= bit
		} else {
			d.companion |= bit
		}
		d.lock.Unlock()
		handlers[e.wheel](e.ts)
	}
}

func (d *Dummy) Motors() motor.Driver { return d }
func (d *Dummy) ADC() ADC             { return d }

func (d *Dummy) Bumps() DigitalInputs {
	return InputsFunc(func() uint8 {
		d.lock.Lock()
		defer d.lock.Unlock()
		return d.bumps
	})
}

func (d *Dummy) Switches() DigitalInputs {
	return InputsFunc(func() uint8 {
		d.lock.Lock()
		defer d.lock.Unlock()
		return d.switches
	})
}

func (d *Dummy) EncoderCompanions() DigitalInputs {
	return InputsFunc(func() uint8 {
		d.lock.Lock()
		defer d.lock.Unlock()
		return d.companion
	})
}

func (d *Dummy) SetMotorDuty(fn motor.Function, left, right uint16) {
	l, r := motor.Resolve(fn, left, right)
	d.lock.Lock()
	defer d.lock.Unlock()
	if fn != d.fn || left != d.duty[0] || right != d.duty[1] {
		log.Debug().Stringer("fn", fn).Uint16("left", left).Uint16("right", right).Msg("DHW: SetMotorDuty")
	}
	d.fn, d.duty = fn, [2]uint16{left, right}
	d.wheels = [2]motor.Wheel{l, r}
}

func (d *Dummy) MotorCommand() (fn motor.Function, left, right uint16) {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.fn, d.duty[0], d.duty[1]
}

func (d *Dummy) ReadRawADC(channels []int) ([]uint32, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	out := make([]uint32, len(channels))
	for i, c := range channels {
		out[i] = d.ir[c]
	}
	return out, nil
}

func (d *Dummy) SetIR(channel int, count uint32) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.ir[channel] = count
}

func (d *Dummy) SetBumps(bits uint8) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.bumps = bits
}

func (d *Dummy) SetSwitches(bits uint8) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.switches = bits
}

func (d *Dummy) Shutdown() {
	log.Info().Msg("DHW: Shutdown")
	d.SetMotorDuty(motor.Coast, 0, 0)
	d.wg.Wait()
}
