// Package speedcontrol regulates both wheel speeds to a target rpm with an
// integer PI loop on the mean of recent encoder speeds.
package speedcontrol

import (
	"sync"

	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/control"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/convert"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/datalog"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/motor"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/tunable"
)

type Tachometer interface {
	GetPeriods() (left, right uint16)
}

type Config struct {
	TargetRPM     int32 `yaml:"target_rpm"`
	control.Gains `yaml:",inline"`
	DutyMin       int32 `yaml:"duty_min"`
	DutyMax       int32 `yaml:"duty_max"`
	PeriodWindow  int   `yaml:"period_window"`
	LogCapacity   int   `yaml:"log_capacity"`
}

func DefaultConfig() Config {
	return Config{
		TargetRPM:    100,
		Gains:        control.Gains{Kp: 500, Ki: 300, Divider: 1000},
		DutyMin:      0,
		DutyMax:      motor.MaxDuty,
		PeriodWindow: 10,
		LogCapacity:  1000,
	}
}

// LogChannels are the per-tick channels recorded by the PI controller.
var LogChannels = []string{"speedL", "speedR", "dutyL", "dutyR"}

type Snapshot struct {
	TargetRPM            int32
	SpeedL, SpeedR       int32
	ErrorL, ErrorR       int32
	IntegralL, IntegralR int32
	DutyL, DutyR         int32
}

type PI struct {
	tach   Tachometer
	motors motor.Driver
	log    *datalog.Buffer

	divider          int32
	dutyMin, dutyMax int32

	Tunables          tunable.Tunables
	targetRPM, kp, ki *tunable.Tunable

	lock sync.Mutex
	// Ring of recent periods per wheel; filled counts valid entries since
	// the last reset. A 0 entry means the wheel was stopped on that tick.
	periods [2][]uint16
	next    int
	filled  int
	snap    Snapshot
}

func New(cfg Config, tach Tachometer, motors motor.Driver, log *datalog.Buffer) *PI {
	window := cfg.PeriodWindow
	if window < 1 {
		window = 1
	}
	p := &PI{
		tach:    tach,
		motors:  motors,
		log:     log,
		divider: cfg.Gains.Divider,
		dutyMin: cfg.DutyMin,
		dutyMax: cfg.DutyMax,
		periods: [2][]uint16{make([]uint16, window), make([]uint16, window)},
	}
	p.targetRPM = p.Tunables.Create("Speed", int(cfg.TargetRPM), 0, 300)
	p.kp = p.Tunables.Create("Kp", int(cfg.Gains.Kp), 0, 10000)
	p.ki = p.Tunables.Create("Ki", int(cfg.Gains.Ki), 0, 10000)
	return p
}

func (p *PI) Name() string {
	return "PI speed"
}

// Step is one control tick: average the recent periods, convert to rpm and
// drive both wheels forward with the clamped PI duty.
func (p *PI) Step() bool {
	left, right := p.tach.GetPeriods()

	p.lock.Lock()
	p.periods[0][p.next] = left
	p.periods[1][p.next] = right
	p.next = (p.next + 1) % len(p.periods[0])
	if p.filled < len(p.periods[0]) {
		p.filled++
	}

	target := p.targetRPM.Get32()
	kp, ki := int64(p.kp.Get32()), int64(p.ki.Get32())

	s := &p.snap
	s.TargetRPM = target
	s.SpeedL = p.averageRPM(0)
	s.SpeedR = p.averageRPM(1)
	s.ErrorL = target - s.SpeedL
	s.ErrorR = target - s.SpeedR
	s.IntegralL += s.ErrorL
	s.IntegralR += s.ErrorR
	s.DutyL = p.duty(kp, ki, s.ErrorL, s.IntegralL)
	s.DutyR = p.duty(kp, ki, s.ErrorR, s.IntegralR)
	dutyL, dutyR, speedL, speedR := s.DutyL, s.DutyR, s.SpeedL, s.SpeedR
	p.lock.Unlock()

	p.motors.SetMotorDuty(motor.Forward, uint16(dutyL), uint16(dutyR))
	if p.log != nil {
		p.log.Append(speedL, speedR, dutyL, dutyR)
	}
	return true
}

func (p *PI) duty(kp, ki int64, err, integral int32) int32 {
	raw := (kp*int64(err) + ki*int64(integral)) / int64(p.divider)
	return int32(control.Clamp(raw, int64(p.dutyMin), int64(p.dutyMax)))
}

// averageRPM is the mean speed over the window. Stopped ticks count as
// 0rpm rather than as a 0 period, which would read as infinitely fast.
func (p *PI) averageRPM(wheel int) int32 {
	var sum uint32
	for i := 0; i < p.filled; i++ {
		sum += convert.SpeedFromPeriod(uint32(p.periods[wheel][i]))
	}
	return int32(sum / uint32(p.filled))
}

// Reset zeroes both integrators and forgets the period history.
func (p *PI) Reset() {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.next = 0
	p.filled = 0
	target := p.snap.TargetRPM
	p.snap = Snapshot{TargetRPM: target}
}

func (p *PI) Snapshot() Snapshot {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.snap
}

// SetTarget changes the target speed in rpm.
func (p *PI) SetTarget(rpm int32) {
	p.targetRPM.Set(int(rpm))
}
