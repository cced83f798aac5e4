// Package wallfollow steers between two side walls with a proportional
// controller on the difference of the side IR distances.
package wallfollow

import (
	"sync"
	"sync/atomic"

	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/control"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/datalog"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/motor"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/tunable"
)

type Sensors interface {
	Distances() (left, center, right int32)
}

type Config struct {
	Kp      int32 `yaml:"kp"`
	Divider int32 `yaml:"divider"`
	// Base is the duty both wheels run at with no error; each wheel stays
	// within Base±Swing.
	Base        int32 `yaml:"base"`
	Swing       int32 `yaml:"swing"`
	LogCapacity int   `yaml:"log_capacity"`
}

func DefaultConfig() Config {
	return Config{
		Kp:          100,
		Divider:     100,
		Base:        350,
		Swing:       300,
		LogCapacity: 1000,
	}
}

var LogChannels = []string{"error", "dutyL", "dutyR"}

type Snapshot struct {
	Left, Center, Right int32
	Error               int32
	Correction          int32
	// RawL and RawR are the duties before clamping.
	RawL, RawR   int32
	DutyL, DutyR int32
}

type Follower struct {
	sensors Sensors
	motors  motor.Driver
	log     *datalog.Buffer

	divider        int32
	base, min, max int32

	Tunables tunable.Tunables
	kp       *tunable.Tunable

	// actuatorEnabled gates the motors independently of the controller so
	// the sensors can be watched with the robot held still.
	actuatorEnabled atomic.Bool

	lock sync.Mutex
	snap Snapshot
}

func New(cfg Config, sensors Sensors, motors motor.Driver, log *datalog.Buffer) *Follower {
	f := &Follower{
		sensors: sensors,
		motors:  motors,
		log:     log,
		divider: cfg.Divider,
		base:    cfg.Base,
		min:     cfg.Base - cfg.Swing,
		max:     cfg.Base + cfg.Swing,
	}
	f.kp = f.Tunables.Create("Kp", int(cfg.Kp), 0, 1000)
	return f
}

func (f *Follower) Name() string {
	return "Wall follower"
}

func (f *Follower) Step() bool {
	l, c, r := f.sensors.Distances()

	f.lock.Lock()
	s := &f.snap
	s.Left, s.Center, s.Right = l, c, r
	s.Error = r - l
	s.Correction = f.kp.Get32() * s.Error / f.divider
	s.RawL = f.base - s.Correction
	s.RawR = f.base + s.Correction
	s.DutyL = control.Clamp(s.RawL, f.min, f.max)
	s.DutyR = control.Clamp(s.RawR, f.min, f.max)
	errV, dutyL, dutyR := s.Error, s.DutyL, s.DutyR
	f.lock.Unlock()

	if f.actuatorEnabled.Load() {
		f.motors.SetMotorDuty(motor.Forward, uint16(dutyL), uint16(dutyR))
	}
	if f.log != nil {
		f.log.Append(errV, dutyL, dutyR)
	}
	return true
}

func (f *Follower) Reset() {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.snap = Snapshot{}
}

func (f *Follower) Snapshot() Snapshot {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.snap
}

func (f *Follower) ActuatorEnabled() bool {
	return f.actuatorEnabled.Load()
}

func (f *Follower) SetActuatorEnabled(enabled bool) {
	f.actuatorEnabled.Store(enabled)
}
