package navigator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/control"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/datalog"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/motor"
)

type fakeTach struct {
	l, r   int32
	resets int
}

func (f *fakeTach) ResetSteps() {
	f.resets++
	f.l, f.r = 0, 0
}

func (f *fakeTach) GetDistances() (int32, int32) {
	return f.l, f.r
}

type fakeBumps struct {
	bits uint8
}

func (f *fakeBumps) ReadDigitalInputs() uint8 {
	return f.bits
}

type fakeMotors struct {
	fn   motor.Function
	l, r uint16
}

func (f *fakeMotors) SetMotorDuty(fn motor.Function, left, right uint16) {
	f.fn, f.l, f.r = fn, left, right
}

type rig struct {
	nav    *Navigator
	tach   *fakeTach
	bumps  *fakeBumps
	motors *fakeMotors
	log    *datalog.Buffer
}

func newRig(t *testing.T, cfg Config) *rig {
	t.Helper()
	r := &rig{
		tach:   &fakeTach{},
		bumps:  &fakeBumps{},
		motors: &fakeMotors{},
		log:    datalog.New(100, LogChannels...),
	}
	var err error
	r.nav, err = New(cfg, r.tach, r.bumps, r.motors, r.log)
	require.NoError(t, err)
	return r
}

func (r *rig) step(l, rr int32) bool {
	r.tach.l, r.tach.r = l, rr
	return r.nav.Step()
}

func TestBumpPreemptsForward(t *testing.T) {
	r := newRig(t, DefaultConfig())
	require.True(t, r.step(50, 50))
	assert.Equal(t, "Forward", r.nav.State())
	assert.Equal(t, motor.Forward, r.motors.fn)
	assert.Equal(t, uint16(380), r.motors.l)
	assert.Equal(t, uint16(375), r.motors.r)

	r.bumps.bits = 0x04
	require.True(t, r.step(60, 60))
	s := r.nav.Snapshot()
	assert.Equal(t, "Backward", s.State)
	assert.Equal(t, int32(0), s.DistanceL, "displacement re-baselined at the transition")
	assert.Equal(t, int32(0), s.DistanceR)
	assert.Equal(t, 1, r.tach.resets)
	assert.Equal(t, int32(60), s.Y)
	assert.Equal(t, 0, s.TicksInState)

	// Still bumped while backing off: stay in Backward without re-baselining.
	r.step(-10, -10)
	assert.Equal(t, "Backward", r.nav.State())
	assert.Equal(t, motor.Backward, r.motors.fn)
	assert.Equal(t, 1, r.tach.resets)
}

func TestAnyCollisionBitBacksOff(t *testing.T) {
	for _, bit := range []uint8{0x01, 0x02, 0x04, 0x08, 0x10, 0x20} {
		r := newRig(t, DefaultConfig())
		r.bumps.bits = bit
		r.step(0, 0)
		assert.Equal(t, "Backward", r.nav.State(), "bump bit 0x%02x", bit)
	}
	cfg := DefaultConfig()
	cfg.CollisionMask = 0x0C
	r := newRig(t, cfg)
	r.bumps.bits = 0x01
	r.step(0, 0)
	assert.Equal(t, "Forward", r.nav.State(), "bits outside the mask are ignored")
}

func TestBumpBeatsDistanceCompletion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.States[0].TargetMM = 100
	r := newRig(t, cfg)
	r.bumps.bits = 0x20
	r.step(150, 150)
	assert.Equal(t, "Backward", r.nav.State())
}

func TestFullSequenceReachesHome(t *testing.T) {
	r := newRig(t, DefaultConfig())
	ctrl := control.New(r.nav)
	ctrl.Enable()

	tick := func(l, rr int32) {
		r.tach.l, r.tach.r = l, rr
		ctrl.Tick()
	}

	tick(100, 100)
	r.bumps.bits = 0x01
	tick(100, 100)
	require.Equal(t, "Backward", r.nav.State())
	r.bumps.bits = 0

	tick(-50, -50)
	assert.Equal(t, "Backward", r.nav.State())
	tick(-90, -90)
	require.Equal(t, "Left90", r.nav.State())
	x, y, h := r.nav.Position()
	assert.Equal(t, int32(0), x)
	assert.Equal(t, int32(10), y)
	assert.Equal(t, North, h)

	tick(-93, 93)
	assert.Equal(t, motor.TurnLeft, r.motors.fn)
	require.Equal(t, "Forward", r.nav.State())
	_, _, h = r.nav.Position()
	assert.Equal(t, West, h)

	tick(100, 100)
	x, _, _ = r.nav.Position()
	assert.Equal(t, int32(100), x, "West travel grows x")
	assert.Equal(t, "Forward", r.nav.State())

	tick(250, 250)
	assert.Equal(t, "Stop", r.nav.State(), "within tolerance of home")
	assert.True(t, ctrl.Enabled())

	tick(250, 250)
	assert.Equal(t, motor.Stop, r.motors.fn)
	assert.False(t, ctrl.Enabled(), "controller finishes once Stop is applied")

	x, y, _ = r.nav.Position()
	assert.Equal(t, int32(250), x)
	assert.Equal(t, int32(10), y)
	assert.Equal(t, 8, r.log.Len())
	assert.Equal(t, []int32{250, 10}, r.log.Record(7))
}

func TestStopIsTerminal(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Initial = "Stop"
	r := newRig(t, cfg)
	r.bumps.bits = 0x3F
	assert.False(t, r.step(0, 0))
	assert.Equal(t, "Stop", r.nav.State())
	assert.Equal(t, motor.Stop, r.motors.fn)
}

func TestUnknownStateDegradesToStop(t *testing.T) {
	r := newRig(t, DefaultConfig())
	r.nav.cur = 42
	assert.False(t, r.step(0, 0))
	assert.Equal(t, motor.Stop, r.motors.fn)
	assert.Equal(t, "Stop", r.nav.State())
}

func TestRightTurnsWrapHeading(t *testing.T) {
	cfg := DefaultConfig()
	cfg.States = append(cfg.States, StateConfig{
		Name: "Right90", Left: 150, Right: 150, Motion: "TurnRight", TargetMM: 93, Next: "Right90b", Turn: -1,
	}, StateConfig{
		Name: "Right90b", Left: 150, Right: 150, Motion: "TurnRight", TargetMM: 93, Next: "Forward", Turn: -1,
	})
	cfg.Initial = "Right90"
	cfg.HomeX = 10000
	r := newRig(t, cfg)
	r.step(93, -93)
	_, _, h := r.nav.Position()
	assert.Equal(t, East, h)
	r.step(93, -93)
	_, _, h = r.nav.Position()
	assert.Equal(t, South, h)
	assert.Equal(t, "Forward", r.nav.State())

	r.step(100, 100)
	_, y, _ := r.nav.Position()
	assert.Equal(t, int32(-100), y)
}

func TestResetReturnsToStart(t *testing.T) {
	r := newRig(t, DefaultConfig())
	r.bumps.bits = 0x01
	r.step(70, 70)
	r.nav.Reset()
	s := r.nav.Snapshot()
	assert.Equal(t, "Forward", s.State)
	assert.Equal(t, int32(0), s.X)
	assert.Equal(t, int32(0), s.Y)
	assert.Equal(t, North, s.Heading)
}

func TestConfigValidation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.States[1].Next = "Nowhere"
	_, err := New(cfg, &fakeTach{}, &fakeBumps{}, &fakeMotors{}, nil)
	assert.True(t, errors.Is(err, ErrUnknownState))

	cfg = DefaultConfig()
	cfg.States[0].Motion = "Hover"
	_, err = New(cfg, &fakeTach{}, &fakeBumps{}, &fakeMotors{}, nil)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.States = append(cfg.States, cfg.States[0])
	_, err = New(cfg, &fakeTach{}, &fakeBumps{}, &fakeMotors{}, nil)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.CollisionState = "Sideways"
	_, err = New(cfg, &fakeTach{}, &fakeBumps{}, &fakeMotors{}, nil)
	assert.True(t, errors.Is(err, ErrUnknownState))
}
