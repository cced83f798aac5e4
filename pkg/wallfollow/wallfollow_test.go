package wallfollow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/datalog"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/motor"
)

type fakeSensors struct {
	left, center, right int32
}

func (f *fakeSensors) Distances() (int32, int32, int32) {
	return f.left, f.center, f.right
}

type fakeMotors struct {
	calls int
	fn    motor.Function
	l, r  uint16
}

func (f *fakeMotors) SetMotorDuty(fn motor.Function, left, right uint16) {
	f.calls++
	f.fn, f.l, f.r = fn, left, right
}

func TestCloserToRightWall(t *testing.T) {
	sensors := &fakeSensors{left: 300, center: 700, right: 100}
	m := &fakeMotors{}
	log := datalog.New(10, LogChannels...)
	cfg := DefaultConfig()
	f := New(cfg, sensors, m, log)
	f.SetActuatorEnabled(true)
	f.Step()

	s := f.Snapshot()
	assert.Equal(t, int32(-200), s.Error)
	assert.Greater(t, s.DutyL, cfg.Base)
	assert.Less(t, s.DutyR, cfg.Base)
	assert.Equal(t, s.RawL-cfg.Base, -(s.RawR - cfg.Base), "correction must be symmetric")
	assert.Equal(t, int32(550), s.DutyL)
	assert.Equal(t, int32(150), s.DutyR)
	assert.Equal(t, 1, m.calls)
	assert.Equal(t, motor.Forward, m.fn)
	assert.Equal(t, uint16(550), m.l)
	assert.Equal(t, uint16(150), m.r)
	assert.Equal(t, []int32{-200, 550, 150}, log.Record(0))
}

func TestCorrectionTruncatesOnce(t *testing.T) {
	sensors := &fakeSensors{left: 203, center: 700, right: 200}
	cfg := DefaultConfig()
	cfg.Kp = 50
	f := New(cfg, sensors, &fakeMotors{}, nil)
	f.Step()
	s := f.Snapshot()
	// 50*-3/100 = -1.5 truncates to -1 for both wheels.
	assert.Equal(t, int32(-1), s.Correction)
	assert.Equal(t, int32(351), s.DutyL)
	assert.Equal(t, int32(349), s.DutyR)
}

func TestClampedToSwing(t *testing.T) {
	sensors := &fakeSensors{left: 800, center: 700, right: 50}
	cfg := DefaultConfig()
	f := New(cfg, sensors, &fakeMotors{}, nil)
	f.Step()
	s := f.Snapshot()
	assert.Equal(t, int32(1100), s.RawL)
	assert.Equal(t, int32(-400), s.RawR)
	assert.Equal(t, cfg.Base+cfg.Swing, s.DutyL)
	assert.Equal(t, cfg.Base-cfg.Swing, s.DutyR)
}

func TestActuatorGate(t *testing.T) {
	sensors := &fakeSensors{left: 200, center: 700, right: 200}
	m := &fakeMotors{}
	log := datalog.New(10, LogChannels...)
	f := New(DefaultConfig(), sensors, m, log)
	f.Step()
	assert.Equal(t, 0, m.calls, "motors must stay off until the actuator is enabled")
	assert.Equal(t, 1, log.Len(), "sensor data is still recorded")

	f.SetActuatorEnabled(true)
	assert.True(t, f.ActuatorEnabled())
	f.Step()
	assert.Equal(t, 1, m.calls)
	assert.Equal(t, uint16(350), m.l)

	f.Reset()
	assert.Equal(t, Snapshot{}, f.Snapshot())
}
