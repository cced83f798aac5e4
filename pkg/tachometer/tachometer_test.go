package tachometer

import (
	"testing"
	"time"

	"pgregory.net/rapid"
)

type fakeInputs struct {
	level uint8
}

func (f *fakeInputs) ReadDigitalInputs() uint8 {
	return f.level
}

const (
	leftB  = 0x01
	rightB = 0x02
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.t
}

func newTestTach() (*Tachometer, *fakeInputs, *fakeClock) {
	in := &fakeInputs{}
	clock := &fakeClock{t: time.Unix(1000, 0)}
	tach := New(in, leftB, rightB, 100*time.Millisecond)
	tach.Now = clock.Now
	return tach, in, clock
}

func TestStepsFollowCompanionLevel(t *testing.T) {
	tach, in, _ := newTestTach()
	in.level = leftB
	for i := 0; i < 5; i++ {
		tach.LeftEdge(uint16(i * 100))
	}
	in.level = 0
	for i := 0; i < 2; i++ {
		tach.LeftEdge(uint16(500 + i*100))
	}
	l, r := tach.GetSteps()
	if l != 3 || r != 0 {
		t.Errorf("Expected steps 3, 0; got %d, %d", l, r)
	}
	dl, dr := tach.GetDirections()
	if dl != Reverse || dr != Stopped {
		t.Errorf("Expected Reverse, Stopped; got %v, %v", dl, dr)
	}
}

func TestWheelsAreIndependent(t *testing.T) {
	tach, in, _ := newTestTach()
	in.level = rightB
	tach.LeftEdge(10)
	tach.RightEdge(10)
	l, r := tach.GetSteps()
	if l != -1 || r != 1 {
		t.Errorf("Expected -1, 1; got %d, %d", l, r)
	}
	dl, dr := tach.GetDirections()
	if dl != Reverse || dr != Forward {
		t.Errorf("Expected Reverse, Forward; got %v, %v", dl, dr)
	}
}

func TestPeriodWrapsAt16Bits(t *testing.T) {
	tach, in, _ := newTestTach()
	in.level = leftB | rightB
	tach.LeftEdge(65000)
	tach.LeftEdge(500)
	tach.RightEdge(1000)
	tach.RightEdge(4125)
	l, r := tach.GetPeriods()
	if l != 1036 {
		t.Errorf("Expected wrapped period 1036, got %d", l)
	}
	if r != 3125 {
		t.Errorf("Expected period 3125, got %d", r)
	}
}

func TestStaleWheelReadsStopped(t *testing.T) {
	tach, in, clock := newTestTach()
	if l, r := tach.GetDirections(); l != Stopped || r != Stopped {
		t.Errorf("Expected Stopped before any capture, got %v, %v", l, r)
	}

	in.level = leftB
	tach.LeftEdge(100)
	tach.LeftEdge(3225)
	clock.t = clock.t.Add(100 * time.Millisecond)
	if l, _ := tach.GetDirections(); l != Forward {
		t.Errorf("Expected Forward at the timeout, got %v", l)
	}
	if l, _ := tach.GetPeriods(); l != 3125 {
		t.Errorf("Expected period 3125 at the timeout, got %d", l)
	}

	clock.t = clock.t.Add(time.Millisecond)
	if l, _ := tach.GetDirections(); l != Stopped {
		t.Errorf("Expected Stopped after the timeout, got %v", l)
	}
	if l, _ := tach.GetPeriods(); l != 0 {
		t.Errorf("Expected zero period after the timeout, got %d", l)
	}
	// Steps survive going stale.
	if l, _ := tach.GetSteps(); l != 2 {
		t.Errorf("Expected 2 steps, got %d", l)
	}
}

func TestResetAndDistances(t *testing.T) {
	tach, in, _ := newTestTach()
	in.level = leftB | rightB
	for i := 0; i < 360; i++ {
		tach.LeftEdge(uint16(i))
		tach.RightEdge(uint16(i))
	}
	in.level = leftB
	for i := 0; i < 720; i++ {
		tach.RightEdge(uint16(i))
	}
	l, r := tach.GetDistances()
	if l != 220 || r != -220 {
		t.Errorf("Expected 220, -220 mm; got %d, %d", l, r)
	}
	tach.ResetSteps()
	if l, r := tach.GetSteps(); l != 0 || r != 0 {
		t.Errorf("Expected zero steps after reset, got %d, %d", l, r)
	}
}

func TestPropertyStepsAreAlgebraicSum(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		tach, in, _ := newTestTach()
		edges := rapid.SliceOf(rapid.Bool()).Draw(rt, "edges")
		var expected int32
		for i, forward := range edges {
			if forward {
				in.level = rightB
				expected++
			} else {
				in.level = 0
				expected--
			}
			tach.RightEdge(uint16(i))
		}
		if _, r := tach.GetSteps(); r != expected {
			rt.Fatalf("expected %d steps, got %d", expected, r)
		}
	})
}
