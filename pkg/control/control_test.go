package control

import (
	"testing"

	"pgregory.net/rapid"
)

type fakePolicy struct {
	steps   int
	resets  int
	stepsTo int
}

func (f *fakePolicy) Name() string { return "fake" }

func (f *fakePolicy) Step() bool {
	f.steps++
	return f.stepsTo == 0 || f.steps < f.stepsTo
}

func (f *fakePolicy) Reset() { f.resets++ }

type fakeInputs uint8

func (f *fakeInputs) ReadDigitalInputs() uint8 { return uint8(*f) }

func TestDisabledControllerDoesNotStep(t *testing.T) {
	p := &fakePolicy{}
	c := New(p)
	c.Tick()
	if p.steps != 0 || c.Executions() != 0 {
		t.Errorf("Disabled controller stepped: steps=%d executions=%d", p.steps, c.Executions())
	}

	c.Enable()
	if p.resets != 1 {
		t.Errorf("Expected Enable to reset the policy, resets=%d", p.resets)
	}
	c.Tick()
	c.Tick()
	if p.steps != 2 || c.Executions() != 2 {
		t.Errorf("Expected 2 steps and executions, got %d and %d", p.steps, c.Executions())
	}

	c.Disable()
	if p.resets != 2 {
		t.Errorf("Expected Disable to reset the policy, resets=%d", p.resets)
	}
	c.Tick()
	if p.steps != 2 {
		t.Errorf("Disabled controller stepped")
	}

	c.ResetExecutions()
	if c.Executions() != 0 {
		t.Errorf("Expected executions reset")
	}
}

func TestEmergencyInputDisables(t *testing.T) {
	p := &fakePolicy{}
	c := New(p)
	var sw fakeInputs
	c.SetEmergencyInput(&sw, 0x03)
	c.Enable()
	c.Tick()

	sw = 0x04
	c.Tick()
	if !c.Enabled() {
		t.Fatal("Unmasked input disabled the controller")
	}

	sw = 0x02
	c.Tick()
	if c.Enabled() {
		t.Fatal("Emergency input did not disable the controller")
	}
	if p.steps != 2 {
		t.Errorf("Expected the emergency tick not to step, steps=%d", p.steps)
	}
	if p.resets != 2 {
		t.Errorf("Expected the emergency to reset the policy, resets=%d", p.resets)
	}
}

func TestFinishedPolicyDisablesWithoutReset(t *testing.T) {
	p := &fakePolicy{stepsTo: 3}
	c := New(p)
	c.Enable()
	for i := 0; i < 5; i++ {
		c.Tick()
	}
	if c.Enabled() {
		t.Error("Expected finished policy to disable the controller")
	}
	if p.steps != 3 || c.Executions() != 3 {
		t.Errorf("Expected 3 steps, got %d (executions %d)", p.steps, c.Executions())
	}
	if p.resets != 1 {
		t.Errorf("Finished policy should keep its state, resets=%d", p.resets)
	}
}

func TestClamp(t *testing.T) {
	if Clamp(-5, 0, 999) != 0 || Clamp(1200, 0, 999) != 999 || Clamp(500, 0, 999) != 500 {
		t.Error("Clamp out of range")
	}
	if Clamp[int32](50, 50, 650) != 50 || Clamp[int32](650, 50, 650) != 650 {
		t.Error("Clamp should keep the limits themselves")
	}
}

func TestPropertyClampIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		min := rapid.Int32Range(-1000, 1000).Draw(t, "min")
		max := rapid.Int32Range(min, 2000).Draw(t, "max")
		x := rapid.Int32().Draw(t, "x")

		once := Clamp(x, min, max)
		if once < min || once > max {
			t.Fatalf("Clamp(%d) = %d outside [%d, %d]", x, once, min, max)
		}
		if twice := Clamp(once, min, max); twice != once {
			t.Fatalf("Clamp not idempotent: %d then %d", once, twice)
		}
	})
}
