package tunable

import "testing"

func TestBounds(t *testing.T) {
	var ts Tunables
	kp := ts.Create("Kp", 500, 0, 1000)
	if kp.Add(600) != 1000 {
		t.Errorf("Expected clamp at max, got %d", kp.Get())
	}
	if kp.Add(-2000) != 0 {
		t.Errorf("Expected clamp at min, got %d", kp.Get())
	}
	kp.Set(5000)
	if kp.Get32() != 1000 {
		t.Errorf("Expected Set to clamp, got %d", kp.Get())
	}
	if ts.Create("x", -5, 0, 10).Get() != 0 {
		t.Error("Expected initial value to be clamped")
	}
}

func TestSelection(t *testing.T) {
	var ts Tunables
	a := ts.Create("a", 1, 0, 10)
	b := ts.Create("b", 2, 0, 10)
	if ts.Current() != a {
		t.Fatal("Expected first tunable selected")
	}
	ts.SelectNext()
	if ts.Current() != b {
		t.Error("Expected b after SelectNext")
	}
	ts.SelectNext()
	if ts.Current() != a {
		t.Error("Expected selection to wrap forwards")
	}
	ts.SelectPrev()
	if ts.Current() != b {
		t.Error("Expected selection to wrap backwards")
	}
}
