package timer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestPeriodicTicksAndStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	var count atomic.Int32
	wake := NewWakeup()
	p := New("test", 2*time.Millisecond, func() { count.Add(1) }, wake)
	p.Start(context.Background())
	p.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for count.Load() < 3 {
		if err := wake.Wait(ctx); err != nil {
			t.Fatalf("Timed out waiting for ticks: %v", err)
		}
	}
	p.Stop()
	stopped := count.Load()
	time.Sleep(10 * time.Millisecond)
	if count.Load() != stopped {
		t.Errorf("Timer kept ticking after Stop")
	}
	if avg := p.AverageInterval(); avg <= 0 {
		t.Errorf("Expected a measured interval, got %v", avg)
	}
	p.Stop()
}

func TestStopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	p := New("ctx", time.Millisecond, func() {}, nil)
	p.Start(ctx)
	cancel()
	p.Stop()
}

func TestWakeupCoalesces(t *testing.T) {
	w := NewWakeup()
	w.Signal()
	w.Signal()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := w.Wait(ctx); err != nil {
		t.Fatalf("Expected a pending wake-up, got %v", err)
	}
	if err := w.Wait(ctx); err == nil {
		t.Fatal("Expected the second wait to time out")
	}
}

func TestNoIntervalBeforeTwoTicks(t *testing.T) {
	p := New("idle", time.Hour, func() {}, nil)
	if p.AverageInterval() != 0 {
		t.Error("Expected zero interval before any tick")
	}
	if p.Period() != time.Hour {
		t.Error("Unexpected period")
	}
}
