// Package timer provides the periodic tick sources that stand in for
// hardware timer interrupts, and the wake-up the foreground loop sleeps on.
package timer

import (
	"context"
	"sync"
	"time"

	movingaverage "github.com/RobinUS2/golang-moving-average"
	"github.com/rs/zerolog/log"
)

// Wakeup is signalled after every interrupt-style callback. Signals that
// arrive while nobody is waiting coalesce into one.
type Wakeup struct {
	ch chan struct{}
}

func NewWakeup() *Wakeup {
	return &Wakeup{ch: make(chan struct{}, 1)}
}

func (w *Wakeup) Signal() {
	select {
	case w.ch <- struct{}{}:
	default:
	}
}

// Wait blocks until the next Signal or until ctx is done.
func (w *Wakeup) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-w.ch:
		return nil
	}
}

// Periodic calls a task at a fixed period on its own goroutine. Calls never
// overlap; a tick that overruns delays the next one.
type Periodic struct {
	name   string
	period time.Duration
	task   func()
	wake   *Wakeup

	lock   sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	statsLock sync.Mutex
	interval  *movingaverage.MovingAverage
	lastTick  time.Time
	ticks     int
}

// New returns a stopped timer. wake may be nil.
func New(name string, period time.Duration, task func(), wake *Wakeup) *Periodic {
	return &Periodic{
		name:     name,
		period:   period,
		task:     task,
		wake:     wake,
		interval: movingaverage.New(50),
	}
}

// Start arms the timer. Starting a running timer does nothing.
func (p *Periodic) Start(ctx context.Context) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	go p.loop(ctx, p.done)
}

// Stop disarms the timer and waits for an in-flight task to return.
func (p *Periodic) Stop() {
	p.lock.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.lock.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (p *Periodic) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer log.Debug().Str("timer", p.name).Msg("Timer loop exited")
	log.Debug().Str("timer", p.name).Dur("period", p.period).Msg("Timer loop started")

	ticker := time.NewTicker(p.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			p.recordTick(now)
			p.task()
			if p.wake != nil {
				p.wake.Signal()
			}
		}
	}
}

func (p *Periodic) recordTick(now time.Time) {
	p.statsLock.Lock()
	defer p.statsLock.Unlock()
	if !p.lastTick.IsZero() {
		p.interval.Add(float64(now.Sub(p.lastTick)))
	}
	p.lastTick = now
	p.ticks++
}

// AverageInterval is the mean measured time between recent ticks, 0 until
// two ticks have run.
func (p *Periodic) AverageInterval() time.Duration {
	p.statsLock.Lock()
	defer p.statsLock.Unlock()
	if p.ticks < 2 {
		return 0
	}
	return time.Duration(p.interval.Avg())
}

func (p *Periodic) Period() time.Duration {
	return p.period
}
