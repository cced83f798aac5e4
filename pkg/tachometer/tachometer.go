// Package tachometer tracks wheel encoder steps, pulse periods and
// direction from capture edges.
//
// Edge handlers run on the capture goroutine; every other method may be
// called from any goroutine. Each field is individually atomic, so a reader
// can see steps from one edge and a period from the next.
package tachometer

import (
	"sync/atomic"
	"time"

	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/convert"
)

type Direction int32

const (
	Stopped Direction = iota
	Forward
	Reverse
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "Forward"
	case Reverse:
		return "Reverse"
	default:
		return "Stopped"
	}
}

const DefaultStopTimeout = 250 * time.Millisecond

// Inputs reads the level of the encoder companion channels.
type Inputs interface {
	ReadDigitalInputs() uint8
}

type Encoder struct {
	// previous capture time in the high half, current in the low half.
	times atomic.Uint32
	steps atomic.Int32
	dir   atomic.Int32
	// UnixNano of the latest capture, 0 before the first one.
	last atomic.Int64
}

func (e *Encoder) capture(ts uint16, forward bool, now time.Time) {
	e.times.Store(e.times.Load()<<16 | uint32(ts))
	if forward {
		e.steps.Add(1)
		e.dir.Store(int32(Forward))
	} else {
		e.steps.Add(-1)
		e.dir.Store(int32(Reverse))
	}
	e.last.Store(now.UnixNano())
}

func (e *Encoder) stale(now time.Time, timeout time.Duration) bool {
	last := e.last.Load()
	return last == 0 || now.Sub(time.Unix(0, last)) > timeout
}

// Period is the time between the last two captures in capture ticks,
// modulo the 16-bit timer width.
func (e *Encoder) period() uint16 {
	t := e.times.Load()
	return uint16(t) - uint16(t>>16)
}

type Tachometer struct {
	Left, Right Encoder

	companion           Inputs
	leftMask, rightMask uint8
	stopTimeout         time.Duration

	// Now is the clock used for staleness; tests replace it.
	Now func() time.Time
}

// New returns a tachometer that samples companion with the given masks to
// decide direction. A wheel with no capture for stopTimeout reads as
// Stopped with a zero period.
func New(companion Inputs, leftMask, rightMask uint8, stopTimeout time.Duration) *Tachometer {
	if stopTimeout <= 0 {
		stopTimeout = DefaultStopTimeout
	}
	return &Tachometer{
		companion:   companion,
		leftMask:    leftMask,
		rightMask:   rightMask,
		stopTimeout: stopTimeout,
		Now:         time.Now,
	}
}

// LeftEdge is the capture handler for the left primary channel.
func (t *Tachometer) LeftEdge(ts uint16) {
	high := t.companion.ReadDigitalInputs()&t.leftMask != 0
	t.Left.capture(ts, high, t.Now())
}

// RightEdge is the capture handler for the right primary channel.
func (t *Tachometer) RightEdge(ts uint16) {
	high := t.companion.ReadDigitalInputs()&t.rightMask != 0
	t.Right.capture(ts, high, t.Now())
}

func (t *Tachometer) ResetSteps() {
	t.Left.steps.Store(0)
	t.Right.steps.Store(0)
}

func (t *Tachometer) GetPeriods() (left, right uint16) {
	now := t.Now()
	if !t.Left.stale(now, t.stopTimeout) {
		left = t.Left.period()
	}
	if !t.Right.stale(now, t.stopTimeout) {
		right = t.Right.period()
	}
	return
}

func (t *Tachometer) GetSteps() (left, right int32) {
	return t.Left.steps.Load(), t.Right.steps.Load()
}

// GetDistances returns the travel of each wheel in mm since the last
// ResetSteps.
func (t *Tachometer) GetDistances() (left, right int32) {
	l, r := t.GetSteps()
	return convert.StepsToMM(l), convert.StepsToMM(r)
}

func (t *Tachometer) GetDirections() (left, right Direction) {
	now := t.Now()
	left, right = Stopped, Stopped
	if !t.Left.stale(now, t.stopTimeout) {
		left = Direction(t.Left.dir.Load())
	}
	if !t.Right.stale(now, t.stopTimeout) {
		right = Direction(t.Right.dir.Load())
	}
	return
}
