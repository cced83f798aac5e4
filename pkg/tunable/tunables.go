// Package tunable holds runtime-adjustable integer parameters shared between
// the foreground menus and the control tick.
package tunable

import (
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

type Tunable struct {
	Name     string
	Min, Max int64

	value atomic.Int64
}

// Add moves the value by delta, staying within [Min, Max], and returns the
// new value.
func (t *Tunable) Add(delta int) int {
	for {
		old := t.value.Load()
		newV := clamp(old+int64(delta), t.Min, t.Max)
		if t.value.CompareAndSwap(old, newV) {
			log.Debug().Str("tunable", t.Name).Int64("value", newV).Msg("Tunable adjusted")
			return int(newV)
		}
	}
}

func (t *Tunable) Get() int {
	return int(t.value.Load())
}

func (t *Tunable) Get32() int32 {
	return int32(t.value.Load())
}

func (t *Tunable) Set(v int) {
	t.value.Store(clamp(int64(v), t.Min, t.Max))
}

func clamp(v, min, max int64) int64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

type Tunables struct {
	All      []*Tunable
	selected int
}

func (t *Tunables) Create(name string, value, min, max int) *Tunable {
	newTunable := &Tunable{
		Name: name,
		Min:  int64(min),
		Max:  int64(max),
	}
	newTunable.Set(value)
	t.All = append(t.All, newTunable)
	return newTunable
}

func (t *Tunables) SelectNext() {
	t.selected++
	if t.selected >= len(t.All) {
		t.selected = 0
	}
	log.Debug().Str("tunable", t.Current().Name).Int("value", t.Current().Get()).Msg("Tunable selected")
}

func (t *Tunables) SelectPrev() {
	t.selected--
	if t.selected < 0 {
		t.selected = len(t.All) - 1
	}
	log.Debug().Str("tunable", t.Current().Name).Int("value", t.Current().Get()).Msg("Tunable selected")
}

func (t *Tunables) Current() *Tunable {
	return t.All[t.selected]
}
