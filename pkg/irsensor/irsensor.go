// Package irsensor samples the three IR distance sensors at a fast rate,
// low-pass filters them and publishes the latest distances and scenario.
package irsensor

import (
	"errors"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/classifier"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/convert"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/lpf"
)

// Sensor order used by every array in this package.
const (
	Left = iota
	Center
	Right
)

// ADC triggers a conversion on the given channels and returns one raw count
// per channel.
type ADC interface {
	ReadRawADC(channels []int) ([]uint32, error)
}

type Config struct {
	// Channels are the ADC channels for left, center and right.
	Channels     [3]int                   `yaml:"channels"`
	FilterWindow int                      `yaml:"filter_window"`
	Calibrations [3]convert.IRCalibration `yaml:"calibrations"`
}

func DefaultConfig() Config {
	return Config{
		Channels:     [3]int{0, 1, 2},
		FilterWindow: 8,
		Calibrations: [3]convert.IRCalibration{convert.DefaultLeft, convert.DefaultCenter, convert.DefaultRight},
	}
}

// Sampler's filters belong to the sampling goroutine. The published values
// are separate atomics, so a reader may see left from one tick and right
// from the next.
type Sampler struct {
	adc      ADC
	channels []int
	cals     [3]convert.IRCalibration
	window   int
	filters  [3]lpf.Filter

	filtered  [3]atomic.Uint32
	distances [3]atomic.Int32
	scenario  atomic.Uint32
	done      atomic.Bool
	errors    atomic.Uint32
}

func New(cfg Config, adc ADC) *Sampler {
	return &Sampler{
		adc:      adc,
		channels: cfg.Channels[:],
		cals:     cfg.Calibrations,
		window:   cfg.FilterWindow,
	}
}

// Prime takes one reading and fills every filter window with it. It must be
// called before the first Tick.
func (s *Sampler) Prime() error {
	raw, err := s.read()
	if err != nil {
		return err
	}
	for i := range s.filters {
		s.filters[i].Init(raw[i], s.window)
	}
	s.publish(raw)
	return nil
}

// Tick is the sampling timer callback: read, filter, convert and classify.
// A failed conversion keeps the previous outputs.
func (s *Sampler) Tick() {
	raw, err := s.read()
	if err != nil {
		if s.errors.Add(1) == 1 {
			log.Warn().Err(err).Msg("IR sample failed")
		}
		return
	}
	var out [3]uint32
	for i := range s.filters {
		out[i] = s.filters[i].Update(raw[i])
	}
	s.publish(out)
}

func (s *Sampler) read() ([3]uint32, error) {
	var out [3]uint32
	raw, err := s.adc.ReadRawADC(s.channels)
	if err != nil {
		return out, err
	}
	if len(raw) < 3 {
		return out, errors.New("short ADC read")
	}
	copy(out[:], raw)
	return out, nil
}

func (s *Sampler) publish(filtered [3]uint32) {
	var mm [3]int32
	for i, f := range filtered {
		s.filtered[i].Store(f)
		mm[i] = s.cals[i].DistanceFromADC(f)
		s.distances[i].Store(mm[i])
	}
	s.scenario.Store(uint32(classifier.Classify(mm[Left], mm[Center], mm[Right])))
	s.done.Store(true)
}

func (s *Sampler) Distances() (left, center, right int32) {
	return s.distances[Left].Load(), s.distances[Center].Load(), s.distances[Right].Load()
}

func (s *Sampler) Filtered() (left, center, right uint32) {
	return s.filtered[Left].Load(), s.filtered[Center].Load(), s.filtered[Right].Load()
}

func (s *Sampler) Scenario() classifier.Scenario {
	return classifier.Scenario(s.scenario.Load())
}

// TakeDone reports whether a sample has completed since the last call.
func (s *Sampler) TakeDone() bool {
	return s.done.CompareAndSwap(true, false)
}

// Errors counts failed ADC reads.
func (s *Sampler) Errors() uint32 {
	return s.errors.Load()
}
