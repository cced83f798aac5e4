// Package control runs one control policy at a fixed tick and owns the
// enable flag and executions counter the foreground loop polls.
package control

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/constraints"
)

// Policy is a control strategy. Step is called once per tick while the
// controller is enabled and returns false once the policy has finished.
// Reset clears integrators, FSM state and position.
type Policy interface {
	Name() string
	Step() bool
	Reset()
}

// Inputs reads a bitmask of discrete inputs.
type Inputs interface {
	ReadDigitalInputs() uint8
}

// Gains are scaled integers: the effective gain is Kp/Divider.
type Gains struct {
	Kp      int32 `yaml:"kp"`
	Ki      int32 `yaml:"ki"`
	Divider int32 `yaml:"divider"`
}

func Clamp[T constraints.Integer](x, min, max T) T {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}

type Controller struct {
	// tickLock serialises Tick against Enable and Disable so a disable
	// never lands half way through a step.
	tickLock sync.Mutex
	policy   Policy

	enabled    atomic.Bool
	executions atomic.Uint32

	emergency     Inputs
	emergencyMask uint8
}

func New(p Policy) *Controller {
	return &Controller{policy: p}
}

// SetEmergencyInput makes any bit of mask read from in disable the
// controller at the start of the next tick.
func (c *Controller) SetEmergencyInput(in Inputs, mask uint8) {
	c.tickLock.Lock()
	defer c.tickLock.Unlock()
	c.emergency = in
	c.emergencyMask = mask
}

func (c *Controller) Policy() Policy {
	return c.policy
}

// Tick runs one step of the policy. It is the periodic timer callback.
func (c *Controller) Tick() {
	if !c.enabled.Load() {
		return
	}
	c.tickLock.Lock()
	defer c.tickLock.Unlock()
	if !c.enabled.Load() {
		return
	}
	if c.emergency != nil && c.emergency.ReadDigitalInputs()&c.emergencyMask != 0 {
		log.Info().Str("policy", c.policy.Name()).Msg("Emergency input, disabling controller")
		c.disableLocked()
		return
	}
	if !c.policy.Step() {
		log.Info().Str("policy", c.policy.Name()).Msg("Policy finished")
		c.enabled.Store(false)
	}
	c.executions.Add(1)
}

// Enable resets the policy and lets subsequent ticks run it.
func (c *Controller) Enable() {
	c.tickLock.Lock()
	defer c.tickLock.Unlock()
	c.policy.Reset()
	c.enabled.Store(true)
}

// Disable stops subsequent ticks and resets the policy. A tick already in
// progress completes first.
func (c *Controller) Disable() {
	c.tickLock.Lock()
	defer c.tickLock.Unlock()
	c.disableLocked()
}

func (c *Controller) disableLocked() {
	c.enabled.Store(false)
	c.policy.Reset()
}

func (c *Controller) Enabled() bool {
	return c.enabled.Load()
}

func (c *Controller) Executions() uint32 {
	return c.executions.Load()
}

func (c *Controller) ResetExecutions() {
	c.executions.Store(0)
}
