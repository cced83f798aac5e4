// Package coordinator is the foreground loop: it sleeps until a tick wakes
// it, refreshes the display every few controller executions, and while the
// controller is disabled runs the operator menus before re-enabling it.
package coordinator

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/datalog"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/motor"
)

type Display interface {
	Clear()
	Write(row, col int, text string)
}

type Inputs interface {
	ReadDigitalInputs() uint8
}

type Controller interface {
	Enabled() bool
	Enable()
	Executions() uint32
	ResetExecutions()
}

type Waiter interface {
	Wait(ctx context.Context) error
}

// View draws one policy's state. Clear lays out the static labels, Render
// fills in current values.
type View interface {
	Clear(d Display)
	Render(d Display)
}

// Menu is a button-driven flow run while the controller is disabled. It
// blocks the whole foreground loop until the operator confirms.
type Menu interface {
	Run(ctx context.Context, p *Panel) error
}

// Cues plays operator feedback sounds.
type Cues interface {
	Play(path string)
}

type Config struct {
	RefreshExecutions uint32 `yaml:"refresh_executions"`
	// Sounds played when a run finishes and when it starts again.
	DoneSound  string `yaml:"done_sound"`
	StartSound string `yaml:"start_sound"`
}

func DefaultConfig() Config {
	return Config{RefreshExecutions: 5}
}

type Coordinator struct {
	cfg    Config
	ctrl   Controller
	wake   Waiter
	panel  *Panel
	motors motor.Driver
	view   View
	menus  []Menu
	log    *datalog.Buffer
	cues   Cues
}

// New returns a coordinator; log and cues may be nil.
func New(cfg Config, ctrl Controller, wake Waiter, panel *Panel, motors motor.Driver, view View, log *datalog.Buffer, cues Cues, menus ...Menu) *Coordinator {
	if cfg.RefreshExecutions == 0 {
		cfg.RefreshExecutions = 1
	}
	return &Coordinator{
		cfg:    cfg,
		ctrl:   ctrl,
		wake:   wake,
		panel:  panel,
		motors: motors,
		view:   view,
		menus:  menus,
		log:    log,
		cues:   cues,
	}
}

// Run loops until ctx is done or a menu fails.
func (c *Coordinator) Run(ctx context.Context) error {
	c.panel.Display.Clear()
	c.view.Clear(c.panel.Display)
	for {
		if err := c.wake.Wait(ctx); err != nil {
			return err
		}
		if c.ctrl.Executions() >= c.cfg.RefreshExecutions {
			c.view.Render(c.panel.Display)
			c.ctrl.ResetExecutions()
		}
		if c.ctrl.Enabled() {
			continue
		}

		c.view.Render(c.panel.Display)
		c.motors.SetMotorDuty(motor.Coast, 0, 0)
		c.play(c.cfg.DoneSound)
		log.Info().Msg("Controller disabled, running menus")
		for _, m := range c.menus {
			if err := m.Run(ctx, c.panel); err != nil {
				return err
			}
		}
		c.panel.Display.Clear()
		c.view.Clear(c.panel.Display)
		if c.log != nil {
			c.log.Reset()
		}
		c.ctrl.ResetExecutions()
		c.ctrl.Enable()
		c.play(c.cfg.StartSound)
		log.Info().Msg("Controller re-enabled")
	}
}

func (c *Coordinator) play(path string) {
	if c.cues != nil {
		c.cues.Play(path)
	}
}

// Panel is the operator's side of the robot: the display plus the bump
// switches used as keys and the switch that confirms.
type Panel struct {
	Display  Display
	Bumps    Inputs
	Switches Inputs
	Confirm  uint8
	// Sleep is the foreground delay; tests replace it.
	Sleep func(time.Duration)
}

const pollInterval = 10 * time.Millisecond

func (p *Panel) confirmed() bool {
	return p.Switches.ReadDigitalInputs()&p.Confirm != 0
}

func (p *Panel) pause(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.Sleep(d)
	return nil
}

// waitRelease blocks until no bump or confirm switch is held.
func (p *Panel) waitRelease(ctx context.Context) error {
	for p.Bumps.ReadDigitalInputs() != 0 || p.confirmed() {
		if err := p.pause(ctx, pollInterval); err != nil {
			return err
		}
	}
	return nil
}

// waitConfirm blocks until the confirm switch is pressed and released.
func (p *Panel) waitConfirm(ctx context.Context) error {
	for !p.confirmed() {
		if err := p.pause(ctx, pollInterval); err != nil {
			return err
		}
	}
	return p.waitRelease(ctx)
}
