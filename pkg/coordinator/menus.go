package coordinator

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/datalog"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/tunable"
)

const (
	firstRepeatDelay = 200 * time.Millisecond
	fastRepeatDelay  = 15 * time.Millisecond
	// Held iterations before the repeat speeds up.
	fastRepeatAfter = 5
)

// TuneMenu adjusts a set of tunables with the bump switches: Inc and Dec
// step the selected value, Next and Prev move the selection.
type TuneMenu struct {
	Title    string
	Tunables *tunable.Tunables
	Step     int

	Inc, Dec, Next, Prev uint8
}

func (m *TuneMenu) Run(ctx context.Context, p *Panel) error {
	if m.Tunables == nil || len(m.Tunables.All) == 0 {
		return nil
	}
	step := m.Step
	if step == 0 {
		step = 1
	}
	p.Display.Clear()
	p.Display.Write(0, 0, m.Title)
	p.Display.Write(5, 0, "SW to run")
	if err := p.waitRelease(ctx); err != nil {
		return err
	}

	held := 0
	for !p.confirmed() {
		t := m.Tunables.Current()
		p.Display.Write(2, 0, fmt.Sprintf("%-6s%6d", t.Name, t.Get()))

		bumps := p.Bumps.ReadDigitalInputs()
		delay := pollInterval
		switch {
		case bumps&m.Inc != 0:
			t.Add(step)
			held++
			delay = repeatDelay(held)
		case bumps&m.Dec != 0:
			t.Add(-step)
			held++
			delay = repeatDelay(held)
		case bumps&m.Next != 0:
			m.Tunables.SelectNext()
			held = 0
			if err := p.waitRelease(ctx); err != nil {
				return err
			}
		case bumps&m.Prev != 0:
			m.Tunables.SelectPrev()
			held = 0
			if err := p.waitRelease(ctx); err != nil {
				return err
			}
		default:
			held = 0
		}
		if err := p.pause(ctx, delay); err != nil {
			return err
		}
	}
	for _, t := range m.Tunables.All {
		log.Info().Str("tunable", t.Name).Int("value", t.Get()).Msg("Tuned")
	}
	return p.waitRelease(ctx)
}

func repeatDelay(held int) time.Duration {
	if held > fastRepeatAfter {
		return fastRepeatDelay
	}
	return firstRepeatDelay
}

// ToggleMenu flips a boolean with any bump switch.
type ToggleMenu struct {
	Prompt  string
	On, Off string
	Get     func() bool
	Set     func(bool)
}

func (m *ToggleMenu) Run(ctx context.Context, p *Panel) error {
	p.Display.Clear()
	p.Display.Write(0, 0, m.Prompt)
	p.Display.Write(5, 0, "SW to accept")
	if err := p.waitRelease(ctx); err != nil {
		return err
	}
	for !p.confirmed() {
		label := m.Off
		if m.Get() {
			label = m.On
		}
		p.Display.Write(2, 0, fmt.Sprintf("%-12s", label))
		if p.Bumps.ReadDigitalInputs() != 0 {
			m.Set(!m.Get())
			if err := p.waitRelease(ctx); err != nil {
				return err
			}
			continue
		}
		if err := p.pause(ctx, pollInterval); err != nil {
			return err
		}
	}
	return p.waitRelease(ctx)
}

// ExportMenu offers to send the data log to Out, repeating until the
// operator declines.
type ExportMenu struct {
	Log *datalog.Buffer
	Out io.Writer
}

func (m *ExportMenu) Run(ctx context.Context, p *Panel) error {
	if m.Log == nil || m.Out == nil || m.Log.Len() == 0 {
		return nil
	}
	for {
		send := false
		ask := &ToggleMenu{
			Prompt: "Tx Buffer?",
			On:     "Y",
			Off:    "N",
			Get:    func() bool { return send },
			Set:    func(v bool) { send = v },
		}
		if err := ask.Run(ctx, p); err != nil {
			return err
		}
		if !send {
			return nil
		}

		p.Display.Clear()
		p.Display.Write(0, 0, "Sending...")
		if err := m.Log.Export(m.Out); err != nil {
			log.Error().Err(err).Msg("Export failed")
			p.Display.Write(2, 0, "TX failed")
		} else {
			log.Info().
				Str("session", m.Log.Session().String()).
				Int("records", m.Log.Len()).
				Msg("Exported data log")
			p.Display.Write(2, 0, "TX is Done")
		}
		p.Display.Write(5, 0, "SW to go on")
		if err := p.waitConfirm(ctx); err != nil {
			return err
		}
	}
}

// ConfirmMenu holds the robot until the operator presses the switch.
type ConfirmMenu struct {
	Prompt string
}

func (m *ConfirmMenu) Run(ctx context.Context, p *Panel) error {
	p.Display.Clear()
	p.Display.Write(0, 0, m.Prompt)
	p.Display.Write(5, 0, "SW to start")
	if err := p.waitRelease(ctx); err != nil {
		return err
	}
	return p.waitConfirm(ctx)
}
