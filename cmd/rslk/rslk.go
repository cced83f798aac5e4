package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/ads1115"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/config"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/control"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/coordinator"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/datalog"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/irsensor"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/navigator"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/screen"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/sound"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/speedcontrol"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/tachometer"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/telemetry"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/timer"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/tunable"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/wallfollow"
)

var CLI struct {
	Config   string `help:"Configuration file." default:"/cfg/rslk.yaml" type:"path"`
	Dummy    bool   `help:"Run against the in-memory chassis simulator, driven from stdin."`
	LogLevel string `help:"Minimum log level." default:"info" enum:"debug,info,warn,error"`
	Pretty   bool   `help:"Human-readable console logging."`

	Speed SpeedCmd `cmd:"" help:"Hold both wheels at a target speed with the PI controller."`
	Wall  WallCmd  `cmd:"" help:"Follow the corridor walls using the IR sensors."`
	Nav   NavCmd   `cmd:"" help:"Run the navigation state table until it stops."`
}

func main() {
	fmt.Println("---- RSLK ----")
	fmt.Println("GOMAXPROCS", runtime.GOMAXPROCS(0))

	k := kong.Parse(&CLI,
		kong.Name("rslk"),
		kong.Description("Periodic motor and sensor control for the RSLK chassis."),
	)
	setUpLogging()

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	log.Info().Interface("config", cfg).Msg("Using config")
	if err := config.WriteInUse(CLI.Config, cfg); err != nil {
		log.Warn().Err(err).Msg("Failed to record config in use")
	}

	// Our global context, we cancel it to trigger shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		s := <-signals
		log.Info().Stringer("signal", s).Msg("Signal received, shutting down")
		cancel()
		time.Sleep(2 * time.Second)
		os.Exit(0)
	}()

	rt, err := newRuntime(ctx, cfg, CLI.Dummy)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up hardware")
	}
	defer rt.Close()

	err = k.Run(rt)
	if err != nil && errors.Cause(err) != context.Canceled {
		log.Error().Err(err).Msg("Controller failed")
		rt.Close()
		os.Exit(1)
	}
}

func setUpLogging() {
	level, err := zerolog.ParseLevel(CLI.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if CLI.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.StampMilli})
	}
}

// Runtime is the hardware and foreground plumbing shared by every policy.
type Runtime struct {
	ctx   context.Context
	cfg   config.Config
	hw    hardware.Interface
	dummy *hardware.Dummy
	tach  *tachometer.Tachometer
	wake  *timer.Wakeup

	screen *screen.Screen
	sounds *sound.Player
	export io.Writer

	closers []io.Closer
	closed  bool
}

func newRuntime(ctx context.Context, cfg config.Config, dummy bool) (*Runtime, error) {
	rt := &Runtime{
		ctx:    ctx,
		cfg:    cfg,
		wake:   timer.NewWakeup(),
		screen: screen.New(),
		sounds: sound.InitSound(),
	}
	if dummy {
		rt.dummy = hardware.NewDummy()
		rt.hw = rt.dummy
	} else {
		adc, err := ads1115.NewI2C(cfg.ADC.Bus, cfg.ADC.Addr)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open ADC on %s", cfg.ADC.Bus)
		}
		hw, err := hardware.New(cfg.Pins, adc)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open GPIO")
		}
		rt.hw = hw
	}

	rt.tach = tachometer.New(rt.hw.EncoderCompanions(), hardware.LeftEncoderB, hardware.RightEncoderB, cfg.Timing.StopTimeout)
	rt.hw.EdgeCaptureInit(
		func(ts uint16) {
			rt.tach.LeftEdge(ts)
			rt.wake.Signal()
		},
		func(ts uint16) {
			rt.tach.RightEdge(ts)
			rt.wake.Signal()
		},
	)

	sinks := []io.Writer{os.Stdout}
	if dev := cfg.Telemetry.SerialDevice; dev != "" {
		s, err := telemetry.OpenSerial(dev, cfg.Telemetry.Baud)
		if err != nil {
			log.Warn().Err(err).Msg("Serial telemetry unavailable")
		} else {
			sinks = append(sinks, s)
			rt.closers = append(rt.closers, s)
		}
	}
	if broker := cfg.Telemetry.MQTTBroker; broker != "" {
		m, err := telemetry.DialMQTT(broker, cfg.Telemetry.MQTTClientID, cfg.Telemetry.MQTTTopic)
		if err != nil {
			log.Warn().Err(err).Msg("MQTT telemetry unavailable")
		} else {
			sinks = append(sinks, m)
			rt.closers = append(rt.closers, m)
		}
	}
	rt.export = io.MultiWriter(sinks...)
	return rt, nil
}

func (rt *Runtime) Close() {
	if rt.closed {
		return
	}
	rt.closed = true
	for _, c := range rt.closers {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("Close failed")
		}
	}
	rt.sounds.Close()
}

func (rt *Runtime) tuneMenu(title string, ts *tunable.Tunables) coordinator.Menu {
	return &coordinator.TuneMenu{
		Title:    title,
		Tunables: ts,
		Step:     rt.cfg.TuneStep,
		Inc:      hardware.Bump6,
		Dec:      hardware.Bump5,
		Next:     hardware.Bump2,
		Prev:     hardware.Bump1,
	}
}

func (rt *Runtime) exportMenu(buf *datalog.Buffer) coordinator.Menu {
	return &coordinator.ExportMenu{Log: buf, Out: rt.export}
}

// run drives one policy until ctx is done: hardware, controller timer,
// optional IR sampling timer, display and then the foreground loop.
func (rt *Runtime) run(policy control.Policy, view coordinator.View, buf *datalog.Buffer, sampler *irsensor.Sampler, menus ...coordinator.Menu) error {
	ctx, cancel := context.WithCancel(rt.ctx)

	ctrl := control.New(policy)
	ctrl.SetEmergencyInput(rt.hw.Switches(), hardware.SW1|hardware.SW2)

	if err := rt.hw.Start(ctx); err != nil {
		cancel()
		return errors.Wrap(err, "failed to start hardware")
	}
	var timers []*timer.Periodic
	defer func() {
		cancel()
		for _, t := range timers {
			t.Stop()
		}
		rt.hw.Shutdown()
	}()

	if sampler != nil {
		if err := sampler.Prime(); err != nil {
			return errors.Wrap(err, "failed to prime IR filters")
		}
		adc := timer.New("adc", rt.cfg.Timing.SamplingPeriod, sampler.Tick, nil)
		adc.Start(ctx)
		timers = append(timers, adc)
	}
	tick := timer.New("controller", rt.cfg.Timing.ControllerPeriod, ctrl.Tick, rt.wake)
	tick.Start(ctx)
	timers = append(timers, tick)

	if rt.cfg.Screen != "" && rt.dummy == nil {
		go rt.screen.Loop(ctx, rt.cfg.Screen)
	}
	if rt.dummy != nil {
		go runConsole(ctx, rt.dummy, cancel)
	}

	panel := &coordinator.Panel{
		Display:  rt.screen,
		Bumps:    rt.hw.Bumps(),
		Switches: rt.hw.Switches(),
		Confirm:  hardware.SW1 | hardware.SW2,
		Sleep:    time.Sleep,
	}
	coord := coordinator.New(rt.cfg.Coordinator, ctrl, rt.wake, panel, rt.hw.Motors(), view, buf, rt.sounds, menus...)
	log.Info().Str("policy", policy.Name()).Msg("Starting")
	err := coord.Run(ctx)
	log.Info().
		Str("policy", policy.Name()).
		Dur("avg_period", tick.AverageInterval()).
		Msg("Stopped")
	return err
}

type SpeedCmd struct {
	Target int32 `help:"Target speed in rpm; overrides the config."`
}

func (c *SpeedCmd) Run(rt *Runtime) error {
	cfg := rt.cfg.Speed
	if c.Target != 0 {
		cfg.TargetRPM = c.Target
	}
	buf := datalog.New(cfg.LogCapacity, speedcontrol.LogChannels...)
	pi := speedcontrol.New(cfg, rt.tach, rt.hw.Motors(), buf)
	return rt.run(pi, coordinator.SpeedView{Source: pi}, buf, nil,
		rt.exportMenu(buf),
		rt.tuneMenu("Speed PI", &pi.Tunables),
	)
}

type WallCmd struct {
	Actuate bool `help:"Drive the motors from the start instead of only logging."`
}

func (c *WallCmd) Run(rt *Runtime) error {
	sampler := irsensor.New(rt.cfg.IR, rt.hw.ADC())
	buf := datalog.New(rt.cfg.Wall.LogCapacity, wallfollow.LogChannels...)
	wf := wallfollow.New(rt.cfg.Wall, sampler, rt.hw.Motors(), buf)
	wf.SetActuatorEnabled(c.Actuate)
	return rt.run(wf, coordinator.WallView{Source: wf, Scenario: sampler}, buf, sampler,
		rt.exportMenu(buf),
		rt.tuneMenu("Wall follow", &wf.Tunables),
		&coordinator.ToggleMenu{
			Prompt: "Motors?",
			On:     "Drive",
			Off:    "Watch only",
			Get:    wf.ActuatorEnabled,
			Set:    wf.SetActuatorEnabled,
		},
	)
}

type NavCmd struct{}

func (c *NavCmd) Run(rt *Runtime) error {
	buf := datalog.New(rt.cfg.Nav.LogCapacity, navigator.LogChannels...)
	nav, err := navigator.New(rt.cfg.Nav, rt.tach, rt.hw.Bumps(), rt.hw.Motors(), buf)
	if err != nil {
		return errors.Wrap(err, "bad navigator table")
	}
	return rt.run(nav, coordinator.NavView{Source: nav}, buf, nil,
		rt.exportMenu(buf),
		&coordinator.ConfirmMenu{Prompt: "Navigate"},
	)
}
