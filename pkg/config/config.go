// Package config loads the robot's YAML configuration and records the
// configuration actually in use next to it.
package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v2"

	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/ads1115"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/coordinator"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/irsensor"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/lpf"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/motor"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/navigator"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/speedcontrol"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/tachometer"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/wallfollow"
)

const DefaultPath = "/cfg/rslk.yaml"

var ErrInvalid = errors.New("invalid configuration")

type Timing struct {
	ControllerPeriod time.Duration `yaml:"controller_period"`
	SamplingPeriod   time.Duration `yaml:"sampling_period"`
	StopTimeout      time.Duration `yaml:"stop_timeout"`
}

type ADC struct {
	Bus  string `yaml:"bus"`
	Addr int    `yaml:"addr"`
}

type Telemetry struct {
	SerialDevice string `yaml:"serial_device"`
	Baud         int    `yaml:"baud"`
	MQTTBroker   string `yaml:"mqtt_broker"`
	MQTTTopic    string `yaml:"mqtt_topic"`
	MQTTClientID string `yaml:"mqtt_client_id"`
}

type Config struct {
	Timing      Timing              `yaml:"timing"`
	Coordinator coordinator.Config  `yaml:"coordinator"`
	Speed       speedcontrol.Config `yaml:"speed"`
	Wall        wallfollow.Config   `yaml:"wall"`
	IR          irsensor.Config     `yaml:"ir"`
	Nav         navigator.Config    `yaml:"nav"`
	Pins        hardware.Pins       `yaml:"pins"`
	ADC         ADC                 `yaml:"adc"`
	Telemetry   Telemetry           `yaml:"telemetry"`
	// Framebuffer for the status display; empty disables it.
	Screen   string `yaml:"screen"`
	TuneStep int    `yaml:"tune_step"`
}

func Defaults() Config {
	coord := coordinator.DefaultConfig()
	coord.DoneSound = "/sounds/done.wav"
	coord.StartSound = "/sounds/start.wav"
	return Config{
		Timing: Timing{
			ControllerPeriod: 20 * time.Millisecond,
			SamplingPeriod:   5 * time.Millisecond,
			StopTimeout:      tachometer.DefaultStopTimeout,
		},
		Coordinator: coord,
		Speed:       speedcontrol.DefaultConfig(),
		Wall:        wallfollow.DefaultConfig(),
		IR:          irsensor.DefaultConfig(),
		Nav:         navigator.DefaultConfig(),
		Pins:        hardware.DefaultPins(),
		ADC: ADC{
			Bus:  "/dev/i2c-1",
			Addr: ads1115.DefaultAddr,
		},
		Telemetry: Telemetry{
			Baud:         115200,
			MQTTTopic:    "rslk/log",
			MQTTClientID: "rslk",
		},
		Screen:   "/dev/fb1",
		TuneStep: 1,
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Defaults()
	raw, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		log.Info().Str("path", path).Msg("No config file, using defaults")
		return cfg, nil
	}
	if err != nil {
		return cfg, errors.Wrapf(err, "failed to read config %s", path)
	}
	if err := yaml.UnmarshalStrict(raw, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "failed to parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// InUsePath is where WriteInUse records the configuration for path.
func InUsePath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-in-use" + ext
}

// WriteInUse marshals cfg next to path so the operator can see what the
// robot actually ran with.
func WriteInUse(path string, cfg Config) error {
	out, err := yaml.Marshal(&cfg)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	dest := InUsePath(path)
	if err := ioutil.WriteFile(dest, out, 0666); err != nil {
		return errors.Wrapf(err, "failed to write %s", dest)
	}
	return nil
}

func (c Config) Validate() error {
	var problems []string
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Timing.ControllerPeriod <= 0 {
		add("timing.controller_period must be positive")
	}
	if scan := time.Duration(len(c.IR.Channels)) * ads1115.ChannelReadTime; c.Timing.SamplingPeriod < scan {
		add("timing.sampling_period %v is shorter than one ADC scan (%v)", c.Timing.SamplingPeriod, scan)
	}
	if c.Coordinator.RefreshExecutions == 0 {
		add("coordinator.refresh_executions must be positive")
	}

	if c.Speed.Divider == 0 {
		add("speed.divider must not be zero")
	}
	if c.Speed.DutyMin > c.Speed.DutyMax {
		add("speed duty range [%d, %d] is inverted", c.Speed.DutyMin, c.Speed.DutyMax)
	}
	if c.Speed.DutyMin < 0 || c.Speed.DutyMax > motor.MaxDuty {
		add("speed duty range must lie within [0, %d]", motor.MaxDuty)
	}
	if c.Speed.PeriodWindow <= 0 {
		add("speed.period_window must be positive")
	}

	if c.Wall.Divider == 0 {
		add("wall.divider must not be zero")
	}
	if c.Wall.Swing < 0 || c.Wall.Base-c.Wall.Swing < 0 || c.Wall.Base+c.Wall.Swing > motor.MaxDuty {
		add("wall base %d and swing %d must keep duty within [0, %d]", c.Wall.Base, c.Wall.Swing, motor.MaxDuty)
	}

	if c.IR.FilterWindow <= 0 || c.IR.FilterWindow > lpf.MaxSize {
		add("ir.filter_window must be in [1, %d]", lpf.MaxSize)
	}
	for i, cal := range c.IR.Calibrations {
		if cal.Floor <= cal.Offset {
			add("ir.calibrations[%d]: floor %d must exceed offset %d", i, cal.Floor, cal.Offset)
		}
		if cal.MaxMM <= 0 {
			add("ir.calibrations[%d]: max_mm must be positive", i)
		}
	}

	// The navigator checks its own state table on construction.
	if _, err := navigator.New(c.Nav, nil, nil, nil, nil); err != nil {
		add("nav: %v", err)
	}

	if len(problems) > 0 {
		return errors.Wrap(ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}
