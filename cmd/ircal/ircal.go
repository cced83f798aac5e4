package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/alecthomas/kong"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/ads1115"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/convert"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/lpf"
)

var CLI struct {
	Sample SampleCmd `cmd:"" help:"Read one IR channel through the low-pass filter and print a count,mm line."`
	Fit    FitCmd    `cmd:"" help:"Fit a calibration to count,mm lines and print it as YAML."`
}

type SampleCmd struct {
	Bus      string        `help:"I2C bus device." default:"/dev/i2c-1"`
	Addr     int           `help:"ADS1115 address." default:"72"`
	Channel  int           `help:"ADC channel." default:"0"`
	Window   int           `help:"Filter window." default:"256"`
	Period   time.Duration `help:"Sampling period." default:"1ms"`
	Distance float64       `arg:"" help:"Measured distance to the target in mm."`
}

func (c *SampleCmd) Run() error {
	adc, err := ads1115.NewI2C(c.Bus, c.Addr)
	if err != nil {
		return errors.Wrapf(err, "failed to open ADC on %s", c.Bus)
	}
	read := func() (uint32, error) {
		counts, err := adc.ReadRawADC([]int{c.Channel})
		if err != nil {
			return 0, err
		}
		return counts[0], nil
	}

	first, err := read()
	if err != nil {
		return err
	}
	var f lpf.Filter
	f.Init(first, c.Window)
	// Fill the window twice over so the first reading has washed out.
	var filtered uint32
	for i := 1; i < 2*f.Size(); i++ {
		time.Sleep(c.Period)
		n, err := read()
		if err != nil {
			return err
		}
		filtered = f.Update(n)
	}
	fmt.Fprintf(os.Stderr, "channel %d: count %d noise %d\n", c.Channel, filtered, f.Noise())
	fmt.Printf("%d,%g\n", filtered, c.Distance)
	return nil
}

type FitCmd struct {
	File  string `arg:"" optional:"" help:"CSV of count,mm lines; - for stdin." default:"-"`
	MaxMM int32  `help:"Distance reported beyond the sensor's range." default:"800"`
}

func (c *FitCmd) Run() error {
	in := io.Reader(os.Stdin)
	if c.File != "-" {
		f, err := os.Open(c.File)
		if err != nil {
			return errors.Wrap(err, "failed to open samples")
		}
		defer f.Close()
		in = f
	}
	samples, err := readSamples(in)
	if err != nil {
		return err
	}
	cal, err := convert.FitIRCalibration(samples, c.MaxMM)
	if err != nil {
		return errors.Wrapf(err, "fit of %d samples failed", len(samples))
	}
	out, err := yaml.Marshal(cal)
	if err != nil {
		return err
	}
	fmt.Print(string(out))
	for _, s := range samples {
		fmt.Fprintf(os.Stderr, "count %5d measured %6.1fmm model %4dmm\n",
			s.Count, s.DistanceMM, cal.DistanceFromADC(s.Count))
	}
	return nil
}

func readSamples(in io.Reader) ([]convert.Sample, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = 2
	r.Comment = '#'
	var samples []convert.Sample
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return samples, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "bad sample line")
		}
		count, err := strconv.ParseUint(rec[0], 10, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "bad count %q", rec[0])
		}
		mm, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "bad distance %q", rec[1])
		}
		samples = append(samples, convert.Sample{Count: uint32(count), DistanceMM: mm})
	}
}

func main() {
	fmt.Fprintln(os.Stderr, "---- IR calibration ----")
	fmt.Fprintln(os.Stderr, "GOMAXPROCS", runtime.GOMAXPROCS(0))

	ctx := kong.Parse(&CLI, kong.Name("ircal"))
	ctx.FatalIfErrorf(ctx.Run())
}
