package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/hardware"
)

// Console commands stand in for the robot's buttons and sensors when
// running against the simulator.
var Console struct {
	Sw   SwCmd   `cmd:"" help:"Press the operator switch."`
	Bump BumpCmd `cmd:"" help:"Press bump switches for a moment."`
	IR   IRCmd   `cmd:"" name:"ir" help:"Set the raw count one IR channel returns."`
	Quit QuitCmd `cmd:"" help:"Shut down."`
}

type consoleContext struct {
	dummy *hardware.Dummy
}

const pressTime = 100 * time.Millisecond

type SwCmd struct{}

func (c *SwCmd) Run(cc *consoleContext) error {
	cc.dummy.SetSwitches(hardware.SW1)
	time.Sleep(pressTime)
	cc.dummy.SetSwitches(0)
	return nil
}

type BumpCmd struct {
	Bits int `arg:"" help:"Bump bitmask, Bump1 is bit 0."`
}

func (c *BumpCmd) Run(cc *consoleContext) error {
	if c.Bits <= 0 || c.Bits > int(hardware.AllBumps) {
		return errors.Errorf("bump mask %d out of range", c.Bits)
	}
	cc.dummy.SetBumps(uint8(c.Bits))
	time.Sleep(pressTime)
	cc.dummy.SetBumps(0)
	return nil
}

type IRCmd struct {
	Channel int    `arg:""`
	Count   uint32 `arg:""`
}

func (c *IRCmd) Run(cc *consoleContext) error {
	cc.dummy.SetIR(c.Channel, c.Count)
	return nil
}

type QuitCmd struct{}

func (q *QuitCmd) Run(cc *consoleContext) error {
	return Quit
}

var Quit = errors.New("Quit")

// runConsole reads commands from stdin until quit or EOF, then calls stop.
func runConsole(ctx context.Context, dummy *hardware.Dummy, stop context.CancelFunc) {
	defer stop()
	k, err := kong.New(&Console, kong.Name("dummy"), kong.Exit(func(int) {}))
	if err != nil {
		panic(err)
	}
	cc := &consoleContext{dummy: dummy}

	scanner := bufio.NewScanner(os.Stdin)
	for ctx.Err() == nil {
		fmt.Println("Enter a command:")
		if !scanner.Scan() {
			return
		}
		command := strings.TrimSpace(scanner.Text())
		if command == "" {
			continue
		}
		parsed, err := k.Parse(strings.Fields(command))
		if err != nil {
			fmt.Println("parse error:", err)
			continue
		}
		err = parsed.Run(cc)
		if err == Quit {
			return
		} else if err != nil {
			fmt.Println("ERROR:", err)
		}
	}
}
