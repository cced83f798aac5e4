// Package navigator drives a table of motion states (forward, back off,
// turn, stop), switching on bumps and measured wheel travel, and dead
// reckons the robot's position towards a home point.
package navigator

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/datalog"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/motor"
)

var ErrUnknownState = errors.New("unknown navigator state")

type Tachometer interface {
	ResetSteps()
	GetDistances() (left, right int32)
}

type Bumps interface {
	ReadDigitalInputs() uint8
}

// Heading is a quadrant, advanced by one for each left quarter turn.
type Heading uint8

const (
	North Heading = iota
	West
	South
	East
)

func (h Heading) String() string {
	return [...]string{"N", "W", "S", "E"}[h%4]
}

type StateConfig struct {
	Name   string `yaml:"name"`
	Left   uint16 `yaml:"left"`
	Right  uint16 `yaml:"right"`
	Motion string `yaml:"motion"`
	// TargetMM is the mean absolute wheel travel that completes the state;
	// 0 means the state never completes on distance.
	TargetMM int32  `yaml:"target_mm"`
	Next     string `yaml:"next"`
	// Turn is the heading change in quadrants applied when the state
	// completes, positive to the left.
	Turn int `yaml:"turn"`
}

type Config struct {
	States         []StateConfig `yaml:"states"`
	Initial        string        `yaml:"initial"`
	CollisionState string        `yaml:"collision_state"`
	StopState      string        `yaml:"stop_state"`
	CollisionMask  uint8         `yaml:"collision_mask"`
	HomeX          int32         `yaml:"home_x"`
	HomeY          int32         `yaml:"home_y"`
	ToleranceMM    int32         `yaml:"tolerance_mm"`
	LogCapacity    int           `yaml:"log_capacity"`
}

func DefaultConfig() Config {
	return Config{
		States: []StateConfig{
			{Name: "Forward", Left: 380, Right: 375, Motion: "Forward", Next: "Stop"},
			{Name: "Backward", Left: 150, Right: 150, Motion: "Backward", TargetMM: 90, Next: "Left90"},
			{Name: "Left90", Left: 150, Right: 150, Motion: "TurnLeft", TargetMM: 93, Next: "Forward", Turn: 1},
			{Name: "Stop", Motion: "Stop"},
		},
		Initial:        "Forward",
		CollisionState: "Backward",
		StopState:      "Stop",
		CollisionMask:  0x3F,
		HomeX:          360,
		HomeY:          0,
		ToleranceMM:    150,
		LogCapacity:    1000,
	}
}

var LogChannels = []string{"x", "y"}

type state struct {
	name        string
	left, right uint16
	fn          motor.Function
	target      int32
	next        int
	turn        int
}

type Snapshot struct {
	State   string
	Heading Heading
	X, Y    int32
	// Travel of each wheel since the current state was entered.
	DistanceL, DistanceR int32
	Turns                int
	Bumps                uint8
	TicksInState         int
}

type Navigator struct {
	tach   Tachometer
	bumps  Bumps
	motors motor.Driver
	log    *datalog.Buffer

	states                   []state
	initial, collision, stop int
	mask                     uint8
	homeX, homeY, tolerance  int32

	lock         sync.Mutex
	cur          int
	heading      Heading
	x, y         int32
	oldL, oldR   int32
	turns        int
	lastBumps    uint8
	ticksInState int
}

func New(cfg Config, tach Tachometer, bumps Bumps, motors motor.Driver, log *datalog.Buffer) (*Navigator, error) {
	n := &Navigator{
		tach:      tach,
		bumps:     bumps,
		motors:    motors,
		log:       log,
		mask:      cfg.CollisionMask,
		homeX:     cfg.HomeX,
		homeY:     cfg.HomeY,
		tolerance: cfg.ToleranceMM,
	}
	index := map[string]int{}
	for i, sc := range cfg.States {
		if _, dup := index[sc.Name]; dup {
			return nil, fmt.Errorf("duplicate navigator state %q", sc.Name)
		}
		index[sc.Name] = i
	}
	lookup := func(name string) (int, error) {
		i, ok := index[name]
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrUnknownState, name)
		}
		return i, nil
	}
	var err error
	if n.initial, err = lookup(cfg.Initial); err != nil {
		return nil, err
	}
	if n.collision, err = lookup(cfg.CollisionState); err != nil {
		return nil, err
	}
	if n.stop, err = lookup(cfg.StopState); err != nil {
		return nil, err
	}
	for _, sc := range cfg.States {
		fn, ok := motor.ParseFunction(sc.Motion)
		if !ok {
			return nil, fmt.Errorf("navigator state %q: unknown motion %q", sc.Name, sc.Motion)
		}
		st := state{
			name:   sc.Name,
			left:   sc.Left,
			right:  sc.Right,
			fn:     fn,
			target: sc.TargetMM,
			next:   n.stop,
			turn:   sc.Turn,
		}
		if sc.Next != "" {
			if st.next, err = lookup(sc.Next); err != nil {
				return nil, err
			}
		}
		n.states = append(n.states, st)
	}
	n.cur = n.initial
	return n, nil
}

func (n *Navigator) Name() string {
	return "Navigator"
}

// Step applies the current state's motor command, then evaluates in order:
// collision bump, distance completion, dead reckoning, home. It returns
// false once the stop state has been applied.
func (n *Navigator) Step() bool {
	n.lock.Lock()
	defer n.lock.Unlock()

	if n.cur < 0 || n.cur >= len(n.states) {
		log.Warn().Int("state", n.cur).Msg("Navigator in unknown state, stopping")
		n.cur = n.stop
	}
	st := n.states[n.cur]
	n.motors.SetMotorDuty(st.fn, st.left, st.right)
	if n.cur == n.stop {
		n.record()
		return false
	}

	bumps := n.bumps.ReadDigitalInputs()
	n.lastBumps = bumps
	dl, dr := n.tach.GetDistances()
	delta := (dl - n.oldL + dr - n.oldR) / 2
	n.oldL, n.oldR = dl, dr

	next := n.cur
	completed := false
	switch {
	case bumps&n.mask != 0 && n.cur != n.collision:
		next = n.collision
	case st.target > 0 && (abs(dl)+abs(dr))/2 >= st.target:
		next = st.next
		completed = true
	}

	switch n.heading {
	case North:
		n.y += delta
	case West:
		n.x += delta
	case South:
		n.y -= delta
	case East:
		n.x -= delta
	}
	if completed && st.turn != 0 {
		n.turns += st.turn
		n.heading = Heading(((n.turns % 4) + 4) % 4)
	}

	if abs(n.homeX-n.x) <= n.tolerance && abs(n.homeY-n.y) <= n.tolerance {
		next = n.stop
	}

	if next != n.cur {
		log.Debug().
			Str("from", st.name).
			Str("to", n.states[next].name).
			Int32("x", n.x).
			Int32("y", n.y).
			Msg("Navigator transition")
		n.tach.ResetSteps()
		n.oldL, n.oldR = 0, 0
		n.cur = next
		n.ticksInState = 0
	} else {
		n.ticksInState++
	}
	n.record()
	return true
}

func (n *Navigator) record() {
	if n.log != nil {
		n.log.Append(n.x, n.y)
	}
}

// Reset returns to the initial state at the origin facing North.
func (n *Navigator) Reset() {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.cur = n.initial
	n.heading = North
	n.x, n.y = 0, 0
	n.oldL, n.oldR = 0, 0
	n.turns = 0
	n.lastBumps = 0
	n.ticksInState = 0
	n.tach.ResetSteps()
}

func (n *Navigator) Snapshot() Snapshot {
	n.lock.Lock()
	defer n.lock.Unlock()
	return Snapshot{
		State:        n.states[n.cur].name,
		Heading:      n.heading,
		X:            n.x,
		Y:            n.y,
		DistanceL:    n.oldL,
		DistanceR:    n.oldR,
		Turns:        n.turns,
		Bumps:        n.lastBumps,
		TicksInState: n.ticksInState,
	}
}

func (n *Navigator) State() string {
	return n.Snapshot().State
}

func (n *Navigator) Position() (x, y int32, h Heading) {
	s := n.Snapshot()
	return s.X, s.Y, s.Heading
}

func abs(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
