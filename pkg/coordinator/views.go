package coordinator

import (
	"fmt"

	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/classifier"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/navigator"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/speedcontrol"
	"github.com/tigerbot-team/tigerbot/rslk-controller/pkg/wallfollow"
)

type SpeedView struct {
	Source interface{ Snapshot() speedcontrol.Snapshot }
}

func (v SpeedView) Clear(d Display) {
	d.Write(0, 0, "Speed PI")
	d.Write(2, 0, "   RPM  Duty")
}

func (v SpeedView) Render(d Display) {
	s := v.Source.Snapshot()
	d.Write(1, 0, fmt.Sprintf("Target %5d", s.TargetRPM))
	d.Write(3, 0, fmt.Sprintf("L %4d %5d", s.SpeedL, s.DutyL))
	d.Write(4, 0, fmt.Sprintf("R %4d %5d", s.SpeedR, s.DutyR))
}

type WallView struct {
	Source   interface{ Snapshot() wallfollow.Snapshot }
	Scenario interface{ Scenario() classifier.Scenario }
}

func (v WallView) Clear(d Display) {
	d.Write(0, 0, "Wall follow")
}

func (v WallView) Render(d Display) {
	s := v.Source.Snapshot()
	d.Write(1, 0, fmt.Sprintf("L%3d R%3d", s.Left, s.Right))
	d.Write(2, 0, fmt.Sprintf("C%3d E%4d", s.Center, s.Error))
	d.Write(3, 0, fmt.Sprintf("%4d %4d", s.DutyL, s.DutyR))
	if v.Scenario != nil {
		d.Write(4, 0, fmt.Sprintf("%-12.12s", v.Scenario.Scenario()))
	}
}

type NavView struct {
	Source interface{ Snapshot() navigator.Snapshot }
}

func (v NavView) Clear(d Display) {
	d.Write(0, 0, "Navigate")
}

func (v NavView) Render(d Display) {
	s := v.Source.Snapshot()
	d.Write(1, 0, fmt.Sprintf("%-10.10s %s", s.State, s.Heading))
	d.Write(2, 0, fmt.Sprintf("x %9d", s.X))
	d.Write(3, 0, fmt.Sprintf("y %9d", s.Y))
	d.Write(4, 0, fmt.Sprintf("L%4d R%4d", s.DistanceL, s.DistanceR))
	d.Write(5, 0, fmt.Sprintf("bump %02x", s.Bumps))
}
