// Package classifier maps the three IR distances onto the maze situation in
// front of the robot.
package classifier

type Scenario uint8

const (
	Error          Scenario = 0
	LeftTooClose   Scenario = 1
	RightTooClose  Scenario = 2
	CenterTooClose Scenario = 4
	Straight       Scenario = 8
	LeftTurn       Scenario = 9
	RightTurn      Scenario = 10
	TeeJoint       Scenario = 11
	LeftJoint      Scenario = 12
	RightJoint     Scenario = 13
	CrossRoad      Scenario = 14
	Blocked        Scenario = 15
)

// Thresholds in mm. A reading is "below" a threshold when it is strictly
// less than it; IRMin and IRMax themselves are valid readings.
const (
	SideMin    = 100
	SideMax    = 400
	CenterMin  = 100
	CenterOpen = 600
	IRMin      = 50
	IRMax      = 800
)

var names = [16]string{
	"Error", "L2Close", "R2Close", "RL2Close",
	"C2Close", "LC2Close", "RC2Close", "RLC2Close",
	"Straight", "LeftTurn", "RightTurn", "TeeJoint",
	"LeftJoint", "RightJoint", "CrossRoad", "Blocked",
}

func (s Scenario) String() string {
	if int(s) < len(names) {
		return names[s]
	}
	return "Unknown"
}

// Valid is false only for Error.
func (s Scenario) Valid() bool {
	return s != Error && s <= Blocked
}

// TooClose reports whether s is one of the wall-too-close combinations.
func (s Scenario) TooClose() bool {
	return s >= LeftTooClose && s <= LeftTooClose|RightTooClose|CenterTooClose
}

func Classify(left, center, right int32) Scenario {
	if outOfRange(left) || outOfRange(center) || outOfRange(right) {
		return Error
	}

	var result Scenario
	if left < SideMin {
		result |= LeftTooClose
	}
	if right < SideMin {
		result |= RightTooClose
	}
	if center < CenterMin {
		result |= CenterTooClose
	}
	if result != 0 {
		return result
	}

	leftWall := left < SideMax
	rightWall := right < SideMax
	if center < CenterOpen {
		switch {
		case leftWall && rightWall:
			return Blocked
		case leftWall:
			return RightTurn
		case rightWall:
			return LeftTurn
		default:
			return TeeJoint
		}
	}
	switch {
	case leftWall && rightWall:
		return Straight
	case leftWall:
		return RightJoint
	case rightWall:
		return LeftJoint
	default:
		return CrossRoad
	}
}

func outOfRange(mm int32) bool {
	return mm < IRMin || mm > IRMax
}
