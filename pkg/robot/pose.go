package robot

import "github.com/gwillem/kraken/pkg/command"

// Pose mirrors the servo angles the arm should be at, indexed like
// AllServos. It is a display model; commands are never derived from it.
type Pose [4]int

// CenteredPose returns every servo at CenterAngle.
func CenteredPose() Pose {
	return Pose{CenterAngle, CenterAngle, CenterAngle, CenterAngle}
}

// Angle returns the angle of the named servo.
func (p Pose) Angle(name MotorName) int {
	for i, n := range AllServos() {
		if n == name {
			return p[i]
		}
	}
	return 0
}

type poseEffect struct {
	motor int
	dir   int
}

var actionEffects = map[command.Action]poseEffect{
	command.BaseRight:    {0, +1},
	command.BaseLeft:     {0, -1},
	command.ShoulderUp:   {1, +1},
	command.ShoulderDown: {1, -1},
	command.ElbowUp:      {2, +1},
	command.ElbowDown:    {2, -1},
	command.GripperOpen:  {3, +1},
	command.GripperClose: {3, -1},
}

// Apply moves the pose the way the firmware moves the arm for a, and returns
// the indices of the servos whose angle changed.
func (p *Pose) Apply(a command.Action, cal Calibration) []int {
	if a == command.Recenter {
		return p.Recenter()
	}
	eff, ok := actionEffects[a]
	if !ok {
		return nil
	}
	jc := cal.Joint(AllServos()[eff.motor])
	next := jc.Clamp(p[eff.motor] + eff.dir*jc.Step)
	if next == p[eff.motor] {
		return nil
	}
	p[eff.motor] = next
	return []int{eff.motor}
}

// Recenter sets every servo to CenterAngle and returns the indices that
// changed.
func (p *Pose) Recenter() []int {
	var changed []int
	for i := range p {
		if p[i] != CenterAngle {
			p[i] = CenterAngle
			changed = append(changed, i)
		}
	}
	return changed
}
