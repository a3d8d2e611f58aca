package robot

// Servo angle range and the neutral position every servo returns to on
// recenter.
const (
	MinAngle    = 0
	MaxAngle    = 180
	CenterAngle = 90
)

// JointCalibration holds the travel limits and per-command step of a servo.
type JointCalibration struct {
	RangeMin int `json:"range_min" yaml:"range_min"`
	RangeMax int `json:"range_max" yaml:"range_max"`
	Step     int `json:"step" yaml:"step"`
}

// Calibration holds calibration data for all servos, keyed by motor name.
type Calibration map[MotorName]JointCalibration

// DefaultCalibration matches the firmware: the sticks move a joint 2° per
// command, the bumpers move the gripper 5°.
func DefaultCalibration() Calibration {
	return Calibration{
		Base:     {RangeMin: MinAngle, RangeMax: MaxAngle, Step: 2},
		Shoulder: {RangeMin: MinAngle, RangeMax: MaxAngle, Step: 2},
		Elbow:    {RangeMin: MinAngle, RangeMax: MaxAngle, Step: 2},
		Gripper:  {RangeMin: MinAngle, RangeMax: MaxAngle, Step: 5},
	}
}

// Clamp limits an angle to the joint's range.
func (c JointCalibration) Clamp(angle int) int {
	if angle < c.RangeMin {
		return c.RangeMin
	}
	if angle > c.RangeMax {
		return c.RangeMax
	}
	return angle
}

// Normalize converts an angle to a normalized value in the range [-100, 100].
func (c JointCalibration) Normalize(angle int) float64 {
	rangeSize := float64(c.RangeMax - c.RangeMin)
	if rangeSize == 0 {
		return 0
	}
	return (float64(angle-c.RangeMin)/rangeSize)*200 - 100
}

// Joint returns the calibration of a servo, falling back to the default.
func (c Calibration) Joint(name MotorName) JointCalibration {
	if jc, ok := c[name]; ok {
		return jc
	}
	return DefaultCalibration()[name]
}
