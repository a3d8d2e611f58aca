// Package robot provides the arm model and configuration.
package robot

// MotorName identifies an actuator in the arm.
type MotorName string

// Actuators of the Kraken arm.
const (
	Base     MotorName = "base"
	Shoulder MotorName = "shoulder"
	Elbow    MotorName = "elbow"
	Gripper  MotorName = "gripper"
)

// AllServos returns the servo names in order (matching pose indices 0-3).
func AllServos() []MotorName {
	return []MotorName{
		Base,
		Shoulder,
		Elbow,
		Gripper,
	}
}
