package command

import "github.com/gwillem/kraken/pkg/gamepad"

// AxisBinding emits Negative or Positive on every tick the axis is outside
// the deadzone.
type AxisBinding struct {
	Axis     gamepad.Axis
	Negative Action
	Positive Action
}

// TriggerBinding emits Press when the trigger crosses the threshold and
// Release when it falls back.
type TriggerBinding struct {
	Axis    gamepad.Axis
	Press   Action
	Release Action
}

// ButtonBinding emits Action on the tick the button goes down.
type ButtonBinding struct {
	Button gamepad.Button
	Action Action
}

// Layout binds controller inputs to actions.
type Layout struct {
	Axes     []AxisBinding
	Triggers []TriggerBinding
	Buttons  []ButtonBinding
}

// DefaultLayout drives the base and shoulder from the left stick, the elbow
// from the right stick, the gripper from the bumpers and the stepper from the
// triggers. Start recenters.
func DefaultLayout() Layout {
	return Layout{
		Axes: []AxisBinding{
			{Axis: gamepad.LeftX, Negative: BaseLeft, Positive: BaseRight},
			{Axis: gamepad.LeftY, Negative: ShoulderUp, Positive: ShoulderDown},
			{Axis: gamepad.RightY, Negative: ElbowUp, Positive: ElbowDown},
		},
		Triggers: []TriggerBinding{
			{Axis: gamepad.LeftTrigger, Press: StepperLeft, Release: StepperStop},
			{Axis: gamepad.RightTrigger, Press: StepperRight, Release: StepperStop},
		},
		Buttons: []ButtonBinding{
			{Button: gamepad.LB, Action: GripperClose},
			{Button: gamepad.RB, Action: GripperOpen},
			{Button: gamepad.Start, Action: Recenter},
		},
	}
}
