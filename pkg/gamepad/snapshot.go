// Package gamepad reads game controller state and exposes it as snapshots.
package gamepad

// Button identifies a digital controller button.
type Button string

// Buttons of an Xbox-style controller.
const (
	A          Button = "a"
	B          Button = "b"
	X          Button = "x"
	Y          Button = "y"
	LB         Button = "lb"
	RB         Button = "rb"
	Back       Button = "back"
	Start      Button = "start"
	Guide      Button = "guide"
	LeftStick  Button = "left_stick"
	RightStick Button = "right_stick"
)

// Axis identifies an analog controller axis.
type Axis string

// Axes of an Xbox-style controller. Stick axes are in [-1, 1] with negative Y
// pointing up. Trigger axes are in [0, 1].
const (
	LeftX        Axis = "left_x"
	LeftY        Axis = "left_y"
	RightX       Axis = "right_x"
	RightY       Axis = "right_y"
	LeftTrigger  Axis = "left_trigger"
	RightTrigger Axis = "right_trigger"
)

// Snapshot is the observed controller state at one point in time.
// The zero value is a disconnected snapshot.
type Snapshot struct {
	buttons   map[Button]bool
	axes      map[Axis]float64
	connected bool
}

// NewSnapshot returns a connected snapshot. The maps are copied.
func NewSnapshot(buttons map[Button]bool, axes map[Axis]float64) Snapshot {
	s := Snapshot{
		buttons:   make(map[Button]bool, len(buttons)),
		axes:      make(map[Axis]float64, len(axes)),
		connected: true,
	}
	for b, v := range buttons {
		s.buttons[b] = v
	}
	for a, v := range axes {
		s.axes[a] = clamp(v, -1, 1)
	}
	return s
}

// Disconnected returns a snapshot reporting a lost controller.
func Disconnected() Snapshot {
	return Snapshot{}
}

// Connected reports whether the controller was connected at capture time.
func (s Snapshot) Connected() bool { return s.connected }

// Pressed reports whether b was held.
func (s Snapshot) Pressed(b Button) bool { return s.buttons[b] }

// Value returns the reading of a, zero if the axis is unknown.
func (s Snapshot) Value(a Axis) float64 { return s.axes[a] }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
