package gamepad

import "github.com/0xcafed00d/joystick"

// maxAxisValue is the magnitude reported by the joystick driver at full deflection.
const maxAxisValue = 32767

// AxisSource describes where a named axis lives in the raw joystick state.
type AxisSource struct {
	Index int
	// Trigger axes rest at -32767 and are rescaled to [0, 1].
	Trigger bool
	Invert  bool
}

// Mapping translates raw joystick indices into named buttons and axes.
type Mapping struct {
	Axes    map[Axis]AxisSource
	Buttons map[Button]int
}

// DefaultMapping returns the layout the Linux xpad driver reports for Xbox
// controllers.
func DefaultMapping() Mapping {
	return Mapping{
		Axes: map[Axis]AxisSource{
			LeftX:        {Index: 0},
			LeftY:        {Index: 1},
			LeftTrigger:  {Index: 2, Trigger: true},
			RightX:       {Index: 3},
			RightY:       {Index: 4},
			RightTrigger: {Index: 5, Trigger: true},
		},
		Buttons: map[Button]int{
			A:          0,
			B:          1,
			X:          2,
			Y:          3,
			LB:         4,
			RB:         5,
			Back:       6,
			Start:      7,
			Guide:      8,
			LeftStick:  9,
			RightStick: 10,
		},
	}
}

// Decode converts a raw joystick state into a connected snapshot.
// Axes or buttons missing from the raw state read as neutral.
func (m Mapping) Decode(raw joystick.State) Snapshot {
	buttons := make(map[Button]bool, len(m.Buttons))
	for name, bit := range m.Buttons {
		if bit < 0 || bit > 31 {
			continue
		}
		buttons[name] = raw.Buttons&(1<<uint(bit)) != 0
	}

	// joystick's Read returns AxisData backed by the array its event
	// goroutine keeps writing to. Decode from one copy so all axes come from
	// the same moment.
	axisData := append([]int(nil), raw.AxisData...)

	axes := make(map[Axis]float64, len(m.Axes))
	for name, src := range m.Axes {
		if src.Index < 0 || src.Index >= len(axisData) {
			continue
		}
		v := float64(axisData[src.Index]) / maxAxisValue
		if src.Invert {
			v = -v
		}
		if src.Trigger {
			v = (v + 1) / 2
		}
		axes[name] = v
	}

	return NewSnapshot(buttons, axes)
}
