// Package command turns controller snapshots into single-character arm
// commands.
package command

import (
	"fmt"
	"sort"
)

// Action is an actuator directive, independent of its wire encoding.
type Action int

const (
	StepperLeft Action = iota + 1
	StepperRight
	StepperStop
	BaseRight
	BaseLeft
	ShoulderUp
	ShoulderDown
	ElbowUp
	ElbowDown
	GripperClose
	GripperOpen
	Recenter
)

var actionNames = map[Action]string{
	StepperLeft:  "stepper_left",
	StepperRight: "stepper_right",
	StepperStop:  "stepper_stop",
	BaseRight:    "base_right",
	BaseLeft:     "base_left",
	ShoulderUp:   "shoulder_up",
	ShoulderDown: "shoulder_down",
	ElbowUp:      "elbow_up",
	ElbowDown:    "elbow_down",
	GripperClose: "gripper_close",
	GripperOpen:  "gripper_open",
	Recenter:     "recenter",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// ParseAction looks up an action by its config name.
func ParseAction(name string) (Action, error) {
	for a, n := range actionNames {
		if n == name {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown action %q", name)
}

// Actions returns every action in declaration order.
func Actions() []Action {
	all := make([]Action, 0, len(actionNames))
	for a := range actionNames {
		all = append(all, a)
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	return all
}

// Token is a single printable ASCII character sent as one line.
type Token byte

func (t Token) String() string { return string(rune(t)) }

// Vocabulary maps actions to their wire tokens.
type Vocabulary map[Action]Token

// DefaultVocabulary returns the token set understood by the arm firmware.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		StepperLeft:  'L',
		StepperRight: 'R',
		StepperStop:  'S',
		BaseRight:    'k',
		BaseLeft:     'j',
		ShoulderUp:   'i',
		ShoulderDown: 'm',
		ElbowUp:      'o',
		ElbowDown:    'p',
		GripperClose: 'q',
		GripperOpen:  'w',
		Recenter:     'c',
	}
}

// ParseVocabulary applies overrides keyed by action name on top of the
// default vocabulary. Each value must be one printable ASCII character.
func ParseVocabulary(overrides map[string]string) (Vocabulary, error) {
	v := DefaultVocabulary()
	for name, tok := range overrides {
		a, err := ParseAction(name)
		if err != nil {
			return nil, err
		}
		if len(tok) != 1 || tok[0] < '!' || tok[0] > '~' {
			return nil, fmt.Errorf("action %s: token %q must be a single printable character", name, tok)
		}
		v[a] = Token(tok[0])
	}
	return v, nil
}

// Encode returns the names and tokens of v, for saving in a config file.
func (v Vocabulary) Encode() map[string]string {
	out := make(map[string]string, len(v))
	for a, t := range v {
		out[a.String()] = t.String()
	}
	return out
}
