package command

import (
	"errors"
	"math"

	"github.com/gwillem/kraken/pkg/gamepad"
)

// ErrDisconnected is returned by Step for a disconnected snapshot.
var ErrDisconnected = errors.New("controller disconnected")

// Defaults for Config.
const (
	DefaultDeadzone         = 0.25
	DefaultTriggerThreshold = 0.1
)

// Command is an action together with its wire token.
type Command struct {
	Action Action
	Token  Token
}

// Config holds the fixed parameters of a Differ.
type Config struct {
	Deadzone         float64
	TriggerThreshold float64
	Layout           Layout
	Vocabulary       Vocabulary
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	return Config{
		Deadzone:         DefaultDeadzone,
		TriggerThreshold: DefaultTriggerThreshold,
		Layout:           DefaultLayout(),
		Vocabulary:       DefaultVocabulary(),
	}
}

// Differ compares each snapshot against the previous one and decides which
// commands to send. Sticks repeat while held; triggers and buttons fire on
// transitions only. A Differ is owned by a single goroutine.
type Differ struct {
	cfg      Config
	baseline *gamepad.Snapshot
}

// NewDiffer returns a Differ with no baseline.
func NewDiffer(cfg Config) *Differ {
	if cfg.Vocabulary == nil {
		cfg.Vocabulary = DefaultVocabulary()
	}
	if len(cfg.Layout.Axes)+len(cfg.Layout.Triggers)+len(cfg.Layout.Buttons) == 0 {
		cfg.Layout = DefaultLayout()
	}
	return &Differ{cfg: cfg}
}

// Reset drops the baseline so the next snapshot only seeds it.
func (d *Differ) Reset() {
	d.baseline = nil
}

// Seeded reports whether a baseline exists.
func (d *Differ) Seeded() bool {
	return d.baseline != nil
}

// Step returns the commands for curr. The first connected snapshot after a
// reset or disconnect only seeds the baseline. A disconnected snapshot
// clears the baseline and returns ErrDisconnected.
func (d *Differ) Step(curr gamepad.Snapshot) ([]Command, error) {
	if !curr.Connected() {
		d.baseline = nil
		return nil, ErrDisconnected
	}
	if d.baseline == nil {
		d.baseline = &curr
		return nil, nil
	}
	prev := *d.baseline

	var out []Command
	for _, b := range d.cfg.Layout.Axes {
		v := curr.Value(b.Axis)
		if math.Abs(v) <= d.cfg.Deadzone {
			continue
		}
		if v > 0 {
			out = d.emit(out, b.Positive)
		} else {
			out = d.emit(out, b.Negative)
		}
	}

	for _, b := range d.cfg.Layout.Triggers {
		was := prev.Value(b.Axis) > d.cfg.TriggerThreshold
		is := curr.Value(b.Axis) > d.cfg.TriggerThreshold
		switch {
		case !was && is:
			out = d.emit(out, b.Press)
		case was && !is:
			out = d.emit(out, b.Release)
		}
	}

	for _, b := range d.cfg.Layout.Buttons {
		if !prev.Pressed(b.Button) && curr.Pressed(b.Button) {
			out = d.emit(out, b.Action)
		}
	}

	d.baseline = &curr
	return out, nil
}

// Token returns the wire token configured for a.
func (d *Differ) Token(a Action) (Token, bool) {
	tok, ok := d.cfg.Vocabulary[a]
	return tok, ok
}

func (d *Differ) emit(out []Command, a Action) []Command {
	tok, ok := d.cfg.Vocabulary[a]
	if !ok {
		return out
	}
	return append(out, Command{Action: a, Token: tok})
}

// Tokens returns the wire tokens of cmds as strings.
func Tokens(cmds []Command) []string {
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = c.Token.String()
	}
	return out
}
