package arduino

import (
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
)

// Serial defaults for the arm firmware.
const (
	DefaultBaudRate    = 9600
	DefaultDataBits    = 8
	DefaultReadTimeout = 100 * time.Millisecond
)

// Mode holds the line settings used when opening a port.
type Mode struct {
	BaudRate    int
	DataBits    int
	StopBits    serial.StopBits
	Parity      serial.Parity
	ReadTimeout time.Duration
}

// DefaultMode returns 8N1 at the given baud rate with a 100 ms read timeout.
func DefaultMode(baud int) Mode {
	return Mode{
		BaudRate:    baud,
		DataBits:    DefaultDataBits,
		StopBits:    serial.OneStopBit,
		Parity:      serial.NoParity,
		ReadTimeout: DefaultReadTimeout,
	}
}

func (m Mode) withDefaults() Mode {
	if m.BaudRate <= 0 {
		m.BaudRate = DefaultBaudRate
	}
	if m.DataBits <= 0 {
		m.DataBits = DefaultDataBits
	}
	if m.ReadTimeout <= 0 {
		m.ReadTimeout = DefaultReadTimeout
	}
	return m
}

func (m Mode) serialMode() *serial.Mode {
	return &serial.Mode{
		BaudRate: m.BaudRate,
		DataBits: m.DataBits,
		StopBits: m.StopBits,
		Parity:   m.Parity,
	}
}

// ParseParity accepts none, odd, even, mark and space.
func ParseParity(s string) (serial.Parity, error) {
	switch strings.ToLower(s) {
	case "", "none", "n":
		return serial.NoParity, nil
	case "odd", "o":
		return serial.OddParity, nil
	case "even", "e":
		return serial.EvenParity, nil
	case "mark", "m":
		return serial.MarkParity, nil
	case "space", "s":
		return serial.SpaceParity, nil
	}
	return serial.NoParity, fmt.Errorf("unknown parity %q", s)
}

// ParseStopBits accepts 1, 1.5 and 2.
func ParseStopBits(s string) (serial.StopBits, error) {
	switch s {
	case "", "1":
		return serial.OneStopBit, nil
	case "1.5":
		return serial.OnePointFiveStopBits, nil
	case "2":
		return serial.TwoStopBits, nil
	}
	return serial.OneStopBit, fmt.Errorf("unknown stop bits %q", s)
}
