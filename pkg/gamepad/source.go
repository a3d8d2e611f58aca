package gamepad

import (
	"context"
	"errors"
	"fmt"

	"github.com/0xcafed00d/joystick"
	"github.com/charmbracelet/log"
)

// ErrDeviceUnavailable is returned when no connected controller can be bound.
var ErrDeviceUnavailable = errors.New("controller unavailable")

// AutoSelect binds the first connected controller on the first snapshot.
const AutoSelect = -1

// DefaultMaxDevices is how many joystick indices are enumerated.
const DefaultMaxDevices = 4

// Device is an open joystick. joystick.Joystick satisfies it.
type Device interface {
	Name() string
	Read() (joystick.State, error)
	Close()
}

// Opener opens the joystick with the given system index.
type Opener func(index int) (Device, error)

func openJoystick(index int) (Device, error) {
	js, err := joystick.Open(index)
	if err != nil {
		return nil, err
	}
	return js, nil
}

// DeviceInfo describes an enumerated controller.
type DeviceInfo struct {
	Index     int
	Name      string
	Connected bool
}

// Options configures a Source.
type Options struct {
	Open       Opener
	Mapping    *Mapping
	MaxDevices int
	// Prober is an optional platform probe used by Detect.
	Prober Prober
	Logger *log.Logger
}

// Source polls a single bound controller.
type Source struct {
	open    Opener
	mapping Mapping
	max     int
	prober  Prober
	log     *log.Logger

	dev   Device
	index int
	name  string
}

// NewSource creates a controller source. Nothing is opened until Select or
// the first Snapshot.
func NewSource(opts Options) *Source {
	s := &Source{
		open:   opts.Open,
		max:    opts.MaxDevices,
		prober: opts.Prober,
		log:    opts.Logger,
		index:  AutoSelect,
	}
	if s.open == nil {
		s.open = openJoystick
	}
	if opts.Mapping != nil {
		s.mapping = *opts.Mapping
	} else {
		s.mapping = DefaultMapping()
	}
	if s.max <= 0 {
		s.max = DefaultMaxDevices
	}
	if s.log == nil {
		s.log = log.Default().WithPrefix("gamepad")
	}
	return s
}

// List enumerates controller indices. The bound device is reported without
// being reopened.
func (s *Source) List() []DeviceInfo {
	infos := make([]DeviceInfo, 0, s.max)
	for i := 0; i < s.max; i++ {
		if s.dev != nil && i == s.index {
			_, err := s.dev.Read()
			infos = append(infos, DeviceInfo{Index: i, Name: s.name, Connected: err == nil})
			continue
		}
		dev, err := s.open(i)
		if err != nil {
			infos = append(infos, DeviceInfo{Index: i})
			continue
		}
		_, err = dev.Read()
		infos = append(infos, DeviceInfo{Index: i, Name: dev.Name(), Connected: err == nil})
		dev.Close()
	}
	return infos
}

// Select binds the controller at index, releasing any previous binding.
func (s *Source) Select(index int) error {
	if err := s.bind(index); err != nil {
		s.log.Warn("controller unavailable", "index", index, "err", err)
		return err
	}
	s.log.Info("controller selected", "index", index, "name", s.name)
	return nil
}

func (s *Source) bind(index int) error {
	if index < 0 || index >= s.max {
		return fmt.Errorf("select controller %d: %w", index, ErrDeviceUnavailable)
	}
	s.release()

	dev, err := s.open(index)
	if err != nil {
		return fmt.Errorf("open controller %d: %w: %v", index, ErrDeviceUnavailable, err)
	}
	if _, err := dev.Read(); err != nil {
		dev.Close()
		return fmt.Errorf("read controller %d: %w: %v", index, ErrDeviceUnavailable, err)
	}

	s.dev = dev
	s.index = index
	s.name = dev.Name()
	return nil
}

// IsConnected reports whether a controller is bound and still reads.
func (s *Source) IsConnected() bool {
	if s.dev == nil {
		return false
	}
	_, err := s.dev.Read()
	return err == nil
}

// Snapshot captures the bound controller's state. Without a binding the first
// connected controller is selected. It returns false when nothing is bound or
// the bound controller no longer reads.
func (s *Source) Snapshot() (Snapshot, bool) {
	if s.dev == nil && !s.autoSelect() {
		return Disconnected(), false
	}
	raw, err := s.dev.Read()
	if err != nil {
		s.log.Debug("controller read failed", "index", s.index, "err", err)
		return Disconnected(), false
	}
	return s.mapping.Decode(raw), true
}

func (s *Source) autoSelect() bool {
	for i := 0; i < s.max; i++ {
		if s.bind(i) == nil {
			s.log.Info("controller auto-selected", "index", i, "name", s.name)
			return true
		}
	}
	return false
}

// Detect looks for controllers with the platform probe when one is
// configured, falling back to List when the probe fails or finds nothing.
func (s *Source) Detect(ctx context.Context) []DeviceInfo {
	if s.prober != nil {
		found, err := s.prober.Probe(ctx)
		if err != nil {
			s.log.Warn("controller probe failed", "err", err)
		} else if len(found) > 0 {
			return found
		}
	}
	var connected []DeviceInfo
	for _, info := range s.List() {
		if info.Connected {
			connected = append(connected, info)
		}
	}
	return connected
}

// Close releases the bound controller. A later Select or Snapshot may bind
// again.
func (s *Source) Close() error {
	s.release()
	return nil
}

func (s *Source) release() {
	if s.dev == nil {
		return
	}
	s.dev.Close()
	s.log.Debug("controller released", "index", s.index)
	s.dev = nil
	s.index = AutoSelect
	s.name = ""
}
