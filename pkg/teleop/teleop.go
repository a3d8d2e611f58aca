// Package teleop drives the arm from a game controller: a fixed-rate polling
// loop reads the controller, turns state changes into command tokens and sends
// them over the serial link.
package teleop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/gwillem/kraken/pkg/arduino"
	"github.com/gwillem/kraken/pkg/command"
	"github.com/gwillem/kraken/pkg/gamepad"
	"github.com/gwillem/kraken/pkg/robot"
)

// ErrBusy is returned when a lifecycle request arrives while the controller
// is connecting or shutting down.
var ErrBusy = errors.New("controller busy")

// Status texts published through the Notifier.
const (
	StatusHardwareDisconnected   = "hardware disconnected"
	StatusControllerDisconnected = "controller disconnected"
)

// Phase is the lifecycle phase of a Controller.
type Phase int32

const (
	Idle Phase = iota
	Connecting
	Running
	Closing
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Running:
		return "running"
	case Closing:
		return "closing"
	}
	return fmt.Sprintf("Phase(%d)", int32(p))
}

// Gamepad is the controller side of a session. *gamepad.Source satisfies it.
type Gamepad interface {
	Select(index int) error
	IsConnected() bool
	Snapshot() (gamepad.Snapshot, bool)
	Close() error
}

// Link is the serial side of a session. *arduino.Port satisfies it.
type Link interface {
	Discover() (string, error)
	Open(name string, mode arduino.Mode) error
	IsOpen() bool
	Send(line string) error
	Close() error
}

// Config holds session settings.
type Config struct {
	// GamepadIndex selects the controller; gamepad.AutoSelect binds the
	// first connected one.
	GamepadIndex int
	// Port is the serial port name; empty means discover.
	Port         string
	Mode         arduino.Mode
	Differ       command.Config
	Calibration  robot.Calibration
	Hz           int
	StartupDelay time.Duration
}

// DefaultConfig returns 20 Hz polling after a 100 ms startup delay with
// discovery of both devices.
func DefaultConfig() Config {
	return Config{
		GamepadIndex: gamepad.AutoSelect,
		Mode:         arduino.DefaultMode(arduino.DefaultBaudRate),
		Differ:       command.DefaultConfig(),
		Calibration:  robot.DefaultCalibration(),
		Hz:           20,
		StartupDelay: 100 * time.Millisecond,
	}
}

// NewConfig builds session settings from the persisted configuration.
func NewConfig(rc *robot.Config) (Config, error) {
	mode, err := rc.Mode()
	if err != nil {
		return Config{}, err
	}
	dc, err := rc.Differ()
	if err != nil {
		return Config{}, err
	}
	return Config{
		GamepadIndex: rc.Gamepad.Index,
		Port:         rc.Serial.Port,
		Mode:         mode,
		Differ:       dc,
		Calibration:  rc.Calibration,
		Hz:           rc.Control.Hz,
		StartupDelay: rc.StartupDelay(),
	}, nil
}

// Options configures a Controller.
type Options struct {
	Gamepad  Gamepad
	Link     Link
	Notifier Notifier
	Logger   *log.Logger
	Config   Config
}

// Controller owns one teleoperation session at a time.
type Controller struct {
	pad    Gamepad
	link   Link
	notify Notifier
	log    *log.Logger
	cfg    Config

	mu    sync.Mutex
	phase Phase
	stop  chan struct{}
	done  chan struct{}

	stopping atomic.Bool
	recenter atomic.Bool

	// Owned by the polling goroutine while Running, by the lifecycle caller
	// otherwise.
	differ *command.Differ
	pose   robot.Pose
}

// NewController creates an idle controller.
func NewController(opts Options) *Controller {
	cfg := opts.Config
	if cfg.Hz <= 0 {
		cfg.Hz = 20
	}
	if cfg.Hz > robot.MaxHz {
		cfg.Hz = robot.MaxHz
	}
	if cfg.StartupDelay < 0 {
		cfg.StartupDelay = 0
	}
	if cfg.Calibration == nil {
		cfg.Calibration = robot.DefaultCalibration()
	}
	c := &Controller{
		pad:    opts.Gamepad,
		link:   opts.Link,
		notify: opts.Notifier,
		log:    opts.Logger,
		cfg:    cfg,
		differ: command.NewDiffer(cfg.Differ),
		pose:   robot.CenteredPose(),
	}
	if c.notify == nil {
		c.notify = discard{}
	}
	if c.log == nil {
		c.log = log.Default().WithPrefix("teleop")
	}
	return c
}

// Phase returns the current lifecycle phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Hz returns the polling frequency.
func (c *Controller) Hz() int {
	return c.cfg.Hz
}

// Reset starts a fresh session: any running session is torn down, both
// devices are bound and the polling loop starts. Failures leave the
// controller Idle with both devices released.
func (c *Controller) Reset(ctx context.Context) error {
	c.mu.Lock()
	switch c.phase {
	case Connecting, Closing:
		c.mu.Unlock()
		return ErrBusy
	case Running:
		c.phase = Closing
		c.mu.Unlock()
		if err := c.teardown(); err != nil {
			c.log.Warn("teardown before reset", "err", err)
		}
		c.mu.Lock()
	}
	c.phase = Connecting
	c.mu.Unlock()

	c.notify.Status("connecting")
	if err := c.connect(ctx); err != nil {
		c.release()
		c.setPhase(Idle)
		c.log.Error("reset failed", "err", err)
		c.notify.Status(fmt.Sprintf("reset failed: %v", err))
		return err
	}

	c.differ.Reset()
	c.pose = robot.CenteredPose()
	for i, angle := range c.pose {
		c.notify.AngleUpdated(i, angle)
	}
	c.stopping.Store(false)
	c.recenter.Store(false)

	c.mu.Lock()
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	c.phase = Running
	go c.loop(c.stop, c.done)
	c.mu.Unlock()

	c.notify.Status(fmt.Sprintf("teleoperation started at %d Hz", c.cfg.Hz))
	return nil
}

func (c *Controller) connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	port := c.cfg.Port
	if port == "" {
		found, err := c.link.Discover()
		if err != nil {
			return err
		}
		port = found
	}
	if err := c.link.Open(port, c.cfg.Mode); err != nil {
		return err
	}
	c.notify.Status(fmt.Sprintf("serial port %s open", port))

	if err := ctx.Err(); err != nil {
		return err
	}

	if c.cfg.GamepadIndex == gamepad.AutoSelect {
		if _, ok := c.pad.Snapshot(); !ok {
			return fmt.Errorf("no controller connected: %w", gamepad.ErrDeviceUnavailable)
		}
	} else if err := c.pad.Select(c.cfg.GamepadIndex); err != nil {
		return err
	}
	c.notify.Status("controller connected")
	return nil
}

// Shutdown stops the polling loop, waits for the in-flight tick and releases
// both devices. It is a no-op when Idle.
func (c *Controller) Shutdown() error {
	c.mu.Lock()
	switch c.phase {
	case Idle:
		c.mu.Unlock()
		return nil
	case Connecting, Closing:
		c.mu.Unlock()
		return ErrBusy
	}
	c.phase = Closing
	c.mu.Unlock()

	err := c.teardown()
	c.setPhase(Idle)
	c.notify.Status("teleoperation stopped")
	return err
}

// Recenter asks the polling loop to recenter the arm on its next tick.
func (c *Controller) Recenter() {
	c.recenter.Store(true)
}

func (c *Controller) setPhase(p Phase) {
	c.mu.Lock()
	c.phase = p
	c.mu.Unlock()
}

// teardown runs in Closing only, so stop and done are stable.
func (c *Controller) teardown() error {
	c.stopping.Store(true)
	close(c.stop)
	<-c.done
	return c.release()
}

func (c *Controller) release() error {
	return errors.Join(c.link.Close(), c.pad.Close())
}

func (c *Controller) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	delay := time.NewTimer(c.cfg.StartupDelay)
	defer delay.Stop()
	select {
	case <-stop:
		return
	case <-delay.C:
	}

	c.log.Info("polling started", "hz", c.cfg.Hz)
	ticker := time.NewTicker(time.Second / time.Duration(c.cfg.Hz))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			c.log.Info("polling stopped")
			return
		case <-ticker.C:
			if c.stopping.Load() {
				return
			}
			c.tick()
		}
	}
}

func (c *Controller) tick() {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("tick panicked", "panic", r)
			c.notify.Status(fmt.Sprintf("internal error: %v", r))
		}
	}()

	if c.recenter.Swap(false) {
		c.recenterPose()
	}

	if !c.pad.IsConnected() || !c.link.IsOpen() {
		c.differ.Reset()
		c.notify.Status(StatusHardwareDisconnected)
		return
	}

	snap, _ := c.pad.Snapshot()
	cmds, err := c.differ.Step(snap)
	if err != nil {
		c.notify.Status(StatusControllerDisconnected)
		return
	}

	// A failed send drops only that command; the rest of the tick is still
	// sent.
	for _, cmd := range cmds {
		if err := c.link.Send(cmd.Token.String()); err != nil {
			c.log.Warn("send failed", "action", cmd.Action, "token", cmd.Token.String(), "err", err)
			c.notify.Status(fmt.Sprintf("send %s failed: %v", cmd.Action, err))
			continue
		}
		c.log.Debug("sent", "action", cmd.Action, "token", cmd.Token.String())
		c.publish(c.pose.Apply(cmd.Action, c.cfg.Calibration))
	}
}

// recenterPose handles a presentation request. The token is sent even when
// the mirror is already centered; the mirror only moves once the arm has been
// told to.
func (c *Controller) recenterPose() {
	tok, ok := c.differ.Token(command.Recenter)
	if !ok {
		return
	}
	if err := c.link.Send(tok.String()); err != nil {
		c.log.Warn("recenter send failed", "err", err)
		c.notify.Status(fmt.Sprintf("recenter failed: %v", err))
		return
	}
	c.publish(c.pose.Recenter())
	c.notify.Status("recentered")
}

func (c *Controller) publish(changed []int) {
	for _, i := range changed {
		c.notify.AngleUpdated(i, c.pose[i])
	}
}
