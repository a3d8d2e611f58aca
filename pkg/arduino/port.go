// Package arduino manages the line-oriented serial link to the arm's
// microcontroller.
package arduino

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

var (
	// ErrPortNotFound is returned by Discover when no port looks like an Arduino.
	ErrPortNotFound = errors.New("arduino port not found")
	// ErrPortOpenFailed is returned when the port cannot be opened or configured.
	ErrPortOpenFailed = errors.New("open port failed")
	// ErrWriteFailed is returned when a line cannot be written.
	ErrWriteFailed = errors.New("write failed")
	// ErrReadFailed is returned when reading from the port fails.
	ErrReadFailed = errors.New("read failed")
	// ErrNoData is returned by Receive when no complete line is buffered.
	ErrNoData = errors.New("no data")
)

// State is the lifecycle state of the connection.
type State int

const (
	Unbound State = iota
	Open
	Closed
)

func (s State) String() string {
	switch s {
	case Unbound:
		return "unbound"
	case Open:
		return "open"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Conn is an open serial connection. serial.Port satisfies it.
type Conn interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	Drain() error
}

// Opener opens a serial port by name.
type Opener func(name string, mode *serial.Mode) (Conn, error)

// Lister enumerates serial ports with their USB details.
type Lister func() ([]*enumerator.PortDetails, error)

func openSerial(name string, mode *serial.Mode) (Conn, error) {
	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Options configures a Port.
type Options struct {
	Open   Opener
	List   Lister
	Logger *log.Logger
}

// maxPending caps input buffered while waiting for a line terminator.
const maxPending = 1024

// Port is the serial link to the microcontroller. It is not safe for
// concurrent use; one goroutine owns it at a time.
type Port struct {
	open Opener
	list Lister
	log  *log.Logger

	name    string
	mode    Mode
	conn    Conn
	state   State
	pending []byte
	buf     []byte
}

// New creates an unbound port.
func New(opts Options) *Port {
	p := &Port{
		open: opts.Open,
		list: opts.List,
		log:  opts.Logger,
		buf:  make([]byte, 128),
	}
	if p.open == nil {
		p.open = openSerial
	}
	if p.list == nil {
		p.list = enumerator.GetDetailedPortsList
	}
	if p.log == nil {
		p.log = log.Default().WithPrefix("serial")
	}
	return p
}

// Ports lists the available serial ports.
func (p *Port) Ports() ([]*enumerator.PortDetails, error) {
	ports, err := p.list()
	if err != nil {
		return nil, fmt.Errorf("list ports: %w", err)
	}
	return ports, nil
}

// Discover returns the first port whose description mentions "arduino".
func (p *Port) Discover() (string, error) {
	ports, err := p.Ports()
	if err != nil {
		return "", err
	}
	for _, d := range ports {
		if strings.Contains(strings.ToLower(Description(d)), "arduino") {
			p.log.Info("arduino detected", "port", d.Name, "product", d.Product)
			return d.Name, nil
		}
	}
	p.log.Warn("arduino not detected", "ports", len(ports))
	return "", ErrPortNotFound
}

// Description returns the human readable name of a port: the USB product
// string when known, otherwise the port name.
func Description(d *enumerator.PortDetails) string {
	if d.Product != "" {
		return d.Product
	}
	return d.Name
}

// Open configures and opens the named port, closing any previous connection.
func (p *Port) Open(name string, mode Mode) error {
	if p.conn != nil {
		p.Close()
	}
	mode = mode.withDefaults()

	conn, err := p.open(name, mode.serialMode())
	if err != nil {
		p.log.Error("could not open port", "port", name, "err", err)
		return fmt.Errorf("%w: %s: %v", ErrPortOpenFailed, name, err)
	}
	if err := conn.SetReadTimeout(mode.ReadTimeout); err != nil {
		conn.Close()
		return fmt.Errorf("%w: %s: set read timeout: %v", ErrPortOpenFailed, name, err)
	}

	p.conn = conn
	p.name = name
	p.mode = mode
	p.state = Open
	p.pending = p.pending[:0]
	p.log.Info("port open", "port", name, "baud", mode.BaudRate)
	return nil
}

// IsOpen reports whether the connection is open.
func (p *Port) IsOpen() bool {
	return p.state == Open
}

// State returns the connection state.
func (p *Port) State() State {
	return p.state
}

// Name returns the last opened port name.
func (p *Port) Name() string {
	return p.name
}

// Send writes line followed by a newline. Sending on a port that is not open
// fails without changing its state. A failed write leaves the port open so
// the next line can go through, unless the device itself is gone.
func (p *Port) Send(line string) error {
	line = strings.TrimSpace(line)
	if p.state != Open {
		p.log.Warn("port not open, dropping", "line", line)
		return fmt.Errorf("%w: port %s", ErrWriteFailed, p.state)
	}

	if _, err := p.conn.Write([]byte(line + "\n")); err != nil {
		p.log.Error("write failed", "port", p.name, "line", line, "err", err)
		if deviceGone(err) {
			p.teardown()
		}
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	p.log.Debug("sent", "line", line)
	return nil
}

// Receive returns one line from the microcontroller, without its terminator.
// It reads at most once, waiting up to the read timeout.
func (p *Port) Receive() (string, error) {
	if line, ok := p.popLine(); ok {
		return line, nil
	}
	if p.state != Open {
		return "", ErrNoData
	}

	n, err := p.conn.Read(p.buf)
	if err != nil {
		p.log.Error("read failed", "port", p.name, "err", err)
		return "", fmt.Errorf("%w: %v", ErrReadFailed, err)
	}
	p.pending = append(p.pending, p.buf[:n]...)

	if line, ok := p.popLine(); ok {
		return line, nil
	}
	if over := len(p.pending) - maxPending; over > 0 {
		p.log.Warn("no line terminator, dropping input", "port", p.name, "bytes", over)
		p.pending = append(p.pending[:0], p.pending[over:]...)
	}
	return "", ErrNoData
}

func (p *Port) popLine() (string, bool) {
	i := bytes.IndexByte(p.pending, '\n')
	if i < 0 {
		return "", false
	}
	line := strings.TrimSpace(string(p.pending[:i]))
	p.pending = append(p.pending[:0], p.pending[i+1:]...)
	return line, true
}

// Close flushes and releases the port. It is safe to call more than once and
// on a port that was never opened.
func (p *Port) Close() error {
	if p.conn == nil {
		return nil
	}
	var errs []error
	if err := p.conn.Drain(); err != nil {
		errs = append(errs, fmt.Errorf("drain: %w", err))
	}
	if err := p.conn.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close: %w", err))
	}
	p.conn = nil
	p.state = Closed
	p.log.Info("port closed", "port", p.name)
	return errors.Join(errs...)
}

// deviceGone reports whether err means the port can never be written again,
// as opposed to a transient failure like EAGAIN.
func deviceGone(err error) bool {
	var pe *serial.PortError
	if errors.As(err, &pe) && pe.Code() == serial.PortClosed {
		return true
	}
	for _, target := range []error{syscall.ENODEV, syscall.ENXIO, syscall.EIO, syscall.EBADF, os.ErrClosed} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (p *Port) teardown() {
	if p.conn != nil {
		p.conn.Close()
	}
	p.conn = nil
	p.state = Closed
}
