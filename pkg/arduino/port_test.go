package arduino

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

type fakeConn struct {
	written  bytes.Buffer
	reads    [][]byte
	readErr  error
	writeErr error
	timeout  time.Duration
	drained  bool
	closed   int
}

func (c *fakeConn) Read(p []byte) (int, error) {
	if c.readErr != nil {
		return 0, c.readErr
	}
	if len(c.reads) == 0 {
		return 0, nil // read timeout
	}
	n := copy(p, c.reads[0])
	c.reads = c.reads[1:]
	return n, nil
}

func (c *fakeConn) Write(p []byte) (int, error) {
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	return c.written.Write(p)
}

func (c *fakeConn) Close() error { c.closed++; return nil }

func (c *fakeConn) SetReadTimeout(t time.Duration) error { c.timeout = t; return nil }

func (c *fakeConn) Drain() error { c.drained = true; return nil }

func newTestPort(conn *fakeConn, ports []*enumerator.PortDetails) (*Port, *serial.Mode) {
	var opened serial.Mode
	p := New(Options{
		Open: func(name string, mode *serial.Mode) (Conn, error) {
			if conn == nil {
				return nil, errors.New("busy")
			}
			opened = *mode
			return conn, nil
		},
		List: func() ([]*enumerator.PortDetails, error) {
			return ports, nil
		},
		Logger: log.New(io.Discard),
	})
	return p, &opened
}

func TestPort_Discover(t *testing.T) {
	tests := []struct {
		name  string
		ports []*enumerator.PortDetails
		want  string
	}{
		{
			name: "first match wins",
			ports: []*enumerator.PortDetails{
				{Name: "/dev/ttyS0"},
				{Name: "/dev/ttyUSB0", Product: "CP2102 USB to UART"},
				{Name: "/dev/ttyACM0", IsUSB: true, Product: "Arduino Uno"},
				{Name: "/dev/ttyACM1", IsUSB: true, Product: "ARDUINO Mega 2560"},
			},
			want: "/dev/ttyACM0",
		},
		{
			name: "case insensitive",
			ports: []*enumerator.PortDetails{
				{Name: "COM4", Product: "aRdUiNo Leonardo"},
			},
			want: "COM4",
		},
		{
			name: "falls back to port name",
			ports: []*enumerator.PortDetails{
				{Name: "/dev/serial/by-id/usb-Arduino_LLC_Arduino_Nano_Every-if00"},
			},
			want: "/dev/serial/by-id/usb-Arduino_LLC_Arduino_Nano_Every-if00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestPort(nil, tt.ports)
			got, err := p.Discover()
			if err != nil {
				t.Fatalf("Discover() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Discover() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPort_DiscoverNoMatch(t *testing.T) {
	for _, ports := range [][]*enumerator.PortDetails{
		nil,
		{{Name: "/dev/ttyS0"}, {Name: "/dev/ttyUSB0", Product: "FT232R"}},
	} {
		p, _ := newTestPort(nil, ports)
		if _, err := p.Discover(); !errors.Is(err, ErrPortNotFound) {
			t.Errorf("Discover() error = %v, want ErrPortNotFound", err)
		}
	}
}

func TestPort_DiscoverListError(t *testing.T) {
	p := New(Options{
		List:   func() ([]*enumerator.PortDetails, error) { return nil, errors.New("permission denied") },
		Logger: log.New(io.Discard),
	})
	if _, err := p.Discover(); err == nil || errors.Is(err, ErrPortNotFound) {
		t.Errorf("Discover() error = %v, want list error", err)
	}
}

func TestPort_Open(t *testing.T) {
	conn := &fakeConn{}
	p, mode := newTestPort(conn, nil)

	if p.State() != Unbound {
		t.Fatalf("new port state = %s, want unbound", p.State())
	}
	if err := p.Open("/dev/ttyACM0", DefaultMode(9600)); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if !p.IsOpen() || p.Name() != "/dev/ttyACM0" {
		t.Errorf("port not open after Open: state=%s name=%q", p.State(), p.Name())
	}
	if mode.BaudRate != 9600 || mode.DataBits != 8 || mode.StopBits != serial.OneStopBit || mode.Parity != serial.NoParity {
		t.Errorf("unexpected serial mode %+v", *mode)
	}
	if conn.timeout != 100*time.Millisecond {
		t.Errorf("read timeout = %v, want 100ms", conn.timeout)
	}
}

func TestPort_OpenFailed(t *testing.T) {
	p, _ := newTestPort(nil, nil)
	err := p.Open("/dev/ttyACM0", Mode{})
	if !errors.Is(err, ErrPortOpenFailed) {
		t.Errorf("Open() error = %v, want ErrPortOpenFailed", err)
	}
	if p.IsOpen() {
		t.Error("port should not be open after a failed Open")
	}
}

func TestPort_Send(t *testing.T) {
	conn := &fakeConn{}
	p, _ := newTestPort(conn, nil)
	if err := p.Open("COM3", DefaultMode(9600)); err != nil {
		t.Fatal(err)
	}

	for _, line := range []string{"k", " L ", "c"} {
		if err := p.Send(line); err != nil {
			t.Fatalf("Send(%q) error = %v", line, err)
		}
	}
	if got := conn.written.String(); got != "k\nL\nc\n" {
		t.Errorf("wire = %q, want %q", got, "k\nL\nc\n")
	}
}

func TestPort_SendNotOpen(t *testing.T) {
	p, _ := newTestPort(&fakeConn{}, nil)

	if err := p.Send("k"); !errors.Is(err, ErrWriteFailed) {
		t.Errorf("Send() on unbound port = %v, want ErrWriteFailed", err)
	}
	if p.State() != Unbound {
		t.Errorf("state changed to %s", p.State())
	}

	if err := p.Open("COM3", Mode{}); err != nil {
		t.Fatal(err)
	}
	p.Close()
	if err := p.Send("k"); !errors.Is(err, ErrWriteFailed) {
		t.Errorf("Send() on closed port = %v, want ErrWriteFailed", err)
	}
	if p.State() != Closed {
		t.Errorf("state changed to %s", p.State())
	}
}

func TestPort_SendWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantState  State
		wantClosed int
	}{
		{"transient", syscall.EAGAIN, Open, 0},
		{"timeout", errors.New("write timeout"), Open, 0},
		{"unplugged", fmt.Errorf("write /dev/ttyACM0: %w", syscall.EIO), Closed, 1},
		{"no device", syscall.ENODEV, Closed, 1},
		{"port busy", &serial.PortError{}, Open, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &fakeConn{writeErr: tt.err}
			p, _ := newTestPort(conn, nil)
			if err := p.Open("COM3", Mode{}); err != nil {
				t.Fatal(err)
			}

			if err := p.Send("k"); !errors.Is(err, ErrWriteFailed) {
				t.Errorf("Send() = %v, want ErrWriteFailed", err)
			}
			if p.State() != tt.wantState {
				t.Errorf("state after write error = %s, want %s", p.State(), tt.wantState)
			}
			if conn.closed != tt.wantClosed {
				t.Errorf("conn closed %d times, want %d", conn.closed, tt.wantClosed)
			}
		})
	}
}

func TestPort_SendAfterTransientError(t *testing.T) {
	conn := &fakeConn{writeErr: syscall.EAGAIN}
	p, _ := newTestPort(conn, nil)
	if err := p.Open("COM3", Mode{}); err != nil {
		t.Fatal(err)
	}

	if err := p.Send("k"); err == nil {
		t.Fatal("Send() succeeded, want error")
	}
	conn.writeErr = nil
	if err := p.Send("S"); err != nil {
		t.Fatalf("Send() after transient error = %v", err)
	}
	if got := conn.written.String(); got != "S\n" {
		t.Errorf("wire = %q, want %q", got, "S\n")
	}
}

func TestPort_Receive(t *testing.T) {
	conn := &fakeConn{reads: [][]byte{[]byte("rea"), []byte("dy\r\nok\n")}}
	p, _ := newTestPort(conn, nil)
	if err := p.Open("COM3", Mode{}); err != nil {
		t.Fatal(err)
	}

	if _, err := p.Receive(); !errors.Is(err, ErrNoData) {
		t.Errorf("partial line: err = %v, want ErrNoData", err)
	}
	if line, err := p.Receive(); err != nil || line != "ready" {
		t.Errorf("Receive() = %q, %v, want ready", line, err)
	}
	if line, err := p.Receive(); err != nil || line != "ok" {
		t.Errorf("Receive() = %q, %v, want ok", line, err)
	}
	if _, err := p.Receive(); !errors.Is(err, ErrNoData) {
		t.Errorf("empty buffer: err = %v, want ErrNoData", err)
	}

	conn.readErr = errors.New("i/o error")
	if _, err := p.Receive(); !errors.Is(err, ErrReadFailed) {
		t.Errorf("read error: err = %v, want ErrReadFailed", err)
	}
}

func TestPort_ReceiveDropsUnterminated(t *testing.T) {
	noise := bytes.Repeat([]byte("x"), 100)
	conn := &fakeConn{}
	for i := 0; i < 20; i++ {
		conn.reads = append(conn.reads, noise)
	}
	conn.reads = append(conn.reads, []byte("ok\n"))
	p, _ := newTestPort(conn, nil)
	if err := p.Open("COM3", Mode{}); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 20; i++ {
		if _, err := p.Receive(); !errors.Is(err, ErrNoData) {
			t.Fatalf("read %d: err = %v, want ErrNoData", i, err)
		}
		if len(p.pending) > maxPending {
			t.Fatalf("read %d: buffered %d bytes, cap is %d", i, len(p.pending), maxPending)
		}
	}
	line, err := p.Receive()
	if err != nil {
		t.Fatal(err)
	}
	if len(line) != maxPending+2 || !strings.HasSuffix(line, "xok") {
		t.Errorf("line has %d bytes, want the newest %d", len(line), maxPending+2)
	}
}

func TestPort_ReceiveNotOpen(t *testing.T) {
	p, _ := newTestPort(nil, nil)
	if _, err := p.Receive(); !errors.Is(err, ErrNoData) {
		t.Errorf("Receive() = %v, want ErrNoData", err)
	}
}

func TestPort_Close(t *testing.T) {
	p, _ := newTestPort(nil, nil)
	if err := p.Close(); err != nil {
		t.Errorf("Close() on never-opened port = %v", err)
	}

	conn := &fakeConn{}
	p, _ = newTestPort(conn, nil)
	if err := p.Open("COM3", Mode{}); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if !conn.drained || conn.closed != 1 {
		t.Errorf("drained=%v closed=%d", conn.drained, conn.closed)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
	if conn.closed != 1 {
		t.Errorf("conn closed %d times, want 1", conn.closed)
	}
	if p.State() != Closed {
		t.Errorf("state = %s, want closed", p.State())
	}
}

func TestParseLineSettings(t *testing.T) {
	if p, err := ParseParity("Even"); err != nil || p != serial.EvenParity {
		t.Errorf("ParseParity(Even) = %v, %v", p, err)
	}
	if _, err := ParseParity("bogus"); err == nil {
		t.Error("ParseParity(bogus) should fail")
	}
	if s, err := ParseStopBits("2"); err != nil || s != serial.TwoStopBits {
		t.Errorf("ParseStopBits(2) = %v, %v", s, err)
	}
	if _, err := ParseStopBits("3"); err == nil {
		t.Error("ParseStopBits(3) should fail")
	}
}
