// Package serial provides the byte channel to a target's monitor firmware:
// one exclusively owned serial connection, configured 8N1 raw, with ordered
// single byte sends and receives.
package serial

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"sort"
	"time"
)

// DefaultBaud is the monitor firmware's line rate.
const DefaultBaud = 115200

// DefaultDevice returns the platform's usual name for a USB serial adapter.
func DefaultDevice() string {
	switch runtime.GOOS {
	case "linux":
		return "/dev/ttyUSB0"
	case "darwin":
		return "/dev/cu.usbserial"
	case "windows":
		return "COM1"
	default:
		return "/dev/ttyU1"
	}
}

// Config holds serial port configuration.
type Config struct {
	// Device path, e.g. /dev/ttyUSB0 or COM3.
	Device string

	// Baud rate; must be one of the standard rates a driver supports.
	Baud int

	// Driver names the implementation used to open Device; empty selects
	// DefaultDriver.
	Driver string

	// ReadTimeout bounds how long RecvByte waits for a byte; zero waits
	// forever.
	ReadTimeout time.Duration

	// Trace, if set, receives a log line for all traffic; see Trace.
	Trace func(mess string, args ...interface{})
}

// Port is an open serial line as provided by a driver.
type Port interface {
	io.ReadWriteCloser
}

// Driver opens a port according to a config.
type Driver func(cfg Config) (Port, error)

var drivers = make(map[string]Driver)

// Register makes a driver available under name; it is meant to be called
// from init functions.
func Register(name string, drv Driver) {
	if _, dup := drivers[name]; dup {
		panic(fmt.Sprintf("serial: driver %q registered twice", name))
	}
	drivers[name] = drv
}

// Drivers returns the sorted names of all registered drivers.
func Drivers() []string {
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open opens the configured device, returning a *PortOpenError on any failure.
func Open(cfg Config) (*Conn, error) {
	if cfg.Baud == 0 {
		cfg.Baud = DefaultBaud
	}
	if cfg.Driver == "" {
		cfg.Driver = DefaultDriver
	}
	drv, ok := drivers[cfg.Driver]
	if !ok {
		return nil, &PortOpenError{Device: cfg.Device, Err: fmt.Errorf("unknown driver %q, have %v", cfg.Driver, Drivers())}
	}
	if !supportedBaud(cfg.Baud) {
		return nil, &PortOpenError{Device: cfg.Device, Err: fmt.Errorf("unsupported baud rate %v", cfg.Baud)}
	}
	port, err := drv(cfg)
	if err != nil {
		return nil, &PortOpenError{Device: cfg.Device, Err: err}
	}
	return NewConn(Trace(port, cfg.Trace), cfg.ReadTimeout), nil
}

// standard rates, as found in termios(3)
var bauds = []int{
	1200, 1800, 2400, 4800, 9600, 19200, 38400, 57600,
	115200, 230400, 460800, 500000, 576000, 921600,
	1000000, 1152000, 1500000, 2000000, 2500000, 3000000, 3500000, 4000000,
}

func supportedBaud(baud int) bool {
	i := sort.SearchInts(bauds, baud)
	return i < len(bauds) && bauds[i] == baud
}

// PortOpenError indicates that the serial device could not be opened or
// configured; no traffic has been attempted.
type PortOpenError struct {
	Device string
	Err    error
}

func (e *PortOpenError) Error() string {
	return fmt.Sprintf("unable to open port %v: %v", e.Device, e.Err)
}

func (e *PortOpenError) Unwrap() error { return e.Err }

// IOError indicates that a send or receive failed on an open connection.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string { return fmt.Sprintf("serial %v: %v", e.Op, e.Err) }

func (e *IOError) Unwrap() error { return e.Err }

var (
	// ErrTimeout is returned by RecvByte when no byte arrived within the
	// read timeout.
	ErrTimeout = errors.New("read timeout")

	// ErrClosed is returned by operations on a closed connection.
	ErrClosed = errors.New("connection closed")
)
