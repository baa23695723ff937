package serial

import (
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"time"
)

// Conn is an exclusively owned serial connection. Sends and receives are not
// safe for concurrent use; callers serialize whole protocol operations around
// them. Close may be called at any time, and interrupts a blocked receive if
// the port supports that.
type Conn struct {
	mu      sync.Mutex
	port    Port
	timeout time.Duration

	// set once a receive timed out; the reply may still be on its way
	stale bool
}

// NewConn wraps an already open port. Ports that support read deadlines
// (like net.Conn) have readTimeout applied on every RecvByte; other ports are
// expected to have had their driver configure it at open time.
func NewConn(port Port, readTimeout time.Duration) *Conn {
	return &Conn{port: port, timeout: readTimeout}
}

func (c *Conn) open(op string) (Port, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.port == nil {
		return nil, &IOError{op, ErrClosed}
	}
	return c.port, nil
}

// SendByte writes exactly one byte, blocking until the driver accepts it.
// After a receive timed out, it first waits out the late reply; see drain.
func (c *Conn) SendByte(b byte) error {
	port, err := c.open("send")
	if err != nil {
		return err
	}
	if c.stale {
		if err := c.drain(port); err != nil {
			return err
		}
	}
	buf := [1]byte{b}
	n, err := port.Write(buf[:])
	if err == nil && n != 1 {
		err = io.ErrShortWrite
	}
	if err != nil {
		return &IOError{"send", err}
	}
	return nil
}

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

// RecvByte blocks until exactly one byte is available and returns it.
// Returns ErrTimeout if the read timeout passed without any byte arriving.
func (c *Conn) RecvByte() (byte, error) {
	port, err := c.open("recv")
	if err != nil {
		return 0, err
	}
	var buf [1]byte
	switch _, err := c.read(port, buf[:]); {
	case err == ErrTimeout:
		c.stale = true
		return 0, err
	case err != nil:
		return 0, err
	}
	return buf[0], nil
}

// drain discards input until the line stays quiet for a whole read timeout,
// so that a reply arriving late is not taken as the answer to the next
// request.
func (c *Conn) drain(port Port) error {
	c.stale = false
	if c.timeout <= 0 {
		return nil
	}
	var buf [16]byte
	for {
		switch _, err := c.read(port, buf[:]); {
		case err == ErrTimeout:
			return nil
		case err != nil:
			return err
		}
	}
}

// read waits up to one read timeout for at least one byte.
func (c *Conn) read(port Port, p []byte) (int, error) {
	if rd, ok := port.(readDeadliner); ok && c.timeout > 0 {
		if err := rd.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return 0, &IOError{"recv", err}
		}
	}
	for {
		n, err := port.Read(p)
		if n > 0 {
			return n, nil
		}
		switch {
		case isTimeout(err):
			return 0, ErrTimeout

		// VMIN=0 style drivers report an expired VTIME as an empty read,
		// which os.File turns into EOF
		case c.timeout > 0 && (err == nil || err == io.EOF):
			return 0, ErrTimeout

		case err != nil:
			return 0, &IOError{"recv", err}
		}
	}
}

// Close releases the port; closing twice returns ErrClosed.
func (c *Conn) Close() error {
	c.mu.Lock()
	port := c.port
	c.port = nil
	c.mu.Unlock()
	if port == nil {
		return ErrClosed
	}
	return port.Close()
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
