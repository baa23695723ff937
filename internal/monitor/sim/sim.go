// Package sim simulates a target running the three instruction monitor
// firmware, so that hosts can be exercised without hardware.
package sim

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/jcorbin/xthird/internal/mem"
	"github.com/jcorbin/xthird/internal/monitor"
	"github.com/jcorbin/xthird/internal/panicerr"
)

// Target is a simulated monitor target with a 64KiB address space.
type Target struct {
	mu    sync.Mutex
	mem   mem.Bytes
	calls map[uint16]func(t *Target)
	logf  func(mess string, args ...interface{})
}

// Option configures a Target.
type Option func(t *Target)

// WithLogf sets a function to log every served request through.
func WithLogf(logf func(mess string, args ...interface{})) Option {
	return func(t *Target) { t.logf = logf }
}

// WithCall registers a subroutine to run when the host calls addr.
func WithCall(addr uint16, fn func(t *Target)) Option {
	return func(t *Target) { t.calls[addr] = fn }
}

// New creates a Target with zeroed memory.
func New(opts ...Option) *Target {
	t := &Target{calls: make(map[uint16]func(t *Target))}
	t.mem.Limit = 0x10000
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Load returns the byte at addr.
func (t *Target) Load(addr uint16) byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	val, _ := t.mem.Load(uint(addr))
	return val
}

// Stor sets the byte at addr.
func (t *Target) Stor(addr uint16, val byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mem.Stor(uint(addr), val)
}

// Serve runs the firmware loop against a host connection until the host
// hangs up between requests, which returns nil.
func (t *Target) Serve(rw io.ReadWriter) error {
	var req [3]byte
	for {
		if _, err := io.ReadFull(rw, req[:]); err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}

		addr := uint16(req[0])<<8 | uint16(req[1])
		switch cmd := monitor.Command(req[2]); cmd {
		case monitor.ReadByte:
			val := t.Load(addr)
			t.log("%v 0x%04x -> 0x%02x", cmd, addr, val)
			if _, err := rw.Write([]byte{val}); err != nil {
				return err
			}

		case monitor.WriteByte:
			var data [1]byte
			if _, err := io.ReadFull(rw, data[:]); err != nil {
				return unexpectedEOF(err)
			}
			t.log("%v 0x%04x <- 0x%02x", cmd, addr, data[0])
			t.Stor(addr, data[0])

		case monitor.CallAddress:
			t.log("%v 0x%04x", cmd, addr)
			t.mu.Lock()
			fn := t.calls[addr]
			t.mu.Unlock()
			if fn != nil {
				fn(t)
			}

		default:
			return CommandError{Addr: addr, Cmd: byte(cmd)}
		}
	}
}

// Pipe starts serving a new in-memory connection, returning the host end.
// The served end's result is sent on done after the host end is closed.
func (t *Target) Pipe() (host net.Conn, done <-chan error) {
	host, target := net.Pipe()
	errch := make(chan error, 1)
	go func() {
		defer target.Close()
		errch <- panicerr.Recover("sim", func() error {
			return t.Serve(target)
		})
	}()
	return host, errch
}

func (t *Target) log(mess string, args ...interface{}) {
	if t.logf != nil {
		t.logf(mess, args...)
	}
}

// CommandError indicates that the host sent a command byte the firmware does
// not implement; a real target would now be out of step with the host.
type CommandError struct {
	Addr uint16
	Cmd  byte
}

func (e CommandError) Error() string {
	return fmt.Sprintf("unknown command 0x%02x @0x%04x", e.Cmd, e.Addr)
}

func unexpectedEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
