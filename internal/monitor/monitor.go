// Package monitor implements the host side of a three instruction remote
// monitor: read a byte of target memory, write a byte of target memory, and
// call a target subroutine.
//
// Every request is the target address, most significant byte first, then a
// command byte, then (for writes only) the data byte:
//
//	read:  addrHi addrLo 0x24         <- value
//	write: addrHi addrLo 0x38 value
//	call:  addrHi addrLo 0x08
//
// Only reads are answered, with exactly one byte.
package monitor

import (
	"context"
	"fmt"
	"sync"
)

// Command is a monitor command byte; the values are fixed by the target
// firmware.
type Command byte

// Monitor commands.
const (
	ReadByte    Command = 0x24
	WriteByte   Command = 0x38
	CallAddress Command = 0x08
)

func (cmd Command) String() string {
	switch cmd {
	case ReadByte:
		return "xc@"
	case WriteByte:
		return "xc!"
	case CallAddress:
		return "xcall"
	default:
		return fmt.Sprintf("Command(0x%02x)", byte(cmd))
	}
}

// Request is a single encoded monitor operation.
type Request struct {
	Addr uint16
	Cmd  Command
	Data byte
}

// Encode returns the request's wire bytes: 4 for WriteByte, 3 otherwise.
func (req Request) Encode() []byte {
	b := []byte{byte(req.Addr >> 8), byte(req.Addr), byte(req.Cmd)}
	if req.Cmd == WriteByte {
		b = append(b, req.Data)
	}
	return b
}

// Conn is the byte channel a Monitor drives; *serial.Conn implements it.
type Conn interface {
	SendByte(b byte) error
	RecvByte() (byte, error)
}

// Monitor runs monitor operations over a connection, one at a time.
type Monitor struct {
	mu   sync.Mutex
	conn Conn
	logf func(mess string, args ...interface{})
}

// New creates a Monitor driving conn.
func New(conn Conn, opts ...Option) *Monitor {
	mon := &Monitor{conn: conn}
	for _, opt := range opts {
		opt(mon)
	}
	return mon
}

// Option configures a Monitor.
type Option func(mon *Monitor)

// WithLogf sets a function to log every operation through.
func WithLogf(logf func(mess string, args ...interface{})) Option {
	return func(mon *Monitor) { mon.logf = logf }
}

// Peek reads the byte at addr.
func (mon *Monitor) Peek(ctx context.Context, addr uint16) (byte, error) {
	req := Request{Addr: addr, Cmd: ReadByte}

	mon.mu.Lock()
	defer mon.mu.Unlock()

	if err := mon.send(ctx, req); err != nil {
		return 0, err
	}
	val, err := mon.conn.RecvByte()
	if err != nil {
		return 0, &OpError{req, err}
	}
	mon.log("%v 0x%04x -> 0x%02x", req.Cmd, addr, val)
	return val, nil
}

// Poke writes value to addr; the target sends no acknowledgement.
func (mon *Monitor) Poke(ctx context.Context, addr uint16, value byte) error {
	req := Request{Addr: addr, Cmd: WriteByte, Data: value}

	mon.mu.Lock()
	defer mon.mu.Unlock()

	if err := mon.send(ctx, req); err != nil {
		return err
	}
	mon.log("%v 0x%04x <- 0x%02x", req.Cmd, addr, value)
	return nil
}

// Call starts the target subroutine at addr. There is no completion signal:
// whether the routine has returned when Call does is up to the caller to know.
func (mon *Monitor) Call(ctx context.Context, addr uint16) error {
	req := Request{Addr: addr, Cmd: CallAddress}

	mon.mu.Lock()
	defer mon.mu.Unlock()

	if err := mon.send(ctx, req); err != nil {
		return err
	}
	mon.log("%v 0x%04x", req.Cmd, addr)
	return nil
}

// PeekBytes reads len(buf) consecutive bytes starting at addr, wrapping
// around at the top of the address space.
func (mon *Monitor) PeekBytes(ctx context.Context, addr uint16, buf []byte) error {
	for i := range buf {
		val, err := mon.Peek(ctx, addr+uint16(i))
		if err != nil {
			return err
		}
		buf[i] = val
	}
	return nil
}

// PokeBytes writes data to consecutive addresses starting at addr, wrapping
// around at the top of the address space.
func (mon *Monitor) PokeBytes(ctx context.Context, addr uint16, data []byte) error {
	for i, val := range data {
		if err := mon.Poke(ctx, addr+uint16(i), val); err != nil {
			return err
		}
	}
	return nil
}

// send must be called with mu held; nothing is sent once ctx is done.
func (mon *Monitor) send(ctx context.Context, req Request) error {
	if err := ctx.Err(); err != nil {
		return &OpError{req, err}
	}
	for _, b := range req.Encode() {
		if err := mon.conn.SendByte(b); err != nil {
			return &OpError{req, err}
		}
	}
	return nil
}

func (mon *Monitor) log(mess string, args ...interface{}) {
	if mon.logf != nil {
		mon.logf(mess, args...)
	}
}
