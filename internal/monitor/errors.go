package monitor

import "fmt"

// OpError records the monitor operation that failed, wrapping the transport
// error behind it.
type OpError struct {
	Req Request
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%v 0x%04x: %v", e.Req.Cmd, e.Req.Addr, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }
