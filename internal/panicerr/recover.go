// Package panicerr runs functions on their own goroutine, converting any
// panic or runtime.Goexit into an error return.
package panicerr

import "runtime/debug"

// Recover runs f in a new goroutine, waiting for it to return. Any panic or
// abnormal exit is returned as an error that IsPanic or IsExit recognizes.
func Recover(name string, f func() error) error {
	errch := make(chan error, 1)
	go func() {
		defer close(errch)
		defer sendExit(name, errch)
		defer sendPanic(name, errch)
		errch <- f()
	}()
	return <-errch
}

// sendExit only sends if f neither returned nor panicked; errch has room
// for exactly one value.
func sendExit(name string, errch chan<- error) {
	select {
	case errch <- exitError(name):
	default:
	}
}

func sendPanic(name string, errch chan<- error) {
	if e := recover(); e != nil {
		select {
		case errch <- panicError{name: name, e: e, stack: debug.Stack()}:
		default:
		}
	}
}
