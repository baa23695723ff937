package panicerr

import (
	"errors"
	"fmt"
)

// prefix renders a goroutine name ahead of a message, if there is one.
func prefix(name, mess string) string {
	if name == "" {
		return mess
	}
	return name + " " + mess
}

type exitError string

func (name exitError) Error() string {
	if name == "" {
		return "runtime.Goexit called"
	}
	return prefix(string(name), "called runtime.Goexit")
}

type panicError struct {
	name  string
	e     interface{}
	stack []byte
}

func (pe panicError) Error() string {
	return prefix(pe.name, fmt.Sprintf("paniced: %v", pe.e))
}

// Format adds the recovered stack under %+v.
func (pe panicError) Format(f fmt.State, c rune) {
	fmt.Fprint(f, pe.Error())
	if c == 'v' && f.Flag('+') {
		fmt.Fprintf(f, "\nPanic stack: %s", pe.stack)
	}
}

// Unwrap returns the panic value, if it was an error.
func (pe panicError) Unwrap() error {
	if err, ok := pe.e.(error); ok {
		return err
	}
	return nil
}

// IsExit returns true if err indicates a recovered goroutine exit.
func IsExit(err error) bool {
	return errors.As(err, new(exitError))
}

// IsPanic returns true if err indicates a recovered goroutine panic.
func IsPanic(err error) bool {
	return errors.As(err, new(panicError))
}

// PanicStack returns the stack captured with a recovered panic, or "" for any
// other error.
func PanicStack(err error) string {
	if pe := new(panicError); errors.As(err, pe) {
		return string(pe.stack)
	}
	return ""
}
