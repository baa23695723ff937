// Package flushio provides writers that buffer until explicitly flushed, as
// used for interpreter output that must be visible before blocking on input.
package flushio

import (
	"bufio"
	"io"
)

// WriteFlusher is a flush-able io.Writer.
type WriteFlusher interface {
	io.Writer
	Flush() error
}

// NewWriteFlusher returns w itself if it can already flush, a write-through
// wrapper if w is an in-memory buffer or io.Discard, or else a bufio.Writer.
func NewWriteFlusher(w io.Writer) WriteFlusher {
	switch impl := w.(type) {
	case WriteFlusher:
		return impl
	case interface{ Len() int }:
		return unbuffered{w}
	}
	if w == io.Discard {
		return unbuffered{w}
	}
	return bufio.NewWriter(w)
}

type unbuffered struct{ io.Writer }

func (unbuffered) Flush() error { return nil }

// WriteFlushers returns a WriteFlusher that writes to and flushes every one
// of wfs, skipping nils and flattening prior combinations; it returns nil for
// none, and the lone writer for one.
func WriteFlushers(wfs ...WriteFlusher) WriteFlusher {
	var all tee
	for _, wf := range wfs {
		switch impl := wf.(type) {
		case nil:
		case tee:
			all = append(all, impl...)
		default:
			all = append(all, wf)
		}
	}
	switch len(all) {
	case 0:
		return nil
	case 1:
		return all[0]
	}
	return all
}

type tee []WriteFlusher

func (t tee) Write(p []byte) (int, error) {
	for _, wf := range t {
		if n, err := wf.Write(p); err != nil {
			return n, err
		} else if n < len(p) {
			return n, io.ErrShortWrite
		}
	}
	return len(p), nil
}

// Flush flushes every writer, returning the first error.
func (t tee) Flush() error {
	var first error
	for _, wf := range t {
		if err := wf.Flush(); first == nil {
			first = err
		}
	}
	return first
}
