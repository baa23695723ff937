// Package fileinput reads runes through a queue of named input streams,
// tracking file:line locations for diagnostics.
package fileinput

import (
	"bytes"
	"fmt"
	"io"

	"github.com/jcorbin/xthird/internal/runeio"
)

// Location names a line in an Input file.
type Location struct {
	Name string
	Line int
}

func (loc Location) String() string { return fmt.Sprintf("%v:%v", loc.Name, loc.Line) }

// Line is the text read so far from a Location, without its line feed.
type Line struct {
	Location
	bytes.Buffer
}

func (il Line) String() string { return fmt.Sprintf("%v %q", il.Location, il.Buffer.String()) }

// Input reads runes from each queued stream in turn, closing those that are
// io.Closers once exhausted. Scan holds the line being read, and Last the
// one before it.
type Input struct {
	Queue []io.Reader
	Last  Line
	Scan  Line

	cur io.Reader
	rr  io.RuneReader
}

// Push appends a stream to the input queue.
func (in *Input) Push(r io.Reader) {
	in.Queue = append(in.Queue, r)
}

// ReadRune reads the next rune. Running out of any stream but the last
// yields a zero rune and size with a nil error, marking the boundary; io.EOF
// is only returned once every stream is exhausted.
func (in *Input) ReadRune() (r rune, n int, err error) {
	if in.rr == nil && !in.advance() {
		return 0, 0, io.EOF
	}
	r, n, err = in.rr.ReadRune()
	switch {
	case n == 0:
		if err == io.EOF && in.advance() {
			err = nil
		}
		return 0, 0, err
	case r == '\n':
		in.endLine()
	default:
		in.Scan.WriteRune(r)
	}
	return r, n, nil
}

// SkipLine discards the remainder of a partially scanned line, so that
// reading resumes at the start of the next one.
func (in *Input) SkipLine() error {
	for in.Scan.Len() > 0 {
		if _, _, err := in.ReadRune(); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the current stream and any queued ones that are closers.
func (in *Input) Close() error {
	err := in.closeCurrent()
	for _, r := range in.Queue {
		if cl, ok := r.(io.Closer); ok {
			if cerr := cl.Close(); err == nil {
				err = cerr
			}
		}
	}
	in.Queue = nil
	return err
}

func (in *Input) endLine() {
	in.Last.Location = in.Scan.Location
	in.Last.Reset()
	in.Last.Write(in.Scan.Bytes())
	in.Scan.Reset()
	in.Scan.Line++
}

func (in *Input) advance() bool {
	if in.Scan.Len() > 0 {
		in.endLine()
	}
	in.closeCurrent()
	if len(in.Queue) == 0 {
		return false
	}
	in.cur, in.Queue = in.Queue[0], in.Queue[1:]
	in.rr = runeio.NewReader(in.cur)
	in.Scan.Location = Location{Name: nameOf(in.cur), Line: 1}
	return true
}

func (in *Input) closeCurrent() (err error) {
	if cl, ok := in.cur.(io.Closer); ok {
		err = cl.Close()
	}
	in.cur, in.rr = nil, nil
	return err
}

func nameOf(r io.Reader) string {
	if nom, ok := r.(interface{ Name() string }); ok {
		return nom.Name()
	}
	return fmt.Sprintf("<unnamed %T>", r)
}
