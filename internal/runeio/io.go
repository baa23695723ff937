// Package runeio provides rune level reading and writing helpers, including
// the mnemonic rune literals accepted by the interpreter.
package runeio

import (
	"bufio"
	"io"
	"unicode/utf8"
)

// Reader is an io.Reader that also supports reading runes.
type Reader interface {
	io.Reader
	io.RuneReader
}

// NewReader returns r if it already reads runes, or else buffers it. A
// Name() string method on r carries over to the result.
func NewReader(r io.Reader) Reader {
	if rr, ok := r.(Reader); ok {
		return rr
	}
	br := bufio.NewReader(r)
	if nom, ok := r.(interface{ Name() string }); ok {
		return named{br, nom.Name()}
	}
	return br
}

type named struct {
	*bufio.Reader
	name string
}

func (nr named) Name() string { return nr.name }

// WriteANSIRune writes r to w in the form a terminal expects: C1 controls are
// written as their 7-bit escape sequence, except NEL which becomes "\r\n".
func WriteANSIRune(w io.Writer, r rune) (int, error) {
	if 0x80 <= r && r <= 0x9f {
		if r == 0x85 {
			return io.WriteString(w, "\r\n")
		}
		return w.Write([]byte{0x1b, byte(r ^ 0xc0)})
	}
	if r < utf8.RuneSelf {
		if bw, ok := w.(io.ByteWriter); ok {
			return 1, bw.WriteByte(byte(r))
		}
	}
	var buf [utf8.UTFMax]byte
	return w.Write(buf[:utf8.EncodeRune(buf[:], r)])
}
