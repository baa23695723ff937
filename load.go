package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// loadSpec names a file of raw bytes to write into target memory at addr,
// before the interpreter starts; given on the command line as ADDR:FILE.
type loadSpec struct {
	addr uint16
	file string
}

func (ls loadSpec) String() string { return fmt.Sprintf("0x%04x:%v", ls.addr, ls.file) }

func parseLoadSpec(s string) (ls loadSpec, _ error) {
	i := strings.IndexByte(s, ':')
	if i < 0 {
		return ls, fmt.Errorf("invalid load %q, expected ADDR:FILE", s)
	}
	addr, err := strconv.ParseUint(s[:i], 0, 16)
	if err != nil {
		return ls, fmt.Errorf("invalid load address %q: %w", s[:i], err)
	}
	if s[i+1:] == "" {
		return ls, fmt.Errorf("invalid load %q, missing file name", s)
	}
	ls.addr = uint16(addr)
	ls.file = s[i+1:]
	return ls, nil
}

// loadList implements flag.Value, accumulating every -load given.
type loadList []loadSpec

func (ll loadList) String() string {
	parts := make([]string, len(ll))
	for i, ls := range ll {
		parts[i] = ls.String()
	}
	return strings.Join(parts, ",")
}

func (ll *loadList) Set(s string) error {
	ls, err := parseLoadSpec(s)
	if err == nil {
		*ll = append(*ll, ls)
	}
	return err
}

type byteLoader interface {
	PokeBytes(ctx context.Context, addr uint16, data []byte) error
	PeekBytes(ctx context.Context, addr uint16, buf []byte) error
}

// load writes each file into target memory, then reads it back to verify it.
func (ll loadList) load(ctx context.Context, target byteLoader, logf func(mess string, args ...interface{})) error {
	for _, ls := range ll {
		data, err := os.ReadFile(ls.file)
		if err != nil {
			return err
		}
		if err := ls.load(ctx, target, data); err != nil {
			return fmt.Errorf("load %v: %w", ls, err)
		}
		logf("loaded %v bytes from %v @0x%04x", len(data), ls.file, ls.addr)
	}
	return nil
}

func (ls loadSpec) load(ctx context.Context, target byteLoader, data []byte) error {
	if end := int(ls.addr) + len(data); end > 0x10000 {
		return fmt.Errorf("%v bytes do not fit below 0x10000", len(data))
	}
	if err := target.PokeBytes(ctx, ls.addr, data); err != nil {
		return err
	}
	back := make([]byte, len(data))
	if err := target.PeekBytes(ctx, ls.addr, back); err != nil {
		return err
	}
	if i := mismatch(data, back); i >= 0 {
		return fmt.Errorf("verify failed @0x%04x: wrote 0x%02x, read 0x%02x",
			int(ls.addr)+i, data[i], back[i])
	}
	return nil
}

func mismatch(a, b []byte) int {
	if bytes.Equal(a, b) {
		return -1
	}
	for i := range a {
		if i >= len(b) || a[i] != b[i] {
			return i
		}
	}
	return len(a)
}
