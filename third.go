package main

import (
	_ "embed"
	"io"
	"strings"
)

//// Section 3: Building THIRD

// THIRD is built by feeding FIRST its source, third.fs, ahead of any user
// input.  The source starts out without comments, since FIRST cannot skip
// them; it explains itself once it has defined ( .
//
// Beyond the classic THIRD, the kernel names the remote primitives
// xc@ xc! and xcall, defines a few conveniences on top of them, and installs
// command as the abort vector so that an error drops back into command mode.
var thirdKernel = kernelSource{"third.fs", thirdSource}

//go:embed third.fs
var thirdSource string

type kernelSource struct{ name, src string }

func (ks kernelSource) Name() string { return ks.name }

// WriteTo writes the kernel a line at a time, so that it may be interleaved
// with trace logging of the VM reading it.
func (ks kernelSource) WriteTo(w io.Writer) (n int64, err error) {
	for src := ks.src; src != "" && err == nil; {
		line := src
		if i := strings.IndexByte(src, '\n'); i >= 0 {
			line = src[:i+1]
		}
		src = src[len(line):]
		var m int
		m, err = io.WriteString(w, line)
		n += int64(m)
	}
	return n, err
}
