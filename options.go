package main

import (
	"io"

	"github.com/jcorbin/xthird/internal/flushio"
)

// VMOption configures a VM; see the With* functions.
type VMOption interface{ apply(vm *VM) }

// VMOptions flattens any number of options into one, skipping nils.
func VMOptions(opts ...VMOption) VMOption {
	var res vmOptions
	for _, opt := range opts {
		switch impl := opt.(type) {
		case nil:
		case vmOptions:
			res = append(res, impl...)
		default:
			res = append(res, impl)
		}
	}
	if len(res) == 1 {
		return res[0]
	}
	return res
}

type vmOptions []VMOption

func (opts vmOptions) apply(vm *VM) {
	for _, opt := range opts {
		opt.apply(vm)
	}
}

var defaultOptions = VMOptions(
	withMemLayout(defaultRetBase, defaultMemBase),
	withMemLimit(defaultMemLimit),
	withOutput(io.Discard),
)

type withLogfn func(mess string, args ...interface{})

func (logfn withLogfn) apply(vm *VM) {
	vm.logfn = logfn
}

type inputOption struct{ io.Reader }
type inputWriterOption struct{ io.WriterTo }
type outputOption struct{ io.Writer }
type teeOption struct{ io.Writer }
type memLimitOption uint
type memLayoutOption struct{ retBase, memBase uint }
type remoteOption struct{ Remote }

func withInput(r io.Reader) inputOption                 { return inputOption{r} }
func withInputWriter(w io.WriterTo) inputWriterOption   { return inputWriterOption{w} }
func withOutput(w io.Writer) outputOption               { return outputOption{w} }
func withTee(w io.Writer) teeOption                     { return teeOption{w} }
func withMemLimit(limit uint) memLimitOption            { return memLimitOption(limit) }
func withRemote(r Remote) remoteOption                  { return remoteOption{r} }
func withMemLayout(retBase, memBase uint) memLayoutOption { return memLayoutOption{retBase, memBase} }

func (i inputOption) apply(vm *VM) {
	vm.Input.Push(i.Reader)
}

// The writer runs on its own goroutine, streaming into a pipe that is read
// as a normal input; closing the VM closes the pipe if it has not been read to
// the end yet.
func (i inputWriterOption) apply(vm *VM) {
	pr, pw := io.Pipe()
	go func() {
		_, err := i.WriteTo(pw)
		pw.CloseWithError(err)
	}()
	name := "<input writer>"
	if nom, ok := i.WriterTo.(interface{ Name() string }); ok {
		name = nom.Name()
	}
	vm.Input.Push(NamedReader(name, pr))
}

func (o outputOption) apply(vm *VM) {
	if vm.out != nil {
		vm.out.Flush()
	}
	vm.out = flushio.NewWriteFlusher(o.Writer)
}

func (o teeOption) apply(vm *VM) {
	vm.out = flushio.WriteFlushers(vm.out, flushio.NewWriteFlusher(o.Writer))
}

func (lim memLimitOption) apply(vm *VM) {
	vm.Limit = uint(lim)
}

func (lay memLayoutOption) apply(vm *VM) {
	vm.retBase = lay.retBase
	vm.memBase = lay.memBase
}

func (r remoteOption) apply(vm *VM) {
	vm.remote = r.Remote
}

// NamedReader attaches a name to a reader, for use in error and log locations.
// The result is an io.Closer, closing r if it is one.
func NamedReader(name string, r io.Reader) io.ReadCloser {
	return namedReader{r, name}
}

type namedReader struct {
	io.Reader
	name string
}

func (nr namedReader) Name() string { return nr.name }

func (nr namedReader) Close() error {
	if cl, ok := nr.Reader.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}
