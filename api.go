package main

import (
	"context"
	"errors"
	"io"

	"github.com/jcorbin/xthird/internal/panicerr"
)

// New creates a VM with the given options applied over defaults: a 256 cell
// return stack below main memory at 1024, a memory limit of 1Mi cells, and
// output discarded.
func New(opts ...VMOption) *VM {
	vm := &VM{ctx: context.Background()}
	VMOptions(defaultOptions, VMOptions(opts...)).apply(vm)
	return vm
}

// Run boots the VM and runs it until its input is exhausted, returning nil,
// or until it halts for any other reason, returning the error that caused it.
// Errors that abort a line of input, like an undefined word or a failed
// remote operation, are reported on the output and do not stop Run.
func (vm *VM) Run(ctx context.Context) error {
	err := panicerr.Recover("VM", func() error {
		return vm.run(ctx)
	})
	var halt haltError
	if errors.As(err, &halt) {
		err = halt.error
	}
	if err == io.EOF {
		err = nil
	}
	return err
}

// Close flushes any output, and closes any remaining inputs.
func (vm *VM) Close() error {
	var err error
	if vm.out != nil {
		err = vm.out.Flush()
	}
	if cerr := vm.Input.Close(); err == nil {
		err = cerr
	}
	return err
}

func WithInput(r io.Reader) VMOption               { return withInput(r) }
func WithInputWriter(w io.WriterTo) VMOption       { return withInputWriter(w) }
func WithOutput(w io.Writer) VMOption              { return withOutput(w) }
func WithTee(w io.Writer) VMOption                 { return withTee(w) }
func WithMemLimit(limit uint) VMOption             { return withMemLimit(limit) }
func WithMemLayout(retBase, memBase uint) VMOption { return withMemLayout(retBase, memBase) }
func WithRemote(r Remote) VMOption                 { return withRemote(r) }

func WithLogf(logfn func(mess string, args ...interface{})) VMOption { return withLogfn(logfn) }
