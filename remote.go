package main

import (
	"context"
	"errors"
	"fmt"
)

// Remote is a target running the three instruction monitor firmware, as
// implemented by *monitor.Monitor.
type Remote interface {
	Peek(ctx context.Context, addr uint16) (byte, error)
	Poke(ctx context.Context, addr uint16, value byte) error
	Call(ctx context.Context, addr uint16) error
}

var errNoRemote = errors.New("no target attached")

// Name    Function
// xc@     pop a target address, push the byte read from there
func (vm *VM) remoteRead() {
	addr := uint16(vm.pop())
	val, err := vm.target().Peek(vm.ctx, addr)
	vm.remoteError(err)
	vm.push(int(val))
}

// Name    Function
// xc!     pop a target address, then a value; write the value's low byte there
func (vm *VM) remoteWrite() {
	addr := uint16(vm.pop())
	val := byte(vm.pop())
	vm.remoteError(vm.target().Poke(vm.ctx, addr, val))
}

// Name    Function
// xcall   pop a target address and call the subroutine there; there is no
//         completion signal from the target
func (vm *VM) remoteCall() {
	addr := uint16(vm.pop())
	vm.remoteError(vm.target().Call(vm.ctx, addr))
}

func (vm *VM) target() Remote {
	if vm.remote == nil {
		vm.abort(fmt.Errorf("%v: %w", codeName(vm.code), errNoRemote))
	}
	return vm.remote
}

// remoteError aborts the current line on any target error, unless the VM
// context is done, which halts it instead.
func (vm *VM) remoteError(err error) {
	if err == nil {
		return
	}
	if cerr := vm.ctx.Err(); cerr != nil {
		vm.halt(cerr)
	}
	vm.abort(err)
}
