package main

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jcorbin/xthird/internal/logio"
	"github.com/jcorbin/xthird/internal/panicerr"
)

type vmTestCases []vmTestCase

// run runs each case as a subtest, stopping at the first failure; if any case
// is marked exclusive, only those run.
func (vmts vmTestCases) run(t *testing.T) {
	only := vmts[:0:0]
	for _, vmt := range vmts {
		if vmt.exclusive {
			only = append(only, vmt)
		}
	}
	if len(only) > 0 {
		vmts = only
	}
	for _, vmt := range vmts {
		if !t.Run(vmt.name, vmt.run) {
			return
		}
	}
}

func vmTest(name string) (vmt vmTestCase) {
	vmt.name = name
	return vmt
}

type optFunc func(vm *VM)

func (f optFunc) apply(vm *VM) { f(vm) }

// vmTestCase builds up a VM, runs it or a list of ops against it, and then
// checks expectations. Options are either VMOptions, or functions of the
// case and test that produce one, for options that need the test name.
type vmTestCase struct {
	name    string
	opts    []interface{}
	ops     []func(vm *VM)
	expect  []func(t *testing.T, vm *VM)
	timeout time.Duration
	wantErr error

	trace       bool
	exclusive   bool
	nextInputID int
}

func (vmt vmTestCase) setup(f func(vm *VM)) vmTestCase {
	vmt.opts = append(vmt.opts, optFunc(f))
	return vmt
}

func (vmt vmTestCase) check(f func(t *testing.T, vm *VM)) vmTestCase {
	vmt.expect = append(vmt.expect, f)
	return vmt
}

func (vmt vmTestCase) apply(wraps ...func(vmTestCase) vmTestCase) vmTestCase {
	for _, wrap := range wraps {
		vmt = wrap(vmt)
	}
	return vmt
}

func (vmt vmTestCase) exclusiveTest() vmTestCase {
	vmt.exclusive = true
	return vmt
}

func (vmt vmTestCase) withOptions(opts ...VMOption) vmTestCase {
	for _, opt := range opts {
		vmt.opts = append(vmt.opts, opt)
	}
	return vmt
}

func (vmt vmTestCase) withProg(prog uint) vmTestCase {
	return vmt.setup(func(vm *VM) { vm.prog = prog })
}

func (vmt vmTestCase) withLast(last uint) vmTestCase {
	return vmt.setup(func(vm *VM) { vm.last = last })
}

func (vmt vmTestCase) withStack(values ...int) vmTestCase {
	return vmt.setup(func(vm *VM) { vm.stack = append(vm.stack, values...) })
}

// withStrings interns names in order, so that their ids count up from 1.
func (vmt vmTestCase) withStrings(names ...string) vmTestCase {
	return vmt.setup(func(vm *VM) {
		for _, name := range names {
			vm.symbolicate(name)
		}
	})
}

func (vmt vmTestCase) withMemAt(addr uint, values ...int) vmTestCase {
	if len(values) == 0 {
		return vmt
	}
	return vmt.setup(func(vm *VM) { vm.Ints.Stor(addr, values...) })
}

func (vmt vmTestCase) withH(val int) vmTestCase {
	return vmt.withMemAt(addrH, val)
}

// withRetBase places the return stack at addr, holding values, the last of
// which is its top.
func (vmt vmTestCase) withRetBase(addr uint, values ...int) vmTestCase {
	return vmt.
		withMemAt(addrRetBase, int(addr)).
		withMemAt(addr+1, values...).
		withMemAt(addrR, int(addr)+len(values))
}

func (vmt vmTestCase) withRStack(values ...int) vmTestCase {
	return vmt.withRetBase(defaultRetBase, values...)
}

func (vmt vmTestCase) withMemLimit(limit uint) vmTestCase {
	return vmt.withOptions(withMemLimit(limit))
}

func (vmt vmTestCase) withRemote(r Remote) vmTestCase {
	return vmt.withOptions(withRemote(r))
}

// withInput queues input named after the test, numbering any after the first.
func (vmt vmTestCase) withInput(input string) vmTestCase {
	vmt.opts = append(vmt.opts, func(vmt *vmTestCase, t *testing.T) VMOption {
		vmt.nextInputID++
		name := t.Name() + "/input"
		if id := vmt.nextInputID; id > 1 {
			name += "_" + strconv.Itoa(id)
		}
		return WithInput(NamedReader(name, strings.NewReader(input)))
	})
	return vmt
}

// withKernel boots THIRD ahead of any other input, extending the default
// timeout to cover it.
func (vmt vmTestCase) withKernel() vmTestCase {
	vmt.opts = append(vmt.opts, WithInputWriter(thirdKernel))
	if vmt.timeout == 0 {
		vmt.timeout = 5 * time.Second
	}
	return vmt
}

func (vmt vmTestCase) do(ops ...func(vm *VM)) vmTestCase {
	vmt.ops = append(vmt.ops, ops...)
	return vmt
}

func (vmt vmTestCase) withTimeout(timeout time.Duration) vmTestCase {
	vmt.timeout = timeout
	return vmt
}

// withTestTrace logs a full VM trace, should the test fail.
func (vmt vmTestCase) withTestTrace() vmTestCase {
	vmt.trace = true
	return vmt
}

func (vmt vmTestCase) expectError(err error) vmTestCase {
	vmt.wantErr = err
	return vmt
}

func (vmt vmTestCase) expectProg(prog uint) vmTestCase {
	return vmt.check(func(t *testing.T, vm *VM) {
		assert.Equal(t, prog, vm.prog, "expected program counter")
	})
}

func (vmt vmTestCase) expectLast(last uint) vmTestCase {
	return vmt.check(func(t *testing.T, vm *VM) {
		assert.Equal(t, last, vm.last, "expected last word")
	})
}

// expectStack treats nil and empty stacks alike.
func (vmt vmTestCase) expectStack(values ...int) vmTestCase {
	return vmt.check(func(t *testing.T, vm *VM) {
		assert.Equal(t, append([]int{}, values...), append([]int{}, vm.stack...), "expected stack values")
	})
}

func (vmt vmTestCase) expectRStack(values ...int) vmTestCase {
	return vmt.check(func(t *testing.T, vm *VM) {
		assert.Equal(t, append([]int{}, values...), append([]int{}, vm.rstack()...), "expected return stack values")
	})
}

func (vmt vmTestCase) expectMemAt(addr uint, values ...int) vmTestCase {
	return vmt.check(func(t *testing.T, vm *VM) {
		got := make([]int, len(values))
		vm.loadInto(addr, got)
		assert.Equal(t, values, got, "expected memory values @%v", addr)
	})
}

// expectWord checks the name of the word at addr, and the cells that follow
// its name.
func (vmt vmTestCase) expectWord(addr uint, name string, code ...int) vmTestCase {
	return vmt.check(func(t *testing.T, vm *VM) {
		assert.Equal(t, name, vm.string(uint(vm.load(addr+1))), "expected word @%v name", addr)
		got := make([]int, len(code))
		vm.loadInto(addr+2, got)
		assert.Equal(t, code, got, "expected %q @%v+2 code", name, addr)
	})
}

func (vmt vmTestCase) expectH(value int) vmTestCase {
	return vmt.check(func(t *testing.T, vm *VM) {
		assert.Equal(t, value, vm.load(addrH), "expected H value")
	})
}

func (vmt vmTestCase) expectOutput(output string) vmTestCase {
	var out strings.Builder
	return vmt.withOptions(WithOutput(&out)).check(func(t *testing.T, vm *VM) {
		assert.Equal(t, output, out.String(), "expected output")
	})
}

// expectDump checks that each line appears somewhere in a memory dump.
func (vmt vmTestCase) expectDump(lines ...string) vmTestCase {
	return vmt.check(func(t *testing.T, vm *VM) {
		var out strings.Builder
		vmDumper{vm: vm, out: &out}.dump()
		for _, line := range lines {
			assert.Contains(t, out.String(), line, "expected dump line")
		}
	})
}

func (vmt vmTestCase) run(t *testing.T) {
	defer func(then time.Time) {
		label := "PASS"
		if t.Failed() {
			label = "FAIL"
		}
		t.Logf("%v\t%v\t%v", label, t.Name(), time.Since(then))
	}(time.Now())

	vm := vmt.buildVM(t)

	var trace strings.Builder
	if vmt.trace {
		ll := lineLogger{Writer: &trace}
		WithLogf(ll.printf).apply(vm)
		defer func() {
			if t.Failed() {
				t.Logf("trace:\n%v", trace.String())
			}
		}()
	}

	vmt.runVMTest(context.Background(), t, vm)
}

func (vmt vmTestCase) runVMTest(ctx context.Context, t *testing.T, vm *VM) {
	const defaultTimeout = time.Second
	timeout := vmt.timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer func() {
		if t.Failed() {
			vmt.dumpToTest(t, vm)
		}
	}()

	var halted haltError
	if err := vmt.runVM(ctx, vm); vmt.wantErr != nil {
		assert.True(t, errors.Is(err, vmt.wantErr), "expected error: %v\ngot: %+v", vmt.wantErr, err)
	} else if errors.As(err, &halted) {
		assert.NoError(t, halted.error, "unexpected abnormal VM halt")
	} else {
		assert.NoError(t, err, "unexpected VM run error")
	}

	if !t.Failed() {
		for _, expect := range vmt.expect {
			expect(t, vm)
		}
	}
}

func (vmt vmTestCase) runVM(ctx context.Context, vm *VM) (rerr error) {
	defer func() {
		if err := vm.Close(); err != nil && rerr == nil {
			rerr = fmt.Errorf("vm.Close failed: %w", err)
		}
	}()

	if len(vmt.ops) == 0 {
		return vm.Run(ctx)
	}

	names := make([]string, len(vmt.ops))
	for i, op := range vmt.ops {
		names[i] = runtime.FuncForPC(reflect.ValueOf(op).Pointer()).Name()
	}
	return panicerr.Recover("vmTestCase.ops", func() error {
		vm.ctx = ctx
		if err := vm.catch(vm.initMem); err != nil {
			return err
		}
		for i, op := range vmt.ops {
			vm.logf(">", "do[%v] %v", i, names[i])
			if err := vm.catch(func() { op(vm) }); err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		return nil
	})
}

func (vmt vmTestCase) buildVM(t *testing.T) *VM {
	const testMemLimit = 64 * 1024

	opts := []VMOption{withMemLimit(testMemLimit)}
	for _, o := range vmt.opts {
		switch impl := o.(type) {
		case func(vmt *vmTestCase, t *testing.T) VMOption:
			opts = append(opts, impl(&vmt, t))
		case VMOption:
			opts = append(opts, impl)
		default:
			t.Logf("unsupported vmTestCase opt type %T", o)
			t.FailNow()
		}
	}
	return New(opts...)
}

func (vmt vmTestCase) dumpToTest(t *testing.T, vm *VM) {
	lw := logio.Writer{Logf: t.Logf}
	defer lw.Close()
	panicerr.Recover("dump", func() error {
		vmDumper{vm: vm, out: &lw}.dump()
		return nil
	})
}

//// utilities

func lines(parts ...string) string {
	return strings.Join(parts, "\n") + "\n"
}

type lineLogger struct {
	Writer *strings.Builder
}

func (ll *lineLogger) printf(mess string, args ...interface{}) {
	fmt.Fprintf(ll.Writer, mess, args...)
	ll.Writer.WriteByte('\n')
}
