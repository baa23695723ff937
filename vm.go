package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/jcorbin/xthird/internal/fileinput"
	"github.com/jcorbin/xthird/internal/flushio"
	"github.com/jcorbin/xthird/internal/mem"
	"github.com/jcorbin/xthird/internal/runeio"
)

// VM is a FIRST interpreter, tethered to an optional Remote target. Programs
// can address only main memory; the data stack, the name table and the
// target's memory are reached through primitives.
type VM struct {
	logging
	fileinput.Input
	out flushio.WriteFlusher

	ctx    context.Context
	remote Remote

	retBase uint
	memBase uint

	prog  uint // program counter
	last  uint // last word
	entry uint // main loop, where execution resumes after an abort
	code  int  // primitive being run, named by error messages

	// the whitespace that ended the last scanned word is left to be read
	// again, so that words like " can skip it with key
	unread    rune
	hasUnread bool

	stack []int // data stack, top last

	symbols // word names

	// main memory: low cells, then the return stack from retBase, then the
	// dictionary from memBase
	mem.Ints
}

// Low memory cells, shared with FIRST programs by address.
const (
	addrH       = 0  // dictionary pointer
	addrR       = 1  // return stack pointer, addressing its top element
	addrPushint = 2  // always holds vmCodePushint; compiled before literals
	addrExecute = 8  // scratch used by THIRD's execute (8 and 9)
	addrRetBase = 10 // return stack base, one below its first element
	addrMemBase = 11 // start of the dictionary
	addrAbort   = 12 // execution token to run after an abort, if non-zero
)

const (
	defaultRetBase  = 256
	defaultMemBase  = 1024
	defaultMemLimit = 1 << 20
)

//// memory

func (vm *VM) load(addr uint) int {
	val, err := vm.Ints.Load(addr)
	if err != nil {
		vm.abort(err)
	}
	return val
}

func (vm *VM) loadInto(addr uint, buf []int) {
	if err := vm.Ints.LoadInto(addr, buf); err != nil {
		vm.abort(err)
	}
}

func (vm *VM) stor(addr uint, values ...int) {
	if err := vm.Ints.Stor(addr, values...); err != nil {
		vm.abort(err)
	}
}

func (vm *VM) loadProg() int {
	val := vm.load(vm.prog)
	vm.prog++
	return val
}

func (vm *VM) here() uint { return uint(vm.load(addrH)) }

func (vm *VM) compile(val int) {
	h := vm.here()
	vm.stor(h, val)
	vm.stor(addrH, int(h+1))
}

// compileHeader compiles a new word header, linking it into the dictionary:
//
//	[prev, name, compile time code, run time code]
func (vm *VM) compileHeader(name uint) {
	h := vm.here()
	vm.compile(int(vm.last))
	vm.compile(int(name))
	vm.compile(vmCodeCompile)
	vm.compile(vmCodeRun)
	vm.last = h
}

//// stacks

func (vm *VM) push(val int) {
	vm.stack = append(vm.stack, val)
}

func (vm *VM) pop() int {
	i := len(vm.stack) - 1
	if i < 0 {
		vm.abort(underflowError(vm.code))
	}
	val := vm.stack[i]
	vm.stack = vm.stack[:i]
	return val
}

// The return stack holds call return addresses in main memory, between the
// cells named by addrRetBase and addrMemBase. Its pointer lives in cell 1,
// where THIRD words like tor and fromr manipulate it directly.
func (vm *VM) pushr(addr uint) {
	r := uint(vm.load(addrR))
	if r < uint(vm.load(addrRetBase)) {
		vm.abort(errRetUnderflow)
	}
	r++
	if r >= uint(vm.load(addrMemBase)) {
		vm.abort(errRetOverflow)
	}
	vm.stor(r, int(addr))
	vm.stor(addrR, int(r))
}

// popr returns false when the return stack is empty.
func (vm *VM) popr() (uint, bool) {
	r := uint(vm.load(addrR))
	if retBase := uint(vm.load(addrRetBase)); r == retBase {
		return 0, false
	} else if r < retBase {
		vm.abort(errRetUnderflow)
	}
	if r >= uint(vm.load(addrMemBase)) {
		vm.abort(errRetOverflow)
	}
	addr := uint(vm.load(r))
	vm.stor(addrR, int(r-1))
	return addr, true
}

func (vm *VM) rstack() []int {
	retBase := uint(vm.load(addrRetBase))
	r := uint(vm.load(addrR))
	if memBase := uint(vm.load(addrMemBase)); r >= memBase {
		r = memBase - 1
	}
	if r <= retBase {
		return []int{}
	}
	buf := make([]int, r-retBase)
	vm.loadInto(retBase+1, buf)
	return buf
}

//// execution

func (vm *VM) boot() {
	vm.initMem()
	vm.entry = vm.compileEntry()
	vm.compileBuiltins()
	vm.prog = vm.entry
}

func (vm *VM) initMem() {
	if vm.load(addrRetBase) == 0 {
		vm.stor(addrRetBase, int(vm.retBase))
	}
	if vm.load(addrMemBase) == 0 {
		vm.stor(addrMemBase, int(vm.memBase))
	}
	retBase := uint(vm.load(addrRetBase))
	memBase := uint(vm.load(addrMemBase))
	if retBase <= addrAbort || memBase <= retBase+1 {
		vm.halt(layoutError{retBase, memBase})
	}
	if vm.load(addrH) == 0 {
		vm.stor(addrH, int(memBase))
	}
	if vm.load(addrR) == 0 {
		vm.stor(addrR, int(retBase))
	}
	vm.stor(addrPushint, vmCodePushint)
}

func (vm *VM) exec() {
	if vm.logfn != nil {
		defer vm.withLogPrefix("	")()
	}
	for {
		if err := vm.ctx.Err(); err != nil {
			vm.halt(err)
		}
		vm.step()
	}
}

func (vm *VM) step() {
	at := vm.prog
	xt := uint(vm.loadProg())
	if vm.logfn != nil {
		vm.logf("@", "%v %v r:%v s:%v", at, vm.describe(xt), vm.rstack(), vm.stack)
	}
	vm.dispatch(xt)
}

// dispatch runs the code stored at xt, an execution token; any data for the
// code follows it in memory.
func (vm *VM) dispatch(xt uint) {
	code := vm.load(xt)
	switch {
	case code == vmCodeRun:
		vm.pushr(vm.prog)
		vm.prog = xt + 1
	case code == vmCodeCompile:
		vm.compile(int(xt + 1))
	case 0 <= code && code < vmCodeMax:
		vm.code = code
		vmCodeTable[code](vm)
	default:
		vm.abort(codeError{xt, code})
	}
}

func (vm *VM) run(ctx context.Context) error {
	vm.ctx = ctx
	err := vm.catch(vm.boot)
	for {
		switch impl := err.(type) {
		case nil:
			err = vm.catch(vm.exec)
		case abortError:
			if vm.entry == 0 {
				return impl.error
			}
			err = vm.catch(func() { vm.reset(impl) })
			if again, ok := err.(abortError); ok {
				err = haltError{again.error}
			}
		default:
			return err
		}
	}
}

// catch runs f, returning any halt or abort that it panics with.
func (vm *VM) catch(f func()) (err error) {
	defer func() {
		switch e := recover().(type) {
		case nil:
		case haltError:
			err = e
		case abortError:
			err = e
		default:
			panic(e)
		}
	}()
	f()
	return nil
}

func (vm *VM) halt(err error) {
	// ignore any panics while trying to flush output
	func() {
		defer func() { recover() }()
		if vm.out != nil {
			if ferr := vm.out.Flush(); err == nil {
				err = ferr
			}
		}
	}()

	switch err {
	case nil, io.EOF:
		vm.logf("#", "halt")
	default:
		vm.logf("#", "halt error: %v", err)
	}
	panic(haltError{err})
}

// abort unwinds the current line of input: see reset.
func (vm *VM) abort(err error) {
	panic(abortError{err})
}

// reset recovers from an abort, like FORTH's ABORT: the error is reported,
// both stacks are cleared, the rest of the input line is discarded, and
// execution resumes at the abort vector, or the FIRST main loop if none has
// been installed.
func (vm *VM) reset(err abortError) {
	loc := vm.Input.Scan.Location
	if vm.Input.Scan.Len() == 0 {
		loc = vm.Input.Last.Location
	}
	vm.logf("!", "abort at %v: %v", loc, err.error)
	vm.writeString("? " + err.Error() + "\n")

	vm.stack = vm.stack[:0]
	vm.stor(addrR, vm.load(addrRetBase))
	vm.hasUnread = false
	if serr := vm.Input.SkipLine(); serr != nil && serr != io.EOF {
		vm.halt(serr)
	}

	vm.prog = vm.entry
	if xt := uint(vm.load(addrAbort)); xt != 0 {
		vm.dispatch(xt)
	}
}

//// input / output

func (vm *VM) writeRune(r rune) {
	if _, err := runeio.WriteANSIRune(vm.out, r); err != nil {
		vm.halt(err)
	}
}

func (vm *VM) writeString(s string) {
	if _, err := io.WriteString(vm.out, s); err != nil {
		vm.halt(err)
	}
	if err := vm.out.Flush(); err != nil {
		vm.halt(err)
	}
}

// readRune flushes output before reading, so that anything written is seen
// before blocking on input. The boundary between two inputs reads as a line
// feed.
func (vm *VM) readRune() (rune, error) {
	if vm.hasUnread {
		vm.hasUnread = false
		return vm.unread, nil
	}
	if err := vm.out.Flush(); err != nil {
		vm.halt(err)
	}
	r, n, err := vm.Input.ReadRune()
	if n == 0 && err == nil {
		return '\n', nil
	}
	return r, err
}

func (vm *VM) scan() string {
	var sb strings.Builder
	for {
		r, err := vm.readRune()
		if err != nil {
			vm.halt(err)
		}
		if !isSpace(r) {
			sb.WriteRune(r)
			break
		}
	}
	for {
		r, err := vm.readRune()
		if err == io.EOF {
			break
		} else if err == nil && isSpace(r) {
			vm.unread, vm.hasUnread = r, true
			break
		} else if err != nil {
			vm.halt(err)
		}
		sb.WriteRune(r)
	}
	token := sb.String()
	if vm.logfn != nil {
		line := vm.Input.Scan
		if line.Len() == 0 {
			line = vm.Input.Last
		}
		vm.logf("<", "scan %q from %v", token, line.Location)
	}
	return token
}

func isSpace(r rune) bool { return unicode.IsSpace(r) || unicode.IsControl(r) }

//// logging

type logging struct {
	logfn func(mess string, args ...interface{})

	markWidth int
}

func (log *logging) withLogPrefix(prefix string) func() {
	logfn := log.logfn
	log.logfn = func(mess string, args ...interface{}) {
		logfn(prefix+mess, args...)
	}
	return func() {
		log.logfn = logfn
	}
}

// logf logs a message under a short mark string, which is padded out to the
// widest mark yet seen so that messages line up.
func (log *logging) logf(mark, mess string, args ...interface{}) {
	if log.logfn == nil {
		return
	}
	if n := log.markWidth - len(mark); n > 0 {
		mark = strings.Repeat(mark[:1], n) + mark
	} else if n < 0 {
		log.markWidth = len(mark)
	}
	if len(args) > 0 {
		mess = fmt.Sprintf(mess, args...)
	}
	log.logfn("%v %v", mark, mess)
}

//// errors

type haltError struct{ error }

func (err haltError) Error() string {
	if err.error != nil {
		return fmt.Sprintf("halted: %v", err.error)
	}
	return "halted"
}

func (err haltError) Unwrap() error { return err.error }

type abortError struct{ error }

func (err abortError) Unwrap() error { return err.error }

var (
	errRetOverflow  = errors.New("return stack overflow")
	errRetUnderflow = errors.New("return stack underflow")
	errDivZero      = errors.New("division by zero")
)

type underflowError int

func (code underflowError) Error() string {
	return fmt.Sprintf("stack underflow in %v", codeName(int(code)))
}

type undefinedError string

func (token undefinedError) Error() string { return fmt.Sprintf("undefined word %q", string(token)) }

type codeError struct {
	xt   uint
	code int
}

func (err codeError) Error() string { return fmt.Sprintf("invalid code %v @%v", err.code, err.xt) }

type layoutError struct{ retBase, memBase uint }

func (err layoutError) Error() string {
	return fmt.Sprintf("invalid memory layout retBase:%v memBase:%v", err.retBase, err.memBase)
}
