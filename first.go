package main

import (
	"strconv"

	"github.com/jcorbin/xthird/internal/runeio"
)

//// FIRST

// Words live in a singly linked dictionary. A header holds the previous
// word's address, the interned name, then two code cells: the compile time
// code, used when the word is read in command or compile mode, and the run
// time code, used when a compiled reference to the word is executed. Any
// data field follows the header.
//
// Compiled code is a list of execution tokens, each the address of a run
// time code cell. A defined word's run time code is "run", which saves the
// program counter on the return stack and continues in the word's data
// field. Its compile time code is "compile", which appends a token naming the
// run time cell to the word under construction; so by default reading a word
// compiles it. An immediate word has its run time code copied into the
// compile time cell, so reading it runs it right away.

const (
	vmCodePushint = iota // <INTERNAL>  push the next cell of the program
	vmCodeCompile        // <INTERNAL>  compile a token for the word
	vmCodeRun            // <INTERNAL>  call the word's data field

	vmCodeDefine    // :           start a new word header
	vmCodeImmediate // immediate   make the word under construction immediate
	vmCodeRead      // _read       read a token, then run or compile it
	vmCodeGet       // @           load a memory cell
	vmCodeSet       // !           store a memory cell
	vmCodeSub       // -           subtract
	vmCodeMul       // *           multiply
	vmCodeDiv       // /           divide, truncating
	vmCodeLess      // <0          sign test
	vmCodeExit      // exit        return from the current word
	vmCodeEcho      // echo        write a rune
	vmCodeKey       // key         read a rune
	vmCodePick      // pick        copy a stack element to the top

	vmCodeRemoteRead  // xc@    load a target byte
	vmCodeRemoteWrite // xc!    store a target byte
	vmCodeRemoteCall  // xcall  call a target subroutine

	vmCodeMax
)

//// Arithmetic

// ( a b -- a-b )
func (vm *VM) sub() { b, a := vm.pop(), vm.pop(); vm.push(a - b) }

// ( a b -- a*b )
func (vm *VM) mul() { b, a := vm.pop(), vm.pop(); vm.push(a * b) }

// ( a b -- a/b ) aborting on a zero divisor.
func (vm *VM) div() {
	b, a := vm.pop(), vm.pop()
	if b == 0 {
		vm.abort(errDivZero)
	}
	vm.push(a / b)
}

// ( a -- flag ) 1 when a is negative, else 0.
func (vm *VM) less() { a := vm.pop(); vm.push(boolInt(a < 0)) }

// Everything else, addition and negation included, is built from these in
// THIRD.

//// Memory

// ( addr -- value )
func (vm *VM) get() { addr := uint(vm.pop()); vm.push(vm.load(addr)) }

// ( value addr -- )
func (vm *VM) set() { addr := uint(vm.pop()); vm.stor(addr, vm.pop()) }

//// Input and output

// ( r -- ) writes r to the output.
func (vm *VM) echo() { vm.writeRune(rune(vm.pop())) }

// ( -- r ) reads the next input rune, halting at the end of all input.
func (vm *VM) key() {
	r, err := vm.readRune()
	if err != nil {
		vm.halt(err)
	}
	vm.push(int(r))
}

// read scans the next token. A defined word is dispatched through its compile
// time code; anything else must parse as a literal, which is compiled as a
// pushint token followed by the value.
func (vm *VM) read() {
	token := vm.scan()
	if word := vm.lookup(token); word != 0 {
		vm.logf(">", "read %v @%v", token, word)
		vm.dispatch(word + 2)
		return
	}

	val, err := vm.literal(token)
	if err != nil {
		vm.abort(undefinedError(token))
	}
	vm.logf(">", "read pushint %v", val)
	vm.compile(addrPushint)
	vm.compile(val)
}

// Literals are decimal, or any prefixed integer syntax that Go accepts (like
// 0x1000), or a rune literal (like 'A' or <ESC>).
func (vm *VM) literal(token string) (int, error) {
	if n, err := strconv.ParseInt(token, 10, strconv.IntSize); err == nil {
		return int(n), nil
	}
	if n, err := strconv.ParseInt(token, 0, strconv.IntSize); err == nil {
		return int(n), nil
	}
	r, err := runeio.UnquoteRune(token)
	return int(r), err
}

//// Control

// exit pops the return stack into the program counter; popping the empty
// return stack ends the session.
func (vm *VM) exit() {
	addr, ok := vm.popr()
	if !ok {
		vm.halt(nil)
	}
	vm.logf("<", "exit prog <- %v", addr)
	vm.prog = addr
}

//// Compilation

// define reads a name and appends a header for it, whose compile time code
// compiles a call and whose run time code calls the data field that follows.
func (vm *VM) define() {
	name := vm.scan()
	vm.logf(">", "define %v -> @%v", name, vm.here())
	vm.compileHeader(vm.symbolicate(name))
}

// immediate must directly follow define: it moves the new header's run time
// code into its compile time cell, and gives back the cell it vacated.
func (vm *VM) immediate() {
	h := vm.here()
	code := vm.load(h - 1)
	vm.stor(h-2, code)
	vm.stor(addrH, int(h-1))
	vm.logf(">", "immediate @%v <- %v", h-2, code)
}

//// Stack

// ( ... n -- ... v ) copies the n-th element below the top, or 0 when the
// stack is not that deep.
func (vm *VM) pick() {
	n := vm.pop()
	if i := len(vm.stack) - 1 - n; 0 <= i && i < len(vm.stack) {
		vm.push(vm.stack[i])
	} else {
		vm.push(0)
	}
}

// pushint has no dictionary entry: _read compiles the token 2 ahead of each
// literal, and cell 2 always holds the pushint code.
func (vm *VM) pushint() { vm.push(vm.loadProg()) }

//// Bootstrap

// compileEntry builds the nameless immediate word that FIRST runs as its
// outer loop: it calls _read and then itself, forever. Each round leaks a
// return stack cell, which is fine until THIRD takes over the loop.
func (vm *VM) compileEntry() uint {
	w := vm.here()
	vm.compileHeader(0)
	vm.immediate()
	vm.compile(int(w + 5)) // w+3: _read
	vm.compile(int(w + 2)) // w+4: ourselves
	vm.compile(vmCodeRead) // w+5
	return w + 3
}

// compileBuiltins names every primitive, in code order, from the first input
// tokens. Each gets a normal header whose run time code is then overwritten;
// : and immediate are made immediate.
func (vm *VM) compileBuiltins() {
	for code := vmCodeDefine; code < vmCodeMax; code++ {
		vm.define()
		if code <= vmCodeImmediate {
			vm.immediate()
		}
		vm.stor(vm.here()-1, code)
	}
}

var vmCodeTable [vmCodeMax]func(vm *VM)

var vmCodeNames = [vmCodeMax]string{
	"pushint", "compile", "run",
	":", "immediate", "_read",
	"@", "!", "-", "*", "/", "<0",
	"exit", "echo", "key", "pick",
	"xc@", "xc!", "xcall",
}

func init() {
	vmCodeTable = [vmCodeMax]func(vm *VM){
		vmCodePushint: (*VM).pushint,

		vmCodeDefine:    (*VM).define,
		vmCodeImmediate: (*VM).immediate,
		vmCodeRead:      (*VM).read,
		vmCodeGet:       (*VM).get,
		vmCodeSet:       (*VM).set,
		vmCodeSub:       (*VM).sub,
		vmCodeMul:       (*VM).mul,
		vmCodeDiv:       (*VM).div,
		vmCodeLess:      (*VM).less,
		vmCodeExit:      (*VM).exit,
		vmCodeEcho:      (*VM).echo,
		vmCodeKey:       (*VM).key,
		vmCodePick:      (*VM).pick,

		vmCodeRemoteRead:  (*VM).remoteRead,
		vmCodeRemoteWrite: (*VM).remoteWrite,
		vmCodeRemoteCall:  (*VM).remoteCall,
	}
}

func codeName(code int) string {
	if 0 <= code && code < vmCodeMax {
		return vmCodeNames[code]
	}
	return strconv.Itoa(code)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// A session without the THIRD kernel starts by naming the primitives, and can
// then only use them, literals and its own words:
//
//	: immediate _read @ ! - * / <0 exit echo key pick xc@ xc! xcall
//	: hi 'h' echo 'i' echo 10 echo exit
//	: go immediate hi exit
//	go
//
// which prints "hi". Reading "go" runs it at once, since it is immediate;
// reading "hi" inside it only compiled a call.
