package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// vmDumper writes a human readable listing of VM memory: low memory cells,
// the live return stack, and the dictionary decompiled word by word.
type vmDumper struct {
	vm  *VM
	out io.Writer

	addrWidth int
	words     []uint // newest first
	wordID    int

	rawWords bool
}

func (dump vmDumper) dump() {
	fmt.Fprintf(dump.out, "# VM Dump\n")
	fmt.Fprintf(dump.out, "  prog: %v\n", dump.vm.prog)
	fmt.Fprintf(dump.out, "  stack: %v\n", dump.vm.stack)

	dump.scanWords()
	fmt.Fprintf(dump.out, "  dict: %v\n", dump.words)

	dump.dumpMem()
}

func (dump *vmDumper) dumpMem() {
	retBase := uint(dump.vm.load(addrRetBase))
	memBase := uint(dump.vm.load(addrMemBase))
	end := dump.vm.here()
	if size := dump.vm.Size(); end < size && dump.rawWords {
		end = size
	}

	if dump.addrWidth == 0 {
		dump.addrWidth = len(strconv.Itoa(int(end)))
	}
	if dump.words == nil {
		dump.scanWords()
	}
	dump.wordID = len(dump.words) - 1

	var buf strings.Builder
	for addr := uint(0); addr < end; {
		switch addr {
		case retBase:
			fmt.Fprintf(dump.out, "# Return Stack @%v\n", retBase)
		case memBase:
			fmt.Fprintf(dump.out, "# Main Memory @%v\n", memBase)
		}

		buf.Reset()
		next := dump.formatMem(&buf, addr)
		if buf.Len() > 0 {
			fmt.Fprintf(dump.out, "  @%*v %v\n", dump.addrWidth, addr, buf.String())
		}
		addr = next
	}
}

var lowMemNames = map[uint]string{
	addrH:           "h",
	addrR:           "r",
	addrPushint:     "pushint",
	addrExecute:     "execute",
	addrExecute + 1: "execute",
	addrRetBase:     "retBase",
	addrMemBase:     "memBase",
	addrAbort:       "abort",
}

func (dump *vmDumper) formatMem(buf *strings.Builder, addr uint) uint {
	val := dump.vm.load(addr)

	if addr <= addrAbort {
		buf.WriteString(strconv.Itoa(val))
		if name := lowMemNames[addr]; name != "" {
			buf.WriteByte(' ')
			buf.WriteString(name)
		}
		return addr + 1
	}

	retBase := uint(dump.vm.load(addrRetBase))
	if addr < retBase {
		if val != 0 {
			buf.WriteString(strconv.Itoa(val))
		}
		return addr + 1
	}

	if memBase := uint(dump.vm.load(addrMemBase)); addr < memBase {
		if r := uint(dump.vm.load(addrR)); retBase < addr && addr <= r {
			fmt.Fprintf(buf, "%v ret_%v", val, addr-retBase)
		}
		return addr + 1
	}

	if word := dump.word(); word != 0 && addr == word {
		return dump.formatWord(buf, word)
	}

	if val != 0 {
		buf.WriteString(strconv.Itoa(val))
	}
	return addr + 1
}

// formatWord decompiles one dictionary entry, returning the address of the
// next one.
func (dump *vmDumper) formatWord(buf *strings.Builder, word uint) uint {
	end := dump.nextWord()
	if end == 0 {
		end = dump.vm.here()
	}

	buf.WriteString(": ")
	dump.formatName(buf, dump.vm.load(word+1))

	addr := word + 2
	if code := dump.vm.load(addr); code == vmCodeCompile {
		addr++
	} else {
		buf.WriteString(" immediate")
	}
	if code := dump.vm.load(addr); code != vmCodeRun {
		fmt.Fprintf(buf, " prim(%v)", codeName(code))
	}
	addr++

	for addr < end {
		buf.WriteByte(' ')
		addr = dump.formatCode(buf, addr)
	}

	if dump.rawWords {
		code := make([]int, end-word)
		dump.vm.loadInto(word, code)
		fmt.Fprintf(buf, "\n  %*v %v", dump.addrWidth, "", code)
	}

	return end
}

func (dump *vmDumper) formatCode(buf *strings.Builder, addr uint) uint {
	xt := uint(dump.vm.load(addr))
	addr++

	if xt == addrPushint {
		buf.WriteString(strconv.Itoa(dump.vm.load(addr)))
		return addr + 1
	}

	for _, word := range dump.words {
		if word > xt {
			continue
		}
		dump.formatName(buf, dump.vm.load(word+1))
		codeAt := word + 3
		if dump.vm.load(word+2) != vmCodeCompile {
			codeAt = word + 2
		}
		if xt != codeAt {
			fmt.Fprintf(buf, "%+d", int(xt)-int(codeAt))
		}
		return addr
	}

	fmt.Fprintf(buf, "@%v", xt)
	return addr
}

func (dump *vmDumper) formatName(buf *strings.Builder, sym int) {
	if sym == 0 {
		buf.WriteRune('ø')
	} else if name := dump.vm.string(uint(sym)); name != "" {
		buf.WriteString(name)
	} else {
		fmt.Fprintf(buf, "UNDEFINED_NAME_%v", sym)
	}
}

func (dump *vmDumper) scanWords() {
	dump.words = dump.words[:0]
	size := dump.vm.here()
	for word := dump.vm.last; word != 0 && word < size; word = uint(dump.vm.load(word)) {
		dump.words = append(dump.words, word)
	}
}

func (dump *vmDumper) word() uint {
	if dump.wordID >= 0 && dump.wordID < len(dump.words) {
		return dump.words[dump.wordID]
	}
	return 0
}

func (dump *vmDumper) nextWord() uint {
	if dump.wordID >= 0 {
		dump.wordID--
	}
	return dump.word()
}
