package main

import "strconv"

// symbols interns word names, numbering them from 1 so that a zero name can
// mark a nameless word.
type symbols struct {
	strings []string
	symbols map[string]uint
}

func (sym symbols) string(id uint) string {
	if i := int(id) - 1; i >= 0 && i < len(sym.strings) {
		return sym.strings[i]
	}
	return ""
}

func (sym symbols) symbol(s string) uint {
	return sym.symbols[s]
}

func (sym *symbols) symbolicate(s string) (id uint) {
	id, defined := sym.symbols[s]
	if !defined {
		if sym.symbols == nil {
			sym.symbols = make(map[string]uint)
		}
		id = uint(len(sym.strings)) + 1
		sym.strings = append(sym.strings, s)
		sym.symbols[s] = id
	}
	return id
}

// lookup searches the dictionary, newest word first, returning the address of
// the word named by token, or 0 if there is none.
func (vm *VM) lookup(token string) uint {
	name := vm.symbol(token)
	if name == 0 {
		return 0
	}
	for word := vm.last; word != 0; word = uint(vm.load(word)) {
		if uint(vm.load(word+1)) == name {
			return word
		}
	}
	return 0
}

// wordOf returns the address of the dictionary word whose header or body
// contains addr, or 0 if addr precedes every word.
func (vm *VM) wordOf(addr uint) uint {
	for word := vm.last; word != 0; word = uint(vm.load(word)) {
		if word <= addr {
			return word
		}
	}
	return 0
}

// describe names an execution token for trace logging.
func (vm *VM) describe(xt uint) string {
	if xt == addrPushint {
		return "pushint"
	}
	if word := vm.wordOf(xt); word != 0 && xt <= word+3 {
		if name := vm.string(uint(vm.load(word + 1))); name != "" {
			return name
		}
	}
	return "@" + strconv.FormatUint(uint64(xt), 10)
}
