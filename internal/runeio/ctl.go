package runeio

import (
	"errors"
	"strconv"
	"strings"
)

// c0Names are the classic ASCII control mnemonics, indexed by rune.
var c0Names = [32]string{
	"NUL", "SOH", "STX", "ETX", "EOT", "ENQ", "ACK", "BEL",
	"BS", "HT", "NL", "VT", "NP", "CR", "SO", "SI",
	"DLE", "DC1", "DC2", "DC3", "DC4", "NAK", "SYN", "ETB",
	"CAN", "EM", "SUB", "ESC", "FS", "GS", "RS", "US",
}

// c1Names are the ISO-8859 control mnemonics, indexed by rune - 0x80.
var c1Names = [32]string{
	"PAD", "HOP", "BPH", "NBH", "IND", "NEL", "SSA", "ESA",
	"HTS", "HTJ", "VTS", "PLD", "PLU", "RI", "SS2", "SS3",
	"DCS", "PU1", "PU2", "STS", "CCH", "MW", "SPA", "EPA",
	"SOS", "SGCI", "SCI", "CSI", "ST", "OSC", "PM", "APC",
}

// controlWords maps <NAME> mnemonics, in either case, and caret forms to
// their runes; space and delete get <SP> and <DEL>.
var controlWords = make(map[string]rune, 200)

func init() {
	add := func(name string, r rune) {
		controlWords["<"+name+">"] = r
		controlWords["<"+strings.ToLower(name)+">"] = r
		if caret := CaretForm(r); caret != "" {
			controlWords[caret] = r
		}
	}
	for i, name := range c0Names {
		add(name, rune(i))
	}
	for i, name := range c1Names {
		add(name, rune(0x80+i))
	}
	add("SP", ' ')
	add("DEL", 0x7f)
}

// CaretForm computes the ^-escaped printable form of a control rune, or
// returns "" for any other rune. C1 controls get a ^[ prefix.
func CaretForm(r rune) string {
	switch {
	case r < 0x20, r == 0x7f:
		return "^" + string(r^0x40)
	case 0x80 <= r && r <= 0x9f:
		return "^[" + string(r^0xc0)
	}
	return ""
}

var errInvalidRune = errors.New(`rune literal must be "^X" "<NAME>" or 'X'`)

// UnquoteRune parses a rune literal token: a quoted character like 'A' or
// '\n' (as strconv.UnquoteChar reads it), a mnemonic like <ESC>, or a caret
// form like ^[.
func UnquoteRune(token string) (rune, error) {
	if r, defined := controlWords[token]; defined {
		return r, nil
	}
	if len(token) < 3 || token[0] != '\'' || token[len(token)-1] != '\'' {
		return 0, errInvalidRune
	}
	value, _, tail, err := strconv.UnquoteChar(token[1:len(token)-1], '\'')
	if err == nil && tail != "" {
		err = errInvalidRune
	}
	return value, err
}
