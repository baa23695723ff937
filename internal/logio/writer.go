package logio

import (
	"bytes"
	"strings"
	"sync"

	"github.com/jcorbin/xthird/internal/runeio"
)

// Writer adapts a printf-style logging function into an io.Writer, logging
// each completed line as a single "%s" argument. Interpreter output may carry
// terminal controls, so a trailing carriage return is dropped, and any other
// control rune but tab is logged in caret form.
type Writer struct {
	Logf func(mess string, args ...interface{})

	mu   sync.Mutex
	part []byte
}

// Write logs every line that p completes, holding back any partial last line
// until a later Write or Sync. It is safe to call from multiple goroutines,
// and never fails.
func (lw *Writer) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	n := len(p)
	for {
		line, rest, found := bytes.Cut(p, []byte{'\n'})
		if !found {
			lw.part = append(lw.part, p...)
			return n, nil
		}
		lw.part = append(lw.part, line...)
		lw.emit()
		p = rest
	}
}

// Sync logs any partial last line.
func (lw *Writer) Sync() error {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	if len(lw.part) > 0 {
		lw.emit()
	}
	return nil
}

// Close calls Sync.
func (lw *Writer) Close() error {
	return lw.Sync()
}

func (lw *Writer) emit() {
	var sb strings.Builder
	for _, r := range string(bytes.TrimSuffix(lw.part, []byte{'\r'})) {
		if caret := runeio.CaretForm(r); caret != "" && r != '\t' {
			sb.WriteString(caret)
		} else {
			sb.WriteRune(r)
		}
	}
	lw.part = lw.part[:0]
	lw.Logf("%s", sb.String())
}
