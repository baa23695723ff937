// Package logio provides the leveled line logger used by the command, and an
// io.Writer adapter onto printf-style logging functions.
package logio

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Logger writes "LEVEL: message" lines to an output stream, tracking an exit
// code: 1 once any error has been logged, 2 once the output itself failed.
type Logger struct {
	mu       sync.Mutex
	output   io.Writer
	exitCode int
}

// SetOutput replaces the output stream, closing the prior one if it is an
// io.Closer.
func (log *Logger) SetOutput(out io.Writer) {
	log.mu.Lock()
	defer log.mu.Unlock()
	if cl, ok := log.output.(io.Closer); ok {
		cl.Close()
	}
	log.output = out
}

// ExitCode returns the code that the process should exit with.
func (log *Logger) ExitCode() int {
	log.mu.Lock()
	defer log.mu.Unlock()
	return log.exitCode
}

// Leveledf binds level into a printf-style function.
func (log *Logger) Leveledf(level string) func(mess string, args ...interface{}) {
	return func(mess string, args ...interface{}) { log.Printf(level, mess, args...) }
}

// ErrorIf logs any non-nil error through Errorf.
func (log *Logger) ErrorIf(err error) {
	if err != nil {
		log.Errorf("%v", err)
	}
}

// Errorf logs at ERROR level, raising the exit code to at least 1.
func (log *Logger) Errorf(mess string, args ...interface{}) {
	log.write(1, "ERROR", mess, args)
}

// Printf logs a line at the given level; an empty level omits the prefix.
// Format verbs are only expanded when args are given.
func (log *Logger) Printf(level, mess string, args ...interface{}) {
	log.write(0, level, mess, args)
}

func (log *Logger) write(code int, level, mess string, args []interface{}) {
	var line strings.Builder
	if level != "" {
		line.WriteString(level)
		line.WriteString(": ")
	}
	if len(args) > 0 {
		fmt.Fprintf(&line, mess, args...)
	} else {
		line.WriteString(mess)
	}
	if !strings.HasSuffix(line.String(), "\n") {
		line.WriteByte('\n')
	}

	log.mu.Lock()
	defer log.mu.Unlock()
	if log.output != nil {
		if _, err := io.WriteString(log.output, line.String()); err != nil {
			code = 2
		}
	}
	if code > log.exitCode {
		log.exitCode = code
	}
}
