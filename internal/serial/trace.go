package serial

import "time"

// Trace wraps port so that every byte sent or received is reported through
// logf, as "> 12 34" and "< 56" lines.
func Trace(port Port, logf func(mess string, args ...interface{})) Port {
	if logf == nil {
		return port
	}
	return tracePort{port, logf}
}

type tracePort struct {
	Port
	logf func(mess string, args ...interface{})
}

func (tp tracePort) Read(p []byte) (n int, err error) {
	n, err = tp.Port.Read(p)
	if n > 0 {
		tp.logf("< % x", p[:n])
	}
	if err != nil {
		tp.logf("< error: %v", err)
	}
	return n, err
}

func (tp tracePort) Write(p []byte) (n int, err error) {
	n, err = tp.Port.Write(p)
	if n > 0 {
		tp.logf("> % x", p[:n])
	}
	if err != nil {
		tp.logf("> error: %v", err)
	}
	return n, err
}

func (tp tracePort) SetReadDeadline(t time.Time) error {
	if rd, ok := tp.Port.(readDeadliner); ok {
		return rd.SetReadDeadline(t)
	}
	return nil
}
