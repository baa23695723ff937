package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/jcorbin/xthird/internal/logio"
	"github.com/jcorbin/xthird/internal/monitor"
	"github.com/jcorbin/xthird/internal/serial"
)

func main() {
	var logs logio.Logger
	logs.SetOutput(os.Stderr)

	cfg := config{
		stdin:  os.Stdin,
		stdout: os.Stdout,
	}
	cfg.bind(flag.CommandLine)
	flag.Parse()
	cfg.files = flag.Args()
	flag.Visit(cfg.visit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	logs.ErrorIf(cfg.run(ctx, &logs))
	stop()
	os.Exit(logs.ExitCode())
}

type config struct {
	serial    serial.Config
	timeout   time.Duration
	first     bool
	trace     bool
	traceWire bool
	dump      bool
	memLimit  uint
	loads     loadList
	files     []string

	setDevice, setBaud bool

	stdin  io.Reader
	stdout io.Writer
}

func (cfg *config) bind(fs *flag.FlagSet) {
	device := serial.DefaultDevice()
	fs.StringVar(&cfg.serial.Device, "d", device, "serial device (shorthand)")
	fs.StringVar(&cfg.serial.Device, "device", device, "serial device")
	fs.IntVar(&cfg.serial.Baud, "b", serial.DefaultBaud, "baud rate (shorthand)")
	fs.IntVar(&cfg.serial.Baud, "baud", serial.DefaultBaud, "baud rate")
	fs.StringVar(&cfg.serial.Driver, "driver", serial.DefaultDriver, fmt.Sprintf("serial driver, one of %v", serial.Drivers()))
	fs.DurationVar(&cfg.serial.ReadTimeout, "read-timeout", 2*time.Second, "how long to wait for the target to answer a read; 0 waits forever")
	fs.DurationVar(&cfg.timeout, "timeout", 0, "specify a time limit")
	fs.BoolVar(&cfg.first, "first", false, "run bare FIRST, without the THIRD kernel")
	fs.BoolVar(&cfg.trace, "trace", false, "enable trace logging")
	fs.BoolVar(&cfg.traceWire, "trace-wire", false, "log all serial traffic")
	fs.BoolVar(&cfg.dump, "dump", false, "dump interpreter memory after it stops")
	fs.UintVar(&cfg.memLimit, "mem-limit", 0, "enable memory limit")
	fs.Var(&cfg.loads, "load", "write the bytes of FILE into target memory at ADDR before starting, given as ADDR:FILE; may be repeated")
}

func (cfg *config) visit(f *flag.Flag) {
	switch f.Name {
	case "d", "device":
		cfg.setDevice = true
	case "b", "baud":
		cfg.setBaud = true
	}
}

func (cfg config) run(ctx context.Context, logs *logio.Logger) error {
	if cfg.timeout != 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	if !cfg.setBaud {
		logs.Printf("INFO", "using default baud rate %v", cfg.serial.Baud)
	}
	if !cfg.setDevice {
		logs.Printf("INFO", "using default device %v", cfg.serial.Device)
	}
	if cfg.traceWire {
		cfg.serial.Trace = logs.Leveledf("WIRE")
	}

	conn, err := serial.Open(cfg.serial)
	if err != nil {
		return err
	}
	defer func() { logs.ErrorIf(conn.Close()) }()

	var monOpts []monitor.Option
	if cfg.trace {
		monOpts = append(monOpts, monitor.WithLogf(logs.Leveledf("MONITOR")))
	}
	mon := monitor.New(conn, monOpts...)

	if err := cfg.loads.load(ctx, mon, logs.Leveledf("INFO")); err != nil {
		return err
	}

	vm, err := cfg.build(mon, logs)
	if err != nil {
		return err
	}

	errch := make(chan error, 1)
	go func() { errch <- vm.Run(ctx) }()
	select {
	case err = <-errch:
	case <-ctx.Done():
		// the VM notices between steps, but may be blocked reading input
		select {
		case err = <-errch:
		case <-time.After(time.Second):
			return cfg.stopped(ctx.Err(), logs)
		}
	}

	if cfg.dump {
		vmDumper{vm: vm, out: &logio.Writer{Logf: logs.Leveledf("DUMP")}}.dump()
	}
	if cerr := vm.Close(); err == nil {
		err = cerr
	}
	return cfg.stopped(err, logs)
}

func (cfg config) build(mon *monitor.Monitor, logs *logio.Logger) (*VM, error) {
	opts := []VMOption{
		WithRemote(mon),
		WithOutput(cfg.stdout),
	}
	if !cfg.first {
		opts = append(opts, WithInputWriter(thirdKernel))
	}
	if cfg.trace {
		opts = append(opts, WithLogf(logs.Leveledf("TRACE")))
	}
	if cfg.memLimit != 0 {
		opts = append(opts, WithMemLimit(cfg.memLimit))
	}

	vm := New(opts...)
	for _, name := range cfg.files {
		f, err := os.Open(name)
		if err != nil {
			vm.Close()
			return nil, err
		}
		WithInput(f).apply(vm)
	}
	if cfg.stdin != nil {
		WithInput(NamedReader("<stdin>", cfg.stdin)).apply(vm)
	}
	return vm, nil
}

// stopped treats an interrupt as a normal end of the session.
func (cfg config) stopped(err error, logs *logio.Logger) error {
	if errors.Is(err, context.Canceled) {
		logs.Printf("INFO", "interrupted")
		return nil
	}
	return err
}
