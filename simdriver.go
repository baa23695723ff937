package main

import (
	"net"

	"github.com/jcorbin/xthird/internal/monitor/sim"
	"github.com/jcorbin/xthird/internal/serial"
)

// The sim driver connects to a fresh simulated target, rather than to any
// device, for trying things out without hardware.
func init() { serial.Register("sim", openSim) }

func openSim(cfg serial.Config) (serial.Port, error) {
	var opts []sim.Option
	if cfg.Trace != nil {
		opts = append(opts, sim.WithLogf(cfg.Trace))
	}
	host, done := sim.New(opts...).Pipe()
	return simPort{host, done}, nil
}

type simPort struct {
	net.Conn
	done <-chan error
}

// Close hangs up, and waits for the target to notice.
func (sp simPort) Close() error {
	err := sp.Conn.Close()
	if serr := <-sp.done; err == nil {
		err = serr
	}
	return err
}
