package serial

import (
	tarm "github.com/tarm/serial"
)

func init() { Register("tarm", openTarm) }

func openTarm(cfg Config) (Port, error) {
	return tarm.OpenPort(&tarm.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
		Size:        8,
		Parity:      tarm.ParityNone,
		StopBits:    tarm.Stop1,
	})
}
