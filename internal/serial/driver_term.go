//go:build !windows

package serial

import (
	"github.com/pkg/term"
)

func init() { Register("term", openTerm) }

func openTerm(cfg Config) (Port, error) {
	t, err := term.Open(cfg.Device, term.Speed(cfg.Baud), term.RawMode)
	if err != nil {
		return nil, err
	}
	if cfg.ReadTimeout > 0 {
		if err := t.SetReadTimeout(cfg.ReadTimeout); err != nil {
			t.Close()
			return nil, err
		}
	}
	return t, nil
}
