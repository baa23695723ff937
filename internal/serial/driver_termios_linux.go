//go:build linux

package serial

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

func init() { Register("termios", openTermios) }

var termiosSpeeds = map[int]uint32{
	1200:    unix.B1200,
	1800:    unix.B1800,
	2400:    unix.B2400,
	4800:    unix.B4800,
	9600:    unix.B9600,
	19200:   unix.B19200,
	38400:   unix.B38400,
	57600:   unix.B57600,
	115200:  unix.B115200,
	230400:  unix.B230400,
	460800:  unix.B460800,
	500000:  unix.B500000,
	576000:  unix.B576000,
	921600:  unix.B921600,
	1000000: unix.B1000000,
	1152000: unix.B1152000,
	1500000: unix.B1500000,
	2000000: unix.B2000000,
	2500000: unix.B2500000,
	3000000: unix.B3000000,
	3500000: unix.B3500000,
	4000000: unix.B4000000,
}

// openTermios opens the device non-blocking without becoming its controlling
// terminal, switches it back to blocking, and applies makeRaw.
func openTermios(cfg Config) (_ Port, rerr error) {
	speed, ok := termiosSpeeds[cfg.Baud]
	if !ok {
		return nil, fmt.Errorf("unsupported baud rate %v", cfg.Baud)
	}

	fd, err := unix.Open(cfg.Device, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr != nil {
			unix.Close(fd)
		}
	}()

	if err := unix.SetNonblock(fd, false); err != nil {
		return nil, fmt.Errorf("unable to set blocking mode: %w", err)
	}

	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return nil, fmt.Errorf("unable to get attributes: %w", err)
	}
	makeRaw(t, speed, cfg.ReadTimeout)
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, t); err != nil {
		return nil, fmt.Errorf("unable to set attributes: %w", err)
	}

	// drop anything the target sent before we were listening
	if err := unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCIOFLUSH); err != nil {
		return nil, fmt.Errorf("unable to flush: %w", err)
	}

	return termiosPort(fd), nil
}

// makeRaw configures 8N1 at speed, ignoring modem control lines, with the
// receiver enabled, and without any input, output, or line processing: the
// link carries a binary protocol, so no byte may be translated or eaten.
func makeRaw(t *unix.Termios, speed uint32, timeout time.Duration) {
	t.Cflag &^= unix.CBAUD | unix.CSIZE | unix.PARENB | unix.CSTOPB | unix.CRTSCTS
	t.Cflag |= speed | unix.CS8 | unix.CLOCAL | unix.CREAD
	t.Ispeed = speed
	t.Ospeed = speed

	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON | unix.IXOFF | unix.IXANY
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ICANON | unix.ECHO | unix.ECHOE | unix.ECHONL | unix.ISIG | unix.IEXTEN

	t.Cc[unix.VMIN], t.Cc[unix.VTIME] = readTimeoutCC(timeout)
}

// readTimeoutCC converts a read timeout into VMIN and VTIME: either block for
// one byte, or return whatever arrived after VTIME tenths of a second.
func readTimeoutCC(timeout time.Duration) (vmin, vtime uint8) {
	if timeout <= 0 {
		return 1, 0
	}
	ds := (timeout + 100*time.Millisecond - 1) / (100 * time.Millisecond)
	if ds > 255 {
		ds = 255
	}
	return 0, uint8(ds)
}

type termiosPort int

func (fd termiosPort) Read(p []byte) (int, error) {
	for {
		n, err := unix.Read(int(fd), p)
		if err == unix.EINTR {
			continue
		}
		if n < 0 {
			n = 0
		}
		return n, err
	}
}

func (fd termiosPort) Write(p []byte) (int, error) {
	for {
		n, err := unix.Write(int(fd), p)
		if err == unix.EINTR {
			continue
		}
		if n < 0 {
			n = 0
		}
		return n, err
	}
}

func (fd termiosPort) Close() error { return unix.Close(int(fd)) }
