package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/xthird/internal/logio"
	"github.com/jcorbin/xthird/internal/monitor/sim"
	"github.com/jcorbin/xthird/internal/serial"
)

func Test_loadList(t *testing.T) {
	var ll loadList
	require.NoError(t, ll.Set("0x2000:prog.bin"))
	require.NoError(t, ll.Set("4096:data.bin"))
	assert.Equal(t, loadList{
		{0x2000, "prog.bin"},
		{0x1000, "data.bin"},
	}, ll)
	assert.Equal(t, "0x2000:prog.bin,0x1000:data.bin", ll.String())

	for _, bad := range []string{
		"prog.bin",
		"0x10000:prog.bin",
		"nope:prog.bin",
		"0x2000:",
	} {
		assert.Error(t, ll.Set(bad), "load %q", bad)
	}
	assert.Len(t, ll, 2)
}

func Test_load(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "prog.bin")
	require.NoError(t, os.WriteFile(name, []byte{0xde, 0xad, 0xbe, 0xef}, 0o644))

	t.Run("ok", func(t *testing.T) {
		target := sim.New()
		mon, done := simRemote(target)
		var logged []string
		err := loadList{{0x2000, name}}.load(context.Background(), mon, func(mess string, args ...interface{}) {
			logged = append(logged, mess)
		})
		require.NoError(t, err)
		require.NoError(t, done())
		assert.Equal(t, byte(0xde), target.Load(0x2000))
		assert.Equal(t, byte(0xef), target.Load(0x2003))
		assert.Len(t, logged, 1)
	})

	t.Run("does not fit", func(t *testing.T) {
		target := sim.New()
		mon, done := simRemote(target)
		err := loadList{{0xfffe, name}}.load(context.Background(), mon, t.Logf)
		require.NoError(t, done())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "4 bytes do not fit")
		assert.Equal(t, byte(0), target.Load(0xfffe))
	})

	t.Run("verify", func(t *testing.T) {
		err := loadSpec{0x2000, name}.load(context.Background(), stuckTarget{}, []byte{1, 2, 3})
		require.Error(t, err)
		assert.Equal(t, "verify failed @0x2000: wrote 0x01, read 0x00", err.Error())
	})

	t.Run("missing file", func(t *testing.T) {
		err := loadList{{0x2000, filepath.Join(dir, "nope.bin")}}.load(context.Background(), stuckTarget{}, t.Logf)
		assert.True(t, errors.Is(err, os.ErrNotExist), "expected not exist error, got %v", err)
	})
}

// stuckTarget ignores all writes, reading back zeros.
type stuckTarget struct{}

func (stuckTarget) PokeBytes(ctx context.Context, addr uint16, data []byte) error { return nil }

func (stuckTarget) PeekBytes(ctx context.Context, addr uint16, buf []byte) error {
	for i := range buf {
		buf[i] = 0
	}
	return nil
}

func Test_config(t *testing.T) {
	dir := t.TempDir()
	prog := filepath.Join(dir, "prog.bin")
	require.NoError(t, os.WriteFile(prog, []byte{1, 2, 3}, 0o644))
	words := filepath.Join(dir, "words.fs")
	require.NoError(t, os.WriteFile(words, []byte(": sq dup * ;\n"), 0o644))

	for _, tc := range []struct {
		name    string
		args    []string
		stdin   string
		stdout  string
		logs    []string
		noLogs  []string
		wantErr func(err error) bool
	}{
		{
			name:   "third",
			args:   []string{"-driver", "sim"},
			stdin:  "66 4096 xc! 4096 xc? cr\n",
			stdout: thirdWelcome + "66 \n",
			logs: []string{
				"INFO: using default baud rate 115200",
				"INFO: using default device " + serial.DefaultDevice(),
			},
		},
		{
			name:   "device given",
			args:   []string{"-driver", "sim", "-d", "sim0", "-baud", "9600"},
			stdout: thirdWelcome,
			noLogs: []string{"using default"},
		},
		{
			name:   "load",
			args:   []string{"-driver", "sim", "-load", "0x2000:" + prog},
			stdin:  "8192 3 xdump\n",
			stdout: thirdWelcome + "1 2 3 \n",
			logs:   []string{"INFO: loaded 3 bytes from " + prog + " @0x2000"},
		},
		{
			name:   "files before stdin",
			args:   []string{"-driver", "sim", words},
			stdin:  "9 sq . cr\n",
			stdout: thirdWelcome + "81 \n",
		},
		{
			name:   "first",
			args:   []string{"-driver", "sim", "-first"},
			stdin:  firstBuiltins + "\n: t immediate 72 echo exit t\n",
			stdout: "H",
		},
		{
			name:   "trace wire",
			args:   []string{"-driver", "sim", "-trace-wire"},
			stdin:  "4096 xc? cr\n",
			stdout: thirdWelcome + "0 \n",
			logs:   []string{"WIRE: > 10", "WIRE: > 24", "WIRE: < 00"},
		},
		{
			name: "unknown driver",
			args: []string{"-driver", "nope"},
			wantErr: func(err error) bool {
				var poe *serial.PortOpenError
				return errors.As(err, &poe)
			},
		},
		{
			name:    "missing file",
			args:    []string{"-driver", "sim", filepath.Join(dir, "nope.fs")},
			wantErr: func(err error) bool { return errors.Is(err, os.ErrNotExist) },
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var out, logOut bytes.Buffer
			var logs logio.Logger
			logs.SetOutput(&logOut)

			cfg := config{stdin: strings.NewReader(tc.stdin), stdout: &out}
			fs := flag.NewFlagSet(tc.name, flag.ContinueOnError)
			cfg.bind(fs)
			require.NoError(t, fs.Parse(tc.args))
			cfg.files = fs.Args()
			fs.Visit(cfg.visit)

			err := cfg.run(context.Background(), &logs)
			if tc.wantErr != nil {
				assert.True(t, tc.wantErr(err), "unexpected error: %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.stdout, out.String())
			for _, line := range tc.logs {
				assert.Contains(t, logOut.String(), line)
			}
			for _, line := range tc.noLogs {
				assert.NotContains(t, logOut.String(), line)
			}
			assert.Equal(t, 0, logs.ExitCode())
		})
	}
}

func Test_config_interrupted(t *testing.T) {
	var logOut bytes.Buffer
	var logs logio.Logger
	logs.SetOutput(&logOut)

	cfg := config{stdin: strings.NewReader("1 . cr\n"), stdout: &bytes.Buffer{}}
	fs := flag.NewFlagSet("interrupted", flag.ContinueOnError)
	cfg.bind(fs)
	require.NoError(t, fs.Parse([]string{"-driver", "sim"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, cfg.run(ctx, &logs))
	assert.Contains(t, logOut.String(), "INFO: interrupted")
}
