// Command gen_vm_expects generates, for every expect* and with* builder method
// of vmTestCase, a function returning it as a func(vmTestCase) vmTestCase, so
// that expectations may be passed around as values to vmTestCase.apply.
//
// Usage:
//
//	go run scripts/gen_vm_expects.go -- vm_test.go vm_expects_test.go
package main

import (
	"bufio"
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"regexp"
	"time"

	"golang.org/x/sync/errgroup"
)

type namedReader interface {
	io.ReadCloser
	Name() string
}

var (
	in  namedReader    = os.Stdin
	out io.WriteCloser = os.Stdout
)

func parseFlags() {
	flag.Parse()

	args := flag.Args()

	if len(args) > 0 {
		name := args[0]
		f, err := os.Open(name)
		if err != nil {
			log.Fatalf("failed to open %v: %v", name, err)
		}
		args = args[1:]
		in = f
	}

	if len(args) > 0 {
		name := args[0]
		f, err := os.Create(name)
		if err != nil {
			log.Fatalf("failed to create %v: %v", name, err)
		}
		out = f
	}
}

func main() {
	parseFlags()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	eg, ctx := errgroup.WithContext(ctx)

	// output is piped through gofmt, which must be started first
	ready := make(chan struct{})

	eg.Go(func() error {
		gofmt := exec.CommandContext(ctx, "gofmt")
		fmtPipe, err := gofmt.StdinPipe()
		if err != nil {
			return err
		}

		defer out.Close()
		gofmt.Stdout = out
		gofmt.Stderr = os.Stderr

		out = fmtPipe

		close(ready)
		if err := gofmt.Run(); err != nil {
			return fmt.Errorf("gofmt run failed: %w", err)
		}
		return nil
	})

	eg.Go(func() (rerr error) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ready:
		}

		defer func() {
			if cerr := in.Close(); rerr == nil {
				rerr = cerr
			}
			if cerr := out.Close(); rerr == nil {
				rerr = cerr
			}
		}()

		return generate(ctx)
	})

	if err := eg.Wait(); err != nil {
		log.Fatalln(err)
	}
}

var builderMethod = regexp.MustCompile(`^func \(vmt vmTestCase\) (expect|with)(\w+)\((.*?)\) vmTestCase`)

func generate(ctx context.Context) error {
	var buf bytes.Buffer
	buf.WriteString("package main\n\n")
	fmt.Fprintf(&buf, "// @generated from %v\n\n", in.Name())

	if args := flag.Args(); len(args) >= 2 {
		buf.WriteString("//go:generate go run scripts/gen_vm_expects.go --")
		for _, arg := range args {
			buf.WriteByte(' ')
			buf.WriteString(arg)
		}
		buf.WriteString("\n\n")
	}

	var imports, funcs bytes.Buffer
	needTime := false

	sc := bufio.NewScanner(in)
	for sc.Scan() {
		match := builderMethod.FindSubmatch(sc.Bytes())
		if len(match) == 0 {
			continue
		}
		base, what, params := match[1], match[2], match[3]
		if bytes.Contains(params, []byte("time.")) {
			needTime = true
		}

		fmt.Fprintf(&funcs, "func %sVM%s(%s) func(vmTestCase) vmTestCase {\n", base, what, params)
		fmt.Fprintf(&funcs, "\treturn func(vmt vmTestCase) vmTestCase {\n")
		fmt.Fprintf(&funcs, "\t\treturn vmt.%s%s(%s)\n", base, what, callArgs(params))
		fmt.Fprintf(&funcs, "\t}\n}\n\n")

		if err := ctx.Err(); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}

	if needTime {
		imports.WriteString("import \"time\"\n\n")
	}
	buf.Write(imports.Bytes())
	buf.Write(funcs.Bytes())
	_, err := buf.WriteTo(out)
	return err
}

// callArgs turns a parameter list like "addr uint, values ...int" into the
// argument list "addr, values..." that passes them on.
func callArgs(params []byte) []byte {
	var args bytes.Buffer
	for i, part := range bytes.Split(params, []byte(",")) {
		fields := bytes.Fields(part)
		if len(fields) == 0 {
			continue
		}
		if i > 0 {
			args.WriteString(", ")
		}
		args.Write(fields[0])
		if len(fields) > 1 && bytes.HasPrefix(fields[1], []byte("...")) {
			args.WriteString("...")
		}
	}
	return args.Bytes()
}
