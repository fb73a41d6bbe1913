// Command fastjsonl validates NDJSON against a JSON Schema and converts it
// into a typed table written to an Arrow IPC file or a SQL database.
//
// Usage:
//
//	fastjsonl job      -config job.json [-validate]
//	fastjsonl validate -schema s.json [file|-]
//	fastjsonl convert  -target t.yaml [-schema s.json] -out out.arrow [file|-]
//	fastjsonl count    [file|-]
//	fastjsonl inspect  out.arrow
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	// register all backends with the storage factory.
	_ "fastjsonl/internal/storage/all"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// errFailed is returned by a command that already reported why it failed.
var errFailed = errors.New("failed")

// env carries the process streams so commands can be run from tests.
type env struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, e env, args []string) error
}

var commands = []command{
	{"job", "run a job file", cmdJob},
	{"validate", "validate NDJSON lines against a JSON Schema", cmdValidate},
	{"convert", "convert NDJSON into a table", cmdConvert},
	{"count", "count the lines of an NDJSON input", cmdCount},
	{"inspect", "print the schema, row count and fingerprint of an Arrow IPC file", cmdInspect},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], env{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr})
	stop()
	os.Exit(code)
}

// run dispatches args to a subcommand and maps its error to an exit code.
func run(ctx context.Context, args []string, e env) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "-help" || args[0] == "help" {
		usage(e.stderr)
		if len(args) == 0 {
			return exitUsage
		}
		return exitOK
	}
	for _, c := range commands {
		if c.name != args[0] {
			continue
		}
		err := c.run(ctx, e, args[1:])
		switch {
		case err == nil:
			return exitOK
		case errors.Is(err, errUsage):
			return exitUsage
		case errors.Is(err, errFailed):
			return exitFailure
		case errors.Is(err, context.Canceled):
			fmt.Fprintf(e.stderr, "fastjsonl %s: interrupted\n", c.name)
			return exitFailure
		default:
			fmt.Fprintf(e.stderr, "fastjsonl %s: %v\n", c.name, err)
			return exitFailure
		}
	}
	fmt.Fprintf(e.stderr, "fastjsonl: unknown command %q\n", args[0])
	usage(e.stderr)
	return exitUsage
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: fastjsonl <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-9s %s\n", c.name, c.usage)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, `run "fastjsonl <command> -h" for the flags of a command`)
}
