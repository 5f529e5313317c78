package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/JaimeStill/envoy/internal/workflow"
)

// streams carries the process standard streams so commands can be driven
// from tests.
type streams struct {
	stdin       io.Reader
	stdout      io.Writer
	stderr      io.Writer
	interactive bool
}

var errUsage = errors.New("usage")

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, configPath string, args []string, std *streams) (int, error)
}

var commands = []command{
	{"list", "list models and agents", listCommand},
	{"stat", "count models and agents", statCommand},
	{"info", "describe a model or agent", infoCommand},
	{"run", "run an agent", runCommand},
	{"cache", "inspect or maintain the image cache", cacheCommand},
}

// execute parses global flags, dispatches the command, and maps the outcome
// to a process exit code.
func execute(ctx context.Context, args []string, std *streams) int {
	fs := flag.NewFlagSet("envoy", flag.ContinueOnError)
	fs.SetOutput(std.stderr)
	configPath := fs.String("config", "", "Configuration file (default: config.local.yaml or config.yaml)")
	fs.Usage = func() { usage(fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return workflow.ExitSuccess
		}
		return workflow.ExitFailure
	}

	if fs.NArg() == 0 {
		usage(fs)
		return workflow.ExitFailure
	}

	name, rest := fs.Arg(0), fs.Args()[1:]
	for _, cmd := range commands {
		if cmd.name != name {
			continue
		}
		code, err := cmd.run(ctx, *configPath, rest, std)
		if err != nil {
			if !errors.Is(err, errUsage) && !errors.Is(err, flag.ErrHelp) {
				fmt.Fprintf(std.stderr, "error: %v\n", err)
			}
			if errors.Is(err, flag.ErrHelp) {
				return workflow.ExitSuccess
			}
			return workflow.ExitFailure
		}
		return code
	}

	fmt.Fprintf(std.stderr, "unknown command %q\n\n", name)
	usage(fs)
	return workflow.ExitFailure
}

func usage(fs *flag.FlagSet) {
	w := fs.Output()
	fmt.Fprintln(w, "usage: envoy [-config path] <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-8s %s\n", cmd.name, cmd.summary)
	}
	fmt.Fprintln(w)
	fs.PrintDefaults()
}

// parseNamed parses flags that may appear before or after a single
// positional name argument.
func parseNamed(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return "", errUsage
	}

	name := fs.Arg(0)
	if err := fs.Parse(fs.Args()[1:]); err != nil {
		return "", err
	}
	if fs.NArg() > 0 {
		return "", fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return name, nil
}

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}
