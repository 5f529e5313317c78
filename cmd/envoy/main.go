// Command envoy runs configured agents against OpenAI-compatible models.
//
// Usage:
//
//	envoy [-config path] <command> [flags]
//
// Commands:
//
//	list              list models and agents
//	stat              count models and agents
//	info NAME         describe a model or agent
//	run AGENT         run an agent (-i, -image, -o, -save, -format, -non-interactive)
//	cache stats|prune|clear
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	std := &streams{
		stdin:       os.Stdin,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		interactive: term.IsTerminal(int(os.Stdin.Fd())),
	}

	code := execute(ctx, os.Args[1:], std)
	stop()
	os.Exit(code)
}
