package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// stdinPrompter asks the operator on stderr and reads the answer from stdin.
type stdinPrompter struct {
	in  io.Reader
	out io.Writer
}

func (p *stdinPrompter) Confirm(ctx context.Context, missing []string) (bool, error) {
	fmt.Fprintf(p.out, "missing input fields: %s\ncontinue anyway? [y/N] ", strings.Join(missing, ", "))

	answer := make(chan string, 1)
	errc := make(chan error, 1)
	go func() {
		line, err := bufio.NewReader(p.in).ReadString('\n')
		if err != nil && line == "" {
			errc <- err
			return
		}
		answer <- line
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case err := <-errc:
		return false, fmt.Errorf("read confirmation: %w", err)
	case line := <-answer:
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}
