package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/JaimeStill/envoy/internal/workflow"
	"github.com/JaimeStill/envoy/pkg/formatting"
)

func cacheCommand(ctx context.Context, configPath string, args []string, std *streams) (int, error) {
	fs := flag.NewFlagSet("cache", flag.ContinueOnError)
	fs.SetOutput(std.stderr)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: envoy cache stats|prune|clear")
	}

	action, err := parseNamed(fs, args)
	if err != nil {
		return 0, err
	}
	switch action {
	case "stats", "prune", "clear":
	default:
		fs.Usage()
		return 0, fmt.Errorf("unknown cache action %q", action)
	}

	a, err := newApp(ctx, configPath, std)
	if err != nil {
		return 0, err
	}
	defer a.close()

	mgr := a.infra.Cache
	if !mgr.Enabled() {
		fmt.Fprintln(std.stdout, "image cache is disabled")
		return workflow.ExitSuccess, nil
	}

	w := std.stdout
	switch action {
	case "stats":
		stats, err := mgr.Stats(ctx)
		if err != nil {
			return 0, fmt.Errorf("cache stats: %w", err)
		}
		fmt.Fprintln(w, "=== Image Cache ===")
		fmt.Fprintf(w, "Backend: %s\n", a.cfg.Cache.Backend)
		fmt.Fprintf(w, "TTL: %s\n", mgr.TTL())
		fmt.Fprintf(w, "Entries: %d (%d expired)\n", stats.Entries, stats.Expired)
		fmt.Fprintf(w, "Size: %s\n", formatting.FormatBytes(stats.Bytes, 1))
		if stats.Entries > 0 {
			fmt.Fprintf(w, "Oldest: %s\n", stats.Oldest.Format(time.RFC3339))
			fmt.Fprintf(w, "Newest: %s\n", stats.Newest.Format(time.RFC3339))
		}
	case "prune":
		n, err := mgr.Prune(ctx)
		if err != nil {
			return 0, fmt.Errorf("cache prune: %w", err)
		}
		fmt.Fprintf(w, "removed %d expired entries\n", n)
	case "clear":
		n, err := mgr.Clear(ctx)
		if err != nil {
			return 0, fmt.Errorf("cache clear: %w", err)
		}
		fmt.Fprintf(w, "removed %d entries\n", n)
	}

	return workflow.ExitSuccess, nil
}
