package main

import (
	"context"
	"fmt"

	"github.com/JaimeStill/envoy/internal/agents"
	"github.com/JaimeStill/envoy/internal/config"
	"github.com/JaimeStill/envoy/internal/infrastructure"
)

// app holds the configuration and systems shared by every command.
type app struct {
	cfg    *config.Config
	infra  *infrastructure.Infrastructure
	agents *agents.Registry
}

func newApp(ctx context.Context, configPath string, std *streams) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}

	infra, err := infrastructure.New(ctx, cfg, std.stderr)
	if err != nil {
		return nil, err
	}

	if err := infra.Start(); err != nil {
		infra.Shutdown(cfg.ShutdownTimeoutDuration())
		return nil, err
	}

	infra.Logger.Debug("configuration loaded", "path", cfg.Path, "models", len(cfg.Models), "agents", len(cfg.Agents))
	cfg.LogSkipped(infra.Logger)

	return &app{
		cfg:    cfg,
		infra:  infra,
		agents: agents.NewRegistry(cfg, infra.Logger),
	}, nil
}

// close exports metrics and runs shutdown hooks.
func (a *app) close() {
	a.infra.WriteMetrics(a.cfg.Metrics.Textfile)
	if err := a.infra.Shutdown(a.cfg.ShutdownTimeoutDuration()); err != nil {
		a.infra.Logger.Warn("shutdown incomplete", "error", err)
	}
}
