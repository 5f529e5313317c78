package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/JaimeStill/envoy/internal/workflow"
)

func listCommand(ctx context.Context, configPath string, args []string, std *streams) (int, error) {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(std.stderr)
	if err := fs.Parse(args); err != nil {
		return 0, err
	}

	a, err := newApp(ctx, configPath, std)
	if err != nil {
		return 0, err
	}
	defer a.close()

	w := std.stdout

	fmt.Fprintln(w, "=== Models ===")
	for _, name := range a.cfg.ModelNames() {
		fmt.Fprintf(w, "  - %s (%s)\n", name, a.cfg.Models[name].Type)
	}
	for _, name := range skipped(a.cfg.Skipped, "model") {
		fmt.Fprintf(w, "  - %s [disabled]\n", name)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Agents ===")
	for _, info := range a.agents.List() {
		fmt.Fprintf(w, "  - %s -> %s [enabled]\n", info.Name, info.ModelProvider)
		if info.Description != "" {
			fmt.Fprintf(w, "      %s\n", info.Description)
		}
	}
	for _, name := range skipped(a.cfg.Skipped, "agent") {
		fmt.Fprintf(w, "  - %s [disabled]\n", name)
	}

	return workflow.ExitSuccess, nil
}

func statCommand(ctx context.Context, configPath string, args []string, std *streams) (int, error) {
	fs := flag.NewFlagSet("stat", flag.ContinueOnError)
	fs.SetOutput(std.stderr)
	if err := fs.Parse(args); err != nil {
		return 0, err
	}

	a, err := newApp(ctx, configPath, std)
	if err != nil {
		return 0, err
	}
	defer a.close()

	models, agents := len(a.cfg.Models), len(a.cfg.Agents)
	disabledModels := len(skipped(a.cfg.Skipped, "model"))
	disabledAgents := len(skipped(a.cfg.Skipped, "agent"))

	w := std.stdout
	fmt.Fprintln(w, "=== Statistics ===")
	fmt.Fprintf(w, "Total Models: %d (%d enabled)\n", models+disabledModels, models)
	fmt.Fprintf(w, "Total Agents: %d (%d enabled)\n", agents+disabledAgents, agents)

	return workflow.ExitSuccess, nil
}

func infoCommand(ctx context.Context, configPath string, args []string, std *streams) (int, error) {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	fs.SetOutput(std.stderr)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: envoy info NAME")
	}

	name, err := parseNamed(fs, args)
	if err != nil {
		return 0, err
	}

	a, err := newApp(ctx, configPath, std)
	if err != nil {
		return 0, err
	}
	defer a.close()

	w := std.stdout

	if m, ok := a.cfg.Models[name]; ok {
		fmt.Fprintf(w, "=== Model: %s ===\n", name)
		fmt.Fprintf(w, "  Type: %s\n", m.Type)
		fmt.Fprintf(w, "  API Base: %s\n", m.APIBase)
		fmt.Fprintf(w, "  Model: %s\n", m.Model)
		fmt.Fprintf(w, "  Max Tokens: %d\n", m.MaxTokens)
		fmt.Fprintf(w, "  Temperature: %g\n", m.Temperature)
		if m.IsVision() {
			fmt.Fprintf(w, "  Resize Image: %t\n", m.ResizeImageForAPI)
			fmt.Fprintf(w, "  Max Image Size: %d\n", m.MaxImageSize)
			fmt.Fprintf(w, "  Image Quality: %d\n", m.ImageQuality)
			fmt.Fprintf(w, "  Download Images: %t\n", m.DownloadImages)
		}
		return workflow.ExitSuccess, nil
	}

	info, err := a.agents.Info(name)
	if err != nil {
		return 0, fmt.Errorf("%q is not a model or agent (models: %s; agents: %s)",
			name,
			strings.Join(a.cfg.ModelNames(), ", "),
			strings.Join(a.cfg.AgentNames(), ", "),
		)
	}

	fmt.Fprintf(w, "=== Agent: %s ===\n", name)
	fmt.Fprintf(w, "  Enabled: %t\n", info.Enabled)
	fmt.Fprintf(w, "  Model Provider: %s\n", info.ModelProvider)
	fmt.Fprintf(w, "  Description: %s\n", info.Description)
	fmt.Fprintf(w, "  Config: %s\n", info.Config)

	agent, err := a.agents.Load(name)
	if err != nil {
		a.infra.Logger.Warn("agent details unavailable", "agent", name, "error", err)
		return workflow.ExitSuccess, nil
	}

	user := agent.Spec.UserPromptPath
	if user == "" {
		user = "N/A"
	}

	fmt.Fprintf(w, "  Type: %s\n", agent.Spec.Type)
	fmt.Fprintf(w, "  Inputs: %s\n", strings.Join(agent.Spec.Inputs, ", "))
	fmt.Fprintf(w, "  Outputs: %s\n", strings.Join(agent.Spec.Outputs, ", "))
	fmt.Fprintf(w, "  System Prompt: %s\n", agent.Spec.SystemPromptPath)
	fmt.Fprintf(w, "  User Prompt: %s\n", user)

	return workflow.ExitSuccess, nil
}

// skipped returns the names recorded under kind in a Config.Skipped list.
func skipped(entries []string, kind string) []string {
	var out []string
	for _, e := range entries {
		if name, ok := strings.CutPrefix(e, kind+":"); ok {
			out = append(out, name)
		}
	}
	return out
}
