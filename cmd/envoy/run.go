package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/JaimeStill/envoy/internal/images"
	"github.com/JaimeStill/envoy/internal/model"
	"github.com/JaimeStill/envoy/internal/output"
	"github.com/JaimeStill/envoy/internal/validation"
	"github.com/JaimeStill/envoy/internal/workflow"
)

type runOptions struct {
	input          string
	images         stringList
	out            string
	save           bool
	format         string
	nonInteractive bool
}

func runCommand(ctx context.Context, configPath string, args []string, std *streams) (int, error) {
	var opts runOptions

	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(std.stderr)
	fs.StringVar(&opts.input, "i", "", "Input: text, JSON, YAML, or a file path")
	fs.Var(&opts.images, "image", "Image file or URL (repeatable)")
	fs.StringVar(&opts.out, "o", "", "Write the result to this file")
	fs.BoolVar(&opts.save, "save", false, "Write the result to output_dir/<agent>_<timestamp>.<ext>")
	fs.StringVar(&opts.format, "format", "", "Output format: auto, json, yaml, markdown, txt")
	fs.BoolVar(&opts.nonInteractive, "non-interactive", false, "Fail on missing input fields instead of asking")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: envoy run AGENT [-i input] [-image path]... [-o file | -save] [-format name] [-non-interactive]")
		fs.PrintDefaults()
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

	formatName := opts.format
	if formatName == "" {
		formatName = a.cfg.Output.Format
	}
	format, err := output.ParseFormat(formatName)
	if err != nil {
		return 0, err
	}

	agent, err := a.agents.Load(name)
	if err != nil {
		return 0, err
	}

	logger := a.infra.Logger
	policy := workflow.ModelPolicy(a.cfg.API)

	rt := &workflow.Runtime{
		Agent:  agent,
		Client: model.Retry(model.NewOpenAI(agent.Model, logger), policy, a.infra.Metrics, logger),
		Images: images.New(
			workflow.ImageOptions(agent.Model, a.cfg.Images),
			a.infra.Cache,
			logger,
			images.WithRecorder(a.infra.Metrics),
		),
		Validation: a.cfg.Validation,
		Input: validation.InputPolicy{
			Strict:   a.cfg.Validation.InputStrict || opts.nonInteractive || !std.interactive,
			Prompter: &stdinPrompter{in: std.stdin, out: std.stderr},
		},
		ContinueOnImageError: a.cfg.Images.ContinueOnError,
		Observer:             a.infra.Metrics,
		Logger:               logger,
	}

	res := workflow.Execute(ctx, rt, opts.input, opts.images)

	data, chosen, rule, err := output.Render(res, format, output.NewSelector(a.cfg.Output.LengthThreshold))
	if err != nil {
		return 0, err
	}
	logger.Debug("output format selected", "format", chosen, "rule", rule)

	path := opts.out
	if path == "" && opts.save {
		f, err := output.New(chosen)
		if err != nil {
			return 0, err
		}
		path = defaultOutputPath(a.cfg.OutputDir, res.Agent, time.Now(), f.Extension())
	}

	if err := writeOutput(path, data, std); err != nil {
		return 0, err
	}
	if path != "" {
		fmt.Fprintf(std.stderr, "result saved to %s\n", path)
	}

	return res.ExitCode(), nil
}

// writeOutput writes data to path, creating parent directories, or to
// stdout when path is empty.
func writeOutput(path string, data []byte, std *streams) error {
	if path == "" {
		_, err := std.stdout.Write(data)
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func defaultOutputPath(dir, agent string, t time.Time, ext string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.%s", agent, t.Format("20060102_150405"), ext))
}
