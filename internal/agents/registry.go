// Package agents resolves configured agents into runnable definitions:
// field spec, prompt templates, and the resolved model endpoint.
package agents

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"

	"github.com/JaimeStill/envoy/internal/config"
	"github.com/JaimeStill/envoy/internal/prompts"
)

// Agent is a loaded, runnable agent definition.
type Agent struct {
	Name        string
	Description string
	ModelName   string
	Model       config.ModelConfig
	Spec        *FieldSpec
	Prompts     prompts.Pair
}

// Info describes a registered agent. Type, Inputs, and Outputs are filled
// only once the agent has been loaded.
type Info struct {
	Name          string   `json:"name" yaml:"name"`
	Enabled       bool     `json:"enabled" yaml:"enabled"`
	ModelProvider string   `json:"model_provider" yaml:"model_provider"`
	Description   string   `json:"description,omitempty" yaml:"description,omitempty"`
	Config        string   `json:"config" yaml:"config"`
	Loaded        bool     `json:"loaded" yaml:"loaded"`
	Type          Kind     `json:"type,omitempty" yaml:"type,omitempty"`
	Inputs        []string `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Outputs       []string `json:"outputs,omitempty" yaml:"outputs,omitempty"`
}

// Registry loads agents from configuration and caches them by name.
type Registry struct {
	cfg    *config.Config
	logger *slog.Logger

	mu     sync.Mutex
	loaded map[string]*Agent
}

// NewRegistry creates a Registry over the agents and models in cfg.
func NewRegistry(cfg *config.Config, logger *slog.Logger) *Registry {
	return &Registry{
		cfg:    cfg,
		logger: logger.With("system", "agents"),
		loaded: make(map[string]*Agent),
	}
}

// Load returns the named agent, reading its field spec and prompts on first
// use. The model configuration is resolved strictly, so unset ${VAR}
// references fail here rather than at load time.
func (r *Registry) Load(name string) (*Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.loaded[name]; ok {
		r.logger.Debug("agent cache hit", "agent", name)
		return a, nil
	}

	reg, ok := r.cfg.Agents[name]
	if !ok {
		if slices.Contains(r.cfg.Skipped, "agent:"+name) {
			return nil, fmt.Errorf("%w: %s", ErrDisabled, name)
		}
		return nil, fmt.Errorf("%w: %s (available: %v)", ErrNotFound, name, r.cfg.AgentNames())
	}

	model, ok := r.cfg.Models[reg.ModelProvider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, reg.ModelProvider)
	}
	model, err := model.Resolve()
	if err != nil {
		return nil, fmt.Errorf("resolve model %s: %w", reg.ModelProvider, err)
	}

	spec, err := LoadSpec(r.specPath(reg.Config))
	if err != nil {
		return nil, fmt.Errorf("load agent %s: %w", name, err)
	}

	pair, missingUser, err := prompts.Load(spec.Dir, spec.SystemPromptPath, spec.UserPromptPath)
	if err != nil {
		return nil, fmt.Errorf("load agent %s prompts: %w", name, err)
	}
	if missingUser {
		r.logger.Warn("user prompt file not found, using empty template",
			"agent", name,
			"path", spec.UserPromptPath,
		)
	}

	a := &Agent{
		Name:        name,
		Description: reg.Description,
		ModelName:   reg.ModelProvider,
		Model:       model,
		Spec:        spec,
		Prompts:     pair,
	}
	r.loaded[name] = a

	r.logger.Info("agent loaded",
		"agent", name,
		"type", spec.Type,
		"model", model.Model,
	)
	return a, nil
}

// List describes every enabled agent in name order.
func (r *Registry) List() []Info {
	names := r.cfg.AgentNames()
	out := make([]Info, 0, len(names))
	for _, name := range names {
		info, _ := r.Info(name)
		out = append(out, info)
	}
	return out
}

// Info describes the named agent.
func (r *Registry) Info(name string) (Info, error) {
	reg, ok := r.cfg.Agents[name]
	if !ok {
		return Info{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	info := Info{
		Name:          name,
		Enabled:       reg.IsEnabled(),
		ModelProvider: reg.ModelProvider,
		Description:   reg.Description,
		Config:        reg.Config,
	}

	r.mu.Lock()
	a, loaded := r.loaded[name]
	r.mu.Unlock()

	if loaded {
		info.Loaded = true
		info.Type = a.Spec.Type
		info.Inputs = a.Spec.Inputs
		info.Outputs = a.Spec.Outputs
	}
	return info, nil
}

// Reset drops every cached agent.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.loaded)
}

func (r *Registry) specPath(path string) string {
	if filepath.IsAbs(path) || r.cfg.Dir == "" {
		return path
	}
	return filepath.Join(r.cfg.Dir, path)
}
