package config

import (
	"fmt"
	"strings"
)

// Model types.
const (
	ModelLLM = "llm"
	ModelVLM = "vlm"
)

// ModelConfig describes an OpenAI-compatible model endpoint.
type ModelConfig struct {
	Type              string  `yaml:"type"`
	APIBase           string  `yaml:"api_base"`
	APIKey            string  `yaml:"api_key"`
	Model             string  `yaml:"model"`
	MaxTokens         int     `yaml:"max_tokens"`
	Temperature       float32 `yaml:"temperature"`
	Enabled           *bool   `yaml:"enabled"`
	ResizeImageForAPI bool    `yaml:"resize_image_for_api"`
	MaxImageSize      int     `yaml:"max_image_size"`
	ImageQuality      int     `yaml:"image_quality"`
	DownloadImages    bool    `yaml:"download_images"`
}

// IsEnabled reports whether the model is enabled; unset means enabled.
func (c *ModelConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// IsVision reports whether the model accepts image input.
func (c *ModelConfig) IsVision() bool {
	return c.Type == ModelVLM
}

// Finalize applies defaults and validation.
func (c *ModelConfig) Finalize() error {
	c.loadDefaults()
	return c.validate()
}

// Resolve returns a copy with every ${VAR} reference expanded strictly.
// Unset variables without defaults fail with ErrUnsetVariable.
func (c ModelConfig) Resolve() (ModelConfig, error) {
	fields := []struct {
		name string
		ptr  *string
	}{
		{"type", &c.Type},
		{"api_base", &c.APIBase},
		{"api_key", &c.APIKey},
		{"model", &c.Model},
	}

	for _, f := range fields {
		v, err := ExpandString(*f.ptr, true)
		if err != nil {
			return ModelConfig{}, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.ptr = v
	}
	return c, nil
}

func (c *ModelConfig) loadDefaults() {
	if c.MaxTokens == 0 {
		c.MaxTokens = 4096
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.MaxImageSize == 0 {
		c.MaxImageSize = 2048
	}
	if c.ImageQuality == 0 {
		c.ImageQuality = 85
	}
	c.Type = strings.ToLower(c.Type)
}

func (c *ModelConfig) validate() error {
	if c.Type != ModelLLM && c.Type != ModelVLM {
		return fmt.Errorf("type must be %q or %q, got %q", ModelLLM, ModelVLM, c.Type)
	}
	if c.Model == "" {
		return fmt.Errorf("model required")
	}
	if c.ImageQuality < 1 || c.ImageQuality > 100 {
		return fmt.Errorf("image_quality must be between 1 and 100, got %d", c.ImageQuality)
	}
	return nil
}

// AgentConfig registers an agent: the model it uses and the location of its
// field spec document.
type AgentConfig struct {
	ModelProvider string `yaml:"model_provider"`
	Config        string `yaml:"config"`
	Enabled       *bool  `yaml:"enabled"`
	Description   string `yaml:"description"`
}

// IsEnabled reports whether the agent is enabled; unset means enabled.
func (c *AgentConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

func (c *AgentConfig) validate() error {
	if c.ModelProvider == "" {
		return fmt.Errorf("model_provider required")
	}
	if c.Config == "" {
		return fmt.Errorf("config required")
	}
	return nil
}
