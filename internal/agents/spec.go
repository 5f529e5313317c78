package agents

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind identifies what an agent sends to its model.
type Kind string

const (
	TextAgent   Kind = "text-agent"
	VisionAgent Kind = "vision-agent"
)

// FieldSpec declares an agent's input and output contract and the location
// of its prompt templates. Prompt paths are relative to Dir.
type FieldSpec struct {
	Type             Kind     `json:"type"`
	Inputs           []string `json:"inputs,omitempty"`
	Outputs          []string `json:"outputs,omitempty"`
	SystemPromptPath string   `json:"systemPromptPath"`
	UserPromptPath   string   `json:"userPromptPath,omitempty"`

	Dir string `json:"-"`
}

// document accepts both the camelCase keys and the snake_case aliases.
type document struct {
	Type             string   `yaml:"type"`
	Inputs           []string `yaml:"inputs"`
	Outputs          []string `yaml:"outputs"`
	SystemPromptPath string   `yaml:"systemPromptPath"`
	UserPromptPath   string   `yaml:"userPromptPath"`
	SystemPrompt     string   `yaml:"system_prompt"`
	UserPrompt       string   `yaml:"user_prompt"`
}

// LoadSpec reads a field spec document. JSON and YAML are both accepted.
func LoadSpec(path string) (*FieldSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read field spec: %w", err)
	}

	spec, err := ParseSpec(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	spec.Dir = filepath.Dir(path)
	return spec, nil
}

// ParseSpec decodes a field spec document and normalizes its type.
func ParseSpec(data []byte) (*FieldSpec, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSpec, err)
	}

	kind, err := parseKind(doc.Type)
	if err != nil {
		return nil, err
	}

	spec := &FieldSpec{
		Type:             kind,
		Inputs:           doc.Inputs,
		Outputs:          doc.Outputs,
		SystemPromptPath: first(doc.SystemPromptPath, doc.SystemPrompt),
		UserPromptPath:   first(doc.UserPromptPath, doc.UserPrompt),
	}
	if spec.SystemPromptPath == "" {
		return nil, fmt.Errorf("%w: systemPromptPath required", ErrInvalidSpec)
	}
	return spec, nil
}

// IsVision reports whether the agent sends images.
func (s *FieldSpec) IsVision() bool {
	return s.Type == VisionAgent
}

func parseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(TextAgent), "llm", "text":
		return TextAgent, nil
	case string(VisionAgent), "vlm", "vision":
		return VisionAgent, nil
	default:
		return "", fmt.Errorf("%w: unknown type %q", ErrInvalidSpec, s)
	}
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
