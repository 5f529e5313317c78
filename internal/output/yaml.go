package output

import (
	"bytes"

	"gopkg.in/yaml.v3"

	"github.com/JaimeStill/envoy/internal/workflow"
)

type yamlFormatter struct{}

func (yamlFormatter) Extension() string { return "yaml" }

func (yamlFormatter) Format(res *workflow.Result) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(res); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
