package output

import (
	"bytes"
	"encoding/json"

	"github.com/JaimeStill/envoy/internal/workflow"
)

type jsonFormatter struct{}

func (jsonFormatter) Extension() string { return "json" }

// Format writes the result document as indented JSON. Record fields keep
// their insertion order.
func (jsonFormatter) Format(res *workflow.Result) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
