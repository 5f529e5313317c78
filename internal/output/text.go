package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/JaimeStill/envoy/internal/workflow"
)

type textFormatter struct{}

func (textFormatter) Extension() string { return "txt" }

func (textFormatter) Format(res *workflow.Result) ([]byte, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "Agent: %s\n", res.Agent)
	fmt.Fprintf(&b, "Run ID: %s\n", res.RunID)
	fmt.Fprintf(&b, "Timestamp: %s\n", res.Timestamp)
	fmt.Fprintf(&b, "Status: %s\n", res.Status)
	fmt.Fprintf(&b, "Execution Time: %.2fs\n\n", res.ExecutionTime)

	if res.Inputs != nil && res.Inputs.Len() > 0 {
		b.WriteString("=== Inputs ===\n")
		res.Inputs.Each(func(key string, v any) {
			if list := items(v); list != nil {
				fmt.Fprintf(&b, "%s:\n", key)
				for _, item := range list {
					fmt.Fprintf(&b, "  - %s\n", scalar(item))
				}
				return
			}
			fmt.Fprintf(&b, "%s: %s\n", key, compact(v))
		})
		b.WriteString("\n")
	}

	if res.Outputs != nil {
		b.WriteString("=== Outputs ===\n")
		res.Outputs.Each(func(key string, v any) {
			if isStructured(v) {
				fmt.Fprintf(&b, "%s:\n  %s\n", key, compact(v))
				return
			}
			fmt.Fprintf(&b, "%s: %s\n", key, scalar(v))
		})
		b.WriteString("\n")
	} else if res.RawResponse != "" {
		fmt.Fprintf(&b, "=== Response ===\n%s\n\n", strings.TrimSpace(res.RawResponse))
	}

	if !res.Validation.Empty() {
		b.WriteString("=== Validation ===\n")
		for _, line := range validationLines(res.Validation) {
			fmt.Fprintf(&b, "%s: %s\n", line[0], line[1])
		}
		b.WriteString("\n")
	}

	if res.Error != nil {
		b.WriteString("=== Error ===\n")
		fmt.Fprintf(&b, "Type: %s\n", res.Error.Type)
		fmt.Fprintf(&b, "Message: %s\n", res.Error.Message)
	}

	return []byte(strings.TrimRight(b.String(), "\n") + "\n"), nil
}

// compact renders structured values on a single line.
func compact(v any) string {
	if !isStructured(v) {
		return scalar(v)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return scalar(v)
	}
	return string(data)
}

// validationLines flattens the annotations into label, value pairs in a
// fixed order.
func validationLines(v *workflow.Validation) [][2]string {
	var lines [][2]string
	add := func(label string, values []string) {
		if len(values) > 0 {
			lines = append(lines, [2]string{label, strings.Join(values, ", ")})
		}
	}

	add("missing_template_refs", v.MissingTemplateRefs)
	add("missing_input_fields", v.MissingInputFields)
	add("missing_output_fields", v.MissingOutputFields)
	if v.OutputParseError != "" {
		lines = append(lines, [2]string{"output_parse_error", v.OutputParseError})
	}
	for _, e := range v.ImageErrors {
		lines = append(lines, [2]string{
			fmt.Sprintf("image_error[%d]", e.Index+1),
			fmt.Sprintf("%s: %s", e.Source, e.Message),
		})
	}
	return lines
}
