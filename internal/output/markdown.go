package output

import (
	"fmt"
	"strings"

	"github.com/JaimeStill/envoy/internal/workflow"
	"github.com/JaimeStill/envoy/pkg/record"
)

type markdownFormatter struct{}

func (markdownFormatter) Extension() string { return "md" }

func (markdownFormatter) Format(res *workflow.Result) ([]byte, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s Result\n\n", res.Agent)

	b.WriteString("## Run\n\n")
	fmt.Fprintf(&b, "- **Run ID**: %s\n", res.RunID)
	fmt.Fprintf(&b, "- **Status**: %s\n", res.Status)
	fmt.Fprintf(&b, "- **Timestamp**: %s\n", res.Timestamp)
	fmt.Fprintf(&b, "- **Execution Time**: %.2f seconds\n\n", res.ExecutionTime)

	if res.Inputs != nil && res.Inputs.Len() > 0 {
		b.WriteString("## Inputs\n\n")
		res.Inputs.Each(func(key string, v any) {
			switch {
			case items(v) != nil:
				fmt.Fprintf(&b, "### %s\n\n", key)
				for _, item := range items(v) {
					fmt.Fprintf(&b, "- %s\n", scalar(item))
				}
				b.WriteString("\n")
			case isStructured(v):
				writeJSONBlock(&b, key, v)
			default:
				if s, ok := multiline(v); ok {
					fmt.Fprintf(&b, "### %s\n\n```\n%s\n```\n\n", key, s)
					return
				}
				fmt.Fprintf(&b, "**%s**: %s\n\n", key, scalar(v))
			}
		})
	}

	if res.Outputs != nil {
		writeOutputs(&b, res.Outputs)
	} else if res.RawResponse != "" {
		fmt.Fprintf(&b, "## Response\n\n%s\n\n", strings.TrimSpace(res.RawResponse))
	}

	if !res.Validation.Empty() {
		b.WriteString("## Validation\n\n")
		for _, line := range validationLines(res.Validation) {
			fmt.Fprintf(&b, "- **%s**: %s\n", line[0], line[1])
		}
		b.WriteString("\n")
	}

	if res.Error != nil {
		b.WriteString("## Error\n\n")
		fmt.Fprintf(&b, "**Type**: `%s`\n\n", res.Error.Type)
		fmt.Fprintf(&b, "**Message**: %s\n", res.Error.Message)
	}

	return []byte(strings.TrimRight(b.String(), "\n") + "\n"), nil
}

func writeOutputs(b *strings.Builder, outputs *record.Record) {
	b.WriteString("## Outputs\n\n")
	outputs.Each(func(key string, v any) {
		if isStructured(v) {
			writeJSONBlock(b, key, v)
			return
		}
		if s, ok := multiline(v); ok {
			fmt.Fprintf(b, "### %s\n\n%s\n\n", key, s)
			return
		}
		fmt.Fprintf(b, "**%s**: %s\n\n", key, scalar(v))
	})
}

func writeJSONBlock(b *strings.Builder, key string, v any) {
	fmt.Fprintf(b, "### %s\n\n```json\n%s\n```\n\n", key, scalar(v))
}
