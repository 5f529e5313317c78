package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/JaimeStill/envoy/internal/workflow"
)

type fixture struct {
	dir    string
	config string
	calls  atomic.Int32
}

// newFixture writes a configuration with one enabled and one disabled agent
// and a fake chat completions endpoint that answers with reply.
func newFixture(t *testing.T, status int, reply string) *fixture {
	t.Helper()

	f := &fixture{dir: t.TempDir()}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if status != http.StatusOK {
			http.Error(w, `{"error":{"message":"upstream failure","type":"server_error"}}`, status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "fake-model",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": reply},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
	t.Cleanup(server.Close)

	write(t, filepath.Join(f.dir, "agents", "summarizer", "config.yaml"), `
type: text-agent
inputs: [text]
outputs: [summary, keywords]
systemPromptPath: system.txt
userPromptPath: user.txt
`)
	write(t, filepath.Join(f.dir, "agents", "summarizer", "system.txt"), "You summarize text.")
	write(t, filepath.Join(f.dir, "agents", "summarizer", "user.txt"), "Summarize: {{text}}")

	f.config = filepath.Join(f.dir, "config.yaml")
	write(t, f.config, fmt.Sprintf(`
output_dir: %s
logging:
  level: error
api:
  max_retries: 1
  retry_delay: 10ms
  timeout: 5s
models:
  fake:
    type: llm
    api_base: %s/v1
    api_key: test-key
    model: fake-model
  old:
    type: llm
    model: old-model
    enabled: false
agents:
  summarizer:
    model_provider: fake
    config: agents/summarizer/config.yaml
    description: Summarizes text
  retired:
    model_provider: fake
    config: agents/retired/config.yaml
    enabled: false
`, filepath.Join(f.dir, "output"), server.URL))

	return f
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

type invocation struct {
	code   int
	stdout string
	stderr string
}

func (f *fixture) run(t *testing.T, std *streams, args ...string) invocation {
	t.Helper()

	var stdout, stderr bytes.Buffer
	if std == nil {
		std = &streams{stdin: strings.NewReader("")}
	}
	std.stdout, std.stderr = &stdout, &stderr

	code := execute(context.Background(), append([]string{"-config", f.config}, args...), std)
	return invocation{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func TestRunSuccess(t *testing.T) {
	f := newFixture(t, http.StatusOK, `{"summary": "short", "keywords": ["a", "b"]}`)

	got := f.run(t, nil, "run", "summarizer", "-i", `{"text": "a long article"}`)
	if got.code != workflow.ExitSuccess {
		t.Fatalf("exit code: got %d, want 0\nstderr: %s", got.code, got.stderr)
	}

	var doc struct {
		Status  string         `json:"status"`
		Agent   string         `json:"agent"`
		Outputs map[string]any `json:"outputs"`
		Inputs  map[string]any `json:"inputs"`
	}
	if err := json.Unmarshal([]byte(got.stdout), &doc); err != nil {
		t.Fatalf("stdout is not a JSON result: %v\n%s", err, got.stdout)
	}
	if doc.Status != "success" || doc.Agent != "summarizer" {
		t.Errorf("result: got status %q agent %q", doc.Status, doc.Agent)
	}
	if doc.Outputs["summary"] != "short" {
		t.Errorf("outputs: got %v", doc.Outputs)
	}
	if doc.Inputs["text"] != "a long article" {
		t.Errorf("inputs: got %v", doc.Inputs)
	}
}

func TestRunPartialSuccess(t *testing.T) {
	f := newFixture(t, http.StatusOK, `{"summary": "short"}`)

	got := f.run(t, nil, "run", "summarizer", "-i", `{"text": "x"}`, "-format", "yaml")
	if got.code != workflow.ExitPartialSuccess {
		t.Fatalf("exit code: got %d, want 1\nstderr: %s", got.code, got.stderr)
	}
	for _, want := range []string{"status: partial_success", "missing_output_fields:", "- keywords"} {
		if !strings.Contains(got.stdout, want) {
			t.Errorf("yaml result missing %q:\n%s", want, got.stdout)
		}
	}
}

func TestRunMissingInput(t *testing.T) {
	t.Run("non-interactive fails", func(t *testing.T) {
		f := newFixture(t, http.StatusOK, `{"summary": "short", "keywords": []}`)

		got := f.run(t, &streams{stdin: strings.NewReader(""), interactive: true},
			"run", "summarizer", "-i", `{"topic": "x"}`, "-non-interactive", "-format", "txt")
		if got.code != workflow.ExitError {
			t.Fatalf("exit code: got %d, want 2\nstderr: %s", got.code, got.stderr)
		}
		if !strings.Contains(got.stdout, "Type: IncompleteInputError") {
			t.Errorf("text result missing error type:\n%s", got.stdout)
		}
		if f.calls.Load() != 0 {
			t.Errorf("model called %d times, want 0", f.calls.Load())
		}
	})

	t.Run("confirmed continues", func(t *testing.T) {
		f := newFixture(t, http.StatusOK, `{"summary": "short", "keywords": []}`)

		got := f.run(t, &streams{stdin: strings.NewReader("y\n"), interactive: true},
			"run", "summarizer", "-i", `{"topic": "x"}`)
		if got.code != workflow.ExitSuccess {
			t.Fatalf("exit code: got %d, want 0\nstderr: %s", got.code, got.stderr)
		}
		if !strings.Contains(got.stderr, "continue anyway?") {
			t.Errorf("expected confirmation prompt on stderr:\n%s", got.stderr)
		}
	})

	t.Run("piped stdin is strict", func(t *testing.T) {
		f := newFixture(t, http.StatusOK, `{"summary": "short", "keywords": []}`)

		got := f.run(t, &streams{stdin: strings.NewReader("y\n")}, "run", "summarizer", "-i", `{"topic": "x"}`)
		if got.code != workflow.ExitError {
			t.Fatalf("exit code: got %d, want 2", got.code)
		}
	})
}

func TestRunModelFailure(t *testing.T) {
	f := newFixture(t, http.StatusInternalServerError, "")

	got := f.run(t, nil, "run", "summarizer", "-i", `{"text": "x"}`, "-format", "json")
	if got.code != workflow.ExitError {
		t.Fatalf("exit code: got %d, want 2\nstderr: %s", got.code, got.stderr)
	}
	if !strings.Contains(got.stdout, `"type": "ModelInvocationError"`) {
		t.Errorf("result missing model error:\n%s", got.stdout)
	}
}

func TestRunWritesFiles(t *testing.T) {
	f := newFixture(t, http.StatusOK, `{"summary": "short", "keywords": ["a"]}`)

	t.Run("explicit path", func(t *testing.T) {
		path := filepath.Join(f.dir, "results", "out.md")
		got := f.run(t, nil, "run", "summarizer", "-i", `{"text": "x"}`, "-o", path, "-format", "md")
		if got.code != workflow.ExitSuccess {
			t.Fatalf("exit code: got %d\nstderr: %s", got.code, got.stderr)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read output: %v", err)
		}
		if !strings.HasPrefix(string(data), "# summarizer Result") {
			t.Errorf("markdown output:\n%s", data)
		}
		if got.stdout != "" {
			t.Errorf("stdout should be empty when writing a file, got %q", got.stdout)
		}
	})

	t.Run("save to output dir", func(t *testing.T) {
		got := f.run(t, nil, "run", "summarizer", "-i", `{"text": "x"}`, "-save")
		if got.code != workflow.ExitSuccess {
			t.Fatalf("exit code: got %d\nstderr: %s", got.code, got.stderr)
		}
		matches, _ := filepath.Glob(filepath.Join(f.dir, "output", "summarizer_*.json"))
		if len(matches) != 1 {
			t.Errorf("saved files: got %v", matches)
		}
	})
}

func TestCommandFailures(t *testing.T) {
	f := newFixture(t, http.StatusOK, "{}")

	tests := []struct {
		name string
		args []string
	}{
		{"unknown command", []string{"deploy"}},
		{"no command", nil},
		{"unknown agent", []string{"run", "ghost"}},
		{"disabled agent", []string{"run", "retired"}},
		{"missing agent name", []string{"run"}},
		{"bad format", []string{"run", "summarizer", "-format", "xml"}},
		{"unknown info target", []string{"info", "ghost"}},
		{"unknown cache action", []string{"cache", "vacuum"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.run(t, nil, tt.args...)
			if got.code != workflow.ExitFailure {
				t.Errorf("exit code: got %d, want 3\nstderr: %s", got.code, got.stderr)
			}
		})
	}
}

func TestListStatInfo(t *testing.T) {
	f := newFixture(t, http.StatusOK, "{}")

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "list",
			args: []string{"list"},
			want: []string{
				"  - fake (llm)",
				"  - old [disabled]",
				"  - summarizer -> fake [enabled]",
				"      Summarizes text",
				"  - retired [disabled]",
			},
		},
		{
			name: "stat",
			args: []string{"stat"},
			want: []string{"Total Models: 2 (1 enabled)", "Total Agents: 2 (1 enabled)"},
		},
		{
			name: "model info",
			args: []string{"info", "fake"},
			want: []string{"=== Model: fake ===", "Model: fake-model", "Max Tokens: 4096"},
		},
		{
			name: "agent info",
			args: []string{"info", "summarizer"},
			want: []string{
				"=== Agent: summarizer ===",
				"Type: text-agent",
				"Inputs: text",
				"Outputs: summary, keywords",
				"User Prompt: user.txt",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.run(t, nil, tt.args...)
			if got.code != workflow.ExitSuccess {
				t.Fatalf("exit code: got %d\nstderr: %s", got.code, got.stderr)
			}
			for _, want := range tt.want {
				if !strings.Contains(got.stdout, want) {
					t.Errorf("output missing %q:\n%s", want, got.stdout)
				}
			}
		})
	}
}

func TestCacheCommand(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		f := newFixture(t, http.StatusOK, "{}")
		got := f.run(t, nil, "cache", "stats")
		if got.code != workflow.ExitSuccess || !strings.Contains(got.stdout, "image cache is disabled") {
			t.Errorf("got %d %q", got.code, got.stdout)
		}
	})

	t.Run("file backend", func(t *testing.T) {
		f := newFixture(t, http.StatusOK, "{}")
		t.Setenv("ENVOY_CACHE_ENABLED", "true")
		t.Setenv("ENVOY_CACHE_DIR", filepath.Join(f.dir, "cache"))

		for _, action := range []string{"stats", "prune", "clear"} {
			got := f.run(t, nil, "cache", action)
			if got.code != workflow.ExitSuccess {
				t.Fatalf("cache %s: exit %d\nstderr: %s", action, got.code, got.stderr)
			}
		}

		got := f.run(t, nil, "cache", "stats")
		if !strings.Contains(got.stdout, "Entries: 0 (0 expired)") {
			t.Errorf("stats output:\n%s", got.stdout)
		}
	})
}

func TestStdinPrompter(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"y", true},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		p := &stdinPrompter{in: strings.NewReader(tt.input), out: &out}
		got, err := p.Confirm(context.Background(), []string{"text"})
		if err != nil {
			t.Errorf("Confirm(%q) error: %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("Confirm(%q) = %t, want %t", tt.input, got, tt.want)
		}
	}

	p := &stdinPrompter{in: strings.NewReader(""), out: &bytes.Buffer{}}
	if _, err := p.Confirm(context.Background(), []string{"text"}); err == nil {
		t.Error("expected error on empty stdin")
	}
}
