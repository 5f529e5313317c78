// Package prompts loads and renders agent prompt templates.
//
// Templates reference input fields with {{name}} tokens. Rendering never
// touches the images field; image payloads travel beside the rendered text.
package prompts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/JaimeStill/envoy/pkg/record"
)

var placeholder = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)

// Pair holds an agent's system template and optional user template.
type Pair struct {
	System string
	User   string
}

// Templates returns the non-empty templates in system, user order.
func (p Pair) Templates() []string {
	out := make([]string, 0, 2)
	if p.System != "" {
		out = append(out, p.System)
	}
	if p.User != "" {
		out = append(out, p.User)
	}
	return out
}

// Load reads the template pair relative to dir. userPath may be empty.
// A missing user template file yields an empty user template and
// missingUser reports it so the caller can warn.
func Load(dir, systemPath, userPath string) (pair Pair, missingUser bool, err error) {
	system, err := os.ReadFile(resolve(dir, systemPath))
	if err != nil {
		return Pair{}, false, fmt.Errorf("%w: %w", ErrSystemTemplate, err)
	}
	pair.System = string(system)

	if userPath == "" {
		return pair, false, nil
	}

	user, err := os.ReadFile(resolve(dir, userPath))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return pair, true, nil
		}
		return Pair{}, false, fmt.Errorf("read user prompt: %w", err)
	}
	pair.User = string(user)

	return pair, false, nil
}

// Render substitutes every {{name}} token whose field exists in rec.
// Unknown tokens and the images field are left untouched.
func Render(template string, rec *record.Record) string {
	return placeholder.ReplaceAllStringFunc(template, func(token string) string {
		name := placeholder.FindStringSubmatch(token)[1]
		if name == record.ImagesField {
			return token
		}
		value, ok := rec.Get(name)
		if !ok {
			return token
		}
		return Stringify(value)
	})
}

// RenderPair renders both templates of p.
func RenderPair(p Pair, rec *record.Record) Pair {
	out := Pair{System: Render(p.System, rec)}
	if p.User != "" {
		out.User = Render(p.User, rec)
	}
	return out
}

// Placeholders returns the token names referenced across templates in
// first-seen order without duplicates.
func Placeholders(templates ...string) []string {
	seen := make(map[string]bool)
	names := make([]string, 0)
	for _, tmpl := range templates {
		for _, m := range placeholder.FindAllStringSubmatch(tmpl, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				names = append(names, m[1])
			}
		}
	}
	return names
}

// Stringify formats a field value for substitution. Lists and mappings are
// rendered as indented JSON.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case *record.Record, []any, []string, map[string]any:
		var sb strings.Builder
		enc := json.NewEncoder(&sb)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Sprint(v)
		}
		return strings.TrimSuffix(sb.String(), "\n")
	default:
		return fmt.Sprint(v)
	}
}

func resolve(dir, path string) string {
	if filepath.IsAbs(path) || dir == "" {
		return path
	}
	return filepath.Join(dir, strings.TrimPrefix(path, "./"))
}
