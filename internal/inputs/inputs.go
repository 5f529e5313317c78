// Package inputs turns a raw command-line argument into an ordered input record.
package inputs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/JaimeStill/envoy/pkg/record"
)

// InputField holds the raw value when input is not a structured mapping.
const InputField = "input"

// Normalize builds the input record for a run.
//
// raw is resolved in order: an existing .json file, an existing .yaml/.yml
// file, any other existing file (read as literal text), then the literal
// itself parsed as JSON, then as YAML, falling back to {"input": raw}.
// An empty raw yields an empty record. Image sources already in the document
// come first in the images field, followed by images.
func Normalize(raw string, images []string) (*record.Record, error) {
	rec, err := parse(raw)
	if err != nil {
		return nil, err
	}

	if merged := mergeImages(rec.Strings(record.ImagesField), images); len(merged) > 0 {
		list := make([]any, len(merged))
		for i, src := range merged {
			list[i] = src
		}
		if err := rec.Set(record.ImagesField, list); err != nil {
			return nil, err
		}
	}

	return rec, nil
}

func parse(raw string) (*record.Record, error) {
	if raw == "" {
		return record.New(), nil
	}

	if info, err := os.Stat(raw); err == nil && !info.IsDir() {
		return parseFile(raw)
	}

	return parseLiteral(raw), nil
}

func parseFile(path string) (*record.Record, error) {
	data, err := os.ReadFile(path)

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err != nil {
			return nil, &MalformedInputError{Path: path, Format: "json", Err: err}
		}
		return parseJSON(path, data)
	case ".yaml", ".yml":
		if err != nil {
			return nil, &MalformedInputError{Path: path, Format: "yaml", Err: err}
		}
		return parseYAML(path, data)
	}

	if err != nil {
		return nil, err
	}
	return parseLiteral(string(data)), nil
}

func parseJSON(path string, data []byte) (*record.Record, error) {
	value, err := record.DecodeJSON(data)
	if err != nil {
		return nil, &MalformedInputError{Path: path, Format: "json", Err: err}
	}
	return wrap(value, value), nil
}

func parseYAML(path string, data []byte) (*record.Record, error) {
	value, err := record.DecodeYAML(data)
	if err != nil {
		return nil, &MalformedInputError{Path: path, Format: "yaml", Err: err}
	}
	return wrap(value, string(data)), nil
}

// parseLiteral never fails: text that is neither JSON nor YAML becomes
// {"input": raw}.
func parseLiteral(raw string) *record.Record {
	if value, err := record.DecodeJSON([]byte(raw)); err == nil {
		return wrap(value, value)
	}
	if value, err := record.DecodeYAML([]byte(raw)); err == nil {
		return wrap(value, raw)
	}
	return single(raw)
}

// wrap returns value when it is a mapping and {"input": fallback} otherwise.
func wrap(value any, fallback any) *record.Record {
	if rec, ok := value.(*record.Record); ok {
		return rec
	}
	return single(fallback)
}

func single(value any) *record.Record {
	rec := record.New()
	_ = rec.Set(InputField, value)
	return rec
}

func mergeImages(existing, extra []string) []string {
	if len(extra) == 0 {
		return existing
	}
	merged := make([]string, 0, len(existing)+len(extra))
	merged = append(merged, existing...)
	return append(merged, extra...)
}

// IsMalformed reports whether err is a MalformedInputError.
func IsMalformed(err error) bool {
	var target *MalformedInputError
	return errors.As(err, &target)
}
