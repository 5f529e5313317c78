// Package record provides an insertion-ordered field mapping used for agent
// inputs and outputs. Order is preserved through JSON and YAML encoding so
// that documents round-trip with their original field layout.
package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ImagesField is the reserved field holding the ordered list of image sources.
const ImagesField = "images"

var (
	// ErrFrozen is returned when a frozen record is modified.
	ErrFrozen = errors.New("record is frozen")
	// ErrNotMapping is returned when a document does not decode to a mapping.
	ErrNotMapping = errors.New("document is not a mapping")
)

// Record is an ordered mapping of field name to value. Values are strings,
// float64 or int numbers, bools, nil, []any lists, or nested *Record mappings.
type Record struct {
	fields *orderedmap.OrderedMap[string, any]
	frozen bool
}

// New returns an empty, mutable record.
func New() *Record {
	return &Record{fields: orderedmap.New[string, any]()}
}

// FromMap builds a record from m, ordering keys by the supplied order first
// and appending any remaining keys in sorted order.
func FromMap(m map[string]any, order ...string) *Record {
	r := New()
	for _, k := range order {
		if v, ok := m[k]; ok {
			r.fields.Set(k, v)
		}
	}
	for _, k := range sortedKeys(m) {
		if _, ok := r.fields.Get(k); !ok {
			r.fields.Set(k, m[k])
		}
	}
	return r
}

// Set assigns value to key, appending the key when it is new.
func (r *Record) Set(key string, value any) error {
	if r.frozen {
		return fmt.Errorf("%w: set %s", ErrFrozen, key)
	}
	r.fields.Set(key, value)
	return nil
}

// Get returns the value stored at key.
func (r *Record) Get(key string) (any, bool) {
	if r == nil {
		return nil, false
	}
	return r.fields.Get(key)
}

// Has reports whether key is present, regardless of its value.
func (r *Record) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// Keys returns field names in insertion order.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	keys := make([]string, 0, r.fields.Len())
	for pair := r.fields.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Len returns the number of fields.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return r.fields.Len()
}

// Each calls fn for every field in insertion order.
func (r *Record) Each(fn func(key string, value any)) {
	if r == nil {
		return
	}
	for pair := r.fields.Oldest(); pair != nil; pair = pair.Next() {
		fn(pair.Key, pair.Value)
	}
}

// Freeze makes the record immutable. Nested values are not frozen.
func (r *Record) Freeze() {
	r.frozen = true
}

// Frozen reports whether Freeze has been called.
func (r *Record) Frozen() bool {
	return r.frozen
}

// Clone returns a mutable shallow copy of r.
func (r *Record) Clone() *Record {
	c := New()
	r.Each(func(k string, v any) {
		c.fields.Set(k, v)
	})
	return c
}

// Map converts the record to a plain map, recursively converting nested records.
func (r *Record) Map() map[string]any {
	if r == nil {
		return nil
	}
	m := make(map[string]any, r.Len())
	r.Each(func(k string, v any) {
		m[k] = plain(v)
	})
	return m
}

// Strings returns the value at key as a string slice. Non-string elements
// are formatted with fmt.Sprint.
func (r *Record) Strings(key string) []string {
	v, ok := r.Get(key)
	if !ok || v == nil {
		return nil
	}
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...)
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
				continue
			}
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		return []string{list}
	}
	return nil
}

// MarshalJSON encodes the record as a JSON object in insertion order.
func (r *Record) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')

	i := 0
	for pair := r.fields.Oldest(); pair != nil; pair = pair.Next() {
		if i > 0 {
			buf.WriteByte(',')
		}
		i++

		key, err := encodeJSON(pair.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		val, err := encodeJSON(pair.Value)
		if err != nil {
			return nil, fmt.Errorf("encode field %s: %w", pair.Key, err)
		}
		buf.Write(val)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, preserving key order at every level.
// Returns ErrNotMapping if the document is not an object.
func (r *Record) UnmarshalJSON(data []byte) error {
	if r.frozen {
		return ErrFrozen
	}

	parsed, err := ParseJSON(data)
	if err != nil {
		return err
	}

	r.fields = parsed.fields
	return nil
}

// DecodeJSON decodes a single JSON document into a value, using *Record for
// objects so that key order is preserved.
func DecodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	v, err := decodeJSONValue(dec)
	if err != nil {
		return nil, err
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}

	return v, nil
}

// ParseJSON decodes a JSON object into a new record.
func ParseJSON(data []byte) (*Record, error) {
	v, err := DecodeJSON(data)
	if err != nil {
		return nil, err
	}

	rec, ok := v.(*Record)
	if !ok {
		return nil, ErrNotMapping
	}
	return rec, nil
}

func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func decodeJSONValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		rec := New()
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected object key %v", keyTok)
			}
			val, err := decodeJSONValue(dec)
			if err != nil {
				return nil, err
			}
			rec.fields.Set(key, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return rec, nil
	case '[':
		list := make([]any, 0)
		for dec.More() {
			val, err := decodeJSONValue(dec)
			if err != nil {
				return nil, err
			}
			list = append(list, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return list, nil
	}

	return nil, fmt.Errorf("unexpected delimiter %v", delim)
}

func plain(v any) any {
	switch t := v.(type) {
	case *Record:
		return t.Map()
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = plain(item)
		}
		return out
	}
	return v
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
