package record

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// MarshalYAML encodes the record as a YAML mapping in insertion order.
func (r *Record) MarshalYAML() (any, error) {
	return yamlNode(r)
}

// UnmarshalYAML decodes a YAML mapping, preserving key order at every level.
func (r *Record) UnmarshalYAML(node *yaml.Node) error {
	if r.frozen {
		return ErrFrozen
	}

	v, err := decodeYAMLNode(node)
	if err != nil {
		return err
	}

	parsed, ok := v.(*Record)
	if !ok {
		return ErrNotMapping
	}

	r.fields = parsed.fields
	return nil
}

// DecodeYAML decodes a YAML document into a value, using *Record for
// mappings so that key order is preserved. An empty document decodes to nil.
func DecodeYAML(data []byte) (any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 {
		return nil, nil
	}
	return decodeYAMLNode(&doc)
}

// ParseYAML decodes a YAML mapping into a new record.
func ParseYAML(data []byte) (*Record, error) {
	v, err := DecodeYAML(data)
	if err != nil {
		return nil, err
	}

	rec, ok := v.(*Record)
	if !ok {
		return nil, ErrNotMapping
	}
	return rec, nil
}

func decodeYAMLNode(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil, nil
		}
		return decodeYAMLNode(node.Content[0])
	case yaml.AliasNode:
		return decodeYAMLNode(node.Alias)
	case yaml.MappingNode:
		rec := New()
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			val, err := decodeYAMLNode(node.Content[i+1])
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", key, err)
			}
			rec.fields.Set(key, val)
		}
		return rec, nil
	case yaml.SequenceNode:
		list := make([]any, 0, len(node.Content))
		for _, item := range node.Content {
			val, err := decodeYAMLNode(item)
			if err != nil {
				return nil, err
			}
			list = append(list, val)
		}
		return list, nil
	default:
		var v any
		if err := node.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

func yamlNode(v any) (*yaml.Node, error) {
	switch t := v.(type) {
	case *Record:
		if t == nil {
			return nullNode(), nil
		}
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for pair := t.fields.Oldest(); pair != nil; pair = pair.Next() {
			val, err := yamlNode(pair.Value)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", pair.Key, err)
			}
			node.Content = append(node.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: pair.Key},
				val,
			)
		}
		return node, nil
	case []any:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range t {
			val, err := yamlNode(item)
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, val)
		}
		return node, nil
	case nil:
		return nullNode(), nil
	default:
		node := &yaml.Node{}
		if err := node.Encode(v); err != nil {
			return nil, err
		}
		return node, nil
	}
}

func nullNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}
