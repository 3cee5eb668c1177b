// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package schema

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
	sigsyaml "sigs.k8s.io/yaml"
)

// Schema files are YAML mappings in field order:
//
//	displayName:
//	  required: true
//	capacity:
//	  type: integer
//	calling:
//	  fields:
//	    type:
//	      options: [freeCalling, webexEdgeForDevices]
//	      triggers:
//	        - value: webexEdgeForDevices
//	          require: ["../locationId"]
//
// A node with a fields key is a Container, anything else a Leaf.

type nodeSpec struct {
	Required bool      `yaml:"required"`
	Options  []string  `yaml:"options"`
	Triggers []Trigger `yaml:"triggers"`
	Type     ValueType `yaml:"type"`
	Fields   *Fields   `yaml:"fields"`
}

// UnmarshalYAML decodes a mapping node, keeping the order of its keys.
func (f *Fields) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
		*f = Fields{}
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: schema fields must be a mapping", value.Line)
	}

	out := make(Fields, 0, len(value.Content)/2)
	seen := make(map[string]bool, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		name := value.Content[i].Value
		if seen[name] {
			return fmt.Errorf("line %d: duplicate field %q", value.Content[i].Line, name)
		}
		seen[name] = true

		var spec nodeSpec
		if err := value.Content[i+1].Decode(&spec); err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
		if spec.Fields != nil {
			if len(spec.Options) > 0 || len(spec.Triggers) > 0 || spec.Type != TypeString {
				return fmt.Errorf("line %d: field %q has both fields and leaf settings", value.Content[i].Line, name)
			}
			out = append(out, Field{Name: name, Node: Container{Required: spec.Required, Fields: *spec.Fields}})
			continue
		}
		switch spec.Type {
		case TypeString, TypeInteger, TypeBoolean:
		default:
			return fmt.Errorf("line %d: field %q has unknown type %q", value.Content[i].Line, name, spec.Type)
		}
		out = append(out, Field{Name: name, Node: Leaf{Required: spec.Required, Options: spec.Options, Triggers: spec.Triggers, Type: spec.Type}})
	}

	*f = out
	return nil
}

// Load reads a schema from YAML.
func Load(r io.Reader) (Fields, error) {
	var fields Fields
	if err := yaml.NewDecoder(r).Decode(&fields); err != nil {
		if err == io.EOF {
			return Fields{}, nil
		}
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	return fields, nil
}

// LoadFile reads a schema file.
func LoadFile(path string) (Fields, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open schema: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// MarshalPayloads renders validated payloads as a YAML list.
func MarshalPayloads(payloads []map[string]any) ([]byte, error) {
	if payloads == nil {
		payloads = []map[string]any{}
	}
	return sigsyaml.Marshal(payloads)
}
