// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package schema validates nested request payloads against a declarative field schema.
//
// A schema is an ordered list of named nodes. A node is either a Leaf (a single value,
// optionally restricted to a set of options and carrying conditional requirements) or a
// Container (a nested object with its own fields).
package schema

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Node is a Leaf or a Container.
type Node interface {
	isNode()
}

// ValueType is the JSON type a string leaf value is converted to.
type ValueType string

const (
	TypeString  ValueType = ""
	TypeInteger ValueType = "integer"
	TypeBoolean ValueType = "boolean"
)

// Leaf describes a single value.
type Leaf struct {
	Required bool
	// Options restricts string values. Non-string values are not checked.
	Options  []string
	Triggers []Trigger
	// Type converts string values after the options check, e.g. a CSV "4" to 4.
	Type ValueType
}

// Container describes a nested object.
type Container struct {
	Required bool
	Fields   Fields
}

func (Leaf) isNode()      {}
func (Container) isNode() {}

// Trigger makes other fields required when a leaf equals Value.
// Require paths are relative to the container holding the leaf, separated by "/",
// with ".." addressing the parent container.
type Trigger struct {
	Value   any      `yaml:"value"`
	Require []string `yaml:"require"`
}

// Field is a named schema node.
type Field struct {
	Name string
	Node Node
}

// Fields is an ordered schema. Validation visits fields in this order.
type Fields []Field

// Lookup returns the node registered under name.
func (f Fields) Lookup(name string) (Node, bool) {
	for _, fld := range f {
		if fld.Name == name {
			return fld.Node, true
		}
	}
	return nil, false
}

// Result holds the accepted part of an input and everything the schema does not know.
type Result struct {
	Validated map[string]any
	Extras    map[string]any
}

// MissingFieldsError lists every required path absent from an input.
type MissingFieldsError struct {
	Paths []string
}

func (e *MissingFieldsError) Error() string {
	return "missing required field(s): " + strings.Join(e.Paths, ", ")
}

// ErrorList returns the missing paths as field errors.
func (e *MissingFieldsError) ErrorList() field.ErrorList {
	var errs field.ErrorList
	for _, p := range e.Paths {
		errs = append(errs, field.Required(pathOf(strings.Split(p, ".")), ""))
	}
	return errs
}

// Validate checks input against fields.
//
// A string value outside a leaf's options fails immediately with a *field.Error.
// Otherwise the whole input is visited and every missing required path, including
// paths required by triggers, is reported at once in a *MissingFieldsError.
// A nil value counts as absent.
func Validate(input map[string]any, fields Fields) (Result, error) {
	v := &validator{}
	validated, extras, err := v.object(input, fields, nil, []map[string]any{input})
	if err != nil {
		return Result{}, err
	}
	if len(v.missing) > 0 {
		return Result{}, &MissingFieldsError{Paths: v.missing}
	}
	return Result{Validated: validated, Extras: extras}, nil
}

type validator struct {
	missing []string
}

// object validates one container level. path is the container's absolute path and
// scopes the chain of containers from the root down to input.
func (v *validator) object(input map[string]any, fields Fields, path []string, scopes []map[string]any) (map[string]any, map[string]any, error) {
	validated := map[string]any{}
	extras := map[string]any{}

	for _, fld := range fields {
		fullPath := append(slices.Clone(path), fld.Name)
		value, present := lookup(input, fld.Name)

		switch node := fld.Node.(type) {
		case Container:
			if !present {
				if node.Required {
					v.missing = append(v.missing, strings.Join(fullPath, "."))
				}
				continue
			}
			nested, ok := value.(map[string]any)
			if !ok {
				if node.Required {
					v.missing = append(v.missing, strings.Join(fullPath, "."))
				} else {
					extras[fld.Name] = value
				}
				continue
			}
			nv, ne, err := v.object(nested, node.Fields, fullPath, append(slices.Clone(scopes), nested))
			if err != nil {
				return nil, nil, err
			}
			validated[fld.Name] = nv
			if len(ne) > 0 {
				extras[fld.Name] = ne
			}

		case Leaf:
			if !present {
				if node.Required {
					v.missing = append(v.missing, strings.Join(fullPath, "."))
				}
				continue
			}
			if s, ok := value.(string); ok && len(node.Options) > 0 && !slices.Contains(node.Options, s) {
				return nil, nil, field.NotSupported(pathOf(fullPath), s, node.Options)
			}
			converted, err := convert(value, node.Type, fullPath)
			if err != nil {
				return nil, nil, err
			}
			validated[fld.Name] = converted
			for _, trig := range node.Triggers {
				if !reflect.DeepEqual(value, trig.Value) {
					continue
				}
				for _, req := range trig.Require {
					if abs, ok := resolve(scopes, path, req); !ok {
						v.missing = append(v.missing, abs)
					}
				}
			}

		default:
			return nil, nil, fmt.Errorf("field %q: unknown schema node %T", strings.Join(fullPath, "."), fld.Node)
		}
	}

	for _, key := range sortedKeys(input) {
		if _, known := fields.Lookup(key); known {
			continue
		}
		if value, present := lookup(input, key); present {
			extras[key] = value
		}
	}

	return validated, extras, nil
}

// resolve walks a trigger path from the innermost scope. It reports whether the path
// ends at a present value, along with the absolute dotted path it walked to.
// Ascending above the root stays at the root.
func resolve(scopes []map[string]any, path []string, rel string) (string, bool) {
	stack := make([]any, len(scopes))
	for i, s := range scopes {
		stack[i] = s
	}
	abs := slices.Clone(path)

	for _, seg := range strings.Split(rel, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
			if len(abs) > 0 {
				abs = abs[:len(abs)-1]
			}
		default:
			var next any
			if m, ok := stack[len(stack)-1].(map[string]any); ok {
				next = m[seg]
			}
			stack = append(stack, next)
			abs = append(abs, seg)
		}
	}

	return strings.Join(abs, "."), len(stack) > 0 && stack[len(stack)-1] != nil
}

// convert turns a string into t. Values that are not strings are kept as they are.
func convert(value any, t ValueType, path []string) (any, error) {
	s, ok := value.(string)
	if !ok {
		return value, nil
	}
	switch t {
	case TypeString:
		return value, nil
	case TypeInteger:
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, field.Invalid(pathOf(path), s, "must be an integer")
		}
		return n, nil
	case TypeBoolean:
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return nil, field.Invalid(pathOf(path), s, "must be true or false")
		}
		return b, nil
	default:
		return nil, fmt.Errorf("field %q: unknown value type %q", strings.Join(path, "."), t)
	}
}

func lookup(input map[string]any, key string) (any, bool) {
	value, ok := input[key]
	if !ok || value == nil {
		return nil, false
	}
	return value, true
}

func pathOf(segs []string) *field.Path {
	if len(segs) == 0 {
		return nil
	}
	return field.NewPath(segs[0], segs[1:]...)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
