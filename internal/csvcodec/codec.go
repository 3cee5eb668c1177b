// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package csvcodec reads and writes the workspace CSV interchange format.
//
// Headers may use dotted paths ("Calling.Type") to address nested fields of the
// workspace payload. Parse decapitalizes every path segment and un-flattens rows into
// trees; Serialize flattens trees back and capitalizes every segment, so a file exported
// by this package can be imported again unchanged.
package csvcodec

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const bom = "\uFEFF"

// scanRecords splits text into records and fields in a single pass.
// Quoted fields may contain commas, doubled quotes and line breaks. Records end at
// \n, \r\n or a lone \r outside quotes. Blank lines are dropped.
func scanRecords(text string) [][]string {
	text = strings.TrimPrefix(text, bom)

	var (
		records  [][]string
		record   []string
		field    strings.Builder
		inQuotes bool
		quoted   bool
	)

	endField := func() {
		record = append(record, field.String())
		field.Reset()
	}
	endRecord := func() {
		endField()
		if len(record) > 1 || record[0] != "" || quoted {
			records = append(records, record)
		}
		record = nil
		quoted = false
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		if inQuotes {
			if c == '"' {
				if i+1 < len(text) && text[i+1] == '"' {
					field.WriteByte('"')
					i++
				} else {
					inQuotes = false
				}
			} else {
				field.WriteByte(c)
			}
			continue
		}

		switch c {
		case '"':
			inQuotes = true
			quoted = true
		case ',':
			endField()
		case '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			endRecord()
		case '\n':
			endRecord()
		default:
			field.WriteByte(c)
		}
	}
	if field.Len() > 0 || len(record) > 0 || quoted {
		endRecord()
	}

	return records
}

// Parse converts CSV text into rows keyed by decapitalized header.
// Empty and missing cells become nil. Text without any line yields an empty slice.
func Parse(text string) []*Object {
	records := scanRecords(text)
	if len(records) == 0 {
		return []*Object{}
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = HeaderKey(strings.TrimSpace(h))
	}

	rows := make([]*Object, 0, len(records)-1)
	for _, rec := range records[1:] {
		flat := NewObject()
		for i, key := range headers {
			if key == "" {
				continue
			}
			var value any
			if i < len(rec) && rec[i] != "" {
				value = rec[i]
			}
			flat.Set(key, value)
		}
		rows = append(rows, Unflatten(flat))
	}
	return rows
}

// Headers returns the trimmed header row of text as written in the file.
func Headers(text string) []string {
	records := scanRecords(text)
	if len(records) == 0 {
		return nil
	}
	out := make([]string, len(records[0]))
	for i, h := range records[0] {
		out[i] = strings.TrimSpace(h)
	}
	return out
}

// HeaderKey returns the row key for a header: the first character of every dotted
// segment is lowercased.
func HeaderKey(header string) string {
	return mapSegments(header, decapitalize)
}

func mapSegments(path string, fn func(string) string) string {
	segs := strings.Split(path, ".")
	for i, s := range segs {
		segs[i] = fn(s)
	}
	return strings.Join(segs, ".")
}

func decapitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// Unflatten expands dotted keys into nested Objects and slices.
//
// For every segment, the following segment decides the container type: a run of
// decimal digits makes it a slice, anything else an Object. An existing value of the
// other type is overwritten, so "a" followed by "a.b" keeps only the nested value.
func Unflatten(flat *Object) *Object {
	root := NewObject()
	for _, key := range flat.Keys() {
		value, _ := flat.Get(key)
		assign(root, strings.Split(key, "."), value)
	}
	return root
}

func assign(node any, segs []string, value any) any {
	seg, rest := segs[0], segs[1:]

	var child any
	switch n := node.(type) {
	case *Object:
		child, _ = n.Get(seg)
	case []any:
		if idx, ok := arrayIndex(seg); ok && idx < len(n) {
			child = n[idx]
		}
	}

	if len(rest) == 0 {
		child = value
	} else {
		if _, ok := arrayIndex(rest[0]); ok {
			if _, isSlice := child.([]any); !isSlice {
				child = []any{}
			}
		} else if _, isObj := child.(*Object); !isObj {
			child = NewObject()
		}
		child = assign(child, rest, value)
	}

	switch n := node.(type) {
	case *Object:
		n.Set(seg, child)
		return n
	case []any:
		idx, _ := arrayIndex(seg)
		for len(n) <= idx {
			n = append(n, nil)
		}
		n[idx] = child
		return n
	}
	return node
}

func arrayIndex(seg string) (int, bool) {
	if seg == "" {
		return 0, false
	}
	for _, r := range seg {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	idx, err := strconv.Atoi(seg)
	if err != nil {
		return 0, false
	}
	return idx, true
}

// Flatten converts a tree into an ordered map of dotted column names to leaf values.
// Accepts *Object, map[string]any (keys sorted) and []any containers; empty containers
// are kept as leaves.
func Flatten(record any) *Object {
	out := NewObject()
	flattenInto(out, "", record)
	return out
}

func flattenInto(out *Object, prefix string, v any) {
	switch t := v.(type) {
	case *Object:
		if t.Len() == 0 && prefix != "" {
			out.Set(prefix, t)
			return
		}
		for _, k := range t.Keys() {
			val, _ := t.Get(k)
			flattenInto(out, joinPath(prefix, capitalize(k)), val)
		}
	case map[string]any:
		if len(t) == 0 && prefix != "" {
			out.Set(prefix, t)
			return
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flattenInto(out, joinPath(prefix, capitalize(k)), t[k])
		}
	case []any:
		if len(t) == 0 && prefix != "" {
			out.Set(prefix, t)
			return
		}
		for i, item := range t {
			flattenInto(out, joinPath(prefix, strconv.Itoa(i)), item)
		}
	default:
		if prefix != "" {
			out.Set(prefix, v)
		}
	}
}

func joinPath(prefix, seg string) string {
	if prefix == "" {
		return seg
	}
	return prefix + "." + seg
}

// Serialize writes records as CSV text. The header row is taken from the first record
// only; later records are projected onto it.
func Serialize(records []*Object) string {
	if len(records) == 0 {
		return ""
	}

	headers := Flatten(records[0]).Keys()

	var b strings.Builder
	writeLine(&b, headers)
	for _, r := range records {
		flat := Flatten(r)
		cells := make([]string, len(headers))
		for i, h := range headers {
			v, _ := flat.Get(h)
			cells[i] = formatValue(v)
		}
		writeLine(&b, cells)
	}
	return b.String()
}

func writeLine(b *strings.Builder, cells []string) {
	for i, c := range cells {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(quote(c))
	}
	b.WriteByte('\n')
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
}

func quote(s string) string {
	if !strings.ContainsAny(s, ",\"\r\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// IdentifyErrors checks text before it is parsed: empty files, missing required
// headers, and repeated values in the first column. Row numbers are 1-based with the
// header row at 0.
func IdentifyErrors(text string, requiredHeaders []string) []string {
	records := scanRecords(text)
	if len(records) == 0 {
		return []string{"File is empty"}
	}

	errs := []string{}

	present := make(map[string]bool, len(records[0]))
	for _, h := range records[0] {
		present[strings.TrimSpace(h)] = true
	}
	for _, h := range requiredHeaders {
		if !present[h] {
			errs = append(errs, fmt.Sprintf("Missing required header %q", h))
		}
	}

	first := make([]string, len(records)-1)
	for i, rec := range records[1:] {
		first[i] = rec[0]
	}
	return append(errs, DuplicateErrors(first)...)
}

// DuplicateErrors returns one message per non-empty value that occurs more than
// once, in first-occurrence order. values[i] is data row i+1.
func DuplicateErrors(values []string) []string {
	errs := []string{}
	seen := make(map[string][]int)
	var order []string
	for i, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; !ok {
			order = append(order, v)
		}
		seen[v] = append(seen[v], i+1)
	}
	for _, v := range order {
		rows := seen[v]
		if len(rows) < 2 {
			continue
		}
		nums := make([]string, len(rows))
		for i, n := range rows {
			nums[i] = strconv.Itoa(n)
		}
		errs = append(errs, fmt.Sprintf("Duplicate value %q in rows %s", v, strings.Join(nums, ", ")))
	}

	return errs
}
