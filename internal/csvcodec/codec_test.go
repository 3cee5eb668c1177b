// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package csvcodec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_QuotedComma(t *testing.T) {
	rows := Parse("Name,Value\n\"Smith, John\",42")

	require.Len(t, rows, 1)
	assert.Equal(t, []string{"name", "value"}, rows[0].Keys())
	assert.Equal(t, "Smith, John", rows[0].String("name"))
	assert.Equal(t, "42", rows[0].String("value"))
}

func TestParse_LineEndings(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "LF", text: "A,B\n1,2\n3,4\n"},
		{name: "CRLF", text: "A,B\r\n1,2\r\n3,4\r\n"},
		{name: "stray CR", text: "A,B\r1,2\r3,4"},
		{name: "mixed with blank lines", text: "\n\nA,B\r\n\n1,2\r3,4\n\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := Parse(tt.text)
			require.Len(t, rows, 2)
			assert.Equal(t, "1", rows[0].String("a"))
			assert.Equal(t, "2", rows[0].String("b"))
			assert.Equal(t, "3", rows[1].String("a"))
			assert.Equal(t, "4", rows[1].String("b"))
		})
	}
}

func TestParse_QuotedNewlineAndEscapedQuotes(t *testing.T) {
	rows := Parse("Notes,Name\n\"line one\nline \"\"two\"\"\",Room1\n")

	require.Len(t, rows, 1)
	assert.Equal(t, "line one\nline \"two\"", rows[0].String("notes"))
	assert.Equal(t, "Room1", rows[0].String("name"))
}

func TestParse_EmptyAndMissingCellsAreNil(t *testing.T) {
	rows := Parse("A,B,C\n1,,\n2")

	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, []string{"a", "b", "c"}, row.Keys())
	}
	v, ok := rows[0].Get("b")
	assert.True(t, ok)
	assert.Nil(t, v)
	v, ok = rows[1].Get("c")
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestParse_EmptyInput(t *testing.T) {
	assert.Empty(t, Parse(""))
	assert.Empty(t, Parse("\n\r\n"))
	assert.NotNil(t, Parse(""))
}

func TestParse_StripsBOMAndTrimsHeaders(t *testing.T) {
	rows := Parse("\uFEFFWorkspace Name , Capacity\nRoom1,4")

	require.Len(t, rows, 1)
	assert.Equal(t, "Room1", rows[0].String("workspace Name"))
	assert.Equal(t, "4", rows[0].String("capacity"))
}

func TestParse_Unflatten(t *testing.T) {
	rows := Parse("Workspace Name,Calling.Type,SupportedDevices.0,SupportedDevices.1\nRoom1,freeCalling,phones,collaborationDevices")

	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, "Room1", row.String("workspace Name"))

	calling, ok := row.Get("calling")
	require.True(t, ok)
	callingObj, ok := calling.(*Object)
	require.True(t, ok, "calling should be an object")
	assert.Equal(t, "freeCalling", callingObj.String("type"))

	devices, ok := row.Get("supportedDevices")
	require.True(t, ok)
	assert.Equal(t, []any{"phones", "collaborationDevices"}, devices)
}

func TestUnflatten_TypeConflictLastWriteWins(t *testing.T) {
	flat := NewObject()
	flat.Set("a", "scalar")
	flat.Set("a.b", "nested")
	flat.Set("c.0", "first")
	flat.Set("c.x", "object wins")

	tree := Unflatten(flat)

	a, _ := tree.Get("a")
	aObj, ok := a.(*Object)
	require.True(t, ok)
	assert.Equal(t, "nested", aObj.String("b"))

	c, _ := tree.Get("c")
	cObj, ok := c.(*Object)
	require.True(t, ok, "array is replaced by an object when a non-index segment follows")
	assert.Equal(t, "object wins", cObj.String("x"))
}

func TestUnflatten_SparseArray(t *testing.T) {
	flat := NewObject()
	flat.Set("list.2", "c")

	tree := Unflatten(flat)
	list, _ := tree.Get("list")
	assert.Equal(t, []any{nil, nil, "c"}, list)
}

func TestFlatten_CapitalizesSegments(t *testing.T) {
	calling := NewObject()
	calling.Set("type", "freeCalling")
	record := NewObject()
	record.Set("calling", calling)

	flat := Flatten(record)

	assert.Equal(t, []string{"Calling.Type"}, flat.Keys())
	assert.Equal(t, "freeCalling", flat.String("Calling.Type"))
}

func TestFlatten_PlainMapsAndArrays(t *testing.T) {
	record := map[string]any{
		"displayName": "Room1",
		"calling":     map[string]any{"type": "webexCalling"},
		"devices":     []any{"phones"},
		"empty":       map[string]any{},
	}

	flat := Flatten(record)

	assert.Equal(t, []string{"Calling.Type", "Devices.0", "DisplayName", "Empty"}, flat.Keys())
}

func TestHeaderKeyAsymmetry(t *testing.T) {
	assert.Equal(t, "calling.type", HeaderKey("Calling.Type"))
	assert.Equal(t, "workspace Name", HeaderKey("Workspace Name"))
	assert.Equal(t, "", HeaderKey(""))

	// Lowercase headers do not survive a round trip.
	rows := Parse("capacity\n4\n")
	assert.Equal(t, "Capacity\n4\n", Serialize(rows))
}

func TestSerialize_Quoting(t *testing.T) {
	record := NewObject()
	record.Set("name", "Smith, John")
	record.Set("quote", `say "hi"`)
	record.Set("notes", "a\nb")
	record.Set("missing", nil)
	record.Set("capacity", 4)
	record.Set("enabled", true)

	out := Serialize([]*Object{record})

	assert.Equal(t,
		"Name,Quote,Notes,Missing,Capacity,Enabled\n"+
			"\"Smith, John\",\"say \"\"hi\"\"\",\"a\nb\",,4,true\n",
		out)
}

func TestSerialize_NonPrimitiveIsJSON(t *testing.T) {
	record := NewObject()
	record.Set("id", "abc")
	record.Set("tags", []any{})

	out := Serialize([]*Object{record})

	assert.Equal(t, "Id,Tags\nabc,[]\n", out)
}

func TestSerialize_HeaderFromFirstRecordOnly(t *testing.T) {
	first := NewObject()
	first.Set("a", "1")
	second := NewObject()
	second.Set("a", "2")
	second.Set("b", "dropped")

	out := Serialize([]*Object{first, second})

	assert.Equal(t, "A\n1\n2\n", out)
}

func TestSerialize_Empty(t *testing.T) {
	assert.Equal(t, "", Serialize(nil))
}

func TestRoundTrip(t *testing.T) {
	text := "Workspace Name,Capacity,Calling.Type,Notes\n" +
		"Room1,4,freeCalling,\"Corner, 2nd floor\"\n" +
		"Room2,,webexCalling,\"He said \"\"ok\"\"\"\n"

	out := Serialize(Parse(text))

	assert.Equal(t, text, out)
	assert.Equal(t, Parse(text)[1].Map(), Parse(out)[1].Map())
}

func TestIdentifyErrors(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		required []string
		want     []string
	}{
		{
			name:     "empty file",
			text:     "",
			required: []string{"Name"},
			want:     []string{"File is empty"},
		},
		{
			name:     "missing header",
			text:     "Name\nRoom1\n",
			required: []string{"Name", "Email"},
			want:     []string{`Missing required header "Email"`},
		},
		{
			name:     "duplicates reported once per value",
			text:     "Name\nA\nB\nA\nC\nA\n",
			required: []string{"Name"},
			want:     []string{`Duplicate value "A" in rows 1, 3, 5`},
		},
		{
			name:     "empty first column cells ignored",
			text:     "Name,Other\n,x\n,y\nB,z\nB,w\n",
			required: nil,
			want:     []string{`Duplicate value "B" in rows 3, 4`},
		},
		{
			name:     "case sensitive duplicates",
			text:     "Name\nroom\nRoom\n",
			required: []string{"Name"},
			want:     []string{},
		},
		{
			name:     "clean file",
			text:     "Workspace Name,Capacity\nRoom1,4\nRoom2,6\n",
			required: []string{"Workspace Name"},
			want:     []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IdentifyErrors(tt.text, tt.required))
		})
	}
}

func TestIdentifyErrors_MultipleDuplicatesInOrder(t *testing.T) {
	errs := IdentifyErrors("Name\nB\nA\nB\nA\n", nil)

	assert.Equal(t, []string{
		`Duplicate value "B" in rows 1, 3`,
		`Duplicate value "A" in rows 2, 4`,
	}, errs)
}

func TestDuplicateErrors(t *testing.T) {
	assert.Equal(t, []string{`Duplicate value "A" in rows 1, 3`}, DuplicateErrors([]string{"A", "", "A", ""}))
	assert.Empty(t, DuplicateErrors([]string{"A", "B"}))
	assert.Empty(t, DuplicateErrors(nil))
}

func TestHeaders(t *testing.T) {
	assert.Equal(t, []string{"Workspace Name", "Calling.Type"}, Headers(" Workspace Name ,Calling.Type\nx,y"))
	assert.Nil(t, Headers(""))
}

func TestObject(t *testing.T) {
	o := NewObject()
	o.Set("b", 1)
	o.Set("a", 2)
	o.Set("b", 3)

	assert.Equal(t, []string{"b", "a"}, o.Keys())
	v, _ := o.Get("b")
	assert.Equal(t, 3, v)

	data, err := o.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"b":3,"a":2}`, string(data))
	assert.Equal(t, `{"b":3,"a":2}`, string(data))
}
