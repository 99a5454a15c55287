package avro

import "testing"

func TestParseFlatRecord(t *testing.T) {
	schema, err := Parse(`{
		"type": "record",
		"name": "User",
		"fields": [
			{"name": "id", "type": "long"},
			{"name": "name", "type": "string"}
		]
	}`)
	if err != nil {
		t.Fatal(err)
	}
	if schema.Kind != Record {
		t.Fatalf("root kind = %s, want record", schema.Kind)
	}
	if schema.Name != "User" {
		t.Errorf("name = %q, want User", schema.Name)
	}
	if len(schema.Fields) != 2 {
		t.Fatalf("field count = %d, want 2", len(schema.Fields))
	}
	if schema.Fields[0].Name != "id" || schema.Fields[0].Schema.Kind != Long {
		t.Errorf("field 0 = %q %s", schema.Fields[0].Name, schema.Fields[0].Schema.Kind)
	}
	if schema.Fields[1].Name != "name" || schema.Fields[1].Schema.Kind != String {
		t.Errorf("field 1 = %q %s", schema.Fields[1].Name, schema.Fields[1].Schema.Kind)
	}
}

func TestParseNamespaceQualifiesNames(t *testing.T) {
	schema, err := Parse(`{
		"type": "record",
		"name": "Event",
		"namespace": "com.example",
		"fields": [
			{"name": "kind", "type": {"type": "enum", "name": "Kind", "symbols": ["A", "B"]}}
		]
	}`)
	if err != nil {
		t.Fatal(err)
	}
	if schema.Name != "com.example.Event" {
		t.Errorf("record name = %q", schema.Name)
	}
	enum := schema.Fields[0].Schema
	if enum.Kind != Enum || enum.Name != "com.example.Kind" {
		t.Errorf("enum = %s %q", enum.Kind, enum.Name)
	}
	if len(enum.Symbols) != 2 || enum.Symbols[0] != "A" {
		t.Errorf("symbols = %v", enum.Symbols)
	}
}

func TestParseSelfReference(t *testing.T) {
	schema, err := Parse(`{
		"type": "record",
		"name": "LinkedList",
		"fields": [
			{"name": "value", "type": "long"},
			{"name": "next", "type": ["null", "LinkedList"]}
		]
	}`)
	if err != nil {
		t.Fatal(err)
	}
	next := schema.Fields[1].Schema
	if next.Kind != Union || len(next.Branches) != 2 {
		t.Fatalf("next field = %s", next.Kind)
	}
	ref := next.Branches[1]
	if ref.Kind != Ref {
		t.Fatalf("recursive branch kind = %s, want ref", ref.Kind)
	}
	if ref.Target != schema {
		t.Error("ref target does not point back at the defining record")
	}
	if ref.Resolve() != schema {
		t.Error("Resolve did not follow the ref")
	}
}

func TestParseComplexKinds(t *testing.T) {
	schema, err := Parse(`{
		"type": "record",
		"name": "R",
		"fields": [
			{"name": "tags", "type": {"type": "array", "items": "string"}},
			{"name": "attrs", "type": {"type": "map", "values": "double"}},
			{"name": "hash", "type": {"type": "fixed", "name": "MD5", "size": 16}}
		]
	}`)
	if err != nil {
		t.Fatal(err)
	}
	if k := schema.Fields[0].Schema.Kind; k != Array {
		t.Errorf("tags kind = %s", k)
	}
	if k := schema.Fields[0].Schema.Items.Kind; k != String {
		t.Errorf("tags items kind = %s", k)
	}
	if k := schema.Fields[1].Schema.Kind; k != Map {
		t.Errorf("attrs kind = %s", k)
	}
	fixed := schema.Fields[2].Schema
	if fixed.Kind != Fixed || fixed.Size != 16 {
		t.Errorf("hash = %s size %d", fixed.Kind, fixed.Size)
	}
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"not json":              `{`,
		"unknown type":          `"Mystery"`,
		"empty union":           `[]`,
		"record without fields": `{"type": "record", "name": "R"}`,
		"fixed without size":    `{"type": "fixed", "name": "F"}`,
		"duplicate named type": `{
			"type": "record", "name": "R",
			"fields": [
				{"name": "a", "type": {"type": "enum", "name": "E", "symbols": ["X"]}},
				{"name": "b", "type": {"type": "enum", "name": "E", "symbols": ["Y"]}}
			]
		}`,
	}
	for name, text := range cases {
		if _, err := Parse(text); err == nil {
			t.Errorf("%s: expected parse error", name)
		}
	}
}
