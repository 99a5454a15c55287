package avrorow

import (
	"bytes"
	"errors"
	"testing"

	"github.com/linkedin/goavro/v2"

	"github.com/Aleph-Alpha/avrocol/v1/avro"
	"github.com/Aleph-Alpha/avrocol/v1/columns"
)

func mustParse(t *testing.T, text string) *avro.Schema {
	t.Helper()
	schema, err := avro.Parse(text)
	if err != nil {
		t.Fatal(err)
	}
	return schema
}

func mustBatch(t *testing.T, specs []columns.Spec) *columns.Batch {
	t.Helper()
	batch, err := columns.NewBatch(specs)
	if err != nil {
		t.Fatal(err)
	}
	return batch
}

// decodeOne compiles specs against schema and decodes one encoded record.
func decodeOne(t *testing.T, specs []columns.Spec, schema *avro.Schema, opts Options, record []byte) (*columns.Batch, *columns.RowExtension) {
	t.Helper()
	deserializer, err := NewDeserializer(specs, schema, opts)
	if err != nil {
		t.Fatal(err)
	}
	batch := mustBatch(t, specs)
	ext := columns.NewRowExtension(len(specs))
	dec := avro.NewDecoder(bytes.NewReader(record))
	if err := deserializer.DeserializeRow(batch, dec, ext); err != nil {
		t.Fatal(err)
	}
	return batch, ext
}

const flatSchema = `{
	"type": "record",
	"name": "R",
	"fields": [
		{"name": "a", "type": "long"},
		{"name": "b", "type": "string"}
	]
}`

func TestDeserializeFlatRecord(t *testing.T) {
	var buf bytes.Buffer
	enc := avro.NewEncoder(&buf)
	if err := enc.WriteLong(5); err != nil {
		t.Fatal(err)
	}
	if err := enc.WriteString("x"); err != nil {
		t.Fatal(err)
	}

	specs := []columns.Spec{
		{Name: "a", Type: columns.Int64()},
		{Name: "b", Type: columns.String_()},
	}
	batch, ext := decodeOne(t, specs, mustParse(t, flatSchema), Options{}, buf.Bytes())

	a := batch.Column(0).(*columns.Int64Column)
	b := batch.Column(1).(*columns.StringColumn)
	if a.Len() != 1 || a.Values[0] != 5 {
		t.Errorf("a = %v", a.Values)
	}
	if b.Len() != 1 || b.Values[0] != "x" {
		t.Errorf("b = %v", b.Values)
	}
	if !ext.ReadColumns[0] || !ext.ReadColumns[1] {
		t.Errorf("presence bitmap = %v, want all true", ext.ReadColumns)
	}
}

func TestSkipUnmatchedFieldsWithoutError(t *testing.T) {
	schema := mustParse(t, `{
		"type": "record",
		"name": "R",
		"fields": [
			{"name": "a", "type": "long"},
			{"name": "b", "type": "string"},
			{"name": "c", "type": "double"}
		]
	}`)

	var buf bytes.Buffer
	enc := avro.NewEncoder(&buf)
	if err := enc.WriteLong(5); err != nil {
		t.Fatal(err)
	}
	if err := enc.WriteString("dropped"); err != nil {
		t.Fatal(err)
	}
	if err := enc.WriteDouble(2.5); err != nil {
		t.Fatal(err)
	}
	// a second value proves b and c were fully consumed
	if err := enc.WriteLong(9); err != nil {
		t.Fatal(err)
	}

	specs := []columns.Spec{{Name: "a", Type: columns.Int64()}}
	deserializer, err := NewDeserializer(specs, schema, Options{})
	if err != nil {
		t.Fatal(err)
	}
	batch := mustBatch(t, specs)
	ext := columns.NewRowExtension(1)
	dec := avro.NewDecoder(bytes.NewReader(buf.Bytes()))
	if err := deserializer.DeserializeRow(batch, dec, ext); err != nil {
		t.Fatal(err)
	}

	a := batch.Column(0).(*columns.Int64Column)
	if a.Len() != 1 || a.Values[0] != 5 {
		t.Errorf("a = %v", a.Values)
	}
	if !ext.ReadColumns[0] {
		t.Errorf("presence bitmap = %v", ext.ReadColumns)
	}
	if trailing, err := dec.ReadLong(); err != nil || trailing != 9 {
		t.Errorf("cursor after skips: %d, %v (want 9)", trailing, err)
	}
}

const nullableLongSchema = `{
	"type": "record",
	"name": "R",
	"fields": [
		{"name": "v", "type": ["null", "long"]}
	]
}`

func TestNullableUnionBothBranches(t *testing.T) {
	specs := []columns.Spec{{Name: "v", Type: columns.Nullable(columns.Int64())}}

	var buf bytes.Buffer
	enc := avro.NewEncoder(&buf)
	if err := enc.WriteUnionIndex(1); err != nil {
		t.Fatal(err)
	}
	if err := enc.WriteLong(7); err != nil {
		t.Fatal(err)
	}
	batch, ext := decodeOne(t, specs, mustParse(t, nullableLongSchema), Options{}, buf.Bytes())
	v := batch.Column(0).(*columns.Int64Column)
	if v.Values[0] != 7 || v.Nulls[0] {
		t.Errorf("branch 1: value %d null %v", v.Values[0], v.Nulls[0])
	}
	if !ext.ReadColumns[0] {
		t.Error("branch 1: column not marked present")
	}

	buf.Reset()
	if err := enc.WriteUnionIndex(0); err != nil {
		t.Fatal(err)
	}
	batch, ext = decodeOne(t, specs, mustParse(t, nullableLongSchema), Options{}, buf.Bytes())
	v = batch.Column(0).(*columns.Int64Column)
	if !v.Nulls[0] {
		t.Error("branch 0: expected null")
	}
	if !ext.ReadColumns[0] {
		t.Error("branch 0: null is a decoded value, column must be marked present")
	}
}

func TestUnionIndexOutOfRange(t *testing.T) {
	specs := []columns.Spec{{Name: "v", Type: columns.Nullable(columns.Int64())}}
	deserializer, err := NewDeserializer(specs, mustParse(t, nullableLongSchema), Options{})
	if err != nil {
		t.Fatal(err)
	}

	// branch index equal to the branch count is the classic off-by-one
	var buf bytes.Buffer
	if err := avro.NewEncoder(&buf).WriteUnionIndex(2); err != nil {
		t.Fatal(err)
	}
	batch := mustBatch(t, specs)
	ext := columns.NewRowExtension(1)
	err = deserializer.DeserializeRow(batch, avro.NewDecoder(bytes.NewReader(buf.Bytes())), ext)
	if !errors.Is(err, ErrUnionIndexOutOfRange) {
		t.Errorf("got %v, want ErrUnionIndexOutOfRange", err)
	}
}

func TestMissingColumnPolicy(t *testing.T) {
	schema := mustParse(t, flatSchema)
	specs := []columns.Spec{
		{Name: "a", Type: columns.Int64()},
		{Name: "absent", Type: columns.String_()},
	}

	if _, err := NewDeserializer(specs, schema, Options{}); !errors.Is(err, ErrMissingRequiredColumn) {
		t.Errorf("strict mode: got %v, want ErrMissingRequiredColumn", err)
	}

	deserializer, err := NewDeserializer(specs, schema, Options{AllowMissingFields: true})
	if err != nil {
		t.Fatalf("permissive mode: %v", err)
	}
	if deserializer.ColumnFound(0) != true || deserializer.ColumnFound(1) != false {
		t.Errorf("ColumnFound = %v, %v", deserializer.ColumnFound(0), deserializer.ColumnFound(1))
	}

	var buf bytes.Buffer
	enc := avro.NewEncoder(&buf)
	if err := enc.WriteLong(5); err != nil {
		t.Fatal(err)
	}
	if err := enc.WriteString("x"); err != nil {
		t.Fatal(err)
	}
	batch := mustBatch(t, specs)
	ext := columns.NewRowExtension(2)
	if err := deserializer.DeserializeRow(batch, avro.NewDecoder(bytes.NewReader(buf.Bytes())), ext); err != nil {
		t.Fatal(err)
	}
	if !ext.ReadColumns[0] || ext.ReadColumns[1] {
		t.Errorf("presence bitmap = %v, want [true false]", ext.ReadColumns)
	}
	if batch.Column(1).Len() != 0 {
		t.Errorf("absent column received %d values", batch.Column(1).Len())
	}
}

func TestTypeMismatchFailsAtCompileTime(t *testing.T) {
	specs := []columns.Spec{{Name: "b", Type: columns.Int64()}}
	_, err := NewDeserializer(specs, mustParse(t, flatSchema), Options{AllowMissingFields: true})
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Errorf("got %v, want ErrSchemaMismatch", err)
	}
}

func TestNonRecordRootRejected(t *testing.T) {
	specs := []columns.Spec{{Name: "v", Type: columns.Int64()}}
	_, err := NewDeserializer(specs, mustParse(t, `"long"`), Options{})
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Errorf("got %v, want ErrSchemaMismatch", err)
	}
}

const linkedListSchema = `{
	"type": "record",
	"name": "LinkedList",
	"fields": [
		{"name": "value", "type": "long"},
		{"name": "next", "type": ["null", "LinkedList"]}
	]
}`

func TestSelfReferentialSchemaCompiles(t *testing.T) {
	specs := []columns.Spec{{Name: "value", Type: columns.Int64()}}
	// compilation must terminate; an unbounded recursion would hang or
	// overflow the stack long before any assertion runs
	if _, err := NewDeserializer(specs, mustParse(t, linkedListSchema), Options{AllowMissingFields: true}); err != nil {
		t.Fatal(err)
	}
}

func TestSelfReferentialSkipConsumesWholeChain(t *testing.T) {
	// encode value=1 -> next{value=2 -> next{value=3 -> null}}
	var buf bytes.Buffer
	enc := avro.NewEncoder(&buf)
	chain := []int64{1, 2, 3}
	for i, v := range chain {
		if i > 0 {
			if err := enc.WriteUnionIndex(1); err != nil {
				t.Fatal(err)
			}
		}
		if err := enc.WriteLong(v); err != nil {
			t.Fatal(err)
		}
	}
	if err := enc.WriteUnionIndex(0); err != nil {
		t.Fatal(err)
	}

	specs := []columns.Spec{{Name: "value", Type: columns.Int64()}}
	batch, ext := decodeOne(t, specs, mustParse(t, linkedListSchema), Options{AllowMissingFields: true}, buf.Bytes())

	v := batch.Column(0).(*columns.Int64Column)
	if v.Len() != 1 || v.Values[0] != 1 {
		t.Errorf("value column = %v, want [1]", v.Values)
	}
	if !ext.ReadColumns[0] {
		t.Error("value column not marked present")
	}
}

func TestNestedRecordDottedPathMatching(t *testing.T) {
	schema := mustParse(t, `{
		"type": "record",
		"name": "Outer",
		"fields": [
			{"name": "a", "type": "long"},
			{"name": "inner", "type": {
				"type": "record",
				"name": "Inner",
				"fields": [
					{"name": "b", "type": "long"},
					{"name": "c", "type": "string"}
				]
			}}
		]
	}`)

	var buf bytes.Buffer
	enc := avro.NewEncoder(&buf)
	if err := enc.WriteLong(1); err != nil {
		t.Fatal(err)
	}
	if err := enc.WriteLong(2); err != nil {
		t.Fatal(err)
	}
	if err := enc.WriteString("skipped"); err != nil {
		t.Fatal(err)
	}

	specs := []columns.Spec{
		{Name: "a", Type: columns.Int64()},
		{Name: "inner.b", Type: columns.Int64()},
	}
	batch, ext := decodeOne(t, specs, schema, Options{}, buf.Bytes())

	if v := batch.Column(0).(*columns.Int64Column).Values; len(v) != 1 || v[0] != 1 {
		t.Errorf("a = %v", v)
	}
	if v := batch.Column(1).(*columns.Int64Column).Values; len(v) != 1 || v[0] != 2 {
		t.Errorf("inner.b = %v", v)
	}
	if !ext.ReadColumns[0] || !ext.ReadColumns[1] {
		t.Errorf("presence bitmap = %v", ext.ReadColumns)
	}
}

func TestEnumAndFixedDecoding(t *testing.T) {
	schema := mustParse(t, `{
		"type": "record",
		"name": "R",
		"fields": [
			{"name": "color", "type": {"type": "enum", "name": "Color", "symbols": ["RED", "GREEN", "BLUE"]}},
			{"name": "digest", "type": {"type": "fixed", "name": "Digest", "size": 4}}
		]
	}`)

	var buf bytes.Buffer
	enc := avro.NewEncoder(&buf)
	if err := enc.WriteLong(2); err != nil { // BLUE
		t.Fatal(err)
	}
	if err := enc.WriteFixed([]byte{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}

	specs := []columns.Spec{
		{Name: "color", Type: columns.String_()},
		{Name: "digest", Type: columns.Bytes()},
	}
	batch, _ := decodeOne(t, specs, schema, Options{}, buf.Bytes())

	if v := batch.Column(0).(*columns.StringColumn).Values; v[0] != "BLUE" {
		t.Errorf("color = %v", v)
	}
	if v := batch.Column(1).(*columns.BytesColumn).Values; !bytes.Equal(v[0], []byte{1, 2, 3, 4}) {
		t.Errorf("digest = %x", v)
	}
}

func TestArrayAndMapDecoding(t *testing.T) {
	schema := mustParse(t, `{
		"type": "record",
		"name": "R",
		"fields": [
			{"name": "tags", "type": {"type": "array", "items": "string"}},
			{"name": "attrs", "type": {"type": "map", "values": "long"}}
		]
	}`)

	var buf bytes.Buffer
	enc := avro.NewEncoder(&buf)
	if err := enc.WriteBlockCount(2); err != nil {
		t.Fatal(err)
	}
	if err := enc.WriteString("x"); err != nil {
		t.Fatal(err)
	}
	if err := enc.WriteString("y"); err != nil {
		t.Fatal(err)
	}
	if err := enc.WriteBlockCount(0); err != nil {
		t.Fatal(err)
	}
	if err := enc.WriteBlockCount(1); err != nil {
		t.Fatal(err)
	}
	if err := enc.WriteString("k"); err != nil {
		t.Fatal(err)
	}
	if err := enc.WriteLong(9); err != nil {
		t.Fatal(err)
	}
	if err := enc.WriteBlockCount(0); err != nil {
		t.Fatal(err)
	}

	specs := []columns.Spec{
		{Name: "tags", Type: columns.ListOf(columns.String_())},
		{Name: "attrs", Type: columns.MapOf(columns.Int64())},
	}
	batch, _ := decodeOne(t, specs, schema, Options{}, buf.Bytes())

	tags := batch.Column(0).(*columns.ListColumn)
	if tags.Len() != 1 {
		t.Fatalf("tags rows = %d", tags.Len())
	}
	if elems := tags.Elem.(*columns.StringColumn).Values; len(elems) != 2 || elems[0] != "x" || elems[1] != "y" {
		t.Errorf("tags elems = %v", elems)
	}

	attrs := batch.Column(1).(*columns.MapColumn)
	if attrs.Keys.Values[0] != "k" {
		t.Errorf("attrs keys = %v", attrs.Keys.Values)
	}
	if v := attrs.Values.(*columns.Int64Column).Values; v[0] != 9 {
		t.Errorf("attrs values = %v", v)
	}
}

func TestNumericWidening(t *testing.T) {
	schema := mustParse(t, `{
		"type": "record",
		"name": "R",
		"fields": [
			{"name": "i", "type": "int"},
			{"name": "f", "type": "float"}
		]
	}`)

	var buf bytes.Buffer
	enc := avro.NewEncoder(&buf)
	if err := enc.WriteInt(-3); err != nil {
		t.Fatal(err)
	}
	if err := enc.WriteFloat(0.5); err != nil {
		t.Fatal(err)
	}

	specs := []columns.Spec{
		{Name: "i", Type: columns.Int64()},
		{Name: "f", Type: columns.Float64()},
	}
	batch, _ := decodeOne(t, specs, schema, Options{}, buf.Bytes())
	if v := batch.Column(0).(*columns.Int64Column).Values[0]; v != -3 {
		t.Errorf("i = %d", v)
	}
	if v := batch.Column(1).(*columns.Float64Column).Values[0]; v != 0.5 {
		t.Errorf("f = %g", v)
	}
}

// TestGoavroRoundTrip cross-validates the decoder against an independent
// Avro implementation: rows encoded by goavro must decode to the original
// values with an all-true presence bitmap.
func TestGoavroRoundTrip(t *testing.T) {
	schemaText := `{
		"type": "record",
		"name": "Order",
		"fields": [
			{"name": "id", "type": "long"},
			{"name": "customer", "type": "string"},
			{"name": "amount", "type": "double"},
			{"name": "express", "type": "boolean"},
			{"name": "note", "type": ["null", "string"]}
		]
	}`
	codec, err := goavro.NewCodec(schemaText)
	if err != nil {
		t.Fatal(err)
	}

	rows := []map[string]interface{}{
		{"id": int64(1), "customer": "ada", "amount": 10.5, "express": true, "note": map[string]interface{}{"string": "rush"}},
		{"id": int64(2), "customer": "bob", "amount": -0.25, "express": false, "note": nil},
	}
	var stream bytes.Buffer
	for _, row := range rows {
		payload, err := codec.BinaryFromNative(nil, row)
		if err != nil {
			t.Fatal(err)
		}
		stream.Write(payload)
	}

	specs := []columns.Spec{
		{Name: "id", Type: columns.Int64()},
		{Name: "customer", Type: columns.String_()},
		{Name: "amount", Type: columns.Float64()},
		{Name: "express", Type: columns.Bool()},
		{Name: "note", Type: columns.Nullable(columns.String_())},
	}
	deserializer, err := NewDeserializer(specs, mustParse(t, schemaText), Options{})
	if err != nil {
		t.Fatal(err)
	}
	batch := mustBatch(t, specs)
	ext := columns.NewRowExtension(len(specs))
	dec := avro.NewDecoder(bytes.NewReader(stream.Bytes()))

	for range rows {
		ext.Reset()
		if err := deserializer.DeserializeRow(batch, dec, ext); err != nil {
			t.Fatal(err)
		}
		for i, read := range ext.ReadColumns {
			if !read {
				t.Errorf("column %d not marked present", i)
			}
		}
	}

	ids := batch.Column(0).(*columns.Int64Column).Values
	if ids[0] != 1 || ids[1] != 2 {
		t.Errorf("ids = %v", ids)
	}
	customers := batch.Column(1).(*columns.StringColumn).Values
	if customers[0] != "ada" || customers[1] != "bob" {
		t.Errorf("customers = %v", customers)
	}
	amounts := batch.Column(2).(*columns.Float64Column).Values
	if amounts[0] != 10.5 || amounts[1] != -0.25 {
		t.Errorf("amounts = %v", amounts)
	}
	notes := batch.Column(4).(*columns.StringColumn)
	if notes.Values[0] != "rush" || !notes.Nulls[1] {
		t.Errorf("notes = %v nulls %v", notes.Values, notes.Nulls)
	}
}
