// Package avro provides the schema model and low-level binary codec
// primitives shared by the row decoding packages.
//
// The package has three parts:
//   - Schema: an immutable tagged-variant tree describing a parsed Avro
//     schema, including named types and by-name references used for
//     self-referential schemas (e.g. linked lists).
//   - Parse: an Avro JSON schema parser producing Schema trees with
//     namespace-qualified names resolved.
//   - Decoder / Encoder: allocation-conscious readers and writers for the
//     Avro binary encoding (zig-zag varints, IEEE floats, length-prefixed
//     bytes, union branch indexes, array/map blocks).
//
// Basic Usage:
//
//	import "github.com/Aleph-Alpha/avrocol/v1/avro"
//
//	schema, err := avro.Parse(`{
//	    "type": "record",
//	    "name": "User",
//	    "fields": [
//	        {"name": "name", "type": "string"},
//	        {"name": "age", "type": "long"}
//	    ]
//	}`)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	dec := avro.NewDecoder(bytes.NewReader(payload))
//	age, err := dec.ReadLong()
//
// Schema trees are immutable after Parse and safe for concurrent use.
package avro
