// Package schema_registry provides integration with Confluent Schema Registry.
//
// This package resolves numeric schema identifiers to Avro schema text for
// the wire-framed row decoders, and registers schemas for producers and
// test setups. Resolution is cached aggressively: published schema IDs are
// immutable, so nothing is ever evicted.
//
// Core Features:
//   - HTTP client for Confluent Schema Registry
//   - Per-client schema cache with single-flight fetch deduplication
//   - Process-wide client cache keyed by registry base URL, so short-lived
//     readers (e.g. one per inbound Kafka batch) share resolved schemas
//   - Confluent wire format encoding/decoding helpers
//
// Basic Usage:
//
//	import "github.com/Aleph-Alpha/avrocol/v1/schema_registry"
//
//	registry, err := schema_registry.Shared(schema_registry.Config{
//	    URL:      "http://localhost:8081",
//	    Username: "user",     // Optional
//	    Password: "password", // Optional
//	    Timeout:  10 * time.Second,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	schema, err := registry.GetSchemaByID(42)
//	if errors.Is(err, schema_registry.ErrSchemaUnresolvable) {
//	    // unreachable registry, unknown ID, or unparsable response
//	}
//
// Wire Format:
//
// Confluent-framed messages carry a 5-byte prefix before the Avro payload:
//
//	[magic_byte (1 byte, 0x00)] [schema_id (4 bytes, big-endian)] [payload]
//
// EncodeSchemaID and DecodeSchemaID build and split that prefix.
//
// Caching:
//
// Three cache levels cooperate when decoding wire-framed streams:
//  1. the process-wide Cache here (base URL -> *Client)
//  2. each Client's schema cache (schema ID -> schema text)
//  3. each reader's deserializer cache (schema ID -> compiled plan,
//     see v1/avrorow)
//
// Level 1 exists because stream consumers create a new reader per batch of
// messages; without it every batch would re-fetch every schema.
//
// Using with FX:
//
//	app := fx.New(
//	    schema_registry.FXModule,
//	    fx.Provide(
//	        func() schema_registry.Config {
//	            return schema_registry.Config{
//	                URL:     os.Getenv("SCHEMA_REGISTRY_URL"),
//	                Timeout: 30 * time.Second,
//	            }
//	        },
//	    ),
//	)
package schema_registry
