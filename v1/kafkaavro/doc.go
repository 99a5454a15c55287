// Package kafkaavro consumes Confluent-framed Avro messages from Kafka and
// decodes them into statically-typed columns.
//
// Each message value carries the Confluent wire format (0x00 magic byte,
// big-endian uint32 schema ID, Avro binary payload). The consumer resolves
// schema IDs through the process-wide schema registry cache, compiles one
// decode plan per distinct ID, and hands each decoded row to a caller
// handler. A message that cannot be decoded is logged, counted, and
// skipped; losing one corrupt message never stops the stream.
//
// Basic Usage:
//
//	import "github.com/Aleph-Alpha/avrocol/v1/kafkaavro"
//
//	consumer, err := kafkaavro.NewConsumer(kafkaavro.Config{
//	    Brokers: []string{"localhost:9092"},
//	    Topic:   "orders",
//	    GroupID: "orders-ingest",
//	    Registry: schema_registry.Config{
//	        URL: "http://localhost:8081",
//	    },
//	    Columns: []columns.Spec{
//	        {Name: "id", Type: columns.Int64()},
//	        {Name: "amount", Type: columns.Float64()},
//	    },
//	}, log, m)
//	if err != nil {
//	    log.Fatal("creating consumer", err, nil)
//	}
//	defer consumer.Close()
//
//	err = consumer.Run(ctx, func(batch *columns.Batch, ext *columns.RowExtension) error {
//	    // one decoded row per call
//	    return sink.Append(batch, ext)
//	})
package kafkaavro
