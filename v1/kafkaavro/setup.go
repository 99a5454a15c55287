package kafkaavro

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"

	"github.com/Aleph-Alpha/avrocol/pkg/logger"
	"github.com/Aleph-Alpha/avrocol/pkg/metrics"
	"github.com/Aleph-Alpha/avrocol/v1/avro"
	"github.com/Aleph-Alpha/avrocol/v1/avrorow"
	"github.com/Aleph-Alpha/avrocol/v1/columns"
	"github.com/Aleph-Alpha/avrocol/v1/schema_registry"
)

// Handler receives each decoded row. The batch holds exactly one row per
// call and is reset before the next message; the handler must copy out
// anything it keeps.
type Handler func(batch *columns.Batch, ext *columns.RowExtension) error

// Consumer reads Confluent-framed Avro messages from a Kafka topic and
// decodes each one into a target column list.
//
// Message boundaries come from Kafka, so a corrupt message is isolated by
// construction: it is logged, counted, and skipped, and consumption
// continues with the next message.
type Consumer struct {
	cfg     Config
	reader  *kafka.Reader
	decoder *avrorow.ConfluentRowReader
	batch   *columns.Batch
	log     *logger.Logger
	metrics *metrics.Metrics
}

// NewConsumer creates a consumer for the configured topic. The schema
// registry client comes from the process-wide cache, so schema IDs already
// resolved by earlier consumers are reused. m may be nil to disable
// metrics.
func NewConsumer(cfg Config, log *logger.Logger, m *metrics.Metrics) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}
	if len(cfg.Columns) == 0 {
		return nil, fmt.Errorf("target columns are required")
	}
	if cfg.MinBytes == 0 {
		cfg.MinBytes = DefaultMinBytes
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.MaxWait == 0 {
		cfg.MaxWait = DefaultMaxWait
	}

	registry, err := schema_registry.Shared(cfg.Registry)
	if err != nil {
		return nil, fmt.Errorf("creating schema registry client: %w", err)
	}

	batch, err := columns.NewBatch(cfg.Columns)
	if err != nil {
		return nil, err
	}

	var resolver avrorow.SchemaResolver = registry
	if m != nil {
		resolver = &countingResolver{
			next:    registry,
			fetches: m.SchemaFetches.WithLabelValues(cfg.Topic),
		}
	}

	decoder := avrorow.NewConfluentRowReader(cfg.Columns, nil, resolver, avrorow.Options{
		AllowMissingFields: cfg.AllowMissingFields,
	})

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: cfg.MinBytes,
		MaxBytes: cfg.MaxBytes,
		MaxWait:  cfg.MaxWait,
	})

	return &Consumer{
		cfg:     cfg,
		reader:  reader,
		decoder: decoder,
		batch:   batch,
		log:     log,
		metrics: m,
	}, nil
}

// Run consumes messages until ctx is cancelled or the handler returns an
// error. Decode failures do not stop the loop; handler failures do.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	for {
		message, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("reading from topic %q: %w", c.cfg.Topic, err)
		}
		if err := c.processMessage(message, handle); err != nil {
			return err
		}
	}
}

// processMessage decodes one message and hands the row to the handler. A
// decode failure is contained here; only handler errors propagate.
func (c *Consumer) processMessage(message kafka.Message, handle Handler) error {
	start := time.Now()
	c.batch.Reset()

	ext, err := c.decoder.DecodeMessage(message.Value, c.batch)
	if err != nil {
		c.log.Warn("skipping undecodable message", err, map[string]interface{}{
			"topic":     message.Topic,
			"partition": message.Partition,
			"offset":    message.Offset,
		})
		if c.metrics != nil {
			c.metrics.DecodeErrors.WithLabelValues(c.cfg.Topic, decodeFailureReason(err)).Inc()
			c.metrics.RecordsSkipped.WithLabelValues(c.cfg.Topic).Inc()
		}
		return nil
	}

	if c.metrics != nil {
		c.metrics.RowsDecoded.WithLabelValues(c.cfg.Topic).Inc()
		c.metrics.DecodeDuration.WithLabelValues(c.cfg.Topic).Observe(time.Since(start).Seconds())
	}

	return handle(c.batch, ext)
}

// Close shuts down the underlying Kafka reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// countingResolver counts schema resolutions requested by the decoder.
// The decoder caches compiled plans per schema ID, so the count only grows
// when a message carries an ID this consumer has not seen before.
type countingResolver struct {
	next    avrorow.SchemaResolver
	fetches prometheus.Counter
}

func (r *countingResolver) GetSchemaByID(id int) (string, error) {
	r.fetches.Inc()
	return r.next.GetSchemaByID(id)
}

// decodeFailureReason classifies a decode error for the metrics label.
func decodeFailureReason(err error) string {
	switch {
	case errors.Is(err, avrorow.ErrInvalidMagicByte):
		return "bad_magic"
	case errors.Is(err, avrorow.ErrUnionIndexOutOfRange):
		return "union_index"
	case errors.Is(err, schema_registry.ErrSchemaUnresolvable):
		return "schema_unresolvable"
	case errors.Is(err, avro.ErrTruncated):
		return "truncated"
	default:
		return "other"
	}
}
