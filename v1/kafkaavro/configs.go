package kafkaavro

import (
	"time"

	"github.com/Aleph-Alpha/avrocol/v1/columns"
	"github.com/Aleph-Alpha/avrocol/v1/schema_registry"
)

// Default consumer settings applied by NewConsumer when the corresponding
// Config field is zero.
const (
	DefaultMinBytes = 1
	DefaultMaxBytes = 10 * 1024 * 1024
	DefaultMaxWait  = 500 * time.Millisecond
)

// Config holds configuration for a Kafka Avro consumer.
type Config struct {
	// Brokers is the list of Kafka bootstrap addresses.
	Brokers []string `yaml:"brokers" envconfig:"KAFKA_BROKERS"`

	// Topic is the topic to consume.
	Topic string `yaml:"topic" envconfig:"KAFKA_TOPIC"`

	// GroupID is the consumer group. When set, offsets are committed
	// through the group coordinator.
	GroupID string `yaml:"group_id" envconfig:"KAFKA_GROUP_ID"`

	// MinBytes and MaxBytes bound the broker fetch sizes.
	MinBytes int `yaml:"min_bytes" envconfig:"KAFKA_MIN_BYTES"`
	MaxBytes int `yaml:"max_bytes" envconfig:"KAFKA_MAX_BYTES"`

	// MaxWait bounds how long the broker may hold a fetch before
	// responding with whatever it has.
	MaxWait time.Duration `yaml:"max_wait" envconfig:"KAFKA_MAX_WAIT"`

	// Registry configures the schema registry used to resolve the schema
	// IDs carried in each message's Confluent framing header.
	Registry schema_registry.Config `yaml:"registry"`

	// Columns is the target column list every message is decoded into.
	Columns []columns.Spec `yaml:"-"`

	// AllowMissingFields permits writer schemas that lack some target
	// columns; unmatched columns report false in the presence bitmap.
	AllowMissingFields bool `yaml:"allow_missing_fields" envconfig:"KAFKA_ALLOW_MISSING_FIELDS"`
}
