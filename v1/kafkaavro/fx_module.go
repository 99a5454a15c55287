package kafkaavro

import (
	"context"

	"go.uber.org/fx"

	"github.com/Aleph-Alpha/avrocol/pkg/logger"
	"github.com/Aleph-Alpha/avrocol/pkg/metrics"
)

// FXModule provides the Kafka Avro consumer to the Fx dependency injection
// framework and ties its shutdown to the application lifecycle.
//
// Usage:
//
//	app := fx.New(
//	    logger.FXModule,
//	    kafkaavro.FXModule,
//	    fx.Provide(
//	        func() kafkaavro.Config { ... },
//	    ),
//	)
var FXModule = fx.Module("kafkaavro",
	fx.Provide(
		NewConsumerWithDI,
	),
	fx.Invoke(RegisterConsumerLifecycle),
)

// ConsumerParams groups the dependencies needed to create a consumer.
type ConsumerParams struct {
	fx.In

	Config  Config
	Logger  *logger.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

// NewConsumerWithDI creates a consumer using dependency injection.
func NewConsumerWithDI(params ConsumerParams) (*Consumer, error) {
	return NewConsumer(params.Config, params.Logger, params.Metrics)
}

// ConsumerLifecycleParams groups the dependencies for lifecycle management.
type ConsumerLifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Consumer  *Consumer
}

// RegisterConsumerLifecycle closes the Kafka reader on application stop.
func RegisterConsumerLifecycle(params ConsumerLifecycleParams) {
	params.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return params.Consumer.Close()
		},
	})
}
