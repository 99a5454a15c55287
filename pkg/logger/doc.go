// Package logger provides structured logging functionality for the decode
// pipeline.
//
// It wraps Uber's Zap logger with a small surface used by the streaming
// consumers: leveled methods taking a message, an optional error, and
// optional structured field maps. Output is JSON to stderr with a fixed
// service label, suitable for log collection systems.
//
// Basic Usage:
//
//	import "github.com/Aleph-Alpha/avrocol/pkg/logger"
//
//	log := logger.NewLoggerClient(logger.Config{
//	    Level:       "info",
//	    ServiceName: "orders-ingest",
//	})
//
//	log.Info("message decoded", nil, map[string]interface{}{
//	    "schema_id": 42,
//	    "rows":      1,
//	})
//	log.Error("decode failed", err, map[string]interface{}{
//	    "partition": 3,
//	    "offset":    1234,
//	})
//
// FX Module Integration:
//
//	app := fx.New(
//	    logger.FXModule,
//	    fx.Provide(func() logger.Config {
//	        return logger.Config{Level: "info", ServiceName: "orders-ingest"}
//	    }),
//	)
package logger
