// Package logging builds the daemon's structured logger on log/slog.
//
// Every record carries service and version attributes. Components take a
// child logger:
//
//	logger := logging.New(cfg.Logging, version)
//	relayLog := logger.With("component", "relay")
//	relayLog.Info("started", "queue_size", cfg.Relay.QueueSize)
//
// The *Logger satisfies the small Logger interfaces declared by the
// propertyobject, registry, coreevent and api packages.
package logging
