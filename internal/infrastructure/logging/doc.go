// Package logging provides structured logging for homebus.
//
// The package wraps log/slog so every homebus binary (coordinator and
// simulator) emits the same shape of record: JSON in production, text when
// a human is watching, with service, version and process role attached.
//
// Configuration lives under the logging section of homebus.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, "homebus", version)
//	logger.Component("coordinator").Info("device registered", "device", name)
//
// *Logger satisfies the small Logger interfaces declared by the domain
// packages (coordinator, automation, device) because slog's Debug, Info,
// Warn and Error methods are promoted through the embedded *slog.Logger.
//
// Never log MQTT passwords or InfluxDB tokens.
package logging
