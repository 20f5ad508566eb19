// Package log provides structured session event logging for wavelink.
//
// This package defines the Logger interface and Event types for capturing
// session-level events at multiple layers (transport, wire, session).
// It is separate from operational logging (slog) - event capture provides
// a complete machine-readable trace for debugging and analysis.
//
// # Basic Usage
//
// Applications configure logging by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.Logger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.Logger, _ = log.NewFileLogger("/var/log/wavelink/session.wlog")
//
//	// Both: use MultiLogger
//	cfg.Logger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
// Events are captured at multiple layers:
//   - Transport: Raw frame traffic (FrameEvent)
//   - Wire: Envelope routing (MessageEvent)
//   - Session: State changes (StateChangeEvent)
//
// Control messages (ping/pong/close) and errors have dedicated event types.
//
// # File Format
//
// Log files use CBOR encoding with .wlog extension, one event per record.
package log
