// Package logging provides structured logging for tradegate.
//
// It wraps Go's standard log/slog package so every component logs with the
// same format, level filter, and default fields (service, version).
//
// Logging is configured via the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Never log secrets, tokens, password hashes, or raw session identifiers.
// Security-relevant events (plaintext verification fallback, failed logins)
// are logged at Warn so they stand out in production streams.
package logging
