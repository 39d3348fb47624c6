// Package logging provides structured logging using uber/zap.
//
// This package offers production-ready logging with two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Everything goes to stderr by default: stdout is reserved for script
// results when the shell runs a file directly.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Info("shell ready", zap.String("bus", "sh.wren.Shell"))
//	logger.Error("failed to create window", zap.Error(err))
package logging
