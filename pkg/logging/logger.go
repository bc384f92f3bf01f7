// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging provides structured logging for DergiChat components.
//
// The package is a thin layer over the standard library slog package.
// Services log JSON to stdout (container convention), the CLI logs
// human-readable text to stderr so chat output on stdout stays clean.
//
// # Basic Usage
//
//	logger := logging.New(logging.Config{Service: "gateway", Format: "json"})
//	logger.Info("starting gateway", "port", cfg.Port)
//
// # Log Levels
//
// Four levels are supported, matching slog conventions:
//
//   - Debug: development troubleshooting, verbose output
//   - Info: normal operations (request start/end, state changes)
//   - Warn: recoverable issues (retry attempts, degraded mode)
//   - Error: operation failures (but the process continues)
//
// # Security Considerations
//
// This package does NOT automatically redact sensitive data. Callers must
// ensure credentials and presigned URLs are not logged verbatim:
//
//	// BAD: logs a live presigned URL
//	logger.Info("redirect", "url", signedURL)
//
//	// GOOD: log metadata only
//	logger.Info("redirect", "url_present", signedURL != "")
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config controls logger construction.
//
// All fields are optional. The zero value produces an info-level text
// logger on stderr with no service attribution.
type Config struct {
	// Level is one of "debug", "info", "warn", "error". Default: "info".
	Level string

	// Format is "json" or "text". Default: "text".
	Format string

	// Service is attached to every record as the "service" attribute.
	Service string

	// Output overrides the destination. Default: os.Stderr for text,
	// os.Stdout for json.
	Output io.Writer
}

// New builds a *slog.Logger from cfg.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		if strings.EqualFold(cfg.Format, "json") {
			out = os.Stdout
		} else {
			out = os.Stderr
		}
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	logger := slog.New(handler)
	if cfg.Service != "" {
		logger = logger.With("service", cfg.Service)
	}
	return logger
}

// Default returns an info-level text logger on stderr.
//
// Use this in code paths that have no configuration plumbed through yet.
func Default() *slog.Logger {
	return New(Config{})
}

// ParseLevel converts a level name to a slog.Level.
//
// Unknown names fall back to Info rather than failing; a misspelled
// LOG_LEVEL must not take the process down.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
