// SpendSense - Explainable Financial Education Recommendations
// Copyright 2026 SpendSense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/spendsense/spendsense

// Package logging provides centralized zerolog-based structured logging
// for SpendSense.
//
// The package provides:
//   - Zero-allocation structured logging via zerolog
//   - JSON output format for production (machine-parseable)
//   - Console output format for development (human-readable)
//   - Global logger configuration via Init
//   - slog adapter for Suture v4 integration
//
// # Quick Start
//
//	import "github.com/spendsense/spendsense/internal/logging"
//
//	// Initialize at application startup
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	// Log messages with structured fields
//	logging.Info().Str("user_id", userID).Msg("Recommendations generated")
//	logging.Error().Err(err).Msg("Catalog load failed")
//
// # Component Loggers
//
// Create component-specific loggers with default fields:
//
//	engineLogger := logging.With().Str("component", "recommend").Logger()
//	engineLogger.Info().Msg("Engine initialized")
//
// # Best Practices
//
// Always terminate log chains with .Msg() or .Send():
//
//	logging.Info().Str("key", "value").Msg("message")  // Correct
//	logging.Info().Str("key", "value")                 // WRONG - log not emitted
//
// Use structured fields instead of string formatting.
//
// # Thread Safety
//
// All exported functions are safe for concurrent use. The global logger
// is protected by sync.RWMutex for configuration changes.
package logging
