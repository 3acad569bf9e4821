// Package logging provides logging utilities for fragile.
//
// This package provides two categories of output:
//   - Debug logging: Structured logs for debugging (via slog)
//   - User output: One-line status messages for the person running fragile
//
// # Debug Logging
//
// Debug logs are written using slog and controlled by verbosity settings:
//
//	log := logging.Sandbox(id)
//	log.Debug("descriptor written", "block", block)
//	log.Warn("cleanup step failed", "action", action, "error", err)
//
// # User Output
//
// User-facing messages are prefixed with a styled status indicator:
//
//	logging.UserWarning("Failed to remove %s: %v", path, err)
//	logging.UserError("%v", err)
//
// All user output goes to stderr so the test command owns stdout.
//
// # Status Indicators
//
//   - ℹ (info)
//   - ✓ (success)
//   - ⚠ (warning)
//   - ✗ (error)
package logging
