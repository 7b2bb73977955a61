// Package observability provides production-grade observability features
// for triggerflow: structured logging, metrics, and distributed tracing.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
// A suppressed (bypassed) handler never produces a log line.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds triggerflow context to a logger.
// Returns a new logger with unit_id and handler fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, "uow-123", "AccountHandler")
//	enriched.Info("doing work") // includes unit_id, handler
func EnrichLogger(logger *slog.Logger, unitID, handler string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("unit_id", unitID),
		slog.String("handler", handler),
	)
}

// LogDispatchStart logs a callback about to be invoked.
func LogDispatchStart(logger *slog.Logger, phase string, loopCount int) {
	if logger == nil {
		return
	}
	logger.Debug("handler dispatch starting",
		slog.String("phase", phase),
		slog.Int("loop_count", loopCount),
	)
}

// LogDispatchComplete logs a callback that returned without error.
func LogDispatchComplete(logger *slog.Logger, phase string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("handler dispatch completed",
		slog.String("phase", phase),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogDispatchError logs a callback failure.
func LogDispatchError(logger *slog.Logger, phase string, err error, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Error("handler dispatch failed",
		slog.String("phase", phase),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogRecursionExceeded logs a run refused by the recursion guard.
func LogRecursionExceeded(logger *slog.Logger, phase string, count, limit int) {
	if logger == nil {
		return
	}
	logger.Error("handler recursion limit exceeded",
		slog.String("phase", phase),
		slog.Int("loop_count", count),
		slog.Int("max_loop_count", limit),
	)
}

// LogLimit logs one platform resource usage counter from a diagnostics report.
func LogLimit(logger *slog.Logger, phase, name string, used, limit int64) {
	if logger == nil {
		return
	}
	logger.Info("handler resource usage",
		slog.String("phase", phase),
		slog.String("limit", name),
		slog.Int64("used", used),
		slog.Int64("max", limit),
	)
}

// LogUnitReset logs the start of a fresh unit of work.
func LogUnitReset(logger *slog.Logger, previousID, unitID string) {
	if logger == nil {
		return
	}
	logger.Debug("unit of work reset",
		slog.String("previous_unit_id", previousID),
		slog.String("unit_id", unitID),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	elapsed := done()
func TimedOperation() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}

// Milliseconds converts d to fractional milliseconds for log fields.
func Milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
