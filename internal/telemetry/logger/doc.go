// Package logger provides structured logging for PlotVault.
//
// It wraps log/slog behind a small Logger interface so services take a
// logger by injection and tests can capture output. Handlers emit JSON
// by default (text for human consumption), share one dynamic level that
// SetLevel adjusts on config reload, and pass every attribute through a
// redaction filter that masks token hashes, signed tokens, and values
// under secret-bearing key names before they reach the sink.
//
// Context helpers carry a logger, request ID, and trace ID across call
// boundaries; L(ctx) returns the context's logger enriched with both
// IDs for per-request audit trails.
package logger
