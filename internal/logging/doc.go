// Package logging builds the slog loggers used across docsync and defines
// the standardized attribute keys components log with. Console output is a
// compact single-line format; JSON output is for log shippers.
package logging
