// Package logging assembles the structured slog loggers used across distq.
//
// It owns the console and JSON handlers, level parsing and output plumbing,
// and exposes attribute helpers plus a no-op logger for tests and wiring
// code that cannot fail. Components tag their lines with NewComponentLogger
// so the console handler can prefix them ("queue: entry created ...").
package logging
