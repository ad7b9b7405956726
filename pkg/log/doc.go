// Package log provides the reconciliation trace log.
//
// Every event the engine processes (snapshot arrival, poll failure, write
// issued, acknowledged, failed, expired, early-confirmed or superseded) can be
// captured as an Event. The trace is separate from operational logging
// (slog): it is a complete, machine-readable record of how each canonical
// value came about, used to debug races between polls and commands.
//
// # Basic Usage
//
//	// For development: log to console via slog
//	cfg.Trace = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.Trace, _ = log.NewFileLogger("/var/lib/invernadero/trace.glog")
//
//	// Both: use MultiLogger
//	cfg.Trace = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # File Format
//
// Trace files are a stream of CBOR-encoded events with integer keys. The
// greenhouse-log command views and summarizes them.
package log
