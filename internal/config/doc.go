// Package config loads, normalizes, and validates distq configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files and applies DISTQ_* environment overrides.
// The Config type centralizes every knob the CLI and daemon need: which tree
// backend to open and where, the queue root and time zone used for entry
// buckets, the prune cadence, metrics and logging.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, a resolved time zone and clear validation errors.
package config
