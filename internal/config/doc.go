// Package config loads, normalizes, and validates mediaproc configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// MEDIAPROC_STORAGE_DIR. The Config type centralizes every knob the daemon and
// CLI need: where derived artifacts land, which external binaries each
// processor invokes, and how the sync and async worker lanes are paced.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
