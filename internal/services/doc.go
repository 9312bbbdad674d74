// Package services defines shared utilities consumed by the processing phases
// and the workflow lanes that drive them.
//
// Key responsibilities:
//   - Context helpers that stamp queue item IDs, phase names, lanes, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap/Details helpers that translate
//     failures into consistent item states (rejected vs degraded).
//
// Use these helpers when wiring new variant or lane logic so error handling
// and observability stay uniform across the pipeline.
package services
