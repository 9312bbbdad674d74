// Package queue persists uploaded files and their processing state in SQLite.
//
// Each item carries the content hash, source path, dispatch category, the
// resolved variant, the probed metadata, and the manifests recorded after the
// sync phase. Statuses mirror the processing state machine: pending and
// syncing precede servability; servable, improving, degraded, and completed
// are all servable. Lanes claim items with ClaimNext, keep them alive with
// UpdateHeartbeat, and the daemon reclaims items whose heartbeat expired.
//
// The database is transient storage for in-flight work. Schema changes bump
// schemaVersion in schema.go; operators delete the database to adopt them.
package queue
