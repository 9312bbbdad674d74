// Package processor turns one probed input file into its derivative artifacts.
//
// A detection key (category or MIME type) resolves through Lookup to a closed
// Variant. New binds the variant to a Job (input path, content hash, storage
// directory, probed metadata) and returns a Processor whose Sync phase must
// succeed before the file is servable and whose Async phase produces slower,
// optional conversions. Each phase is a fixed sequence of external commands
// run one after another through an invocation.Runner.
//
// Begin, Resume, Pending, and Servable encode the per-file state machine:
// Async is only reachable from a Servable handle, which only a successful
// Sync (or a persisted sync-done state) can produce.
//
// The video variant additionally extracts embedded fonts and the first
// subtitle track and writes an @font-face stylesheet for the dumped fonts.
// Extraction problems are logged and never fail the phase.
package processor
