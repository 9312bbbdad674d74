// Package daemon runs the long-lived mediaproc worker process.
//
// A Daemon takes a flock on the configured lock file so only one worker
// drains a queue database, returns items abandoned by a previous run to their
// lanes, starts the workflow manager, and periodically exports metrics to the
// configured textfile. Stop unwinds in the reverse order and writes a final
// export.
package daemon
