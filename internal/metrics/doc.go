// Package metrics records processing outcomes in a private prometheus
// registry and exports them as a node-exporter textfile.
//
// A Recorder satisfies both invocation.Observer and processor.Observer, so the
// workflow manager hands the same value to the exec runner and the processor
// environment. There is no HTTP surface; the daemon periodically calls
// WriteTextfile when a metrics file is configured.
package metrics
