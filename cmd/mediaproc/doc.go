// Command mediaproc transcodes uploaded media into web-servable derivatives.
//
// Files are either processed inline with `mediaproc process`, or queued with
// `mediaproc enqueue` and drained by the long-running `mediaproc run` worker.
// The remaining commands inspect the queue, the processor variants, and the
// external tools the variants invoke.
package main
