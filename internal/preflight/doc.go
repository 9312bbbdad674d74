// Package preflight provides readiness checks for the filesystem paths
// mediaproc writes to.
//
// These checks run in two contexts:
//   - `mediaproc run` calls RunAll before starting the lanes and refuses to
//     start when a required directory is unusable.
//   - `mediaproc deps` renders the same results next to the tool checks.
package preflight
