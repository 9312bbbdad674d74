// Package invocation builds and runs external tool commands.
//
// Commands are assembled from Templates: fixed argument lists with {input},
// {stem}, and {ext} placeholders plus typed Options such as StreamMap. No
// shell is involved. ExecRunner executes a Command in its own process group so
// a cancelled context can stop the tool and everything it spawned, and reports
// nonzero exits as *InvocationError unless the command opts out with
// IgnoreNonZero.
package invocation
