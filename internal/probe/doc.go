// Package probe produces the Probed Metadata record processors consume.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Metadata: the immutable stream summary captured once before dispatch
//   - StreamInfo: one typed stream (video, audio, subtitle, font, ...)
//
// Primary entry points:
//   - Inspect: executes ffprobe and returns parsed Result
//   - FromResult: reduces a Result to Metadata, classifying font attachments
package probe
