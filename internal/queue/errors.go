package queue

import (
	"fmt"

	"mediaproc/internal/services"
)

// ErrDuplicate is returned by Enqueue when the hash is already queued.
var ErrDuplicate = fmt.Errorf("hash already queued: %w", services.ErrValidation)

// FailureStatus maps the status an item was claimed into onto the status
// persisted when that phase fails. Sync failures reject the file; async
// failures leave it servable but degraded.
func FailureStatus(claimed Status) Status {
	if claimed == StatusImproving || claimed == StatusServable {
		return StatusDegraded
	}
	return StatusRejected
}

// SuccessStatus maps a claimed status onto the status persisted when its phase succeeds.
func SuccessStatus(claimed Status) Status {
	if claimed == StatusImproving || claimed == StatusServable {
		return StatusCompleted
	}
	return StatusServable
}
