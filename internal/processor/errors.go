package processor

import (
	"fmt"

	"mediaproc/internal/services"
)

var (
	// ErrUnrecognisedFormat rejects inputs no variant can handle.
	ErrUnrecognisedFormat = fmt.Errorf("%w: no processor for this input", services.ErrUnrecognisedFormat)
	// ErrPhaseOrder reports a lifecycle handle used out of order.
	ErrPhaseOrder = fmt.Errorf("%w: processor phase order violated", services.ErrValidation)
)
