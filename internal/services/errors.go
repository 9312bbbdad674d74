package services

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrExternalTool       = errors.New("external tool error")
	ErrValidation         = errors.New("validation error")
	ErrConfiguration      = errors.New("configuration error")
	ErrNotFound           = errors.New("not found")
	ErrTimeout            = errors.New("timeout")
	ErrTransient          = errors.New("transient failure")
	ErrUnrecognisedFormat = errors.New("unrecognised format")
)

// ErrorKind is the stable classification persisted with failed items.
type ErrorKind string

const (
	ErrorKindExternalTool       ErrorKind = "external_tool"
	ErrorKindValidation         ErrorKind = "validation"
	ErrorKindConfiguration      ErrorKind = "configuration"
	ErrorKindNotFound           ErrorKind = "not_found"
	ErrorKindTimeout            ErrorKind = "timeout"
	ErrorKindTransient          ErrorKind = "transient"
	ErrorKindUnrecognisedFormat ErrorKind = "unrecognised_format"
)

var markerKinds = []struct {
	marker error
	kind   ErrorKind
	hint   string
}{
	{ErrUnrecognisedFormat, ErrorKindUnrecognisedFormat, "no processor handles this category; the file is rejected"},
	{ErrTimeout, ErrorKindTimeout, "raise the time budget scale or inspect the input for pathological streams"},
	{ErrExternalTool, ErrorKindExternalTool, "inspect the captured stderr of the failing tool"},
	{ErrValidation, ErrorKindValidation, "check the item metadata and category"},
	{ErrConfiguration, ErrorKindConfiguration, "check the [tools] and [paths] configuration"},
	{ErrNotFound, ErrorKindNotFound, "verify the source file still exists"},
	{ErrTransient, ErrorKindTransient, "retry the item"},
}

type serviceError struct {
	marker    error
	stage     string
	operation string
	message   string
	cause     error
}

func (e *serviceError) Error() string {
	parts := []string{e.marker.Error(), buildDetail(e.stage, e.operation, e.message)}
	if e.cause != nil {
		parts = append(parts, e.cause.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *serviceError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.marker}
	}
	return []error{e.marker, e.cause}
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later status classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &serviceError{
		marker:    marker,
		stage:     strings.TrimSpace(stage),
		operation: strings.TrimSpace(operation),
		message:   strings.TrimSpace(message),
		cause:     err,
	}
}

// ErrorDetails is the structured view of a failure used for logs and the queue.
type ErrorDetails struct {
	Kind      ErrorKind
	Operation string
	Message   string
	Hint      string
	Cause     error
}

// Details extracts the classification of err. Errors not produced by Wrap are
// classified by the markers they match; anything else is transient.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	details := ErrorDetails{Kind: ErrorKindTransient, Hint: "retry the item"}
	if errors.Is(err, context.DeadlineExceeded) {
		details.Kind = ErrorKindTimeout
	}
	for _, mk := range markerKinds {
		if errors.Is(err, mk.marker) {
			details.Kind = mk.kind
			details.Hint = mk.hint
			break
		}
	}
	var svcErr *serviceError
	if errors.As(err, &svcErr) {
		details.Operation = svcErr.operation
		details.Message = svcErr.message
		details.Cause = svcErr.cause
	}
	if details.Message == "" {
		details.Message = err.Error()
	}
	return details
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	for _, part := range []string{stage, operation, message} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
