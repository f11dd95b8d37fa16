package domain

import (
	"errors"
	"strings"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrTransientUpstream = errors.New("transient upstream failure")
	ErrNoImageProduced   = errors.New("no image produced")
	ErrNetworkFailure    = errors.New("network failure")
	ErrUnknownUpstream   = errors.New("unknown upstream failure")

	ErrNotFound       = errors.New("not found")
	ErrAlreadyPending = errors.New("generation already pending")
)

// Error is a failure classified into one of the kinds above. Detail is the
// human-readable explanation (for NoImageProduced, the model's own text).
type Error struct {
	Kind   error
	Detail string
	Err    error
}

// Classify builds a classified error. cause may be nil.
func Classify(kind error, detail string, cause error) error {
	return &Error{Kind: kind, Detail: strings.TrimSpace(detail), Err: cause}
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil && e.Err.Error() != e.Detail {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return e.Kind == target
}

// FallbackError reports that the primary instruction produced no image and the
// single fallback attempt failed as well.
type FallbackError struct {
	Primary  error
	Fallback error
}

func (e *FallbackError) Error() string {
	primary := DetailOf(e.Primary)
	if primary == "" {
		primary = "no explanation given"
	}
	return "The model did not return an image (" + primary + ") and the fallback prompt also failed: " + Reason(e.Fallback)
}

func (e *FallbackError) Unwrap() []error {
	return []error{e.Primary, e.Fallback}
}

// KindOf returns the classification of err, or ErrUnknownUpstream when err
// carries none.
func KindOf(err error) error {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	for _, kind := range []error{ErrInvalidInput, ErrTransientUpstream, ErrNoImageProduced, ErrNetworkFailure} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrUnknownUpstream
}

// DetailOf returns the detail text of the outermost classified error, falling
// back to the raw message.
func DetailOf(err error) string {
	if err == nil {
		return ""
	}
	var classified *Error
	if errors.As(err, &classified) {
		if classified.Detail != "" {
			return classified.Detail
		}
		if classified.Err != nil {
			return classified.Err.Error()
		}
		return ""
	}
	return err.Error()
}

// Reason renders the user-facing text stored in a Failed outcome.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var fallback *FallbackError
	if errors.As(err, &fallback) {
		return fallback.Error()
	}
	detail := DetailOf(err)
	switch KindOf(err) {
	case ErrNetworkFailure:
		return "Network error: please check your connection and try again."
	case ErrInvalidInput:
		return withDetail("Invalid input", detail)
	case ErrTransientUpstream:
		return withDetail("The image service is temporarily unavailable", detail)
	case ErrNoImageProduced:
		return withDetail("The model did not return an image", detail)
	default:
		return withDetail("Generation failed", detail)
	}
}

func withDetail(prefix, detail string) string {
	if detail == "" {
		return prefix + "."
	}
	return prefix + ": " + detail
}
