package model

import (
	"errors"

	"github.com/rotisserie/eris"
)

// ErrorKind classifies failures across resolution, extraction and upload.
type ErrorKind string

const (
	InputError           ErrorKind = "input"
	ProviderError        ErrorKind = "provider"
	ValidationError      ErrorKind = "validation"
	ExtractionError      ErrorKind = "extraction"
	TransientRenderError ErrorKind = "transient_render"
	UnclassifiedError    ErrorKind = "unclassified"
)

// KindError is an error tagged with an ErrorKind.
type KindError struct {
	Kind ErrorKind
	Err  error
}

func (e *KindError) Error() string {
	return e.Err.Error()
}

func (e *KindError) Unwrap() error {
	return e.Err
}

// NewKindError creates a KindError with a new message.
func NewKindError(kind ErrorKind, msg string) *KindError {
	return &KindError{Kind: kind, Err: eris.New(msg)}
}

// WrapKind tags err with kind. A nil err returns nil.
func WrapKind(kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	return &KindError{Kind: kind, Err: err}
}

// KindOf returns the kind of the first KindError in err's chain, or
// UnclassifiedError.
func KindOf(err error) ErrorKind {
	var ke *KindError
	if errors.As(err, &ke) {
		return ke.Kind
	}
	return UnclassifiedError
}
