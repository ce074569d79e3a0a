package conversation

import (
	"context"
	"errors"
	"fmt"
)

// ModelErrorKind classifies a failed language model call.
type ModelErrorKind string

const (
	ModelErrorTimeout   ModelErrorKind = "timeout"
	ModelErrorMalformed ModelErrorKind = "malformed"
	ModelErrorTransport ModelErrorKind = "transport"
)

// ModelError aborts a turn. Memory is left untouched when one is returned.
type ModelError struct {
	Kind     ModelErrorKind
	Provider string
	Err      error
}

func (e *ModelError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("conversation: %s model %s: %v", e.Provider, e.Kind, e.Err)
	}
	return fmt.Sprintf("conversation: model %s: %v", e.Kind, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

// Retryable reports whether resending the same message may succeed.
// Every model failure is, since none of them persisted anything.
func (e *ModelError) Retryable() bool { return true }

func malformed(provider string, format string, args ...any) *ModelError {
	return &ModelError{Kind: ModelErrorMalformed, Provider: provider, Err: fmt.Errorf(format, args...)}
}

// classifyModelError wraps a raw client error. callCtx is the per-call
// context carrying the model timeout.
func classifyModelError(callCtx context.Context, err error) error {
	var me *ModelError
	if errors.As(err, &me) {
		return me
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return &ModelError{Kind: ModelErrorTimeout, Err: err}
	}
	return &ModelError{Kind: ModelErrorTransport, Err: err}
}
