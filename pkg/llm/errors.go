package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies provider failures. Only KindThrottled triggers
// fallback to the next model of the chain.
type ErrorKind string

const (
	// KindThrottled covers rate limits and quota exhaustion.
	KindThrottled ErrorKind = "throttled"
	// KindValidation covers requests the provider rejected as malformed.
	KindValidation ErrorKind = "validation"
	// KindTransient covers provider-side availability errors.
	KindTransient ErrorKind = "transient"
	// KindFatal covers authentication and configuration failures.
	KindFatal ErrorKind = "fatal"
)

// ModelError wraps a provider failure with the model that produced it.
type ModelError struct {
	Model string
	Kind  ErrorKind
	Err   error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model %s (%s): %v", e.Model, e.Kind, e.Err)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// IsThrottled reports whether err is a throttling failure eligible for
// model fallback.
func IsThrottled(err error) bool {
	var me *ModelError
	return errors.As(err, &me) && me.Kind == KindThrottled
}

// UnavailableError reports that every model of the chain was throttled.
type UnavailableError struct {
	Attempted []string
	LastErr   error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("all models unavailable (tried %s): %v",
		strings.Join(e.Attempted, ", "), e.LastErr)
}

func (e *UnavailableError) Unwrap() error {
	return e.LastErr
}
