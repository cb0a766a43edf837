package utils

import (
	"log"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Debug activates the debug log (added to the default log)
var Debug = false

// Debugf logs only when the debug log is active
func Debugf(format string, args ...interface{}) {
	if Debug {
		log.Printf(format, args...)
	}
}

// NewRunId returns the identifier of a clustering run
func NewRunId() string {
	return uuid.New().String()
}

/*---------------------------------------------------- ERRORS --------------------------------------------------------*/

var (
	// ErrMalformedPayload : schema violation in a request or a response
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrTransportFailure : connection refused/reset or i/o failure while exchanging a message
	ErrTransportFailure = errors.New("transport failure")
	// ErrConfiguration : invalid run parameters, reported before any iteration starts
	ErrConfiguration = errors.New("configuration error")
)

// Malformed marks err as a malformed payload failure
func Malformed(err error, format string, args ...interface{}) error {
	return mark(ErrMalformedPayload, err, format, args...)
}

// Transport marks err as a transport failure
func Transport(err error, format string, args ...interface{}) error {
	return mark(ErrTransportFailure, err, format, args...)
}

// Configuration builds a configuration error
func Configuration(format string, args ...interface{}) error {
	return errors.Wrapf(ErrConfiguration, format, args...)
}

func mark(kind error, err error, format string, args ...interface{}) error {
	wrapped := errors.Wrapf(kind, format, args...)
	if err == nil {
		return wrapped
	}
	return &markedError{marked: wrapped, cause: err}
}

// markedError : matches its kind and unwraps to the underlying cause
type markedError struct {
	marked error
	cause  error
}

func (e *markedError) Error() string {
	return e.marked.Error() + ": " + e.cause.Error()
}

func (e *markedError) Is(target error) bool {
	return errors.Is(e.marked, target)
}

func (e *markedError) Unwrap() error {
	return e.cause
}
