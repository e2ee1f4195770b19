package transport

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/a69/fnkit.go/function"
)

// Stage identifies the pipeline step an Error occurred in.
type Stage int

const (
	// StageDecode covers reading and decoding the host event.
	StageDecode Stage = iota
	// StageResolve covers selecting the function to invoke.
	StageResolve
	// StageInvoke covers input conversion and the function itself.
	StageInvoke
	// StageEncode covers rendering the result for the host.
	StageEncode
)

func (s Stage) String() string {
	switch s {
	case StageDecode:
		return "decode"
	case StageResolve:
		return "resolve"
	case StageInvoke:
		return "invoke"
	case StageEncode:
		return "encode"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Error is returned by Server for every failed invocation.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return e.Stage.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// StatusCode maps the failure to an HTTP status. Bad input is 400, an
// unknown function 404. A cause implementing StatusCoder picks its own
// status, anything else is 500.
func (e *Error) StatusCode() int {
	var (
		cerr *function.ConversionError
		sc   StatusCoder
	)
	switch {
	case e.Stage == StageDecode, errors.As(e.Err, &cerr):
		return http.StatusBadRequest
	case e.Stage == StageResolve && errors.Is(e.Err, function.ErrNotFound):
		return http.StatusNotFound
	case errors.As(e.Err, &sc):
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}

// StatusCoder is checked by HTTP error encoders. If an error value
// implements StatusCoder, its StatusCode is used instead of 500.
type StatusCoder interface {
	StatusCode() int
}

// StatusCode returns the HTTP status for err.
func StatusCode(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}

// ErrorResponse returns the status and body an HTTP host should answer err
// with. Server errors do not expose their cause.
func ErrorResponse(err error) (int, string) {
	code := StatusCode(err)
	if code >= http.StatusInternalServerError {
		return code, http.StatusText(code)
	}
	return code, err.Error()
}

func wrap(stage Stage, err error) error {
	var terr *Error
	if errors.As(err, &terr) {
		return err
	}
	return &Error{Stage: stage, Err: err}
}
