package core

import (
	"errors"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// The resolver's error taxonomy is carried entirely through
// errbuilder-go error codes rather than a parallel sum type: each
// helper below picks the errbuilder.Code that the CLI's exit-code
// mapping and the reporter sink dispatch on.

// NewUserError wraps a message-bearing, user-facing failure: workspace
// validation, invalid mutex specifier, duplicate workspace names,
// missing required manifest fields.
func NewUserError(msg string, cause error) error {
	b := errbuilder.New().WithCode(errbuilder.CodeInvalidArgument).WithMsg(msg)
	if cause != nil {
		b = b.WithCause(cause)
	}
	return b
}

// NewConstraintError reports that no version satisfies a required
// range, or that flat mode could not reconcile every range for a name.
func NewConstraintError(msg string, cause error) error {
	b := errbuilder.New().WithCode(errbuilder.CodeFailedPrecondition).WithMsg(msg)
	if cause != nil {
		b = b.WithCause(cause)
	}
	return b
}

// NewNetworkError wraps a registry or remote-source failure for a
// required request. Callers in this module raise it on the first
// failed attempt; no layer retries the request.
func NewNetworkError(msg string, cause error) error {
	b := errbuilder.New().WithCode(errbuilder.CodeUnavailable).WithMsg(msg)
	if cause != nil {
		b = b.WithCause(cause)
	}
	return b
}

// processTermError wraps a spawned helper process (the exotic git
// resolver execs out) that exited non-zero. The process's exit code is
// preserved so the run's exit code can match it.
type processTermError struct {
	error
	exitCode int
}

func (e processTermError) Unwrap() error { return e.error }

// NewProcessTermError builds a ProcessTermError carrying exitCode,
// which ExitCodeFor surfaces as the run's exit code.
func NewProcessTermError(msg string, exitCode int, cause error) error {
	b := errbuilder.New().WithCode(errbuilder.CodeAborted).WithMsg(msg)
	if cause != nil {
		b = b.WithCause(cause)
	}
	return processTermError{error: b, exitCode: exitCode}
}

// NewUnexpectedError wraps anything that isn't one of the above: the
// caller is expected to dump a bug-report alongside it.
func NewUnexpectedError(msg string, cause error) error {
	b := errbuilder.New().WithCode(errbuilder.CodeInternal).WithMsg(msg)
	if cause != nil {
		b = b.WithCause(cause)
	}
	return b
}

// ErrorMessage extracts the human-readable message from an errbuilder
// error, falling back to err.Error().
func ErrorMessage(err error) string {
	var builder *errbuilder.ErrBuilder
	if errors.As(err, &builder) && strings.TrimSpace(builder.Msg) != "" {
		return builder.Msg
	}
	return err.Error()
}

// ExitCodeFor maps a resolver error to the process exit code the
// outer driver should return.
func ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	code := errbuilder.CodeOf(err)
	msg := ErrorMessage(err)
	switch code {
	case errbuilder.CodeInvalidArgument, errbuilder.CodeAlreadyExists:
		return 2
	case errbuilder.CodeFailedPrecondition:
		if strings.Contains(msg, "conflict") {
			return 3
		}
		return 4
	case errbuilder.CodePermissionDenied:
		return 3
	case errbuilder.CodeUnavailable:
		return 5
	case errbuilder.CodeAborted:
		var term processTermError
		if errors.As(err, &term) && term.exitCode != 0 {
			return term.exitCode
		}
		return 1
	case errbuilder.CodeInternal:
		return 5
	default:
		return 1
	}
}
