package command

import (
	apperrors "github.com/louisbranch/doudizhu/internal/platform/errors"
)

// Rejection captures a domain-level reason a command or event was declined.
//
// Kind is the error class (invalid event or illegal move); Code is the
// specific reason within it.
type Rejection struct {
	Kind    apperrors.Code
	Code    string
	Message string
	Cause   error
}

func (r *Rejection) Error() string {
	msg := r.Message
	if msg == "" {
		msg = r.Code
	}
	if r.Cause != nil {
		return msg + ": " + r.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (r *Rejection) Unwrap() error {
	return r.Cause
}

// ErrorCode returns the rejection kind.
func (r *Rejection) ErrorCode() apperrors.Code {
	return r.Kind
}

// Is matches another rejection by code (or by kind when the target has no
// code) and a coded platform error by kind.
func (r *Rejection) Is(target error) bool {
	switch t := target.(type) {
	case *Rejection:
		if t.Code != "" {
			return r.Code == t.Code
		}
		return r.Kind == t.Kind
	case *apperrors.Error:
		return r.Kind == t.Code
	}
	return false
}

// With returns a copy carrying a specific message and cause.
func (r Rejection) With(message string, cause error) Rejection {
	r.Message = message
	r.Cause = cause
	return r
}
