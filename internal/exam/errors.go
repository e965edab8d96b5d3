package exam

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers deciding how to report it.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindForbidden  Kind = "forbidden"
	KindConflict   Kind = "conflict"
	KindInternal   Kind = "internal"
)

// Error is a classified exam lifecycle error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

var (
	ErrInvalidCount     = &Error{Kind: KindValidation, Msg: "number of questions must be positive"}
	ErrSubjectNotFound  = &Error{Kind: KindNotFound, Msg: "subject not found"}
	ErrGradeNotFound    = &Error{Kind: KindNotFound, Msg: "grade not found"}
	ErrExamNotFound     = &Error{Kind: KindNotFound, Msg: "exam not found"}
	ErrResultNotFound   = &Error{Kind: KindNotFound, Msg: "result not found"}
	ErrUserNotFound     = &Error{Kind: KindNotFound, Msg: "user not found"}
	ErrNotExamOwner     = &Error{Kind: KindForbidden, Msg: "exam belongs to another user"}
	ErrNotResultOwner   = &Error{Kind: KindForbidden, Msg: "result belongs to another user"}
	ErrReportForbidden  = &Error{Kind: KindForbidden, Msg: "only administrators can view other users' results"}
	ErrAlreadyCompleted = &Error{Kind: KindConflict, Msg: "exam already completed"}
)

// InsufficientQuestionsError is returned when the question pool is smaller
// than the requested exam size.
type InsufficientQuestionsError struct {
	Available int
	Requested int
}

func (e *InsufficientQuestionsError) Error() string {
	return fmt.Sprintf("not enough questions: %d available, %d requested", e.Available, e.Requested)
}

// Validation returns a validation error with the given message.
func Validation(msg string) error {
	return &Error{Kind: KindValidation, Msg: msg}
}

func internal(msg string, err error) error {
	return &Error{Kind: KindInternal, Msg: msg, Err: err}
}

// KindOf classifies err. Unclassified errors are internal.
func KindOf(err error) Kind {
	var insufficient *InsufficientQuestionsError
	if errors.As(err, &insufficient) {
		return KindConflict
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
