// Package apperr holds the typed failures returned by the inventory core.
// Every operation boundary returns one of these kinds; anything else is an
// unexpected storage or infrastructure fault.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotFound            Kind = "not_found"
	KindAlreadyFinalized    Kind = "already_finalized"
	KindNotPending          Kind = "not_pending"
	KindInsufficientStock   Kind = "insufficient_stock"
	KindUnknownMaterial     Kind = "unknown_material"
	KindInvalidDiscount     Kind = "invalid_discount"
	KindDiscrepancyExceeded Kind = "discrepancy_exceeded"
	KindValidation          Kind = "validation"
	KindUnauthorized        Kind = "unauthorized"
	KindConflict            Kind = "conflict"
)

type Error struct {
	Kind    Kind
	Op      string
	Message string
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

// Is lets errors.Is(err, apperr.ErrNotFound) match any error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Op == "" && t.Kind == e.Kind
}

var (
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrAlreadyFinalized    = &Error{Kind: KindAlreadyFinalized}
	ErrNotPending          = &Error{Kind: KindNotPending}
	ErrInsufficientStock   = &Error{Kind: KindInsufficientStock}
	ErrUnknownMaterial     = &Error{Kind: KindUnknownMaterial}
	ErrInvalidDiscount     = &Error{Kind: KindInvalidDiscount}
	ErrDiscrepancyExceeded = &Error{Kind: KindDiscrepancyExceeded}
	ErrValidation          = &Error{Kind: KindValidation}
	ErrUnauthorized        = &Error{Kind: KindUnauthorized}
	ErrConflict            = &Error{Kind: KindConflict}
)

func New(kind Kind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

func NotFound(op, format string, args ...any) *Error {
	return New(KindNotFound, op, format, args...)
}

func Validation(op, format string, args ...any) *Error {
	return New(KindValidation, op, format, args...)
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Message returns the caller-facing text of err without the op prefix.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Message == "" {
			return string(e.Kind)
		}
		return e.Message
	}
	return err.Error()
}
