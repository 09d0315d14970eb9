// Package apperr defines the error taxonomy shared by service layers.
// Callers branch on Kind rather than matching error strings.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error for callers that need to branch on it.
type Kind string

const (
	KindNotFound        Kind = "not_found"
	KindForbidden       Kind = "forbidden"
	KindValidation      Kind = "validation"
	KindInvalidLicense  Kind = "invalid_license"
	KindLicenseMismatch Kind = "license_mismatch"
)

// Error is a classified application error. IDs carries the offending
// entity IDs for batch operations (e.g. devices on the wrong license).
type Error struct {
	Kind    Kind
	Message string
	IDs     []string
}

func (e *Error) Error() string {
	if len(e.IDs) > 0 {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Message, strings.Join(e.IDs, ", "))
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// KindOf returns the kind of err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) *Error {
	return newf(KindNotFound, format, args...)
}

func Forbiddenf(format string, args ...any) *Error {
	return newf(KindForbidden, format, args...)
}

func Validationf(format string, args ...any) *Error {
	return newf(KindValidation, format, args...)
}

func InvalidLicensef(format string, args ...any) *Error {
	return newf(KindInvalidLicense, format, args...)
}

// NotFoundIDs reports a batch lookup where some IDs did not resolve.
func NotFoundIDs(message string, ids ...string) *Error {
	return &Error{Kind: KindNotFound, Message: message, IDs: ids}
}

// LicenseMismatch reports devices whose license differs from the one the
// operation requires. The whole batch is rejected.
func LicenseMismatch(ids ...string) *Error {
	return &Error{Kind: KindLicenseMismatch, Message: "devices are enrolled under a different license", IDs: ids}
}
