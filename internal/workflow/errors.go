package workflow

import (
	"errors"
	"fmt"
	"strings"

	"cmcs-backend/internal/document"
	"cmcs-backend/internal/storage"
)

// Kind categorizes workflow failures.
type Kind string

const (
	KindValidationFailed  Kind = "VALIDATION_FAILED"
	KindUserNotFound      Kind = "USER_NOT_FOUND"
	KindClaimNotFound     Kind = "CLAIM_NOT_FOUND"
	KindDocumentNotFound  Kind = "DOCUMENT_NOT_FOUND"
	KindInvalidTransition Kind = "INVALID_TRANSITION"
	KindForbidden         Kind = "FORBIDDEN"
	KindUnauthenticated   Kind = "UNAUTHENTICATED"
	KindConflict          Kind = "CONFLICT"
	KindDuplicateEmail    Kind = "DUPLICATE_EMAIL"
	KindLastHR            Kind = "LAST_HR"
	KindFileRejected      Kind = "FILE_REJECTED"
	KindPersistence       Kind = "PERSISTENCE_ERROR"
)

// Violation is one failed field rule.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the structured result of a failed operation. Message is safe to
// show to clients; Err keeps the cause for logs and errors.Is.
type Error struct {
	Kind       Kind
	Message    string
	Violations []Violation
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

func validationError(violations []Violation) *Error {
	return &Error{Kind: KindValidationFailed, Message: "One or more fields are invalid.", Violations: violations}
}

func forbidden() *Error {
	return newError(KindForbidden, "You are not allowed to perform this action.", nil)
}

// KindOf returns the kind of a workflow error, or "" for any other error.
func KindOf(err error) Kind {
	var we *Error
	if errors.As(err, &we) {
		return we.Kind
	}
	return ""
}

func IsValidation(err error) bool { return KindOf(err) == KindValidationFailed }

func IsForbidden(err error) bool { return KindOf(err) == KindForbidden }

// IsNotFound matches every not-found kind.
func IsNotFound(err error) bool {
	switch KindOf(err) {
	case KindUserNotFound, KindClaimNotFound, KindDocumentNotFound:
		return true
	}
	return false
}

// IsConflict matches every conflict-class kind.
func IsConflict(err error) bool {
	switch KindOf(err) {
	case KindInvalidTransition, KindConflict, KindDuplicateEmail, KindLastHR:
		return true
	}
	return false
}

// fromStorage maps a storage error to a workflow error. notFound is the kind
// reported for storage.ErrNotFound. The message never names a backend.
func fromStorage(err error, notFound Kind) error {
	if err == nil {
		return nil
	}
	var we *Error
	if errors.As(err, &we) {
		return err
	}
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return newError(notFound, notFoundMessage(notFound), err)
	case errors.Is(err, storage.ErrDuplicateEmail):
		return newError(KindDuplicateEmail, "Email is already registered.", err)
	case errors.Is(err, storage.ErrLastOfRole):
		return newError(KindLastHR, "Cannot delete the last HR user.", err)
	case errors.Is(err, storage.ErrInUse):
		return newError(KindConflict, "User still owns claims and cannot be deleted.", err)
	case errors.Is(err, storage.ErrConflict):
		return newError(KindConflict, "The claim was modified concurrently. Please retry.", err)
	case errors.Is(err, storage.ErrInvalidData):
		return newError(KindValidationFailed, "The record was rejected by storage constraints.", err)
	case errors.Is(err, document.ErrFileRejected):
		return newError(KindFileRejected, rejectionReason(err), err)
	case errors.Is(err, document.ErrNotFound):
		return newError(KindDocumentNotFound, notFoundMessage(KindDocumentNotFound), err)
	}
	return newError(KindPersistence, "Claims storage is temporarily unavailable.", err)
}

func notFoundMessage(k Kind) string {
	switch k {
	case KindUserNotFound:
		return "User not found."
	case KindDocumentNotFound:
		return "Document not found."
	}
	return "Claim not found."
}

// rejectionReason strips the sentinel prefix from a document rejection.
func rejectionReason(err error) string {
	msg := err.Error()
	prefix := document.ErrFileRejected.Error() + ": "
	if i := strings.Index(msg, prefix); i >= 0 {
		return msg[i+len(prefix):]
	}
	return msg
}
