package models

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	// KindValidation: malformed input, caught before any remote call.
	KindValidation ErrorKind = "validation"
	// KindAuthz: role check failed; no state change was attempted.
	KindAuthz ErrorKind = "authz"
	// KindRemote: the document store or identity provider failed; local state
	// is unchanged because nothing is applied before remote confirmation.
	KindRemote ErrorKind = "remote"
	// KindOrphanProvisioning: a credential was created but the directory
	// record write failed, leaving inconsistent external state.
	KindOrphanProvisioning ErrorKind = "orphan_provisioning"
)

// AppError is the structured {kind, message} error handed to the view layer
// for toast-style display.
type AppError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	cause   error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.cause }

func NewValidationError(message string) *AppError {
	return &AppError{Kind: KindValidation, Message: message}
}

func NewAuthzError(message string) *AppError {
	return &AppError{Kind: KindAuthz, Message: message}
}

func NewRemoteError(message string, cause error) *AppError {
	return &AppError{Kind: KindRemote, Message: message, cause: cause}
}

func NewOrphanProvisioningError(message string, cause error) *AppError {
	return &AppError{Kind: KindOrphanProvisioning, Message: message, cause: cause}
}

// KindOf extracts the error kind, defaulting to KindRemote for errors that
// did not originate in this service.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindRemote
}
