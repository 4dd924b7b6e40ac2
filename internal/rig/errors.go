package rig

import (
	"errors"
	"fmt"
)

// Error is a rig operation failure with a stable code.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Error codes
const (
	ErrCodeCameraNotFound       = "CAMERA_NOT_FOUND"
	ErrCodeSubscriptionNotFound = "SUBSCRIPTION_NOT_FOUND"
	ErrCodeInvalidParams        = "INVALID_PARAMS"
	ErrCodeProviderError        = "PROVIDER_ERROR"
)

// NewError creates a rig error.
func NewError(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Code returns the code of the first *Error in err's chain, or "".
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func cameraNotFound(id int) *Error {
	return NewError(ErrCodeCameraNotFound, fmt.Sprintf("camera %d not found", id), nil)
}

func subscriptionNotFound(id int, name string) *Error {
	return NewError(ErrCodeSubscriptionNotFound, fmt.Sprintf("subscription %q not found on camera %d", name, id), nil)
}

func invalid(message string, cause error) *Error {
	return NewError(ErrCodeInvalidParams, message, cause)
}

func providerError(message string, cause error) *Error {
	return NewError(ErrCodeProviderError, message, cause)
}
