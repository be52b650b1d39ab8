package models

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is. The concrete types below match them.
var (
	ErrValidation             = errors.New("validation failed")
	ErrNotFound               = errors.New("not found")
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrUnauthorized           = errors.New("not authorized")
	ErrInvalidTransition      = errors.New("invalid state transition")
	ErrResourceUnavailable    = errors.New("resource unavailable")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// AuthorizationError names who tried and what was missing. Reason is set for
// checks that are not plain permission lookups (e.g. driver mismatch).
type AuthorizationError struct {
	ActorID    int64
	Role       Role
	Permission Permission
	Reason     string
}

func (e *AuthorizationError) Error() string {
	msg := fmt.Sprintf("user %d (%s) lacks permission %s", e.ActorID, e.Role, e.Permission)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *AuthorizationError) Is(target error) bool { return target == ErrUnauthorized }

type InvalidStateTransitionError struct {
	Entity     string
	ID         int64
	Transition string
	Current    string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("cannot %s %s %d in status %s", e.Transition, e.Entity, e.ID, e.Current)
}

func (e *InvalidStateTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

type ResourceUnavailableError struct {
	Resource string
	Reason   string
}

func (e *ResourceUnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %s", e.Resource, e.Reason)
}

func (e *ResourceUnavailableError) Is(target error) bool { return target == ErrResourceUnavailable }
