package service

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvitationNotFound = fmt.Errorf("invitation %w", ErrNotFound)
	ErrProjectNotFound    = fmt.Errorf("project %w", ErrNotFound)
	ErrFileNotFound       = fmt.Errorf("file %w", ErrNotFound)
	ErrUserNotFound       = fmt.Errorf("user %w", ErrNotFound)
	ErrMembershipNotFound = fmt.Errorf("membership %w", ErrNotFound)

	ErrDuplicateEmail      = errors.New("a user or invitation with this email already exists")
	ErrAlreadyUsed         = errors.New("invitation has already been used")
	ErrAlreadyAccepted     = errors.New("invitation has already been accepted")
	ErrExpired             = errors.New("invitation has expired")
	ErrEmailMismatch       = errors.New("email does not match the invitation")
	ErrTokenTampered       = errors.New("invitation token mismatch")
	ErrNotAMember          = errors.New("not a member of this project")
	ErrForbidden           = errors.New("forbidden")
	ErrCannotRemoveCreator = errors.New("the project creator cannot be removed")
	ErrStorageDeleteFailed = errors.New("storage delete failed")

	ErrInvalidRequest     = errors.New("invalid request")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrSessionActive      = errors.New("an authenticated session is active")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError lists per-field problems. It matches ErrInvalidRequest
// with errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := slices.Sorted(maps.Keys(e.Fields))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidRequest }

// add records msg for field unless one is already present.
func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// orNil returns e only if it holds at least one problem.
func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// IsTokenError reports whether err is one of the invitation token
// validation failures.
func IsTokenError(err error) bool {
	return errors.Is(err, ErrInvitationNotFound) ||
		errors.Is(err, ErrAlreadyUsed) ||
		errors.Is(err, ErrExpired) ||
		errors.Is(err, ErrEmailMismatch) ||
		errors.Is(err, ErrTokenTampered)
}
