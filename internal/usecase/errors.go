package usecase

import (
	"errors"
	"strings"

	"github.com/halcyonsoft/halcyon/internal/core/domain"
)

var (
	// ErrInvalidCredentials indicates the email/password pair did not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked indicates the account is locked out.
	ErrAccountLocked = errors.New("account is locked")
	// ErrEmailNotConfirmed indicates login requires a confirmed email address.
	ErrEmailNotConfirmed = errors.New("email address not confirmed")
	// ErrTwoFactorRequired indicates login must complete the two-factor step.
	ErrTwoFactorRequired = errors.New("two-factor verification required")
	// ErrInvalidToken indicates a refresh, magic link, reset, or verification
	// token is missing, expired, or already used.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrInvalidCode indicates a two-factor code did not verify.
	ErrInvalidCode = errors.New("invalid verification code")

	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrRoleNotFound indicates the requested role does not exist.
	ErrRoleNotFound = errors.New("role not found")
	// ErrDeviceNotFound indicates the requested device session does not exist
	// or does not belong to the caller.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrNotificationNotFound indicates the requested notification does not
	// exist or does not belong to the caller.
	ErrNotificationNotFound = errors.New("notification not found")
	// ErrAccountNotFound indicates the requested account does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrDuplicateEmail indicates the email address is already registered.
	ErrDuplicateEmail = errors.New("email address already in use")
	// ErrDuplicateUserName indicates the user name is already taken.
	ErrDuplicateUserName = errors.New("user name already in use")

	// ErrForbidden indicates the caller may not perform the operation.
	ErrForbidden = errors.New("operation not permitted")
	// ErrSelfAdministratorRemoval indicates an administrator tried to remove
	// their own Administrator role.
	ErrSelfAdministratorRemoval = errors.New("administrators cannot remove their own Administrator role")
	// ErrAdministratorDeletion indicates a delete targeted an administrator account.
	ErrAdministratorDeletion = errors.New("administrator accounts cannot be deleted")
)

// ValidationError aggregates one or more input validation messages so callers
// can surface all of them at once.
type ValidationError struct {
	Messages []string
}

// Error implements error.
func (e *ValidationError) Error() string {
	if e == nil || len(e.Messages) == 0 {
		return "validation failed"
	}
	return strings.Join(e.Messages, "; ")
}

// NewValidationError builds a ValidationError from the provided messages.
func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Messages: messages}
}

// Actor identifies the authenticated caller of a usecase operation.
type Actor struct {
	UserID string
	Roles  []string
}

// IsAdministrator reports whether the actor carries the Administrator role.
func (a Actor) IsAdministrator() bool {
	for _, role := range a.Roles {
		if role == domain.RoleAdministrator {
			return true
		}
	}
	return false
}
