package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the domain layer. These provide consistent, checkable
// errors for common business logic failures.
var (
	ErrUserAlreadyExists   = errors.New("user with this email already exists")
	ErrInvalidCredentials  = errors.New("invalid credentials provided")
	ErrNotFound            = errors.New("requested resource not found")
	ErrForbidden           = errors.New("operation not permitted")
	ErrInvalidInput        = errors.New("invalid input")
	ErrConflict            = errors.New("resource conflict")
	ErrQuotaExceeded       = errors.New("quota exceeded")
	ErrProviderUnavailable = errors.New("external provider unavailable")
)

// Specialised errors. Each wraps one of the sentinels above so callers can
// match either the precise case or the broad category.
var (
	ErrSlugTaken       = fmt.Errorf("%w: slug already taken", ErrConflict)
	ErrAlreadyContacts = fmt.Errorf("%w: users are already contacts", ErrConflict)
	ErrOfferTaken      = fmt.Errorf("%w: gift idea already offered", ErrConflict)
	ErrSelfRequest     = fmt.Errorf("%w: cannot send a contact request to yourself", ErrInvalidInput)
	ErrRequestClosed   = fmt.Errorf("%w: contact request is no longer pending", ErrConflict)
	ErrRequestPending  = fmt.Errorf("%w: a contact request between these users is pending", ErrConflict)
)
