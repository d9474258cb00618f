package domain

import (
	"errors"
	"fmt"
)

// Outcomes returned by the resolution, creation and analytics paths.
// Callers match them with errors.Is.
var (
	ErrNotFound         = errors.New("link not found")
	ErrGone             = errors.New("link is gone")
	ErrDeactivated      = fmt.Errorf("%w: deactivated", ErrGone)
	ErrLimitReached     = fmt.Errorf("%w: click limit reached", ErrGone)
	ErrExpired          = errors.New("link has expired")
	ErrPasswordRequired = errors.New("password required")
	ErrUnauthorized     = errors.New("invalid password")
	ErrConflict         = errors.New("alias is already taken")
	ErrQuotaExceeded    = errors.New("link quota exceeded")
	ErrForbidden        = errors.New("access denied")
	ErrInvalidInput     = errors.New("invalid input")
)

// GoneReason returns the short reason carried by a gone outcome.
func GoneReason(err error) string {
	switch {
	case errors.Is(err, ErrLimitReached):
		return "limit reached"
	case errors.Is(err, ErrDeactivated):
		return "deactivated"
	default:
		return "gone"
	}
}
