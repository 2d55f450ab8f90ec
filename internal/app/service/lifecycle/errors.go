package lifecycle

import (
	"errors"
	"fmt"
)

// Reason is the machine-readable code carried by every rejected transition.
type Reason string

const (
	ReasonValidation          Reason = "validation_error"
	ReasonNotFound            Reason = "not_found"
	ReasonInvalidState        Reason = "invalid_state"
	ReasonNotRegistered       Reason = "not_registered"
	ReasonAlreadyPremium      Reason = "already_premium"
	ReasonExpired             Reason = "expired"
	ReasonInvalidReferralCode Reason = "invalid_referral_code"
)

// Error is a rejected transition. Rejections never leave writes behind.
type Error struct {
	Reason  Reason
	Message string
	// DaysSinceRegistration is set for ReasonExpired.
	DaysSinceRegistration *int
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Reason)
	}
	return e.Message
}

// Is matches any *Error with the same Reason, so errors.Is(err, ErrInvalidState) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Reason == e.Reason
}

var (
	ErrValidation          = &Error{Reason: ReasonValidation}
	ErrNotFound            = &Error{Reason: ReasonNotFound}
	ErrInvalidState        = &Error{Reason: ReasonInvalidState}
	ErrNotRegistered       = &Error{Reason: ReasonNotRegistered}
	ErrAlreadyPremium      = &Error{Reason: ReasonAlreadyPremium}
	ErrExpired             = &Error{Reason: ReasonExpired}
	ErrInvalidReferralCode = &Error{Reason: ReasonInvalidReferralCode}
)

// ErrPreconditionFailed is returned by Tx conditional writes that matched no row.
var ErrPreconditionFailed = errors.New("precondition no longer holds")

func newError(reason Reason, format string, args ...any) *Error {
	return &Error{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// AsError extracts the *Error from err's chain, if any.
func AsError(err error) (*Error, bool) {
	var le *Error
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}
