package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest         = errors.New("invalid request")
	ErrInsufficientFunds      = errors.New("insufficient credits")
	ErrCodeInvalid            = errors.New("code invalid or already used")
	ErrCodeNotFound           = errors.New("redeem code not found")
	ErrTicketInvalid          = errors.New("refund ticket invalid or already used")
	ErrStoreUnavailable       = errors.New("store unavailable")
	ErrStoreNotConfigured     = errors.New("store not configured")
	ErrCreditFailedAfterClaim = errors.New("code claimed but credit failed")
)

// CreditFailedAfterClaimError reports a redeem code that is now used but
// whose amount never reached the user's balance. Support reconciles these by
// hand; the caller must not retry the redeem itself.
type CreditFailedAfterClaimError struct {
	UserID string
	Code   string
	Amount int64
	Err    error
}

func (e *CreditFailedAfterClaimError) Error() string {
	return fmt.Sprintf("code %s claimed by %s but crediting %d failed: %v", e.Code, e.UserID, e.Amount, e.Err)
}

func (e *CreditFailedAfterClaimError) Unwrap() []error {
	return []error{ErrCreditFailedAfterClaim, e.Err}
}

func invalidRequest(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, msg)
}

func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
