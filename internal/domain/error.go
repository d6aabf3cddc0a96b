package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound                 = errors.New("entity not found")
	ErrInvalidArgument          = errors.New("invalid argument")
	ErrCampaignNotFound         = errors.New("campaign not found or inactive")
	ErrDuplicateAssignment      = errors.New("assignment already exists")
	ErrNotAuthorizedForCampaign = errors.New("partner not authorized for campaign via this channel")
	ErrIneligibleRecipient      = errors.New("recipient is not a new customer")
	ErrVoucherNotFound          = errors.New("voucher not found")
	ErrLockNotAcquired          = errors.New("could not acquire issuance lock")
	ErrInvalidExecContext       = errors.New("invalid executor context")
)

// AuthError means a POS credential could not be obtained or was rejected even
// after a forced refresh. Never swallowed; the current operation fails.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pos auth: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("pos auth: %s", e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// TransportError is a network-level failure talking to the POS API. The
// gateway does not retry these; caller policy decides.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("pos transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RemoteError is a business rejection from the POS API, carrying the
// machine-readable code from the response body. Not retried.
type RemoteError struct {
	Status  int
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("pos remote: status=%d code=%s: %s", e.Status, e.Code, e.Message)
}
