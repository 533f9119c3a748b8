// internal/util/errors.go
package util

import "errors"

// Common application-specific errors.
//
// ErrInvalidInput, ErrSelfTransfer, ErrRecipientNotFound and
// ErrInsufficientFunds are terminal: they are surfaced to the caller
// verbatim and never retried. ErrConflict means a concurrent mutation
// or an in-flight duplicate request was detected; callers may retry the
// whole operation against freshly read state. ErrPaymentUnderReview
// means the outcome of a transfer is not yet known and must not be
// reported as either success or failure.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidInput       = errors.New("invalid input provided")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrSelfTransfer       = errors.New("cannot transfer to your own payment ID")
	ErrAccountNotFound    = errors.New("account not found")
	ErrRecipientNotFound  = errors.New("recipient payment ID not found")
	ErrTransferNotFound   = errors.New("transfer not found")
	ErrConflict           = errors.New("concurrent modification detected")
	ErrPaymentUnderReview = errors.New("payment outcome pending review")
	ErrInconsistent       = errors.New("duplicate payment IDs for one identifier")
	ErrDuplicateEntry     = errors.New("duplicate entry")
)

// IsError reports whether any error in err's chain matches target.
func IsError(err, target error) bool {
	return errors.Is(err, target)
}
