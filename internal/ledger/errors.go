package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount means the amount is not a positive value with at most
// two decimal places.
var ErrInvalidAmount = errors.New("amount must be a positive value with at most 2 decimal places")

// ErrSameWallet rejects self-transfers.
var ErrSameWallet = errors.New("sender and receiver wallet must differ")

// ErrInsufficientFunds is returned when the locked sender balance cannot
// cover amount plus any sender-borne charge.
var ErrInsufficientFunds = errors.New("insufficient funds in the sender wallet")

// ErrChargeNotCovered is returned when a receiver-borne charge exceeds the
// amount and the receiver's balance cannot absorb the difference.
var ErrChargeNotCovered = errors.New("receiver balance cannot cover the charge on this transfer")

// ErrReferenceGeneration means the bounded reference retry budget was
// exhausted. Internal invariant violation, not user-facing.
var ErrReferenceGeneration = errors.New("could not generate a unique transaction reference")

// LimitExceededError carries the breached daily limit so callers can render
// a useful message.
type LimitExceededError struct {
	Limit decimal.Decimal
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("daily transaction limit of %s exceeded", e.Limit.StringFixed(2))
}
