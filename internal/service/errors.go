package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/points-ledger/internal/database"
)

// Failure kinds returned by the points core. Every error a Service method
// returns matches exactly one of these with errors.Is, or is an internal
// store failure.
var (
	ErrInvalidAmount        = errors.New("amount must be a positive integer")
	ErrInvalidCode          = errors.New("invalid token code")
	ErrInvalidRequest       = errors.New("invalid request")
	ErrUnknownRecipient     = errors.New("recipient account not found")
	ErrUnknownClaimant      = errors.New("claimant account not found")
	ErrUnknownAccount       = errors.New("account not found")
	ErrSelfTransferRejected = errors.New("cannot transfer points to yourself")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrTokenNotFound        = errors.New("token not found")
	ErrAlreadyRedeemed      = errors.New("token already redeemed")
	ErrTransactionConflict  = errors.New("transaction conflict, retry the request")
)

// ErrBalanceOverflow means base grant plus ledger sum does not fit in an
// int64. It has no kind of its own and surfaces as an internal failure.
var ErrBalanceOverflow = errors.New("balance overflows int64")

// Stable kind codes, suitable for API responses and metric labels.
const (
	KindInvalidAmount        = "invalid_amount"
	KindInvalidCode          = "invalid_code"
	KindInvalidRequest       = "invalid_request"
	KindUnknownRecipient     = "unknown_recipient"
	KindUnknownClaimant      = "unknown_claimant"
	KindUnknownAccount       = "unknown_account"
	KindSelfTransferRejected = "self_transfer_rejected"
	KindInsufficientBalance  = "insufficient_balance"
	KindTokenNotFound        = "token_not_found"
	KindAlreadyRedeemed      = "already_redeemed"
	KindTransactionConflict  = "transaction_conflict"
	KindInternal             = "internal"
)

// InsufficientBalanceError carries the balance that failed the check.
type InsufficientBalanceError struct {
	Balance   int64
	Requested int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: have %d, requested %d", e.Balance, e.Requested)
}

func (e *InsufficientBalanceError) Is(target error) bool { return target == ErrInsufficientBalance }

// AlreadyRedeemedError carries the time of the earlier, winning redemption.
type AlreadyRedeemedError struct {
	Code       string
	RedeemedAt time.Time
}

func (e *AlreadyRedeemedError) Error() string {
	return fmt.Sprintf("token %s already redeemed at %s", e.Code, e.RedeemedAt.UTC().Format(time.RFC3339))
}

func (e *AlreadyRedeemedError) Is(target error) bool { return target == ErrAlreadyRedeemed }

var kinds = []struct {
	err  error
	kind string
}{
	{ErrInvalidAmount, KindInvalidAmount},
	{ErrInvalidCode, KindInvalidCode},
	{ErrInvalidRequest, KindInvalidRequest},
	{ErrUnknownRecipient, KindUnknownRecipient},
	{ErrUnknownClaimant, KindUnknownClaimant},
	{ErrUnknownAccount, KindUnknownAccount},
	{ErrSelfTransferRejected, KindSelfTransferRejected},
	{ErrInsufficientBalance, KindInsufficientBalance},
	{ErrTokenNotFound, KindTokenNotFound},
	{ErrAlreadyRedeemed, KindAlreadyRedeemed},
	{ErrTransactionConflict, KindTransactionConflict},
}

// Kind returns the stable kind code of err. Errors that are not one of the
// core failure kinds report KindInternal; nil reports "".
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// storeErr classifies an error that escaped a transaction. Lock and commit
// conflicts become ErrTransactionConflict; everything else passes through.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if Kind(err) != KindInternal {
		return err
	}
	if database.IsConflict(err) {
		return fmt.Errorf("%s: %w: %v", op, ErrTransactionConflict, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
