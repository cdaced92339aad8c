package ledger

import (
	"errors"
	"fmt"
)

// Rejection reasons. Every rejection is local to one transaction and leaves
// the engine state unchanged.
var (
	ErrMissingAmount        = errors.New("missing amount")
	ErrAccountLocked        = errors.New("account locked")
	ErrDuplicateTransaction = errors.New("duplicate transaction id")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrClientMismatch       = errors.New("transaction belongs to a different client")
	ErrAlreadyDisputed      = errors.New("transaction already disputed")
	ErrNotDisputed          = errors.New("transaction not under dispute")
	ErrChargedBack          = errors.New("transaction already charged back")
	ErrUnknownKind          = errors.New("unknown transaction kind")
)

// RejectionError describes why a transaction was not applied.
type RejectionError struct {
	Kind   Kind
	Client ClientID
	TxID   TxID
	Reason error
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s rejected (client=%d tx=%d): %v", e.Kind, e.Client, e.TxID, e.Reason)
}

func (e *RejectionError) Unwrap() error {
	return e.Reason
}

func reject(tx Transaction, reason error) error {
	return &RejectionError{Kind: tx.Kind, Client: tx.Client, TxID: tx.TxID, Reason: reason}
}

// Reason returns a short stable label for a rejection, suitable for counters
// and log fields. Errors that are not rejections map to "other".
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrMissingAmount):
		return "missing_amount"
	case errors.Is(err, ErrAccountLocked):
		return "account_locked"
	case errors.Is(err, ErrDuplicateTransaction):
		return "duplicate_transaction"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrTransactionNotFound):
		return "transaction_not_found"
	case errors.Is(err, ErrClientMismatch):
		return "client_mismatch"
	case errors.Is(err, ErrAlreadyDisputed):
		return "already_disputed"
	case errors.Is(err, ErrNotDisputed):
		return "not_disputed"
	case errors.Is(err, ErrChargedBack):
		return "charged_back"
	case errors.Is(err, ErrUnknownKind):
		return "unknown_kind"
	default:
		return "other"
	}
}
