// =============================================================================
// Payments Engine - Transaction Types
// =============================================================================
//
// A transaction record is one row of the input stream. Five kinds exist:
//
//   deposit    : credit the client's available funds
//   withdrawal : debit the client's available funds
//   dispute    : hold the funds of a previously accepted deposit/withdrawal
//   resolve    : release held funds back to available
//   chargeback : remove held funds from the system and lock the account
//
// Only deposits and withdrawals carry an amount and are retained by the engine.
//
// =============================================================================

package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ClientID identifies a client account.
type ClientID uint16

// TxID identifies a transaction. It is unique across a whole run.
type TxID uint32

// Kind is the closed set of transaction kinds.
type Kind uint8

const (
	KindDeposit Kind = iota + 1
	KindWithdrawal
	KindDispute
	KindResolve
	KindChargeback
)

var kindNames = map[Kind]string{
	KindDeposit:    "deposit",
	KindWithdrawal: "withdrawal",
	KindDispute:    "dispute",
	KindResolve:    "resolve",
	KindChargeback: "chargeback",
}

// String returns the lowercase name used in input files.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("kind(%d)", uint8(k))
}

// IsMonetary reports whether the kind moves funds and is retained for later
// disputes.
func (k Kind) IsMonetary() bool {
	return k == KindDeposit || k == KindWithdrawal
}

// ParseKind maps a textual transaction type (case-insensitive) to a Kind.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for kind, kindName := range kindNames {
		if kindName == name {
			return kind, nil
		}
	}

	return 0, fmt.Errorf("unknown transaction type %q", s)
}

// Transaction is a single well-formed input record.
type Transaction struct {
	Kind   Kind
	Client ClientID
	TxID   TxID

	// Amount is nil when the record carries no amount.
	Amount *decimal.Decimal
}

// Deposit builds a deposit record.
func Deposit(client ClientID, id TxID, amount decimal.Decimal) Transaction {
	return Transaction{Kind: KindDeposit, Client: client, TxID: id, Amount: &amount}
}

// Withdrawal builds a withdrawal record.
func Withdrawal(client ClientID, id TxID, amount decimal.Decimal) Transaction {
	return Transaction{Kind: KindWithdrawal, Client: client, TxID: id, Amount: &amount}
}

// Dispute builds a dispute record.
func Dispute(client ClientID, id TxID) Transaction {
	return Transaction{Kind: KindDispute, Client: client, TxID: id}
}

// Resolve builds a resolve record.
func Resolve(client ClientID, id TxID) Transaction {
	return Transaction{Kind: KindResolve, Client: client, TxID: id}
}

// Chargeback builds a chargeback record.
func Chargeback(client ClientID, id TxID) Transaction {
	return Transaction{Kind: KindChargeback, Client: client, TxID: id}
}

// =============================================================================
// STORED TRANSACTIONS
// =============================================================================

// disputeState tracks where a stored transaction is in the dispute protocol.
type disputeState uint8

const (
	stateSettled disputeState = iota
	stateDisputed
	stateChargedBack
)

// storedTransaction is an accepted deposit or withdrawal kept for the rest of
// the run so later disputes can reference it.
type storedTransaction struct {
	kind   Kind
	client ClientID
	amount decimal.Decimal
	state  disputeState
}

// StoredSnapshot is a read-only view of a stored transaction.
type StoredSnapshot struct {
	Kind        Kind
	Client      ClientID
	TxID        TxID
	Amount      decimal.Decimal
	Disputed    bool
	ChargedBack bool
}

func (s *storedTransaction) snapshot(id TxID) StoredSnapshot {
	return StoredSnapshot{
		Kind:        s.kind,
		Client:      s.client,
		TxID:        id,
		Amount:      s.amount,
		Disputed:    s.state == stateDisputed,
		ChargedBack: s.state == stateChargedBack,
	}
}
