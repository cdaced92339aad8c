// =============================================================================
// Payments Engine - Ledger Engine
// =============================================================================
//
// The Engine owns every client account and every accepted deposit/withdrawal.
// Records are applied one at a time in arrival order; order matters because a
// dispute can only reference a transaction that was applied before it.
//
// ATOMICITY:
//   Each Apply call either fully succeeds or returns a *RejectionError and
//   leaves accounts and stored transactions exactly as they were. All checks
//   run before the first mutation.
//
// CONCURRENCY:
//   An Engine is not safe for concurrent use. Feed it from one goroutine.
//
// =============================================================================

package ledger

import (
	"sort"

	"github.com/shopspring/decimal"
)

// DuplicatePolicy selects how a reused transaction id on a deposit or
// withdrawal is handled.
type DuplicatePolicy uint8

const (
	// DuplicateReject rejects every reused id.
	DuplicateReject DuplicatePolicy = iota

	// DuplicateOverwrite lets the same client resubmit a settled deposit or
	// withdrawal under an existing id; the new record replaces the stored one.
	// Reuse across clients, or of a disputed/charged back record, is still
	// rejected.
	DuplicateOverwrite
)

// Option configures an Engine.
type Option func(*Engine)

// WithDuplicatePolicy sets the duplicate transaction id policy.
func WithDuplicatePolicy(policy DuplicatePolicy) Option {
	return func(e *Engine) {
		e.duplicates = policy
	}
}

// Engine applies transactions to client accounts.
type Engine struct {
	accounts     map[ClientID]*Account
	transactions map[TxID]*storedTransaction
	duplicates   DuplicatePolicy
}

// New creates an empty engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		accounts:     make(map[ClientID]*Account),
		transactions: make(map[TxID]*storedTransaction),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Apply validates and applies a single transaction.
func (e *Engine) Apply(tx Transaction) error {
	switch tx.Kind {
	case KindDeposit:
		return e.applyDeposit(tx)
	case KindWithdrawal:
		return e.applyWithdrawal(tx)
	case KindDispute:
		return e.applyDispute(tx)
	case KindResolve:
		return e.applyResolve(tx)
	case KindChargeback:
		return e.applyChargeback(tx)
	default:
		return reject(tx, ErrUnknownKind)
	}
}

// =============================================================================
// MONETARY TRANSACTIONS
// =============================================================================

func (e *Engine) applyDeposit(tx Transaction) error {
	amount, err := e.checkMonetary(tx)
	if err != nil {
		return err
	}

	e.account(tx.Client).deposit(amount)
	e.store(tx, amount)

	return nil
}

func (e *Engine) applyWithdrawal(tx Transaction) error {
	amount, err := e.checkMonetary(tx)
	if err != nil {
		return err
	}

	// An unseen client is checked against an empty account that is only
	// registered once the withdrawal is accepted.
	account, ok := e.accounts[tx.Client]
	if !ok {
		account = newAccount(tx.Client)
	}

	if !account.canWithdraw(amount) {
		return reject(tx, ErrInsufficientFunds)
	}

	account.withdraw(amount)
	e.accounts[tx.Client] = account
	e.store(tx, amount)

	return nil
}

// checkMonetary runs the preconditions shared by deposits and withdrawals.
func (e *Engine) checkMonetary(tx Transaction) (decimal.Decimal, error) {
	if tx.Amount == nil {
		return decimal.Decimal{}, reject(tx, ErrMissingAmount)
	}

	if account, ok := e.accounts[tx.Client]; ok && account.locked {
		return decimal.Decimal{}, reject(tx, ErrAccountLocked)
	}

	if stored, ok := e.transactions[tx.TxID]; ok && !e.canOverwrite(stored, tx) {
		return decimal.Decimal{}, reject(tx, ErrDuplicateTransaction)
	}

	return *tx.Amount, nil
}

func (e *Engine) canOverwrite(stored *storedTransaction, tx Transaction) bool {
	return e.duplicates == DuplicateOverwrite &&
		stored.client == tx.Client &&
		stored.state == stateSettled
}

// account returns the client's account, creating it on first use.
func (e *Engine) account(client ClientID) *Account {
	account, ok := e.accounts[client]
	if !ok {
		account = newAccount(client)
		e.accounts[client] = account
	}

	return account
}

func (e *Engine) store(tx Transaction, amount decimal.Decimal) {
	e.transactions[tx.TxID] = &storedTransaction{
		kind:   tx.Kind,
		client: tx.Client,
		amount: amount,
		state:  stateSettled,
	}
}

// =============================================================================
// DISPUTE PROTOCOL
// =============================================================================

// lookup finds the stored transaction a dispute, resolve or chargeback refers
// to, together with the owning account.
func (e *Engine) lookup(tx Transaction) (*storedTransaction, *Account, error) {
	stored, ok := e.transactions[tx.TxID]
	if !ok {
		return nil, nil, reject(tx, ErrTransactionNotFound)
	}

	if stored.client != tx.Client {
		return nil, nil, reject(tx, ErrClientMismatch)
	}

	account, ok := e.accounts[stored.client]
	if !ok {
		return nil, nil, reject(tx, ErrTransactionNotFound)
	}

	return stored, account, nil
}

func (e *Engine) applyDispute(tx Transaction) error {
	stored, account, err := e.lookup(tx)
	if err != nil {
		return err
	}

	switch stored.state {
	case stateDisputed:
		return reject(tx, ErrAlreadyDisputed)
	case stateChargedBack:
		return reject(tx, ErrChargedBack)
	}

	stored.state = stateDisputed
	account.hold(stored.amount)

	return nil
}

func (e *Engine) applyResolve(tx Transaction) error {
	stored, account, err := e.lookup(tx)
	if err != nil {
		return err
	}

	if stored.state != stateDisputed {
		return reject(tx, ErrNotDisputed)
	}

	stored.state = stateSettled
	account.release(stored.amount)

	return nil
}

func (e *Engine) applyChargeback(tx Transaction) error {
	stored, account, err := e.lookup(tx)
	if err != nil {
		return err
	}

	if stored.state != stateDisputed {
		return reject(tx, ErrNotDisputed)
	}

	stored.state = stateChargedBack
	account.chargeback(stored.amount)

	return nil
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

// Accounts returns every account ever created, ordered by client id.
func (e *Engine) Accounts() []AccountSnapshot {
	snapshots := make([]AccountSnapshot, 0, len(e.accounts))
	for _, account := range e.accounts {
		snapshots = append(snapshots, account.snapshot())
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Client < snapshots[j].Client
	})

	return snapshots
}

// Account returns the snapshot of one client's account.
func (e *Engine) Account(client ClientID) (AccountSnapshot, bool) {
	account, ok := e.accounts[client]
	if !ok {
		return AccountSnapshot{}, false
	}

	return account.snapshot(), true
}

// Transaction returns the stored deposit or withdrawal with the given id.
func (e *Engine) Transaction(id TxID) (StoredSnapshot, bool) {
	stored, ok := e.transactions[id]
	if !ok {
		return StoredSnapshot{}, false
	}

	return stored.snapshot(id), true
}

// Len returns the number of accounts.
func (e *Engine) Len() int {
	return len(e.accounts)
}
