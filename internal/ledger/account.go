package ledger

import "github.com/shopspring/decimal"

// Account is the balance state of one client. Total is derived from
// available and held so the two can never disagree.
type Account struct {
	client    ClientID
	available decimal.Decimal
	held      decimal.Decimal
	locked    bool
}

func newAccount(client ClientID) *Account {
	return &Account{client: client}
}

// Total returns available + held.
func (a *Account) Total() decimal.Decimal {
	return a.available.Add(a.held)
}

func (a *Account) deposit(amount decimal.Decimal) {
	a.available = a.available.Add(amount)
}

// canWithdraw reports whether amount is covered by available funds.
func (a *Account) canWithdraw(amount decimal.Decimal) bool {
	return a.available.GreaterThanOrEqual(amount)
}

func (a *Account) withdraw(amount decimal.Decimal) {
	a.available = a.available.Sub(amount)
}

func (a *Account) hold(amount decimal.Decimal) {
	a.available = a.available.Sub(amount)
	a.held = a.held.Add(amount)
}

func (a *Account) release(amount decimal.Decimal) {
	a.held = a.held.Sub(amount)
	a.available = a.available.Add(amount)
}

// chargeback drops held funds from the system and freezes the account.
func (a *Account) chargeback(amount decimal.Decimal) {
	a.held = a.held.Sub(amount)
	a.locked = true
}

// AccountSnapshot is the externally visible state of an account.
type AccountSnapshot struct {
	Client    ClientID
	Available decimal.Decimal
	Held      decimal.Decimal
	Total     decimal.Decimal
	Locked    bool
}

func (a *Account) snapshot() AccountSnapshot {
	return AccountSnapshot{
		Client:    a.client,
		Available: a.available,
		Held:      a.held,
		Total:     a.Total(),
		Locked:    a.locked,
	}
}
