package ledger

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()

	d, err := decimal.NewFromString(s)
	require.NoError(t, err)

	return d
}

func assertBalances(t *testing.T, e *Engine, client ClientID, available, held, total string, locked bool) {
	t.Helper()

	acc, ok := e.Account(client)
	require.True(t, ok, "account %d not found", client)

	assert.True(t, dec(t, available).Equal(acc.Available), "available: want %s got %s", available, acc.Available)
	assert.True(t, dec(t, held).Equal(acc.Held), "held: want %s got %s", held, acc.Held)
	assert.True(t, dec(t, total).Equal(acc.Total), "total: want %s got %s", total, acc.Total)
	assert.Equal(t, locked, acc.Locked)
}

// ---------------------------------------------------------------------------
// Deposits and withdrawals
// ---------------------------------------------------------------------------

func TestDepositCreatesAccount(t *testing.T) {
	e := New()

	require.NoError(t, e.Apply(Deposit(1, 1, dec(t, "10.0"))))

	assertBalances(t, e, 1, "10.0", "0", "10.0", false)
	assert.Equal(t, 1, e.Len())
}

func TestDepositThenWithdrawSameAmountReturnsToZero(t *testing.T) {
	e := New()

	require.NoError(t, e.Apply(Deposit(1, 1, dec(t, "2.5"))))
	require.NoError(t, e.Apply(Withdrawal(1, 2, dec(t, "2.5"))))

	assertBalances(t, e, 1, "0", "0", "0", false)
}

func TestWithdrawalInsufficientFundsLeavesAccountUnchanged(t *testing.T) {
	e := New()

	require.NoError(t, e.Apply(Deposit(2, 2, dec(t, "5.0"))))

	err := e.Apply(Withdrawal(2, 3, dec(t, "10.0")))
	require.ErrorIs(t, err, ErrInsufficientFunds)

	assertBalances(t, e, 2, "5.0", "0", "5.0", false)

	_, stored := e.Transaction(3)
	assert.False(t, stored, "rejected withdrawal must not be stored")
}

func TestWithdrawalFromUnknownClientIsRejectedWithoutCreatingAccount(t *testing.T) {
	e := New()

	err := e.Apply(Withdrawal(9, 1, dec(t, "1")))
	require.ErrorIs(t, err, ErrInsufficientFunds)

	_, ok := e.Account(9)
	assert.False(t, ok)
	assert.Empty(t, e.Accounts())
}

func TestMissingAmount(t *testing.T) {
	for _, kind := range []Kind{KindDeposit, KindWithdrawal} {
		t.Run(kind.String(), func(t *testing.T) {
			e := New()

			err := e.Apply(Transaction{Kind: kind, Client: 1, TxID: 1})
			require.ErrorIs(t, err, ErrMissingAmount)
			assert.Empty(t, e.Accounts())
		})
	}
}

func TestDuplicateTransactionIDRejected(t *testing.T) {
	e := New()

	require.NoError(t, e.Apply(Deposit(1, 1, dec(t, "10"))))

	tests := []struct {
		name string
		tx   Transaction
	}{
		{name: "deposit same client", tx: Deposit(1, 1, dec(t, "3"))},
		{name: "deposit other client", tx: Deposit(2, 1, dec(t, "3"))},
		{name: "withdrawal same client", tx: Withdrawal(1, 1, dec(t, "3"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.Apply(tt.tx)
			require.ErrorIs(t, err, ErrDuplicateTransaction)
		})
	}

	assertBalances(t, e, 1, "10", "0", "10", false)
	_, ok := e.Account(2)
	assert.False(t, ok)
}

func TestDuplicateOverwritePolicy(t *testing.T) {
	e := New(WithDuplicatePolicy(DuplicateOverwrite))

	require.NoError(t, e.Apply(Deposit(1, 1, dec(t, "10"))))
	require.NoError(t, e.Apply(Deposit(1, 1, dec(t, "4"))))

	assertBalances(t, e, 1, "14", "0", "14", false)

	stored, ok := e.Transaction(1)
	require.True(t, ok)
	assert.True(t, dec(t, "4").Equal(stored.Amount))

	// Cross-client reuse is still a duplicate.
	require.ErrorIs(t, e.Apply(Deposit(2, 1, dec(t, "1"))), ErrDuplicateTransaction)

	// A disputed record cannot be replaced.
	require.NoError(t, e.Apply(Dispute(1, 1)))
	require.ErrorIs(t, e.Apply(Deposit(1, 1, dec(t, "1"))), ErrDuplicateTransaction)
	assertBalances(t, e, 1, "10", "4", "14", false)
}

// ---------------------------------------------------------------------------
// Dispute protocol
// ---------------------------------------------------------------------------

func TestDisputeResolveRoundTrip(t *testing.T) {
	e := New()

	require.NoError(t, e.Apply(Deposit(1, 1, dec(t, "10.0"))))
	require.NoError(t, e.Apply(Deposit(1, 2, dec(t, "5.5"))))

	before, _ := e.Account(1)

	require.NoError(t, e.Apply(Dispute(1, 1)))
	assertBalances(t, e, 1, "5.5", "10.0", "15.5", false)

	stored, _ := e.Transaction(1)
	assert.True(t, stored.Disputed)

	require.NoError(t, e.Apply(Resolve(1, 1)))

	after, _ := e.Account(1)
	assert.True(t, before.Available.Equal(after.Available))
	assert.True(t, before.Held.Equal(after.Held))
	assert.True(t, before.Total.Equal(after.Total))
	assert.False(t, after.Locked)

	stored, _ = e.Transaction(1)
	assert.False(t, stored.Disputed)
}

func TestDisputeThenChargebackLocksAccount(t *testing.T) {
	e := New()

	require.NoError(t, e.Apply(Deposit(1, 1, dec(t, "10.0"))))
	assertBalances(t, e, 1, "10.0", "0", "10.0", false)

	require.NoError(t, e.Apply(Dispute(1, 1)))
	assertBalances(t, e, 1, "0", "10.0", "10.0", false)

	require.NoError(t, e.Apply(Chargeback(1, 1)))
	assertBalances(t, e, 1, "0", "0", "0", true)

	require.ErrorIs(t, e.Apply(Deposit(1, 2, dec(t, "1"))), ErrAccountLocked)
	require.ErrorIs(t, e.Apply(Withdrawal(1, 3, dec(t, "0"))), ErrAccountLocked)
	assertBalances(t, e, 1, "0", "0", "0", true)

	stored, _ := e.Transaction(1)
	assert.True(t, stored.ChargedBack)
	assert.False(t, stored.Disputed)
}

func TestChargebackReducesTotalByDisputedAmount(t *testing.T) {
	e := New()

	require.NoError(t, e.Apply(Deposit(3, 1, dec(t, "7.25"))))
	require.NoError(t, e.Apply(Deposit(3, 2, dec(t, "2.75"))))
	require.NoError(t, e.Apply(Dispute(3, 2)))
	require.NoError(t, e.Apply(Chargeback(3, 2)))

	assertBalances(t, e, 3, "7.25", "0", "7.25", true)
}

func TestDisputeProtocolRejections(t *testing.T) {
	tests := []struct {
		name    string
		setup   []Transaction
		tx      Transaction
		wantErr error
	}{
		{
			name:    "dispute unknown transaction",
			tx:      Dispute(1, 42),
			wantErr: ErrTransactionNotFound,
		},
		{
			name:    "resolve unknown transaction",
			tx:      Resolve(1, 42),
			wantErr: ErrTransactionNotFound,
		},
		{
			name:    "chargeback unknown transaction",
			tx:      Chargeback(1, 42),
			wantErr: ErrTransactionNotFound,
		},
		{
			name:    "dispute by another client",
			setup:   []Transaction{Deposit(1, 1, decimal.NewFromInt(5))},
			tx:      Dispute(2, 1),
			wantErr: ErrClientMismatch,
		},
		{
			name:    "dispute twice",
			setup:   []Transaction{Deposit(1, 1, decimal.NewFromInt(5)), Dispute(1, 1)},
			tx:      Dispute(1, 1),
			wantErr: ErrAlreadyDisputed,
		},
		{
			name:    "resolve without dispute",
			setup:   []Transaction{Deposit(1, 1, decimal.NewFromInt(5))},
			tx:      Resolve(1, 1),
			wantErr: ErrNotDisputed,
		},
		{
			name:    "chargeback without dispute",
			setup:   []Transaction{Deposit(1, 1, decimal.NewFromInt(5))},
			tx:      Chargeback(1, 1),
			wantErr: ErrNotDisputed,
		},
		{
			name:    "resolve after resolve",
			setup:   []Transaction{Deposit(1, 1, decimal.NewFromInt(5)), Dispute(1, 1), Resolve(1, 1)},
			tx:      Resolve(1, 1),
			wantErr: ErrNotDisputed,
		},
		{
			name:    "dispute after chargeback",
			setup:   []Transaction{Deposit(1, 1, decimal.NewFromInt(5)), Dispute(1, 1), Chargeback(1, 1)},
			tx:      Dispute(1, 1),
			wantErr: ErrChargedBack,
		},
		{
			name:    "chargeback after chargeback",
			setup:   []Transaction{Deposit(1, 1, decimal.NewFromInt(5)), Dispute(1, 1), Chargeback(1, 1)},
			tx:      Chargeback(1, 1),
			wantErr: ErrNotDisputed,
		},
		{
			name:    "dispute of a rejected withdrawal",
			setup:   []Transaction{Deposit(1, 1, decimal.NewFromInt(5)), Withdrawal(1, 2, decimal.NewFromInt(50))},
			tx:      Dispute(1, 2),
			wantErr: ErrTransactionNotFound,
		},
		{
			name:    "unknown kind",
			tx:      Transaction{Kind: Kind(99), Client: 1, TxID: 1},
			wantErr: ErrUnknownKind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New()
			for _, tx := range tt.setup {
				_ = e.Apply(tx)
			}

			before := e.Accounts()

			err := e.Apply(tt.tx)
			require.ErrorIs(t, err, tt.wantErr)

			var rejection *RejectionError
			require.True(t, errors.As(err, &rejection))
			assert.Equal(t, tt.tx.Kind, rejection.Kind)
			assert.Equal(t, tt.tx.TxID, rejection.TxID)

			assert.Equal(t, before, e.Accounts(), "rejection must not mutate accounts")
		})
	}
}

func TestDisputeOnLockedAccountIsAllowed(t *testing.T) {
	e := New()

	require.NoError(t, e.Apply(Deposit(1, 1, decimal.NewFromInt(10))))
	require.NoError(t, e.Apply(Deposit(1, 2, decimal.NewFromInt(3))))
	require.NoError(t, e.Apply(Dispute(1, 1)))
	require.NoError(t, e.Apply(Chargeback(1, 1)))

	require.NoError(t, e.Apply(Dispute(1, 2)))
	assertBalances(t, e, 1, "0", "3", "3", true)
}

func TestDisputedWithdrawalHoldsItsAmount(t *testing.T) {
	e := New()

	require.NoError(t, e.Apply(Deposit(1, 1, decimal.NewFromInt(10))))
	require.NoError(t, e.Apply(Withdrawal(1, 2, decimal.NewFromInt(4))))
	require.NoError(t, e.Apply(Dispute(1, 2)))

	assertBalances(t, e, 1, "2", "4", "6", false)
}

// ---------------------------------------------------------------------------
// Snapshots and invariants
// ---------------------------------------------------------------------------

func TestAccountsSortedByClient(t *testing.T) {
	e := New()

	for _, client := range []ClientID{7, 3, 65535, 1} {
		require.NoError(t, e.Apply(Deposit(client, TxID(client), decimal.NewFromInt(1))))
	}

	accounts := e.Accounts()
	require.Len(t, accounts, 4)

	got := make([]ClientID, 0, len(accounts))
	for _, acc := range accounts {
		got = append(got, acc.Client)
	}

	assert.Equal(t, []ClientID{1, 3, 7, 65535}, got)
}

func TestDecimalArithmeticIsExact(t *testing.T) {
	e := New()

	for i := 1; i <= 10; i++ {
		require.NoError(t, e.Apply(Deposit(1, TxID(i), dec(t, "0.1"))))
	}

	assertBalances(t, e, 1, "1", "0", "1", false)
}

func TestTotalInvariantHoldsForRandomHistories(t *testing.T) {
	rng := rand.New(rand.NewSource(20240101))
	kinds := []Kind{KindDeposit, KindWithdrawal, KindDispute, KindResolve, KindChargeback}

	e := New()
	nextID := TxID(1)

	for i := 0; i < 5000; i++ {
		kind := kinds[rng.Intn(len(kinds))]
		client := ClientID(rng.Intn(5) + 1)

		tx := Transaction{Kind: kind, Client: client}
		if kind.IsMonetary() {
			tx.TxID = nextID
			nextID++

			amount := decimal.New(rng.Int63n(100000), -4)
			tx.Amount = &amount
		} else {
			tx.TxID = TxID(rng.Intn(int(nextID)) + 1)
		}

		before := e.Accounts()
		if err := e.Apply(tx); err != nil {
			assert.Equal(t, before, e.Accounts(), "rejected %v mutated state", tx)
		}

		for _, acc := range e.Accounts() {
			require.True(t, acc.Total.Equal(acc.Available.Add(acc.Held)),
				"client %d: total %s != available %s + held %s", acc.Client, acc.Total, acc.Available, acc.Held)
		}
	}
}

func TestReason(t *testing.T) {
	e := New()

	err := e.Apply(Dispute(1, 1))
	assert.Equal(t, "transaction_not_found", Reason(err))
	assert.Equal(t, "other", Reason(errors.New("boom")))
}
