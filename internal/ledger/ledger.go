package ledger

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrInsufficientFunds occurs when a posting would leave a non-suspense
	// account with a negative balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicateTransaction indicates the provided client transaction identifier
	// already exists and therefore the operation should be treated as idempotent.
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrAccountNotFound is returned when a posting references an unknown account.
	ErrAccountNotFound = errors.New("account not found")

	// ErrUnbalancedPostings rejects posting sets whose amounts do not sum to zero.
	ErrUnbalancedPostings = errors.New("postings are not balanced")

	// ErrInvalidAmount rejects non-positive transfer amounts.
	ErrInvalidAmount = errors.New("amount must be positive")
)

const (
	// StatusCompleted represents a committed transaction.
	StatusCompleted = "completed"
	// ExternalSuspenseAccountCode parks funds entering or leaving the system.
	ExternalSuspenseAccountCode = "suspense:external"

	KindDeposit  = "deposit"
	KindWithdraw = "withdraw"
)

// Posting is one signed balance movement inside a transaction.
type Posting struct {
	AccountCode string
	Amount      int64
}

// ApplyResult captures the outcome of an atomic posting set. Balances holds
// the post-commit balance of every account touched.
type ApplyResult struct {
	TransactionID string
	Balances      map[string]int64
}

// TransactionResult captures the outcome of a two-party transfer. Amount is
// what actually moved, which for Sweep is only known at commit time.
type TransactionResult struct {
	TransactionID string
	Amount        int64
	FromBalance   int64
	ToBalance     int64
}

// FundingResult captures the outcome of an external deposit or withdrawal.
type FundingResult struct {
	TransactionID string
	WalletBalance int64
	Status        string
}

// Ledger defines the contract implemented by ledger backends (e.g. Postgres).
type Ledger interface {
	EnsureAccount(ctx context.Context, code string) error
	Balance(ctx context.Context, code string) (int64, error)
	// Apply commits every posting or none of them.
	Apply(ctx context.Context, kind, clientTxID string, postings []Posting) (ApplyResult, error)
	Transfer(ctx context.Context, fromCode, toCode, kind, clientTxID string, amount int64) (TransactionResult, error)
	// Sweep moves the entire balance of fromCode to toCode. The balance is
	// read and moved in the same critical section.
	Sweep(ctx context.Context, fromCode, toCode, kind, clientTxID string) (TransactionResult, error)
	Deposit(ctx context.Context, walletCode, clientTxID string, amount int64) (FundingResult, error)
	Withdraw(ctx context.Context, walletCode, clientTxID string, amount int64) (FundingResult, error)
}

func isSuspense(code string) bool {
	return strings.HasPrefix(code, "suspense:")
}

func txKey(kind, clientTxID string) string {
	return kind + ":" + clientTxID
}

func checkBalanced(postings []Posting) error {
	if len(postings) == 0 {
		return ErrUnbalancedPostings
	}
	var sum int64
	for _, p := range postings {
		if p.AccountCode == "" {
			return ErrAccountNotFound
		}
		sum += p.Amount
	}
	if sum != 0 {
		return ErrUnbalancedPostings
	}
	return nil
}

func transferPostings(fromCode, toCode string, amount int64) []Posting {
	return []Posting{
		{AccountCode: fromCode, Amount: -amount},
		{AccountCode: toCode, Amount: amount},
	}
}
