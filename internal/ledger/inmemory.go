package ledger

import (
	"context"
	"sync"
)

type inMemoryLedger struct {
	mu           sync.RWMutex
	balances     map[string]int64
	transactions map[string]ApplyResult
}

// NewInMemory creates a concurrency-safe in-memory ledger useful for unit tests
// and development environments.
func NewInMemory() Ledger {
	return &inMemoryLedger{
		balances:     map[string]int64{ExternalSuspenseAccountCode: 0},
		transactions: make(map[string]ApplyResult),
	}
}

func (l *inMemoryLedger) EnsureAccount(_ context.Context, code string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.balances[code]; !exists {
		l.balances[code] = 0
	}
	return nil
}

func (l *inMemoryLedger) Balance(_ context.Context, code string) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	balance, exists := l.balances[code]
	if !exists {
		return 0, ErrAccountNotFound
	}
	return balance, nil
}

func (l *inMemoryLedger) Apply(_ context.Context, kind, clientTxID string, postings []Posting) (ApplyResult, error) {
	if err := checkBalanced(postings); err != nil {
		return ApplyResult{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := txKey(kind, clientTxID)
	if res, exists := l.transactions[key]; exists {
		return res, ErrDuplicateTransaction
	}
	return l.applyLocked(key, postings)
}

// applyLocked stages every mutation before touching the live map. l.mu must
// be held.
func (l *inMemoryLedger) applyLocked(key string, postings []Posting) (ApplyResult, error) {
	staged := make(map[string]int64, len(postings))
	for _, p := range postings {
		current, ok := staged[p.AccountCode]
		if !ok {
			current, ok = l.balances[p.AccountCode]
			if !ok {
				return ApplyResult{}, ErrAccountNotFound
			}
		}
		staged[p.AccountCode] = current + p.Amount
	}
	for code, balance := range staged {
		if balance < 0 && !isSuspense(code) {
			return ApplyResult{}, ErrInsufficientFunds
		}
	}

	res := ApplyResult{TransactionID: key, Balances: make(map[string]int64, len(staged))}
	for code, balance := range staged {
		l.balances[code] = balance
		res.Balances[code] = balance
	}
	l.transactions[key] = res
	return res, nil
}

func (l *inMemoryLedger) Sweep(_ context.Context, fromCode, toCode, kind, clientTxID string) (TransactionResult, error) {
	if fromCode == "" || toCode == "" {
		return TransactionResult{}, ErrAccountNotFound
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := txKey(kind, clientTxID)
	if res, exists := l.transactions[key]; exists {
		return TransactionResult{TransactionID: res.TransactionID, FromBalance: res.Balances[fromCode], ToBalance: res.Balances[toCode]}, ErrDuplicateTransaction
	}
	amount, ok := l.balances[fromCode]
	if !ok {
		return TransactionResult{}, ErrAccountNotFound
	}
	if amount < 0 {
		amount = 0
	}
	res, err := l.applyLocked(key, transferPostings(fromCode, toCode, amount))
	if err != nil {
		return TransactionResult{}, err
	}
	return TransactionResult{
		TransactionID: res.TransactionID,
		Amount:        amount,
		FromBalance:   res.Balances[fromCode],
		ToBalance:     res.Balances[toCode],
	}, nil
}

func (l *inMemoryLedger) Transfer(ctx context.Context, fromCode, toCode, kind, clientTxID string, amount int64) (TransactionResult, error) {
	if amount <= 0 {
		return TransactionResult{}, ErrInvalidAmount
	}
	res, err := l.Apply(ctx, kind, clientTxID, transferPostings(fromCode, toCode, amount))
	if err != nil && res.TransactionID == "" {
		return TransactionResult{}, err
	}
	return TransactionResult{
		TransactionID: res.TransactionID,
		Amount:        amount,
		FromBalance:   res.Balances[fromCode],
		ToBalance:     res.Balances[toCode],
	}, err
}

func (l *inMemoryLedger) Deposit(ctx context.Context, walletCode, clientTxID string, amount int64) (FundingResult, error) {
	if amount <= 0 {
		return FundingResult{}, ErrInvalidAmount
	}
	res, err := l.Apply(ctx, KindDeposit, clientTxID, transferPostings(ExternalSuspenseAccountCode, walletCode, amount))
	if err != nil && res.TransactionID == "" {
		return FundingResult{}, err
	}
	return FundingResult{TransactionID: res.TransactionID, WalletBalance: res.Balances[walletCode], Status: StatusCompleted}, err
}

func (l *inMemoryLedger) Withdraw(ctx context.Context, walletCode, clientTxID string, amount int64) (FundingResult, error) {
	if amount <= 0 {
		return FundingResult{}, ErrInvalidAmount
	}
	res, err := l.Apply(ctx, KindWithdraw, clientTxID, transferPostings(walletCode, ExternalSuspenseAccountCode, amount))
	if err != nil && res.TransactionID == "" {
		return FundingResult{}, err
	}
	return FundingResult{TransactionID: res.TransactionID, WalletBalance: res.Balances[walletCode], Status: StatusCompleted}, err
}
