package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger persists ledger entries in PostgreSQL ensuring double-entry balance.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// EnsureAccount guarantees an account exists for the provided code.
func (l *PostgresLedger) EnsureAccount(ctx context.Context, code string) error {
	_, err := l.db.Exec(ctx, `INSERT INTO accounts (id, code) VALUES ($1, $2)
        ON CONFLICT (code) DO NOTHING`, uuid.New(), code)
	return err
}

// Balance returns the summed balance for the specified account code.
func (l *PostgresLedger) Balance(ctx context.Context, code string) (int64, error) {
	var exists bool
	if err := l.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE code = $1)`, code).Scan(&exists); err != nil {
		return 0, err
	}
	if !exists {
		return 0, fmt.Errorf("account %s: %w", code, ErrAccountNotFound)
	}

	const query = `
        SELECT COALESCE(SUM(e.amount), 0)
        FROM entries e
        INNER JOIN accounts a ON a.id = e.account_id
        WHERE a.code = $1`
	var balance int64
	if err := l.db.QueryRow(ctx, query, code).Scan(&balance); err != nil {
		return 0, err
	}
	return balance, nil
}

// Apply records every posting inside one database transaction. Accounts are
// locked in code order so concurrent posting sets cannot deadlock.
func (l *PostgresLedger) Apply(ctx context.Context, kind, clientTxID string, postings []Posting) (ApplyResult, error) {
	if err := checkBalanced(postings); err != nil {
		return ApplyResult{}, err
	}

	codes := make([]string, 0, len(postings))
	for _, p := range postings {
		codes = append(codes, p.AccountCode)
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return ApplyResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	accountIDs, err := lockAccounts(ctx, tx, codes)
	if err != nil {
		return ApplyResult{}, err
	}
	if res, dup, err := existingResult(ctx, tx, kind, clientTxID, accountIDs); err != nil || dup {
		return res, err
	}

	res, err := applyLocked(ctx, tx, kind, clientTxID, postings, accountIDs)
	if err != nil {
		return ApplyResult{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return ApplyResult{}, err
	}
	return res, nil
}

// Sweep moves whatever fromCode holds once both account rows are locked.
func (l *PostgresLedger) Sweep(ctx context.Context, fromCode, toCode, kind, clientTxID string) (TransactionResult, error) {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return TransactionResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	accountIDs, err := lockAccounts(ctx, tx, []string{fromCode, toCode})
	if err != nil {
		return TransactionResult{}, err
	}
	if res, dup, err := existingResult(ctx, tx, kind, clientTxID, accountIDs); err != nil || dup {
		return TransactionResult{TransactionID: res.TransactionID, FromBalance: res.Balances[fromCode], ToBalance: res.Balances[toCode]}, err
	}

	amount, err := balanceForAccount(ctx, tx, accountIDs[fromCode])
	if err != nil {
		return TransactionResult{}, err
	}
	if amount < 0 {
		amount = 0
	}
	res, err := applyLocked(ctx, tx, kind, clientTxID, transferPostings(fromCode, toCode, amount), accountIDs)
	if err != nil {
		return TransactionResult{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return TransactionResult{}, err
	}
	return TransactionResult{
		TransactionID: res.TransactionID,
		Amount:        amount,
		FromBalance:   res.Balances[fromCode],
		ToBalance:     res.Balances[toCode],
	}, nil
}

// lockAccounts takes FOR UPDATE row locks in sorted code order.
func lockAccounts(ctx context.Context, tx pgx.Tx, codes []string) (map[string]uuid.UUID, error) {
	sorted := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		sorted = append(sorted, code)
	}
	sort.Strings(sorted)

	ids := make(map[string]uuid.UUID, len(sorted))
	for _, code := range sorted {
		id, err := accountIDForCode(ctx, tx, code)
		if err != nil {
			return nil, err
		}
		ids[code] = id
	}
	return ids, nil
}

// existingResult reports whether (kind, clientTxID) was already committed and,
// if so, the current balances of the locked accounts.
func existingResult(ctx context.Context, tx pgx.Tx, kind, clientTxID string, accountIDs map[string]uuid.UUID) (ApplyResult, bool, error) {
	const existingTxQuery = `SELECT id FROM transactions WHERE client_tx_id = $1 AND kind = $2`
	var existingTxID uuid.UUID
	err := tx.QueryRow(ctx, existingTxQuery, clientTxID, kind).Scan(&existingTxID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ApplyResult{}, false, nil
	}
	if err != nil {
		return ApplyResult{}, false, err
	}
	res := ApplyResult{TransactionID: existingTxID.String(), Balances: make(map[string]int64, len(accountIDs))}
	for code, id := range accountIDs {
		bal, err := balanceForAccount(ctx, tx, id)
		if err != nil {
			return ApplyResult{}, false, err
		}
		res.Balances[code] = bal
	}
	return res, true, ErrDuplicateTransaction
}

// applyLocked checks the resulting balances and writes the transaction and
// its entries. The accounts must already be locked by tx.
func applyLocked(ctx context.Context, tx pgx.Tx, kind, clientTxID string, postings []Posting, accountIDs map[string]uuid.UUID) (ApplyResult, error) {
	deltas := make(map[string]int64, len(postings))
	for _, p := range postings {
		deltas[p.AccountCode] += p.Amount
	}

	balances := make(map[string]int64, len(deltas))
	for code, delta := range deltas {
		bal, err := balanceForAccount(ctx, tx, accountIDs[code])
		if err != nil {
			return ApplyResult{}, err
		}
		next := bal + delta
		if next < 0 && !isSuspense(code) {
			return ApplyResult{}, ErrInsufficientFunds
		}
		balances[code] = next
	}

	txID := uuid.New()
	if _, err := tx.Exec(ctx, `INSERT INTO transactions (id, client_tx_id, kind, status) VALUES ($1, $2, $3, $4)`, txID, clientTxID, kind, StatusCompleted); err != nil {
		return ApplyResult{}, err
	}
	for _, p := range postings {
		if _, err := tx.Exec(ctx, `INSERT INTO entries (id, transaction_id, account_id, amount) VALUES ($1, $2, $3, $4)`, uuid.New(), txID, accountIDs[p.AccountCode], p.Amount); err != nil {
			return ApplyResult{}, err
		}
	}
	return ApplyResult{TransactionID: txID.String(), Balances: balances}, nil
}

// Transfer records a balanced posting between two accounts.
func (l *PostgresLedger) Transfer(ctx context.Context, fromCode, toCode, kind, clientTxID string, amount int64) (TransactionResult, error) {
	if amount <= 0 {
		return TransactionResult{}, ErrInvalidAmount
	}
	res, err := l.Apply(ctx, kind, clientTxID, transferPostings(fromCode, toCode, amount))
	if err != nil && !errors.Is(err, ErrDuplicateTransaction) {
		return TransactionResult{}, err
	}
	return TransactionResult{
		TransactionID: res.TransactionID,
		Amount:        amount,
		FromBalance:   res.Balances[fromCode],
		ToBalance:     res.Balances[toCode],
	}, err
}

// Deposit credits a wallet with funds arriving from outside the ledger.
func (l *PostgresLedger) Deposit(ctx context.Context, walletCode, clientTxID string, amount int64) (FundingResult, error) {
	if amount <= 0 {
		return FundingResult{}, ErrInvalidAmount
	}
	res, err := l.Apply(ctx, KindDeposit, clientTxID, transferPostings(ExternalSuspenseAccountCode, walletCode, amount))
	if err != nil && !errors.Is(err, ErrDuplicateTransaction) {
		return FundingResult{}, err
	}
	return FundingResult{TransactionID: res.TransactionID, WalletBalance: res.Balances[walletCode], Status: StatusCompleted}, err
}

// Withdraw debits a wallet for funds leaving the ledger.
func (l *PostgresLedger) Withdraw(ctx context.Context, walletCode, clientTxID string, amount int64) (FundingResult, error) {
	if amount <= 0 {
		return FundingResult{}, ErrInvalidAmount
	}
	res, err := l.Apply(ctx, KindWithdraw, clientTxID, transferPostings(walletCode, ExternalSuspenseAccountCode, amount))
	if err != nil && !errors.Is(err, ErrDuplicateTransaction) {
		return FundingResult{}, err
	}
	return FundingResult{TransactionID: res.TransactionID, WalletBalance: res.Balances[walletCode], Status: StatusCompleted}, err
}

func accountIDForCode(ctx context.Context, tx pgx.Tx, code string) (uuid.UUID, error) {
	const query = `SELECT id FROM accounts WHERE code = $1 FOR UPDATE`
	var id uuid.UUID
	if err := tx.QueryRow(ctx, query, code).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("account %s: %w", code, ErrAccountNotFound)
		}
		return uuid.Nil, err
	}
	return id, nil
}

func balanceForAccount(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (int64, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) FROM entries WHERE account_id = $1`
	var balance int64
	if err := tx.QueryRow(ctx, query, accountID).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return balance, nil
}
