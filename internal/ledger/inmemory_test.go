package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestInMemoryLedger_TransferMaintainsBalance(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	if err := l.EnsureAccount(ctx, "wallet:a"); err != nil {
		t.Fatalf("ensure account a: %v", err)
	}
	if err := l.EnsureAccount(ctx, "bank:b"); err != nil {
		t.Fatalf("ensure account b: %v", err)
	}

	SeedBalance(l, "wallet:a", 10_000)

	res, err := l.Transfer(ctx, "wallet:a", "bank:b", "bank_init", "client-1", 1_500)
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	if res.FromBalance != 8_500 {
		t.Fatalf("expected from balance 8500, got %d", res.FromBalance)
	}
	if res.ToBalance != 1_500 {
		t.Fatalf("expected to balance 1500, got %d", res.ToBalance)
	}

	ledgerImpl := l.(*inMemoryLedger)
	total := ledgerImpl.balances["wallet:a"] + ledgerImpl.balances["bank:b"]
	if total != 10_000 {
		t.Fatalf("ledger not balanced, total=%d", total)
	}
}

func TestInMemoryLedger_DuplicateTransaction(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	l.EnsureAccount(ctx, "wallet:a")
	l.EnsureAccount(ctx, "wallet:b")
	SeedBalance(l, "wallet:a", 5_000)

	first, err := l.Transfer(ctx, "wallet:a", "wallet:b", "p2p", "dup", 500)
	if err != nil {
		t.Fatalf("initial transfer failed: %v", err)
	}
	again, err := l.Transfer(ctx, "wallet:a", "wallet:b", "p2p", "dup", 500)
	if err != ErrDuplicateTransaction {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if again.TransactionID != first.TransactionID {
		t.Fatalf("expected original transaction id %s, got %s", first.TransactionID, again.TransactionID)
	}
	if bal, _ := l.Balance(ctx, "wallet:a"); bal != 4_500 {
		t.Fatalf("duplicate must not move funds, balance=%d", bal)
	}
}

func TestInMemoryLedger_ConcurrentTransfers(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	l.EnsureAccount(ctx, "wallet:a")
	l.EnsureAccount(ctx, "wallet:b")
	SeedBalance(l, "wallet:a", 100_000)
	ledgerImpl := l.(*inMemoryLedger)

	const workers = 10
	const amount = int64(500)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			txID := fmt.Sprintf("tx-%d", i)
			if _, err := l.Transfer(ctx, "wallet:a", "wallet:b", "p2p", txID, amount); err != nil {
				t.Errorf("transfer %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	total := ledgerImpl.balances["wallet:a"] + ledgerImpl.balances["wallet:b"]
	if total != 100_000 {
		t.Fatalf("ledger not balanced after concurrency, total=%d", total)
	}
}

func TestInMemoryLedger_ApplyIsAllOrNothing(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	l.EnsureAccount(ctx, "bank:1")
	l.EnsureAccount(ctx, "wallet:p")
	SeedBalance(l, "bank:1", 80)
	SeedBalance(l, "wallet:p", 100)

	_, err := l.Apply(ctx, "wager_win", "round-1", []Posting{
		{AccountCode: "bank:1", Amount: -100},
		{AccountCode: "wallet:p", Amount: 100},
	})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	bank, _ := l.Balance(ctx, "bank:1")
	player, _ := l.Balance(ctx, "wallet:p")
	if bank != 80 || player != 100 {
		t.Fatalf("partial effect after failed apply: bank=%d player=%d", bank, player)
	}
}

func TestInMemoryLedger_ApplyRejectsUnbalanced(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	l.EnsureAccount(ctx, "wallet:p")

	if _, err := l.Apply(ctx, "mint", "x", []Posting{{AccountCode: "wallet:p", Amount: 10}}); !errors.Is(err, ErrUnbalancedPostings) {
		t.Fatalf("expected unbalanced error, got %v", err)
	}
	if _, err := l.Apply(ctx, "mint", "y", nil); !errors.Is(err, ErrUnbalancedPostings) {
		t.Fatalf("expected unbalanced error for empty postings, got %v", err)
	}
}

func TestInMemoryLedger_ApplyUnknownAccount(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	l.EnsureAccount(ctx, "wallet:p")
	SeedBalance(l, "wallet:p", 10)

	_, err := l.Apply(ctx, "p2p", "z", []Posting{
		{AccountCode: "wallet:p", Amount: -5},
		{AccountCode: "wallet:missing", Amount: 5},
	})
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected account not found, got %v", err)
	}
	if bal, _ := l.Balance(ctx, "wallet:p"); bal != 10 {
		t.Fatalf("expected untouched balance, got %d", bal)
	}
}

func TestInMemoryLedger_Deposit(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	l.EnsureAccount(ctx, "wallet:a")

	res, err := l.Deposit(ctx, "wallet:a", "airdrop-1", 2_000)
	if err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if res.Status != StatusCompleted {
		t.Fatalf("unexpected status: %s", res.Status)
	}
	if res.WalletBalance != 2_000 {
		t.Fatalf("expected wallet balance 2000, got %d", res.WalletBalance)
	}

	if _, err := l.Deposit(ctx, "wallet:a", "airdrop-1", 2_000); err != ErrDuplicateTransaction {
		t.Fatalf("expected duplicate deposit error, got %v", err)
	}
	suspense, _ := l.Balance(ctx, ExternalSuspenseAccountCode)
	if suspense != -2_000 {
		t.Fatalf("expected suspense -2000, got %d", suspense)
	}
}

func TestInMemoryLedger_Withdraw(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	l.EnsureAccount(ctx, "wallet:a")
	SeedBalance(l, "wallet:a", 5_000)

	res, err := l.Withdraw(ctx, "wallet:a", "cash-out", 1_500)
	if err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	if res.WalletBalance != 3_500 {
		t.Fatalf("expected wallet balance 3500, got %d", res.WalletBalance)
	}

	if _, err := l.Withdraw(ctx, "wallet:a", "cash-out", 1_500); err != ErrDuplicateTransaction {
		t.Fatalf("expected duplicate withdraw error, got %v", err)
	}

	if _, err := l.Withdraw(ctx, "wallet:a", "cash-out-2", 10_000); err != ErrInsufficientFunds {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
}

func TestInMemoryLedger_SweepMovesWholeBalance(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	l.EnsureAccount(ctx, "wallet:p")
	l.EnsureAccount(ctx, "bank:1")
	SeedBalance(l, "wallet:p", 70)
	SeedBalance(l, "bank:1", 1_000)

	// A credit between an earlier balance read and the sweep is still swept.
	if _, err := l.Deposit(ctx, "wallet:p", "late-credit", 30); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	res, err := l.Sweep(ctx, "wallet:p", "bank:1", "wager_drain", "round-1")
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if res.Amount != 100 || res.FromBalance != 0 || res.ToBalance != 1_100 {
		t.Fatalf("unexpected sweep result %+v", res)
	}

	again, err := l.Sweep(ctx, "wallet:p", "bank:1", "wager_drain", "round-1")
	if err != ErrDuplicateTransaction {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if again.TransactionID != res.TransactionID {
		t.Fatalf("expected original transaction id %s, got %s", res.TransactionID, again.TransactionID)
	}

	if _, err := l.Sweep(ctx, "wallet:missing", "bank:1", "wager_drain", "round-2"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected account not found, got %v", err)
	}
}
