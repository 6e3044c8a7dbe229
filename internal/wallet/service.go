package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/wager_bank/internal/ledger"
)

const (
	statusActive = "active"
)

// Service exposes wallet operations backed by the ledger.
type Service struct {
	repo   Repository
	ledger ledger.Ledger
}

// NewService builds a wallet service instance.
func NewService(repo Repository, ledger ledger.Ledger) *Service {
	return &Service{repo: repo, ledger: ledger}
}

// Create provisions a wallet and associated ledger account for the owner.
func (s *Service) Create(ctx context.Context, ownerID string) (Wallet, error) {
	if _, err := uuid.Parse(ownerID); err != nil {
		return Wallet{}, fmt.Errorf("invalid owner id: %w", err)
	}

	walletID := uuid.New().String()
	accountCode := AccountCode(walletID)

	if err := s.ledger.EnsureAccount(ctx, accountCode); err != nil {
		return Wallet{}, err
	}

	wallet := Wallet{
		ID:          walletID,
		OwnerID:     ownerID,
		AccountCode: accountCode,
		Status:      statusActive,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, wallet); err != nil {
		return Wallet{}, err
	}

	return wallet, nil
}

// Get retrieves wallet metadata.
func (s *Service) Get(ctx context.Context, id string) (Wallet, error) {
	return s.repo.Get(ctx, id)
}

// GetByOwner retrieves the wallet owned by the given user.
func (s *Service) GetByOwner(ctx context.Context, ownerID string) (Wallet, error) {
	return s.repo.GetByOwner(ctx, ownerID)
}

// Balance returns the ledger balance for the wallet.
func (s *Service) Balance(ctx context.Context, id string) (Balance, error) {
	wallet, err := s.repo.Get(ctx, id)
	if err != nil {
		return Balance{}, err
	}
	amount, err := s.ledger.Balance(ctx, wallet.AccountCode)
	if err != nil {
		return Balance{}, err
	}
	return Balance{WalletID: wallet.ID, Amount: amount, AsOf: time.Now().UTC()}, nil
}

// AccountCode is the ledger account backing a wallet.
func AccountCode(walletID string) string {
	return fmt.Sprintf("wallet:%s", walletID)
}
