package bank

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/wager_bank/internal/asset"
	"github.com/congo-pay/wager_bank/internal/ledger"
	"github.com/congo-pay/wager_bank/internal/notification"
	"github.com/congo-pay/wager_bank/internal/wallet"
)

const (
	kindInit         = "bank_init"
	kindInitReversal = "bank_init_reversal"
)

// AssetTypes resolves asset types by identifier.
type AssetTypes interface {
	GetAssetType(ctx context.Context, id string) (asset.AssetType, error)
}

// Wallets resolves the native wallet of an owner.
type Wallets interface {
	GetByOwner(ctx context.Context, ownerID string) (wallet.Wallet, error)
}

// Service creates and funds banks.
type Service struct {
	repo     Repository
	ledger   ledger.Ledger
	assets   AssetTypes
	wallets  Wallets
	notifier notification.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService wires the bank service. A nil notifier disables notifications.
func NewService(repo Repository, led ledger.Ledger, assets AssetTypes, wallets Wallets, notifier notification.Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		ledger:   led,
		assets:   assets,
		wallets:  wallets,
		notifier: notifier,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// InitInput describes a bank creation request.
type InitInput struct {
	Authority          string
	Signer             string
	InitialFunding     int64
	PermittedAssetType string
	ClientTxID         string
}

// Init creates a bank owned by the authority and moves InitialFunding from
// the authority's wallet into the bank's escrow account. The bank record is
// only persisted once the funding transfer has committed.
func (s *Service) Init(ctx context.Context, input InitInput) (Bank, error) {
	if input.Signer == "" || input.Signer != input.Authority {
		return Bank{}, ErrUnauthorized
	}
	if input.InitialFunding <= 0 {
		return Bank{}, ErrInvalidAmount
	}
	if _, err := s.assets.GetAssetType(ctx, input.PermittedAssetType); err != nil {
		return Bank{}, err
	}
	payer, err := s.wallets.GetByOwner(ctx, input.Authority)
	if err != nil {
		return Bank{}, fmt.Errorf("authority wallet: %w", err)
	}

	id := uuid.NewString()
	if input.ClientTxID == "" {
		input.ClientTxID = id
	}
	b := Bank{
		ID:                 id,
		Authority:          input.Authority,
		PermittedAssetType: input.PermittedAssetType,
		AccountCode:        AccountCode(id),
		CreatedAt:          s.now(),
	}

	if err := s.ledger.EnsureAccount(ctx, b.AccountCode); err != nil {
		return Bank{}, err
	}
	if _, err := s.ledger.Transfer(ctx, payer.AccountCode, b.AccountCode, kindInit, input.ClientTxID, input.InitialFunding); err != nil {
		return Bank{}, err
	}
	if err := s.repo.Create(ctx, b); err != nil {
		// Give the funding back so the authority is not charged for a bank
		// that does not exist.
		if _, rerr := s.ledger.Transfer(ctx, b.AccountCode, payer.AccountCode, kindInitReversal, input.ClientTxID, input.InitialFunding); rerr != nil {
			s.logger.Error("bank init reversal failed", "bank_id", b.ID, "error", rerr)
		}
		return Bank{}, err
	}

	s.logger.Info("bank initialized", "bank_id", b.ID, "authority", b.Authority, "permitted_asset_type", b.PermittedAssetType, "funding", input.InitialFunding)
	s.notify(ctx, b, input.InitialFunding)
	return b, nil
}

// Get returns the bank with the given identifier.
func (s *Service) Get(ctx context.Context, id string) (Bank, error) {
	return s.repo.Get(ctx, id)
}

// Balance returns the bank's escrow balance.
func (s *Service) Balance(ctx context.Context, id string) (int64, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	bal, err := s.ledger.Balance(ctx, b.AccountCode)
	if err != nil && errors.Is(err, ledger.ErrAccountNotFound) {
		return 0, nil
	}
	return bal, err
}

func (s *Service) notify(ctx context.Context, b Bank, funding int64) {
	if s.notifier == nil {
		return
	}
	msg := notification.Message{
		Kind:        notification.KindBankInitialized,
		Key:         b.ID,
		Destination: b.Authority,
		Body:        fmt.Sprintf("bank %s funded with %d", b.ID, funding),
		Data:        map[string]any{"bank_id": b.ID, "permitted_asset_type": b.PermittedAssetType, "funding": funding},
		OccurredAt:  b.CreatedAt,
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.Warn("bank notification failed", "bank_id", b.ID, "error", err)
	}
}

// AccountCode is the ledger account holding a bank's escrow.
func AccountCode(bankID string) string {
	return "bank:" + bankID
}
