package funding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/wager_bank/internal/ledger"
	"github.com/congo-pay/wager_bank/internal/lock"
	"github.com/congo-pay/wager_bank/internal/wallet"
)

var (
	// ErrFaucetDisabled rejects deposits when the faucet is switched off.
	ErrFaucetDisabled = errors.New("faucet is disabled")
	// ErrNotOwner rejects withdrawals signed by someone other than the wallet owner.
	ErrNotOwner = errors.New("signer does not own the wallet")
	// ErrInvalidAmount rejects non-positive amounts.
	ErrInvalidAmount = errors.New("amount must be positive")
)

const kindWithdrawReversal = "withdraw_reversal"

// Service moves native funds between the ledger and an external Source.
type Service struct {
	ledger        ledger.Ledger
	wallets       *wallet.Service
	source        Source
	locker        lock.Locker
	faucetEnabled bool
	logger        *slog.Logger
}

// NewService prepares a funding service ensuring the external suspense account exists.
// locker must be the one used for settlement so a wallet being settled is not
// funded or drained concurrently; nil means an in-process lock.
func NewService(ctx context.Context, ledgerBackend ledger.Ledger, wallets *wallet.Service, source Source, locker lock.Locker, faucetEnabled bool, logger *slog.Logger) (*Service, error) {
	if wallets == nil {
		return nil, fmt.Errorf("wallet service is required")
	}
	if source == nil {
		source = StaticSource{}
	}
	if locker == nil {
		locker = lock.NewKeyedMutex()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := ledgerBackend.EnsureAccount(ctx, ledger.ExternalSuspenseAccountCode); err != nil {
		return nil, err
	}
	return &Service{ledger: ledgerBackend, wallets: wallets, source: source, locker: locker, faucetEnabled: faucetEnabled, logger: logger}, nil
}

// DepositInput captures a faucet top-up.
type DepositInput struct {
	WalletID   string
	Amount     int64
	ClientTxID string
}

// WithdrawInput captures a cash-out.
type WithdrawInput struct {
	WalletID    string
	Signer      string
	Destination string
	Amount      int64
	ClientTxID  string
}

// FundingResult represents the domain outcome of a funding operation.
type FundingResult struct {
	TransactionID   string
	Status          string
	WalletBalance   int64
	SourceReference string
	CompletedAt     time.Time
}

// Deposit credits the wallet from the external source. Any wallet may be
// topped up, the way an airdrop can target any account.
func (s *Service) Deposit(ctx context.Context, input DepositInput) (FundingResult, error) {
	if !s.faucetEnabled {
		return FundingResult{}, ErrFaucetDisabled
	}
	if input.Amount <= 0 {
		return FundingResult{}, ErrInvalidAmount
	}
	if input.ClientTxID == "" {
		input.ClientTxID = uuid.NewString()
	}

	w, err := s.wallets.Get(ctx, input.WalletID)
	if err != nil {
		return FundingResult{}, err
	}
	unlock, err := s.locker.Lock(ctx, w.AccountCode)
	if err != nil {
		return FundingResult{}, err
	}
	defer s.release(unlock, w.ID)

	decision, err := s.source.AuthorizeDeposit(ctx, DepositAuthorization{WalletID: w.ID, Amount: input.Amount})
	if err != nil {
		return FundingResult{}, err
	}

	ledgerResult, err := s.ledger.Deposit(ctx, w.AccountCode, input.ClientTxID, input.Amount)
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateTransaction) {
			return toResult(ledgerResult, decision), err
		}
		return FundingResult{}, err
	}
	s.logger.Info("wallet deposit", slog.String("wallet_id", w.ID), slog.Int64("amount", input.Amount), slog.String("reference", decision.Reference))
	return toResult(ledgerResult, decision), nil
}

// Withdraw debits the owner's wallet and pays the amount out through the
// source. A rejected payout is credited back.
func (s *Service) Withdraw(ctx context.Context, input WithdrawInput) (FundingResult, error) {
	if input.Amount <= 0 {
		return FundingResult{}, ErrInvalidAmount
	}
	if strings.TrimSpace(input.Destination) == "" {
		return FundingResult{}, fmt.Errorf("destination is required")
	}
	if input.ClientTxID == "" {
		input.ClientTxID = uuid.NewString()
	}

	w, err := s.wallets.Get(ctx, input.WalletID)
	if err != nil {
		return FundingResult{}, err
	}
	if w.OwnerID != input.Signer {
		return FundingResult{}, ErrNotOwner
	}
	unlock, err := s.locker.Lock(ctx, w.AccountCode)
	if err != nil {
		return FundingResult{}, err
	}
	defer s.release(unlock, w.ID)

	ledgerResult, err := s.ledger.Withdraw(ctx, w.AccountCode, input.ClientTxID, input.Amount)
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateTransaction) {
			return toResult(ledgerResult, AuthorizationDecision{}), err
		}
		return FundingResult{}, err
	}

	decision, err := s.source.AuthorizePayout(ctx, PayoutAuthorization{WalletID: w.ID, Destination: input.Destination, Amount: input.Amount})
	if err != nil {
		_, rerr := s.ledger.Apply(ctx, kindWithdrawReversal, input.ClientTxID, []ledger.Posting{
			{AccountCode: ledger.ExternalSuspenseAccountCode, Amount: -input.Amount},
			{AccountCode: w.AccountCode, Amount: input.Amount},
		})
		if rerr != nil {
			s.logger.Error("withdraw reversal failed", slog.String("wallet_id", w.ID), slog.Any("error", rerr))
		}
		return FundingResult{}, fmt.Errorf("payout rejected: %w", err)
	}
	s.logger.Info("wallet withdrawal", slog.String("wallet_id", w.ID), slog.Int64("amount", input.Amount), slog.String("reference", decision.Reference))
	return toResult(ledgerResult, decision), nil
}

func (s *Service) release(unlock lock.Unlock, walletID string) {
	if err := unlock(); err != nil {
		s.logger.Error("wallet lock release failed", slog.String("wallet_id", walletID), slog.Any("error", err))
	}
}

func toResult(res ledger.FundingResult, decision AuthorizationDecision) FundingResult {
	return FundingResult{
		TransactionID:   res.TransactionID,
		Status:          res.Status,
		WalletBalance:   res.WalletBalance,
		SourceReference: decision.Reference,
		CompletedAt:     time.Now().UTC(),
	}
}
