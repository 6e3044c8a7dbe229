package wager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/wager_bank/internal/asset"
	"github.com/congo-pay/wager_bank/internal/bank"
	"github.com/congo-pay/wager_bank/internal/ledger"
	"github.com/congo-pay/wager_bank/internal/lock"
	"github.com/congo-pay/wager_bank/internal/metrics"
	"github.com/congo-pay/wager_bank/internal/notification"
	"github.com/congo-pay/wager_bank/internal/wallet"
)

// Banks resolves bank records.
type Banks interface {
	Get(ctx context.Context, id string) (bank.Bank, error)
}

// Assets resolves asset types and holdings.
type Assets interface {
	GetAssetType(ctx context.Context, id string) (asset.AssetType, error)
	Get(ctx context.Context, address string) (asset.Holding, error)
}

// Wallets resolves a player's native wallet.
type Wallets interface {
	GetByOwner(ctx context.Context, ownerID string) (wallet.Wallet, error)
}

// Dependencies wires the settlement engine. Locker, Source, Rounds and
// Logger fall back to in-process defaults when nil.
type Dependencies struct {
	Banks    Banks
	Assets   Assets
	Wallets  Wallets
	Ledger   ledger.Ledger
	Rounds   RoundRepository
	Locker   lock.Locker
	Source   RandomBit
	Metrics  *metrics.Metrics
	Notifier notification.Notifier
	Logger   *slog.Logger
}

// Service admits, validates and settles wagers.
type Service struct {
	banks    Banks
	assets   Assets
	wallets  Wallets
	ledger   ledger.Ledger
	rounds   RoundRepository
	locker   lock.Locker
	source   RandomBit
	metrics  *metrics.Metrics
	notifier notification.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds the settlement engine.
func NewService(deps Dependencies) *Service {
	s := &Service{
		banks:    deps.Banks,
		assets:   deps.Assets,
		wallets:  deps.Wallets,
		ledger:   deps.Ledger,
		rounds:   deps.Rounds,
		locker:   deps.Locker,
		source:   deps.Source,
		metrics:  deps.Metrics,
		notifier: deps.Notifier,
		logger:   deps.Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	if s.rounds == nil {
		s.rounds = NewMemoryRoundRepository()
	}
	if s.locker == nil {
		s.locker = lock.NewKeyedMutex()
	}
	if s.source == nil {
		s.source = ClockSource{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Gamble runs one round: admission, eligibility, then exactly one settlement
// branch committed atomically. The bank and the player's wallet are locked
// for the whole round.
func (s *Service) Gamble(ctx context.Context, input GambleInput) (Round, error) {
	round, err := s.gamble(ctx, input)
	if err != nil {
		s.metrics.SettlementFailed(failureReason(err))
		s.logger.Info("wager rejected",
			slog.String("bank_id", input.BankID),
			slog.String("player_id", input.PlayerID),
			slog.Int64("amount", input.Amount),
			slog.Any("error", err))
		return Round{}, err
	}

	if err := s.rounds.Save(ctx, round); err != nil {
		// Funds have already moved; the round stands even if history is lost.
		s.logger.Error("round history write failed", slog.String("round_id", round.ID), slog.Any("error", err))
	}
	s.metrics.RoundSettled(string(round.Result), round.Transferred)
	s.logSettled(round)
	s.notify(ctx, round)
	return round, nil
}

func (s *Service) gamble(ctx context.Context, input GambleInput) (Round, error) {
	if input.Amount <= 0 {
		return Round{}, ErrInvalidAmount
	}
	if input.Signer == "" || input.Signer != input.PlayerID {
		return Round{}, ErrUnauthorized
	}

	b, err := s.banks.Get(ctx, input.BankID)
	if err != nil {
		return Round{}, err
	}
	assetType, err := s.assets.GetAssetType(ctx, input.AssetTypeID)
	if err != nil {
		return Round{}, err
	}
	player, err := s.wallets.GetByOwner(ctx, input.PlayerID)
	if err != nil {
		return Round{}, fmt.Errorf("player wallet: %w", err)
	}

	unlock, err := lock.Acquire(ctx, s.locker, b.AccountCode, player.AccountCode)
	if err != nil {
		return Round{}, err
	}
	defer func() {
		if err := unlock(); err != nil {
			s.logger.Error("settlement lock release failed", slog.String("bank_id", b.ID), slog.String("player_id", input.PlayerID), slog.Any("error", err))
		}
	}()

	holding, err := s.assets.Get(ctx, input.HoldingAddress)
	if err != nil {
		return Round{}, err
	}
	playerBalance, err := s.ledger.Balance(ctx, player.AccountCode)
	if err != nil {
		return Round{}, err
	}
	bankBalance, err := s.ledger.Balance(ctx, b.AccountCode)
	if err != nil {
		return Round{}, err
	}
	if err := Admit(input.Amount, playerBalance, bankBalance); err != nil {
		return Round{}, err
	}

	round := Round{
		ID:             uuid.NewString(),
		BankID:         b.ID,
		PlayerID:       input.PlayerID,
		HoldingAddress: holding.Address,
		AssetTypeID:    assetType.ID,
		Amount:         input.Amount,
		Eligible:       Validate(holding, assetType, b, input.PlayerID),
		Bit:            NoBit,
	}
	clientTxID := input.ClientTxID
	if clientTxID == "" {
		clientTxID = round.ID
	}

	if !round.Eligible {
		// The whole balance is read and moved inside the ledger, so nothing
		// credited after the admission read survives the drain.
		res, err := s.ledger.Sweep(ctx, player.AccountCode, b.AccountCode, KindDrain, clientTxID)
		if err != nil {
			return Round{}, fmt.Errorf("%w: %s: %w", ErrTransferFailed, KindDrain, err)
		}
		round.Result = ResultDrained
		round.Winner, round.Loser = b.AccountCode, player.AccountCode
		round.Transferred = res.Amount
		round.TransactionID = res.TransactionID
		round.BankBalance = res.ToBalance
		round.PlayerBalance = res.FromBalance
		round.SettledAt = s.now()
		return round, nil
	}

	var kind string
	round.Bit = s.source.Bit()
	if round.Bit == 1 {
		kind = KindLoss
		round.Result = ResultBankWon
		round.Winner, round.Loser = b.AccountCode, player.AccountCode
		round.Transferred = input.Amount
	} else {
		kind = KindWin
		round.Result = ResultPlayerWon
		round.Winner, round.Loser = player.AccountCode, b.AccountCode
		round.Transferred = 2 * input.Amount
	}

	res, err := s.ledger.Apply(ctx, kind, clientTxID, []ledger.Posting{
		{AccountCode: round.Loser, Amount: -round.Transferred},
		{AccountCode: round.Winner, Amount: round.Transferred},
	})
	if err != nil {
		return Round{}, fmt.Errorf("%w: %s: %w", ErrTransferFailed, kind, err)
	}

	round.TransactionID = res.TransactionID
	round.BankBalance = res.Balances[b.AccountCode]
	round.PlayerBalance = res.Balances[player.AccountCode]
	round.SettledAt = s.now()
	return round, nil
}

// GetRound returns a settled round.
func (s *Service) GetRound(ctx context.Context, id string) (Round, error) {
	return s.rounds.Get(ctx, id)
}

// ListByBank returns the newest rounds settled against a bank.
func (s *Service) ListByBank(ctx context.Context, bankID string, limit int) ([]Round, error) {
	if _, err := s.banks.Get(ctx, bankID); err != nil {
		return nil, err
	}
	return s.rounds.ListByBank(ctx, bankID, limit)
}

// ListByPlayer returns the newest rounds played by a player.
func (s *Service) ListByPlayer(ctx context.Context, playerID string, limit int) ([]Round, error) {
	return s.rounds.ListByPlayer(ctx, playerID, limit)
}

func (s *Service) logSettled(round Round) {
	attrs := []any{
		slog.String("round_id", round.ID),
		slog.String("bank_id", round.BankID),
		slog.String("player_id", round.PlayerID),
		slog.String("result", string(round.Result)),
		slog.Int64("amount", round.Amount),
		slog.Int64("transferred", round.Transferred),
	}
	if round.Result == ResultDrained {
		s.logger.Warn("wager.drained", append(attrs, slog.String("holding_address", round.HoldingAddress))...)
	}
	s.logger.Info("wager.settled", attrs...)
}

func (s *Service) notify(ctx context.Context, round Round) {
	if s.notifier == nil {
		return
	}
	msg := notification.Message{
		Kind:        notification.KindRoundSettled,
		Key:         round.BankID,
		Destination: round.PlayerID,
		Body:        fmt.Sprintf("round %s %s, %d transferred", round.ID, round.Result, round.Transferred),
		Data: map[string]any{
			"round_id":       round.ID,
			"bank_id":        round.BankID,
			"player_id":      round.PlayerID,
			"result":         round.Result,
			"amount":         round.Amount,
			"transferred":    round.Transferred,
			"bank_balance":   round.BankBalance,
			"player_balance": round.PlayerBalance,
		},
		OccurredAt: round.SettledAt,
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.Warn("round notification failed", slog.String("round_id", round.ID), slog.Any("error", err))
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrBankBusy):
		return "bank_busy"
	case errors.Is(err, ErrTransferFailed):
		return "transfer_failed"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, bank.ErrNotFound), errors.Is(err, asset.ErrAssetTypeNotFound),
		errors.Is(err, asset.ErrHoldingNotFound), errors.Is(err, wallet.ErrNotFound):
		return "not_found"
	default:
		return "internal"
	}
}
