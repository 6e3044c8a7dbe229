package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/wager_bank/internal/ledger"
	"github.com/congo-pay/wager_bank/internal/lock"
	"github.com/congo-pay/wager_bank/internal/notification"
	"github.com/congo-pay/wager_bank/internal/wallet"
)

const kindNativeTransfer = "native_transfer"

var (
	// ErrNotOwner indicates the signer does not own the source wallet.
	ErrNotOwner = errors.New("signer does not own the source wallet")
	// ErrSameWallet rejects transfers from a wallet to itself.
	ErrSameWallet = errors.New("source and destination wallets are the same")
)

// Service moves native funds between wallets. Every debit is signed by the
// owner of the paying wallet.
type Service struct {
	ledger   ledger.Ledger
	wallets  *wallet.Service
	locker   lock.Locker
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService constructs a transfer service. Both wallets are held through
// locker for the transfer, the same keys a settlement takes. notifier may be
// nil; a nil locker means an in-process lock.
func NewService(led ledger.Ledger, wallets *wallet.Service, locker lock.Locker, notifier notification.Notifier, logger *slog.Logger) *Service {
	if locker == nil {
		locker = lock.NewKeyedMutex()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{ledger: led, wallets: wallets, locker: locker, notifier: notifier, logger: logger}
}

// TransferInput captures a wallet-to-wallet transfer.
type TransferInput struct {
	FromWalletID string
	ToWalletID   string
	Signer       string
	Amount       int64
	ClientTxID   string
}

// TransferResult describes the committed transfer.
type TransferResult struct {
	TransactionID string
	FromBalance   int64
	ToBalance     int64
	CompletedAt   time.Time
}

// Transfer posts a balanced ledger entry between two wallets.
func (s *Service) Transfer(ctx context.Context, input TransferInput) (TransferResult, error) {
	if input.Amount <= 0 {
		return TransferResult{}, ledger.ErrInvalidAmount
	}
	if input.FromWalletID == input.ToWalletID {
		return TransferResult{}, ErrSameWallet
	}
	if input.ClientTxID == "" {
		input.ClientTxID = uuid.NewString()
	}

	from, err := s.wallets.Get(ctx, input.FromWalletID)
	if err != nil {
		return TransferResult{}, err
	}
	if from.OwnerID != input.Signer {
		return TransferResult{}, ErrNotOwner
	}
	to, err := s.wallets.Get(ctx, input.ToWalletID)
	if err != nil {
		return TransferResult{}, err
	}

	unlock, err := lock.Acquire(ctx, s.locker, from.AccountCode, to.AccountCode)
	if err != nil {
		return TransferResult{}, err
	}
	defer func() {
		if err := unlock(); err != nil {
			s.logger.Error("wallet lock release failed", slog.String("from_wallet", from.ID), slog.String("to_wallet", to.ID), slog.Any("error", err))
		}
	}()

	res, err := s.ledger.Transfer(ctx, from.AccountCode, to.AccountCode, kindNativeTransfer, input.ClientTxID, input.Amount)
	if err != nil {
		return TransferResult{}, err
	}

	s.logger.Info("native transfer", slog.String("from_wallet", from.ID), slog.String("to_wallet", to.ID), slog.Int64("amount", input.Amount))
	if s.notifier != nil {
		msg := notification.Message{
			Kind:        notification.KindNativeTransfer,
			Key:         to.ID,
			Destination: to.OwnerID,
			Body:        fmt.Sprintf("received %d from wallet %s", input.Amount, from.ID),
			OccurredAt:  time.Now().UTC(),
		}
		if err := s.notifier.Send(ctx, msg); err != nil {
			s.logger.Warn("transfer notification failed", slog.String("transaction_id", res.TransactionID), slog.Any("error", err))
		}
	}

	return TransferResult{
		TransactionID: res.TransactionID,
		FromBalance:   res.FromBalance,
		ToBalance:     res.ToBalance,
		CompletedAt:   time.Now().UTC(),
	}, nil
}
