package bank

import (
	"errors"
	"time"

	"github.com/congo-pay/wager_bank/internal/ledger"
)

var (
	// ErrNotFound is returned when no bank matches the identifier.
	ErrNotFound = errors.New("bank not found")
	// ErrUnauthorized rejects an init signed by anyone but the authority.
	ErrUnauthorized = errors.New("signer is not the bank authority")
	// ErrInvalidAmount rejects non-positive initial funding.
	ErrInvalidAmount = errors.New("initial funding must be positive")
	// ErrInsufficientFunds is the ledger sentinel, re-exported for callers.
	ErrInsufficientFunds = ledger.ErrInsufficientFunds
)

// Bank is the counterparty of every wager round. Its escrow balance lives in
// the ledger account AccountCode. RoundCount is stored but never advanced.
type Bank struct {
	ID                 string
	Authority          string
	PermittedAssetType string
	AccountCode        string
	RoundCount         int64
	CreatedAt          time.Time
}
