package wallet

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no wallet matches the lookup.
	ErrNotFound = errors.New("wallet not found")
	// ErrExists rejects a second wallet for the same owner.
	ErrExists = errors.New("wallet exists")
)

// Wallet is the native-balance account of an owner, backed by the ledger.
type Wallet struct {
	ID          string
	OwnerID     string
	AccountCode string
	Status      string
	CreatedAt   time.Time
}

// Balance encapsulates available funds for a wallet.
type Balance struct {
	WalletID string
	Amount   int64
	AsOf     time.Time
}
