package asset

import (
	"errors"
	"time"
)

var (
	ErrAssetTypeNotFound   = errors.New("asset type not found")
	ErrHoldingNotFound     = errors.New("holding not found")
	ErrHoldingExists       = errors.New("holding exists")
	ErrNotAuthority        = errors.New("signer is not the asset type authority")
	ErrNotOwner            = errors.New("signer does not own the holding")
	ErrInsufficientHolding = errors.New("insufficient holding amount")
	ErrAssetMismatch       = errors.New("holdings denominate different asset types")
	ErrInvalidAmount       = errors.New("amount must be positive")
)

// AssetType identifies a fungible asset category. Only its authority may mint.
type AssetType struct {
	ID        string
	Symbol    string
	Decimals  int
	Authority string
	CreatedAt time.Time
}

// Holding is a balance of one asset type bound to an owner. Address is the
// storage address the record resides at; for canonical holdings it equals
// DeriveAddress(Owner, AssetTypeID).
type Holding struct {
	Address     string
	Owner       string
	AssetTypeID string
	Amount      int64
	CreatedAt   time.Time
}

// Delta is a signed change to one holding's amount.
type Delta struct {
	Address string
	Amount  int64
}
