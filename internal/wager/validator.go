package wager

import (
	"math"

	"github.com/congo-pay/wager_bank/internal/asset"
	"github.com/congo-pay/wager_bank/internal/bank"
)

// Validate reports whether the holding entitles player to a fair round at b.
// It has no side effects.
func Validate(holding asset.Holding, assetType asset.AssetType, b bank.Bank, player string) bool {
	if holding.AssetTypeID != b.PermittedAssetType {
		return false
	}
	if holding.AssetTypeID != assetType.ID {
		return false
	}
	if holding.Amount <= 0 {
		return false
	}
	return asset.DeriveAddress(player, assetType.ID) == holding.Address
}

// Admit checks that the player can stake amount and the bank can pay out
// twice the amount. Nothing is mutated.
func Admit(amount, playerBalance, bankBalance int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if amount > playerBalance {
		return ErrInsufficientFunds
	}
	if amount > math.MaxInt64/2 || 2*amount > bankBalance {
		return ErrInsufficientFunds
	}
	return nil
}
