package asset

import (
	"github.com/decred/base58"
	"github.com/decred/dcrd/crypto/blake256"
	"github.com/google/uuid"
)

const holdingDomain = "holding"

// DeriveAddress returns the canonical holding address for an (owner, asset
// type) pair. The same inputs always produce the same address.
func DeriveAddress(owner, assetTypeID string) string {
	buf := make([]byte, 0, len(holdingDomain)+len(owner)+len(assetTypeID)+2)
	buf = append(buf, holdingDomain...)
	buf = append(buf, 0)
	buf = append(buf, owner...)
	buf = append(buf, 0)
	buf = append(buf, assetTypeID...)
	sum := blake256.Sum256(buf)
	return base58.Encode(sum[:])
}

// randomAddress returns an address with no relation to any owner.
func randomAddress() string {
	id := uuid.New()
	sum := blake256.Sum256(id[:])
	return base58.Encode(sum[:])
}

func newAssetTypeID() string {
	id := uuid.New()
	return base58.Encode(id[:])
}
