package asset

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Service manages asset types and the holdings that denominate them.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds an asset service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// CreateAssetTypeInput describes a new asset type.
type CreateAssetTypeInput struct {
	Authority string
	Symbol    string
	Decimals  int
}

// CreateAssetType registers a new asset type owned by the authority.
func (s *Service) CreateAssetType(ctx context.Context, input CreateAssetTypeInput) (AssetType, error) {
	if input.Authority == "" {
		return AssetType{}, ErrNotAuthority
	}
	symbol := strings.ToUpper(strings.TrimSpace(input.Symbol))
	if symbol == "" {
		return AssetType{}, errors.New("symbol is required")
	}
	if input.Decimals < 0 || input.Decimals > 18 {
		return AssetType{}, errors.New("decimals must be between 0 and 18")
	}
	at := AssetType{
		ID:        newAssetTypeID(),
		Symbol:    symbol,
		Decimals:  input.Decimals,
		Authority: input.Authority,
		CreatedAt: s.now(),
	}
	if err := s.repo.CreateAssetType(ctx, at); err != nil {
		return AssetType{}, err
	}
	return at, nil
}

// GetAssetType returns the asset type with the given identifier.
func (s *Service) GetAssetType(ctx context.Context, id string) (AssetType, error) {
	return s.repo.GetAssetType(ctx, id)
}

// OpenCanonical returns the holding at DeriveAddress(owner, assetTypeID),
// creating an empty one when it does not exist yet.
func (s *Service) OpenCanonical(ctx context.Context, owner, assetTypeID string) (Holding, error) {
	if _, err := s.repo.GetAssetType(ctx, assetTypeID); err != nil {
		return Holding{}, err
	}
	address := DeriveAddress(owner, assetTypeID)
	if existing, err := s.repo.GetHolding(ctx, address); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrHoldingNotFound) {
		return Holding{}, err
	}

	h := Holding{Address: address, Owner: owner, AssetTypeID: assetTypeID, CreatedAt: s.now()}
	if err := s.repo.CreateHolding(ctx, h); err != nil {
		if errors.Is(err, ErrHoldingExists) {
			return s.repo.GetHolding(ctx, address)
		}
		return Holding{}, err
	}
	return h, nil
}

// OpenAuxiliary creates an additional holding for owner at a non-canonical
// address. Such holdings can receive and send funds but are never eligible
// for wagering.
func (s *Service) OpenAuxiliary(ctx context.Context, owner, assetTypeID string) (Holding, error) {
	if _, err := s.repo.GetAssetType(ctx, assetTypeID); err != nil {
		return Holding{}, err
	}
	h := Holding{Address: randomAddress(), Owner: owner, AssetTypeID: assetTypeID, CreatedAt: s.now()}
	if err := s.repo.CreateHolding(ctx, h); err != nil {
		return Holding{}, err
	}
	return h, nil
}

// Get returns the holding stored at address.
func (s *Service) Get(ctx context.Context, address string) (Holding, error) {
	return s.repo.GetHolding(ctx, address)
}

// ListByOwner returns every holding owned by owner.
func (s *Service) ListByOwner(ctx context.Context, owner string) ([]Holding, error) {
	return s.repo.ListHoldingsByOwner(ctx, owner)
}

// MintTo credits amount units to a holding. Only the asset type authority may mint.
func (s *Service) MintTo(ctx context.Context, signer, address string, amount int64) (Holding, error) {
	if amount <= 0 {
		return Holding{}, ErrInvalidAmount
	}
	h, err := s.repo.GetHolding(ctx, address)
	if err != nil {
		return Holding{}, err
	}
	at, err := s.repo.GetAssetType(ctx, h.AssetTypeID)
	if err != nil {
		return Holding{}, err
	}
	if at.Authority != signer {
		return Holding{}, ErrNotAuthority
	}
	if err := s.repo.AdjustHoldings(ctx, []Delta{{Address: address, Amount: amount}}); err != nil {
		return Holding{}, fmt.Errorf("mint: %w", err)
	}
	return s.repo.GetHolding(ctx, address)
}

// TransferInput moves units between two holdings of the same asset type.
type TransferInput struct {
	Signer string
	From   string
	To     string
	Amount int64
}

// Transfer moves units between holdings. The signer must own the source.
func (s *Service) Transfer(ctx context.Context, input TransferInput) (Holding, Holding, error) {
	if input.Amount <= 0 {
		return Holding{}, Holding{}, ErrInvalidAmount
	}
	from, err := s.repo.GetHolding(ctx, input.From)
	if err != nil {
		return Holding{}, Holding{}, err
	}
	to, err := s.repo.GetHolding(ctx, input.To)
	if err != nil {
		return Holding{}, Holding{}, err
	}
	if from.Owner != input.Signer {
		return Holding{}, Holding{}, ErrNotOwner
	}
	if from.AssetTypeID != to.AssetTypeID {
		return Holding{}, Holding{}, ErrAssetMismatch
	}
	if err := s.repo.AdjustHoldings(ctx, []Delta{
		{Address: from.Address, Amount: -input.Amount},
		{Address: to.Address, Amount: input.Amount},
	}); err != nil {
		return Holding{}, Holding{}, err
	}
	if from, err = s.repo.GetHolding(ctx, input.From); err != nil {
		return Holding{}, Holding{}, err
	}
	if to, err = s.repo.GetHolding(ctx, input.To); err != nil {
		return Holding{}, Holding{}, err
	}
	return from, to, nil
}
