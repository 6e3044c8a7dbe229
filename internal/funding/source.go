package funding

import (
	"context"

	"github.com/google/uuid"
)

// Source connects native balances to the world outside the ledger: faucet
// top-ups coming in and cash-outs going out.
type Source interface {
	AuthorizeDeposit(ctx context.Context, input DepositAuthorization) (AuthorizationDecision, error)
	AuthorizePayout(ctx context.Context, input PayoutAuthorization) (AuthorizationDecision, error)
}

// AuthorizationDecision is the connector's answer.
type AuthorizationDecision struct {
	Reference string
	Status    string
}

// DepositAuthorization describes funds entering a wallet.
type DepositAuthorization struct {
	WalletID string
	Amount   int64
}

// PayoutAuthorization describes funds leaving a wallet for Destination.
type PayoutAuthorization struct {
	WalletID    string
	Destination string
	Amount      int64
}

// StaticSource approves every request with a synthetic reference.
type StaticSource struct{}

// AuthorizeDeposit approves the top-up.
func (StaticSource) AuthorizeDeposit(_ context.Context, _ DepositAuthorization) (AuthorizationDecision, error) {
	return AuthorizationDecision{Reference: uuid.NewString(), Status: "approved"}, nil
}

// AuthorizePayout approves the cash-out.
func (StaticSource) AuthorizePayout(_ context.Context, _ PayoutAuthorization) (AuthorizationDecision, error) {
	return AuthorizationDecision{Reference: uuid.NewString(), Status: "approved"}, nil
}
