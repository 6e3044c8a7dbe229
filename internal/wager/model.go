package wager

import (
	"errors"
	"time"

	"github.com/congo-pay/wager_bank/internal/ledger"
	"github.com/congo-pay/wager_bank/internal/lock"
)

var (
	// ErrInsufficientFunds rejects a wager the player cannot stake or the
	// bank cannot cover twice over. It matches ledger.ErrInsufficientFunds.
	ErrInsufficientFunds = ledger.ErrInsufficientFunds
	// ErrTransferFailed wraps the ledger error of a settlement step that did
	// not commit.
	ErrTransferFailed = errors.New("settlement transfer failed")
	// ErrUnauthorized rejects a gamble not signed by the player.
	ErrUnauthorized = errors.New("signer is not the player")
	// ErrInvalidAmount rejects non-positive wagers.
	ErrInvalidAmount = errors.New("wager amount must be positive")
	// ErrBankBusy is returned when the bank or the player's wallet could not
	// be locked in time.
	ErrBankBusy = lock.ErrBusy
	// ErrRoundNotFound is returned by round lookups.
	ErrRoundNotFound = errors.New("round not found")
)

// Result is the terminal outcome of a round.
type Result string

const (
	ResultBankWon   Result = "bank_won"
	ResultPlayerWon Result = "player_won"
	ResultDrained   Result = "drained"
)

// Ledger transaction kinds, one per settlement branch.
const (
	KindLoss  = "wager_loss"
	KindWin   = "wager_win"
	KindDrain = "wager_drain"
)

// NoBit marks a round settled without drawing an outcome bit.
const NoBit = -1

// GambleInput is a single wager request.
type GambleInput struct {
	BankID         string
	PlayerID       string
	Signer         string
	HoldingAddress string
	AssetTypeID    string
	Amount         int64
	ClientTxID     string
}

// Round records a settled wager. Winner and Loser are ledger account codes;
// Transferred is the amount that moved from Loser to Winner.
type Round struct {
	ID             string
	BankID         string
	PlayerID       string
	HoldingAddress string
	AssetTypeID    string
	Amount         int64
	Result         Result
	Eligible       bool
	Bit            int
	Winner         string
	Loser          string
	Transferred    int64
	BankBalance    int64
	PlayerBalance  int64
	TransactionID  string
	SettledAt      time.Time
}
