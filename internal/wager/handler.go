package wager

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/wager_bank/internal/asset"
	"github.com/congo-pay/wager_bank/internal/bank"
	"github.com/congo-pay/wager_bank/internal/ledger"
	"github.com/congo-pay/wager_bank/internal/wallet"
)

// Handler exposes gamble and round history endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a wager handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type gambleRequest struct {
	HoldingAddress string `json:"holding_address"`
	AssetTypeID    string `json:"asset_type_id"`
	Amount         int64  `json:"amount"`
	ClientTxID     string `json:"client_tx_id"`
}

type roundResponse struct {
	ID             string    `json:"id"`
	BankID         string    `json:"bank_id"`
	PlayerID       string    `json:"player_id"`
	HoldingAddress string    `json:"holding_address"`
	AssetTypeID    string    `json:"asset_type_id"`
	Amount         int64     `json:"amount"`
	Result         string    `json:"result"`
	Eligible       bool      `json:"eligible"`
	Bit            *int      `json:"bit,omitempty"`
	Winner         string    `json:"winner"`
	Loser          string    `json:"loser"`
	Transferred    int64     `json:"transferred"`
	BankBalance    int64     `json:"bank_balance"`
	PlayerBalance  int64     `json:"player_balance"`
	TransactionID  string    `json:"transaction_id"`
	SettledAt      time.Time `json:"settled_at"`
}

// Gamble settles one wager against :bankId for the authenticated player.
func (h *Handler) Gamble(c *fiber.Ctx) error {
	var req gambleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)
	if req.ClientTxID == "" {
		req.ClientTxID = c.Get("Idempotency-Key")
	}
	c.Locals("bank_id", c.Params("bankId"))
	round, err := h.service.Gamble(c.UserContext(), GambleInput{
		BankID:         c.Params("bankId"),
		PlayerID:       uid,
		Signer:         uid,
		HoldingAddress: req.HoldingAddress,
		AssetTypeID:    req.AssetTypeID,
		Amount:         req.Amount,
		ClientTxID:     req.ClientTxID,
	})
	if err != nil {
		return toHTTPError(err)
	}
	c.Locals("round_id", round.ID)
	return c.Status(http.StatusCreated).JSON(toRoundResponse(round))
}

// GetRound returns a settled round.
func (h *Handler) GetRound(c *fiber.Ctx) error {
	c.Locals("round_id", c.Params("roundId"))
	round, err := h.service.GetRound(c.UserContext(), c.Params("roundId"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(toRoundResponse(round))
}

// ListByBank returns the newest rounds settled against :bankId.
func (h *Handler) ListByBank(c *fiber.Ctx) error {
	c.Locals("bank_id", c.Params("bankId"))
	rounds, err := h.service.ListByBank(c.UserContext(), c.Params("bankId"), c.QueryInt("limit", defaultListLimit))
	if err != nil {
		return toHTTPError(err)
	}
	out := make([]roundResponse, 0, len(rounds))
	for _, round := range rounds {
		out = append(out, toRoundResponse(round))
	}
	return c.JSON(fiber.Map{"rounds": out})
}

// ListMine returns the caller's newest rounds across every bank.
func (h *Handler) ListMine(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	rounds, err := h.service.ListByPlayer(c.UserContext(), uid, c.QueryInt("limit", defaultListLimit))
	if err != nil {
		return toHTTPError(err)
	}
	out := make([]roundResponse, 0, len(rounds))
	for _, round := range rounds {
		out = append(out, toRoundResponse(round))
	}
	return c.JSON(fiber.Map{"rounds": out})
}

func toRoundResponse(r Round) roundResponse {
	resp := roundResponse{
		ID:             r.ID,
		BankID:         r.BankID,
		PlayerID:       r.PlayerID,
		HoldingAddress: r.HoldingAddress,
		AssetTypeID:    r.AssetTypeID,
		Amount:         r.Amount,
		Result:         string(r.Result),
		Eligible:       r.Eligible,
		Winner:         r.Winner,
		Loser:          r.Loser,
		Transferred:    r.Transferred,
		BankBalance:    r.BankBalance,
		PlayerBalance:  r.PlayerBalance,
		TransactionID:  r.TransactionID,
		SettledAt:      r.SettledAt,
	}
	if r.Bit != NoBit {
		bit := r.Bit
		resp.Bit = &bit
	}
	return resp
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrDuplicateTransaction), errors.Is(err, ErrBankBusy):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrTransferFailed):
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	case errors.Is(err, ErrInsufficientFunds), errors.Is(err, ErrInvalidAmount):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrUnauthorized):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrRoundNotFound), errors.Is(err, bank.ErrNotFound),
		errors.Is(err, asset.ErrAssetTypeNotFound), errors.Is(err, asset.ErrHoldingNotFound),
		errors.Is(err, wallet.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
