package bank

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/wager_bank/internal/asset"
	"github.com/congo-pay/wager_bank/internal/ledger"
	"github.com/congo-pay/wager_bank/internal/wallet"
)

// Handler exposes bank endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a bank handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type initRequest struct {
	PermittedAssetType string `json:"permitted_asset_type"`
	InitialFunding     int64  `json:"initial_funding"`
	ClientTxID         string `json:"client_tx_id"`
}

type bankResponse struct {
	ID                 string `json:"id"`
	Authority          string `json:"authority"`
	PermittedAssetType string `json:"permitted_asset_type"`
	RoundCount         int64  `json:"round_count"`
	Balance            int64  `json:"balance"`
}

// Init creates a bank funded from the caller's wallet.
func (h *Handler) Init(c *fiber.Ctx) error {
	var req initRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)
	if req.ClientTxID == "" {
		req.ClientTxID = c.Get("Idempotency-Key")
	}
	b, err := h.service.Init(c.UserContext(), InitInput{
		Authority:          uid,
		Signer:             uid,
		InitialFunding:     req.InitialFunding,
		PermittedAssetType: req.PermittedAssetType,
		ClientTxID:         req.ClientTxID,
	})
	if err != nil {
		return toHTTPError(err)
	}
	c.Locals("bank_id", b.ID)
	return c.Status(http.StatusCreated).JSON(bankResponse{
		ID:                 b.ID,
		Authority:          b.Authority,
		PermittedAssetType: b.PermittedAssetType,
		RoundCount:         b.RoundCount,
		Balance:            req.InitialFunding,
	})
}

// Get returns the bank and its escrow balance.
func (h *Handler) Get(c *fiber.Ctx) error {
	id := c.Params("bankId")
	c.Locals("bank_id", id)
	b, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return toHTTPError(err)
	}
	bal, err := h.service.Balance(c.UserContext(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(bankResponse{
		ID:                 b.ID,
		Authority:          b.Authority,
		PermittedAssetType: b.PermittedAssetType,
		RoundCount:         b.RoundCount,
		Balance:            bal,
	})
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, asset.ErrAssetTypeNotFound), errors.Is(err, wallet.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrUnauthorized):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, ledger.ErrDuplicateTransaction):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInsufficientFunds), errors.Is(err, ErrInvalidAmount):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
