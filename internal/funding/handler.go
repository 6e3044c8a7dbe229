package funding

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/wager_bank/internal/ledger"
	"github.com/congo-pay/wager_bank/internal/lock"
	"github.com/congo-pay/wager_bank/internal/wallet"
)

// Handler exposes HTTP endpoints for deposits and withdrawals.
type Handler struct {
	service *Service
}

// NewHandler constructs a funding handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Deposit tops up :walletId from the faucet.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	var req DepositRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.ClientTxID == "" {
		req.ClientTxID = c.Get("Idempotency-Key")
	}

	result, err := h.service.Deposit(c.UserContext(), DepositInput{
		WalletID:   c.Params("walletId"),
		Amount:     req.Amount,
		ClientTxID: req.ClientTxID,
	})
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateTransaction) {
			return c.Status(http.StatusOK).JSON(toResponse(result))
		}
		return toHTTPError(err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(result))
}

// Withdraw cashes out part of the caller's wallet.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	var req WithdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.ClientTxID == "" {
		req.ClientTxID = c.Get("Idempotency-Key")
	}
	uid, _ := c.Locals("user_id").(string)

	result, err := h.service.Withdraw(c.UserContext(), WithdrawInput{
		WalletID:    c.Params("walletId"),
		Signer:      uid,
		Destination: req.Destination,
		Amount:      req.Amount,
		ClientTxID:  req.ClientTxID,
	})
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateTransaction) {
			return c.Status(http.StatusOK).JSON(toResponse(result))
		}
		return toHTTPError(err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(result))
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, wallet.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotOwner), errors.Is(err, ErrFaucetDisabled):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, lock.ErrBusy), errors.Is(err, ledger.ErrDuplicateTransaction):
		return fiber.NewError(http.StatusConflict, err.Error())
	default:
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
}

func toResponse(result FundingResult) FundingResponse {
	return FundingResponse{
		TransactionID:   result.TransactionID,
		Status:          result.Status,
		WalletBalance:   result.WalletBalance,
		SourceReference: result.SourceReference,
	}
}
