package payments

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/wager_bank/internal/ledger"
	"github.com/congo-pay/wager_bank/internal/lock"
	"github.com/congo-pay/wager_bank/internal/wallet"
)

// Handler exposes the native transfer endpoint.
type Handler struct {
	service *Service
}

// NewHandler constructs a transfer handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type transferRequest struct {
	ToWalletID string `json:"to_wallet_id"`
	Amount     int64  `json:"amount"`
	ClientTxID string `json:"client_tx_id"`
}

// Transfer moves funds from :walletId, owned by the caller, to another wallet.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)
	if req.ClientTxID == "" {
		req.ClientTxID = c.Get("Idempotency-Key")
	}

	res, err := h.service.Transfer(c.UserContext(), TransferInput{
		FromWalletID: c.Params("walletId"),
		ToWalletID:   req.ToWalletID,
		Signer:       uid,
		Amount:       req.Amount,
		ClientTxID:   req.ClientTxID,
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInsufficientFunds), errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, ErrSameWallet):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ledger.ErrDuplicateTransaction), errors.Is(err, lock.ErrBusy):
			return fiber.NewError(http.StatusConflict, err.Error())
		case errors.Is(err, ErrNotOwner):
			return fiber.NewError(http.StatusForbidden, err.Error())
		case errors.Is(err, wallet.ErrNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"transaction_id": res.TransactionID,
		"from_balance":   res.FromBalance,
		"to_balance":     res.ToBalance,
		"completed_at":   res.CompletedAt,
	})
}
