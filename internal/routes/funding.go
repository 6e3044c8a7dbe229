package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/wager_bank/internal/funding"
)

// RegisterFundingRoutes wires faucet deposits and cash-outs.
func RegisterFundingRoutes(r fiber.Router, h *funding.Handler) {
	r.Post("/wallets/:walletId/deposit", h.Deposit)
	r.Post("/wallets/:walletId/withdraw", h.Withdraw)
}
