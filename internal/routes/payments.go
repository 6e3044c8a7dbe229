package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/wager_bank/internal/payments"
)

// RegisterPaymentRoutes wires native wallet transfers.
func RegisterPaymentRoutes(r fiber.Router, h *payments.Handler) {
	r.Post("/wallets/:walletId/transfer", h.Transfer)
}
