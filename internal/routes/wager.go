package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/wager_bank/internal/asset"
	"github.com/congo-pay/wager_bank/internal/bank"
	"github.com/congo-pay/wager_bank/internal/wager"
)

// RegisterAssetRoutes wires asset type and holding endpoints.
func RegisterAssetRoutes(r fiber.Router, h *asset.Handler) {
	r.Post("/assets", h.CreateAssetType)
	r.Get("/assets/:assetId", h.GetAssetType)
	r.Post("/assets/:assetId/holdings", h.OpenHolding)
	r.Get("/holdings", h.ListHoldings)
	r.Get("/holdings/:address", h.GetHolding)
	r.Post("/holdings/:address/mint", h.Mint)
	r.Post("/holdings/:address/transfer", h.Transfer)
}

// RegisterWagerRoutes wires bank creation, gambling and round history.
func RegisterWagerRoutes(r fiber.Router, banks *bank.Handler, rounds *wager.Handler) {
	r.Post("/banks", banks.Init)
	r.Get("/banks/:bankId", banks.Get)
	r.Post("/banks/:bankId/gamble", rounds.Gamble)
	r.Get("/banks/:bankId/rounds", rounds.ListByBank)
	r.Get("/rounds/:roundId", rounds.GetRound)
	r.Get("/me/rounds", rounds.ListMine)
}
