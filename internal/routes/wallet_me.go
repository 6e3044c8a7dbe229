package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/wager_bank/internal/identity"
	"github.com/congo-pay/wager_bank/internal/wallet"
)

// RegisterProfileRoutes exposes the caller's profile and native wallet.
func RegisterProfileRoutes(r fiber.Router, ids *identity.Service, wallets *wallet.Service) {
	r.Get("/me", func(c *fiber.Ctx) error {
		uid, _ := c.Locals("user_id").(string)
		user, err := ids.Get(c.UserContext(), uid)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "user not found")
		}
		return c.JSON(userView(user))
	})

	r.Get("/wallet", func(c *fiber.Ctx) error {
		uid, _ := c.Locals("user_id").(string)
		user, err := ids.Get(c.UserContext(), uid)
		if err != nil {
			return fiber.NewError(http.StatusNotFound, "user not found")
		}
		w, err := wallets.GetByOwner(c.UserContext(), uid)
		if err != nil {
			return fiber.NewError(http.StatusNotFound, "wallet not found")
		}
		bal, err := wallets.Balance(c.UserContext(), w.ID)
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{
			"user": userView(user),
			"wallet": fiber.Map{
				"id":           w.ID,
				"account_code": w.AccountCode,
				"status":       w.Status,
				"created_at":   w.CreatedAt,
				"balance":      bal.Amount,
				"as_of":        bal.AsOf,
			},
		})
	})
}

func userView(user identity.User) fiber.Map {
	return fiber.Map{
		"id":            user.ID,
		"phone":         user.Phone,
		"tier":          user.Tier,
		"device_id":     user.DeviceID,
		"token_version": user.TokenVersion,
		"created_at":    user.CreatedAt,
		"last_login":    user.LastLogin,
	}
}
