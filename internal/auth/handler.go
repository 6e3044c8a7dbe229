package auth

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/wager_bank/internal/identity"
)

// WalletLookup resolves the wallet identifier of a user, if any.
type WalletLookup func(ctx context.Context, ownerID string) (string, error)

// Handler exposes auth endpoints for login/refresh/logout.
type Handler struct {
	ids     *identity.Service
	svc     *Service
	wallets WalletLookup
}

// NewHandler builds an auth handler. wallets may be nil.
func NewHandler(ids *identity.Service, svc *Service, wallets WalletLookup) *Handler {
	return &Handler{ids: ids, svc: svc, wallets: wallets}
}

type loginRequest struct {
	Phone    string `json:"phone"`
	PIN      string `json:"pin"`
	DeviceID string `json:"device_id"`
}

type loginResponse struct {
	UserID       string `json:"user_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenVersion int    `json:"token_version"`
	WalletID     string `json:"wallet_id,omitempty"`
}

// Login validates credentials and returns a token pair.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, err := h.ids.Authenticate(c.UserContext(), identity.Credentials{Phone: req.Phone, PIN: req.PIN, DeviceID: req.DeviceID})
	if err != nil {
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	}
	pair, err := h.svc.Login(user)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	var wid string
	if h.wallets != nil {
		if id, err := h.wallets(c.UserContext(), user.ID); err == nil {
			wid = id
		}
	}
	return c.Status(http.StatusOK).JSON(loginResponse{
		UserID:       user.ID,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		TokenVersion: user.TokenVersion,
		WalletID:     wid,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh issues a new access token using a valid refresh token.
func (h *Handler) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	token, exp, err := h.svc.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"access_token": token, "expires_in": exp})
}

// Logout invalidates the caller's tokens by bumping the token version.
func (h *Handler) Logout(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	if err := h.svc.Logout(c.UserContext(), uid); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "logged_out"})
}
