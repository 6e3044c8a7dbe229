package identity

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// ProvisionFunc creates the native-balance wallet of a freshly registered user
// and returns its identifier.
type ProvisionFunc func(ctx context.Context, userID string) (string, error)

// Handler exposes identity endpoints.
type Handler struct {
	service   *Service
	provision ProvisionFunc
	logger    *slog.Logger
}

// NewHandler constructs an identity HTTP handler. provision may be nil.
func NewHandler(service *Service, provision ProvisionFunc, logger *slog.Logger) *Handler {
	return &Handler{service: service, provision: provision, logger: logger}
}

type registerRequest struct {
	Phone    string `json:"phone"`
	PIN      string `json:"pin"`
	DeviceID string `json:"device_id"`
}

type authResponse struct {
	UserID   string `json:"user_id"`
	Phone    string `json:"phone"`
	Tier     string `json:"tier"`
	DeviceID string `json:"device_id"`
	WalletID string `json:"wallet_id,omitempty"`
}

// Register handles user onboarding and auto-provisions a wallet.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, err := h.service.Register(c.UserContext(), Credentials{Phone: req.Phone, PIN: req.PIN, DeviceID: req.DeviceID})
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	var walletID string
	if h.provision != nil {
		walletID, err = h.provision(c.UserContext(), user.ID)
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	if h.logger != nil {
		h.logger.Info("identity.register completed",
			slog.String("user_id", user.ID),
			slog.String("wallet_id", walletID),
		)
	}
	return c.Status(http.StatusCreated).JSON(authResponse{UserID: user.ID, Phone: user.Phone, Tier: user.Tier, DeviceID: user.DeviceID, WalletID: walletID})
}

// Authenticate verifies login credentials without issuing tokens.
func (h *Handler) Authenticate(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, err := h.service.Authenticate(c.UserContext(), Credentials{Phone: req.Phone, PIN: req.PIN, DeviceID: req.DeviceID})
	if err != nil {
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	}
	return c.Status(http.StatusOK).JSON(authResponse{UserID: user.ID, Phone: user.Phone, Tier: user.Tier, DeviceID: user.DeviceID})
}
