package asset

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

// Handler exposes asset type and holding endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an asset handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createAssetTypeRequest struct {
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

type openHoldingRequest struct {
	Canonical *bool `json:"canonical"`
}

type amountRequest struct {
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

type assetTypeResponse struct {
	ID        string `json:"id"`
	Symbol    string `json:"symbol"`
	Decimals  int    `json:"decimals"`
	Authority string `json:"authority"`
}

type holdingResponse struct {
	Address     string `json:"address"`
	Owner       string `json:"owner"`
	AssetTypeID string `json:"asset_type_id"`
	Amount      int64  `json:"amount"`
	Canonical   bool   `json:"canonical"`
}

// CreateAssetType registers an asset type with the caller as authority.
func (h *Handler) CreateAssetType(c *fiber.Ctx) error {
	var req createAssetTypeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)
	at, err := h.service.CreateAssetType(c.UserContext(), CreateAssetTypeInput{Authority: uid, Symbol: req.Symbol, Decimals: req.Decimals})
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusCreated).JSON(toAssetTypeResponse(at))
}

// GetAssetType returns one asset type.
func (h *Handler) GetAssetType(c *fiber.Ctx) error {
	at, err := h.service.GetAssetType(c.UserContext(), c.Params("assetId"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(toAssetTypeResponse(at))
}

// OpenHolding opens a holding of the asset type for the caller. Holdings are
// canonical unless the body sets "canonical": false.
func (h *Handler) OpenHolding(c *fiber.Ctx) error {
	var req openHoldingRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}
	uid, _ := c.Locals("user_id").(string)
	// Params alias the request buffer unless the app is Immutable; these end
	// up stored.
	assetID := utils.CopyString(c.Params("assetId"))

	var (
		holding Holding
		err     error
	)
	if req.Canonical == nil || *req.Canonical {
		holding, err = h.service.OpenCanonical(c.UserContext(), uid, assetID)
	} else {
		holding, err = h.service.OpenAuxiliary(c.UserContext(), uid, assetID)
	}
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusCreated).JSON(toHoldingResponse(holding))
}

// Mint credits the holding at :address; the caller must be the asset type authority.
func (h *Handler) Mint(c *fiber.Ctx) error {
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)
	holding, err := h.service.MintTo(c.UserContext(), uid, utils.CopyString(c.Params("address")), req.Amount)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(toHoldingResponse(holding))
}

// GetHolding returns the holding stored at :address.
func (h *Handler) GetHolding(c *fiber.Ctx) error {
	holding, err := h.service.Get(c.UserContext(), c.Params("address"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(toHoldingResponse(holding))
}

// ListHoldings returns the caller's holdings.
func (h *Handler) ListHoldings(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	holdings, err := h.service.ListByOwner(c.UserContext(), uid)
	if err != nil {
		return toHTTPError(err)
	}
	out := make([]holdingResponse, 0, len(holdings))
	for _, holding := range holdings {
		out = append(out, toHoldingResponse(holding))
	}
	return c.JSON(fiber.Map{"holdings": out})
}

// Transfer moves units from :address to another holding.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)
	from, to, err := h.service.Transfer(c.UserContext(), TransferInput{Signer: uid, From: utils.CopyString(c.Params("address")), To: req.To, Amount: req.Amount})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(fiber.Map{"from": toHoldingResponse(from), "to": toHoldingResponse(to)})
}

func toAssetTypeResponse(at AssetType) assetTypeResponse {
	return assetTypeResponse{ID: at.ID, Symbol: at.Symbol, Decimals: at.Decimals, Authority: at.Authority}
}

func toHoldingResponse(h Holding) holdingResponse {
	return holdingResponse{
		Address:     h.Address,
		Owner:       h.Owner,
		AssetTypeID: h.AssetTypeID,
		Amount:      h.Amount,
		Canonical:   DeriveAddress(h.Owner, h.AssetTypeID) == h.Address,
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, ErrAssetTypeNotFound), errors.Is(err, ErrHoldingNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotAuthority), errors.Is(err, ErrNotOwner):
		return fiber.NewError(http.StatusForbidden, err.Error())
	default:
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
}
