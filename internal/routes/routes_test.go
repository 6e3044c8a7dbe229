package routes

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/wager_bank/internal/config"
	"github.com/congo-pay/wager_bank/internal/logging"
	"github.com/congo-pay/wager_bank/internal/metrics"
	"github.com/congo-pay/wager_bank/internal/wager"
)

type client struct {
	t   *testing.T
	app *fiber.App
}

func (c client) do(method, path, token string, body any) (int, map[string]any) {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := c.app.Test(req, -1)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

// signup registers a user and returns its wallet id and access token.
func (c client) signup(phone string) (string, string) {
	c.t.Helper()
	creds := map[string]string{"phone": phone, "pin": "1234", "device_id": "device-" + phone}
	status, reg := c.do(http.MethodPost, "/api/v1/identity/register", "", creds)
	require.Equal(c.t, http.StatusCreated, status)
	status, login := c.do(http.MethodPost, "/api/v1/auth/login", "", creds)
	require.Equal(c.t, http.StatusOK, status)
	return reg["wallet_id"].(string), login["access_token"].(string)
}

func newApp(t *testing.T, source wager.RandomBit) client {
	t.Helper()
	cfg := config.Config{
		AppName:         "test",
		Env:             "test",
		JWTSecret:       "access",
		RefreshSecret:   "refresh",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		BankLockTTL:     time.Second,
		FaucetEnabled:   true,
	}
	deps := Deps{
		Cfg:     cfg,
		Metrics: metrics.New(prometheus.NewRegistry()),
		Source:  source,
		Logger:  logging.Discard(),
	}
	app := fiber.New(AppConfig(deps))
	require.NoError(t, Setup(app, deps))
	return client{t: t, app: app}
}

func TestWagerRoundOverHTTP(t *testing.T) {
	c := newApp(t, wager.FixedSource(0))

	bankerWallet, banker := c.signup("+242000001")
	playerWallet, player := c.signup("+242000002")

	status, _ := c.do(http.MethodPost, "/api/v1/wallets/"+bankerWallet+"/deposit", banker, map[string]any{"amount": 5_000})
	require.Equal(t, http.StatusCreated, status)
	status, _ = c.do(http.MethodPost, "/api/v1/wallets/"+playerWallet+"/deposit", player, map[string]any{"amount": 100})
	require.Equal(t, http.StatusCreated, status)

	status, at := c.do(http.MethodPost, "/api/v1/assets", banker, map[string]any{"symbol": "nft"})
	require.Equal(t, http.StatusCreated, status)
	assetID := at["id"].(string)

	status, holding := c.do(http.MethodPost, "/api/v1/assets/"+assetID+"/holdings", player, map[string]any{})
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, true, holding["canonical"])
	address := holding["address"].(string)

	status, _ = c.do(http.MethodPost, "/api/v1/holdings/"+address+"/mint", player, map[string]any{"amount": 1})
	require.Equal(t, http.StatusForbidden, status)
	status, _ = c.do(http.MethodPost, "/api/v1/holdings/"+address+"/mint", banker, map[string]any{"amount": 1})
	require.Equal(t, http.StatusOK, status)

	status, b := c.do(http.MethodPost, "/api/v1/banks", banker, map[string]any{"permitted_asset_type": assetID, "initial_funding": 1_000})
	require.Equal(t, http.StatusCreated, status)
	bankID := b["id"].(string)

	gamble := map[string]any{"holding_address": address, "asset_type_id": assetID, "amount": 50}
	status, round := c.do(http.MethodPost, "/api/v1/banks/"+bankID+"/gamble", player, gamble)
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, "player_won", round["result"])
	require.EqualValues(t, 100, round["transferred"])

	status, b = c.do(http.MethodGet, "/api/v1/banks/"+bankID, player, nil)
	require.Equal(t, http.StatusOK, status)
	require.EqualValues(t, 900, b["balance"])

	status, me := c.do(http.MethodGet, "/api/v1/wallet", player, nil)
	require.Equal(t, http.StatusOK, status)
	require.EqualValues(t, 200, me["wallet"].(map[string]any)["balance"])

	status, rounds := c.do(http.MethodGet, "/api/v1/banks/"+bankID+"/rounds", player, nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, rounds["rounds"], 1)

	status, _ = c.do(http.MethodGet, "/api/v1/rounds/"+round["id"].(string), player, nil)
	require.Equal(t, http.StatusOK, status)

	status, mine := c.do(http.MethodGet, "/api/v1/me/rounds", player, nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, mine["rounds"], 1)

	gamble["amount"] = 600
	status, _ = c.do(http.MethodPost, "/api/v1/banks/"+bankID+"/gamble", player, gamble)
	require.Equal(t, http.StatusBadRequest, status)
}

func TestHoldingSurvivesLaterRequests(t *testing.T) {
	c := newApp(t, wager.FixedSource(1))

	_, minter := c.signup("+242000011")
	_, owner := c.signup("+242000012")

	status, at := c.do(http.MethodPost, "/api/v1/assets", minter, map[string]any{"symbol": "nft"})
	require.Equal(t, http.StatusCreated, status)
	assetID := at["id"].(string)

	status, holding := c.do(http.MethodPost, "/api/v1/assets/"+assetID+"/holdings", owner, map[string]any{})
	require.Equal(t, http.StatusCreated, status)
	address := holding["address"].(string)

	status, minted := c.do(http.MethodPost, "/api/v1/holdings/"+address+"/mint", minter, map[string]any{"amount": 3})
	require.Equal(t, http.StatusOK, status)
	require.EqualValues(t, 3, minted["amount"])

	// Unrelated traffic reuses request buffers.
	for i := 0; i < 5; i++ {
		status, _ = c.do(http.MethodPost, "/api/v1/assets", minter, map[string]any{"symbol": "filler-xxxxxxxxxxxxxxxxxxxxxxxxxxxx"})
		require.Equal(t, http.StatusCreated, status)
		status, _ = c.do(http.MethodGet, "/api/v1/holdings/does-not-exist-yyyyyyyyyyyyyyyyyyyyyyyy", owner, nil)
		require.Equal(t, http.StatusNotFound, status)
	}

	status, got := c.do(http.MethodGet, "/api/v1/holdings/"+address, owner, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, address, got["address"])
	require.Equal(t, assetID, got["asset_type_id"])
	require.Equal(t, true, got["canonical"])
	require.EqualValues(t, 3, got["amount"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	c := newApp(t, nil)

	status, _ := c.do(http.MethodGet, "/api/v1/wallet", "", nil)
	require.Equal(t, http.StatusUnauthorized, status)

	_, token := c.signup("+242000003")
	status, _ = c.do(http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = c.do(http.MethodGet, "/api/v1/me", token, nil)
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestHealthAndPing(t *testing.T) {
	c := newApp(t, nil)

	status, body := c.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "disabled", body["status"].(map[string]any)["postgres"])

	status, body = c.do(http.MethodGet, "/api/v1/ping", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, body["request_id"])
}
