package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// TokenVerifier resolves an access token to the user id it was issued for.
type TokenVerifier interface {
	Verify(ctx context.Context, accessToken string) (string, error)
}

// JWTAuth returns a middleware that validates bearer access tokens and
// stores the subject under the "user_id" local.
func JWTAuth(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])
		sub, err := verifier.Verify(c.UserContext(), tokenStr)
		if err != nil || sub == "" {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}
		c.Locals("user_id", sub)
		return c.Next()
	}
}
