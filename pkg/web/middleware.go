package web

import (
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/venturahq/tramite/pkg/models"
	"github.com/venturahq/tramite/pkg/services"
)

// claimsKey is where the auth middleware stores the verified token claims
// on the request context.
const claimsKey = "claims"

// RequireAuth verifies the bearer token and stores its claims for the
// handlers downstream.
func RequireAuth(auth *services.Auth) fiber.Handler {
	return func(c fiber.Ctx) error {
		header := c.Get("Authorization")

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return unauthorized(c, "missing bearer token")
		}

		claims, err := auth.VerifyToken(token)
		if err != nil {
			return unauthorized(c, "invalid or expired token")
		}

		c.Locals(claimsKey, claims)

		return c.Next()
	}
}

// RequireAdmin allows only callers whose token carries the admin role.
// Must run behind RequireAuth.
func RequireAdmin(c fiber.Ctx) error {
	claims := CallerClaims(c)
	if claims == nil || claims.Role != models.RoleAdmin {
		return forbidden(c, "admin role required")
	}

	return c.Next()
}

// CallerClaims returns the verified claims of the current request, or nil
// outside an authenticated route.
func CallerClaims(c fiber.Ctx) *services.Claims {
	claims, _ := c.Locals(claimsKey).(*services.Claims)

	return claims
}
