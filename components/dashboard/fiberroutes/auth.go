package fiberroutes

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/goliatone/go-property-dashboard/components/dashboard"
	"github.com/goliatone/go-property-dashboard/pkg/auth"
)

const (
	localUserID = "user_id"
	localRoles  = "roles"
	localLocale = "locale"
	localClaims = "claims"
)

// AuthConfig configures RequireJWT.
type AuthConfig struct {
	Secret []byte
	// ExemptPrefixes skip authentication.
	ExemptPrefixes []string
}

// RequireJWT validates the bearer token and stores the viewer in locals and
// the user context. Requests without a valid token get 401.
func RequireJWT(cfg AuthConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		for _, prefix := range cfg.ExemptPrefixes {
			if strings.HasPrefix(c.Path(), prefix) {
				return c.Next()
			}
		}
		token := auth.BearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			token = c.Query("access_token")
		}
		if token == "" {
			return respondError(c, http.StatusUnauthorized, errors.New("missing bearer token"))
		}
		claims, err := auth.ParseJWT(token, cfg.Secret)
		if err != nil {
			return respondError(c, http.StatusUnauthorized, err)
		}
		c.Locals(localUserID, claims.Subject)
		c.Locals(localRoles, claims.Roles)
		if claims.Locale != "" {
			c.Locals(localLocale, claims.Locale)
		}
		c.Locals(localClaims, claims)
		ctx := auth.WithToken(auth.WithClaims(c.UserContext(), claims), token)
		c.SetUserContext(dashboard.ContextWithActivity(ctx, claims.Activity()))
		return c.Next()
	}
}

// HeaderViewer trusts the X-User-ID header. Intended for local development.
func HeaderViewer() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id := strings.TrimSpace(c.Get("X-User-ID")); id != "" {
			c.Locals(localUserID, id)
		}
		return c.Next()
	}
}
