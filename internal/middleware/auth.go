package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/papershelf/papershelf/internal/config"
	"github.com/papershelf/papershelf/internal/services"
	"github.com/papershelf/papershelf/internal/types"
)

// AuthUser validates that the request carries a valid Authorizer session with
// the user role, and injects the auth provider's user into the context.
func AuthUser(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return authorize(c, cfg, []string{"user"})
	}
}

// authorize performs the authorization check
func authorize(c *fiber.Ctx, cfg *config.Config, roles []string) error {
	// The Authorizer client needs a redirect URL, so it is initialized
	// lazily from the first authenticated request.
	if !services.IsAuthorizerInitialized() {
		if err := services.InitAuthorizer(cfg, c.Protocol(), c.Hostname()); err != nil {
			return &types.DomainError{
				Kind:    types.KindInternal,
				Message: fmt.Sprintf("authorizer unavailable: %v", err),
			}
		}
	}

	// Get session cookie
	session := c.Cookies("cookie_session")
	if session == "" {
		return &types.DomainError{
			Kind:    types.KindAccessDenied,
			Message: "Authorizer cookie \"cookie_session\" not found",
		}
	}

	// Validate session
	data, err := services.ValidateSession(session, roles)
	if err != nil {
		return &types.DomainError{
			Kind:    types.KindAccessDenied,
			Message: fmt.Sprintf("Invalid session: %v", err),
		}
	}

	// Set auth user data in context
	if user, ok := data["user"]; ok {
		c.Locals("authUser", user)
	}

	return c.Next()
}
