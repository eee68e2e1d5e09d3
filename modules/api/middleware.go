package api

import (
	"strings"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	domain "github.com/example/course-chat/domain/chat"
)

const (
	// IdentityContextKey is the key used to store the caller identity in the Fiber context.
	IdentityContextKey = "identity"

	tokenQueryParam = "token"
	tokenCookieName = "access_token"
)

// IdentityResolver turns a bearer token into a chat identity.
// An empty token must resolve to the anonymous identity.
type IdentityResolver interface {
	Identity(token string) (domain.Identity, error)
}

// IdentityMiddleware resolves the caller identity from the Authorization
// header, the token query parameter or the access_token cookie, in that
// order. Missing or invalid credentials fall back to Anonymous; the request
// is never rejected here.
func IdentityMiddleware(resolver IdentityResolver, logger types.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := resolver.Identity(tokenFromRequest(c))
		if err != nil {
			logger.Debug("Ignoring invalid credentials", "path", c.Path(), "error", err)
			identity = domain.Anonymous()
		}
		c.Locals(IdentityContextKey, identity)
		return c.Next()
	}
}

// IdentityFrom returns the identity stored by IdentityMiddleware.
func IdentityFrom(c *fiber.Ctx) domain.Identity {
	if identity, ok := c.Locals(IdentityContextKey).(domain.Identity); ok {
		return identity
	}
	return domain.Anonymous()
}

func tokenFromRequest(c *fiber.Ctx) string {
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if token := c.Query(tokenQueryParam); token != "" {
		return token
	}
	return c.Cookies(tokenCookieName)
}

// UpgradeMiddleware rejects plain HTTP requests on WebSocket routes.
func UpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}
