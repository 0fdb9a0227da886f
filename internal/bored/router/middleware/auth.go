package middleware

import (
	"github.com/SakuraBurst/bored/internal/bored/types"
	"github.com/go-faster/errors"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const identityKey = "user"

var ErrUnauthenticated = errors.New("authentication required")

// ErrNotOwner is reported with status 400, not 403.
var ErrNotOwner = errors.New("unauthorized: resource belongs to another user")

// Authenticate verifies the bearer token when one is sent. A missing or
// invalid token is not an error here: the request just stays anonymous.
func Authenticate(jwtSecret []byte) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   jwtware.SigningKey{JWTAlg: jwtware.HS256, Key: jwtSecret},
		Claims:       &types.Claims{},
		ContextKey:   identityKey,
		ErrorHandler: anonymous,
	})
}

func anonymous(c *fiber.Ctx, _ error) error {
	return c.Next()
}

// Identity returns the authenticated username, if any.
func Identity(c *fiber.Ctx) (string, bool) {
	token, ok := c.Locals(identityKey).(*jwt.Token)
	if !ok || token == nil {
		return "", false
	}
	claims, ok := token.Claims.(*types.Claims)
	if !ok || claims.UserName == "" {
		return "", false
	}
	return claims.UserName, true
}

// Allow is the ownership rule: only the owner may act on their resources.
func Allow(identity string, authenticated bool, owner string) error {
	if !authenticated {
		return ErrUnauthenticated
	}
	if identity != owner {
		return ErrNotOwner
	}
	return nil
}

// OwnerOnly guards routes whose :username parameter names the resource owner.
// It runs before any lookup, so the answer does not depend on whether the
// resource exists.
func OwnerOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := Identity(c)
		if err := Allow(identity, ok, c.Params("username")); err != nil {
			return err
		}
		return c.Next()
	}
}
