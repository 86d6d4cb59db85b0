// Package handler provides the fiber HTTP handlers for the outbox API.
package handler

import (
	"crypto/subtle"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/keyauth"
)

var errInvalidToken = errors.New("invalid API token")

// RequireToken rejects requests without "Authorization: Bearer <token>" (401)
// or with a different token (403).
func RequireToken(token string) fiber.Handler {
	return keyauth.New(keyauth.Config{
		KeyLookup:  "header:" + fiber.HeaderAuthorization,
		AuthScheme: "Bearer",
		Validator: func(_ *fiber.Ctx, key string) (bool, error) {
			if token == "" || subtle.ConstantTimeCompare([]byte(key), []byte(token)) != 1 {
				return false, errInvalidToken
			}

			return true, nil
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if errors.Is(err, keyauth.ErrMissingOrMalformedAPIKey) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Missing authorization header",
				})
			}

			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Invalid API token",
			})
		},
	})
}
