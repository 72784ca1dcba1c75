package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"cropscan/internal/auth"
)

// AuthSubjectLocalKey is the key under which the verified token subject
// (the username) is stored in Fiber's context locals.
const AuthSubjectLocalKey = "auth_subject"

// AuthMode controls how Auth treats requests without a token.
type AuthMode int

const (
	// AuthRequired rejects requests without a valid bearer token.
	AuthRequired AuthMode = iota
	// AuthOptional lets requests without a token through anonymously.
	// A token that is present but invalid is still rejected.
	AuthOptional
)

// Auth verifies the Authorization bearer token and stores its subject in
// context locals for downstream handlers.
func Auth(tokens *auth.TokenManager, mode AuthMode) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			if mode == AuthOptional {
				return c.Next()
			}
			return writeUnauthorized(c, "missing bearer token")
		}

		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			return writeUnauthorized(c, "authorization header must use the Bearer scheme")
		}

		subject, err := tokens.Verify(tokenString, time.Now())
		if err != nil {
			return writeUnauthorized(c, "invalid or expired token")
		}

		c.Locals(AuthSubjectLocalKey, subject)
		return c.Next()
	}
}

// SubjectFromCtx returns the verified token subject, or "" for
// anonymous requests.
func SubjectFromCtx(c *fiber.Ctx) string {
	if s, ok := c.Locals(AuthSubjectLocalKey).(string); ok {
		return s
	}
	return ""
}

// writeUnauthorized mirrors the handler package's error envelope. It is
// duplicated here to keep middleware free of a handler dependency.
func writeUnauthorized(c *fiber.Ctx, message string) error {
	rid, _ := c.Locals(RequestIDLocalKey).(string)
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"request_id": rid,
		"error": fiber.Map{
			"code":    "UNAUTHORIZED",
			"message": message,
		},
	})
}
