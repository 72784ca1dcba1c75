package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"cropscan/internal/service"
)

// authRequest is the register/login body: a flat username/password pair.
type authRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates an account. The password is salted and hashed before
// it is stored; the hash never leaves the service.
func Register(svc service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req authRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		}
		if req.Username == "" || req.Password == "" {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "username and password are required")
		}

		user, err := svc.Register(c.UserContext(), req.Username, req.Password)
		if err != nil {
			if errors.Is(err, service.ErrUsernameTaken) {
				return writeError(c, fiber.StatusBadRequest, "USERNAME_TAKEN", "username is taken")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.Status(fiber.StatusCreated).JSON(user)
	}
}

// Login verifies credentials and returns a signed token.
func Login(svc service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req authRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		}

		token, err := svc.Login(c.UserContext(), req.Username, req.Password)
		if err != nil {
			if errors.Is(err, service.ErrInvalidCredentials) {
				return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "invalid username and, or password")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(fiber.Map{"token": token})
	}
}

// Ping is the unauthenticated liveness echo.
func Ping() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendString("Hello, I am alive")
	}
}

// ProtectedPing is Ping behind required token auth, used to exercise the
// auth middleware end to end.
func ProtectedPing() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendString("Hello, I am alive (Protected)")
	}
}
