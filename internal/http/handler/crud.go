package handler

import (
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"cropscan/internal/model"
	"cropscan/internal/repository"
	"cropscan/internal/service"
)

// Direct CRUD passthroughs to the backing stores. These mirror the
// maintenance endpoints of the service and carry no pipeline logic.

type addUserRequest struct {
	Username string `json:"username"`
	// Password here is a pre-computed hash; this endpoint bypasses the
	// registration flow and writes the row as given.
	Password string `json:"password"`
}

// AddUser inserts a user row verbatim.
func AddUser(users repository.UserRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req addUserRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		}
		if req.Username == "" || req.Password == "" {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "username and password are required")
		}

		stored, err := users.Create(c.UserContext(), &model.User{
			ID:           uuid.New().String(),
			Username:     req.Username,
			PasswordHash: req.Password,
			CreatedAt:    time.Now().UTC(),
		})
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(fiber.Map{"success": true, "create_id": stored.ID})
	}
}

// GetUser returns a user by ID.
func GetUser(users repository.UserRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		user, err := users.FindByID(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "user not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(user)
	}
}

// GetUserByName returns a user by username.
func GetUserByName(users repository.UserRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name := c.Query("name")
		if name == "" {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "name query parameter is required")
		}

		user, err := users.FindByUsername(c.UserContext(), name)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "user not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(user)
	}
}

// GetUsers lists users with limit/offset pagination.
func GetUsers(users repository.UserRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, ok := pageParams(c, 100)
		if !ok {
			return nil
		}

		res, err := users.List(c.UserContext(), repository.PageQuery{Limit: limit, Offset: offset})
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(fiber.Map{"data": res.Items, "total": res.Total})
	}
}

type addClassificationRequest struct {
	Category   string  `json:"category"`
	Filename   string  `json:"filename"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	UserID     *string `json:"user_id"`
}

// AddClassification appends a ledger record directly.
func AddClassification(ledger repository.ClassificationRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req addClassificationRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		}
		if req.Confidence < 0 || req.Confidence > 1 {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "confidence must be in [0,1]")
		}

		stored, err := ledger.Create(c.UserContext(), &model.Classification{
			ID:         uuid.New().String(),
			Category:   req.Category,
			Filename:   req.Filename,
			Label:      req.Label,
			Confidence: req.Confidence,
			CreatedAt:  time.Now().UTC(),
			UserID:     req.UserID,
		})
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(fiber.Map{"success": true, "create_id": stored.ID})
	}
}

// GetClassifications lists recorded classifications, newest first.
func GetClassifications(svc service.InferenceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, ok := pageParams(c, 100)
		if !ok {
			return nil
		}

		res, err := svc.History(c.UserContext(), limit, offset)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(res)
	}
}

// pageParams parses limit/offset query parameters. On a malformed value
// it writes the 400 response itself and reports ok=false.
func pageParams(c *fiber.Ctx, defaultLimit int) (limit, offset int, ok bool) {
	limit, err := strconv.Atoi(c.Query("limit", strconv.Itoa(defaultLimit)))
	if err != nil {
		_ = writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		return 0, 0, false
	}
	offset, err = strconv.Atoi(c.Query("offset", "0"))
	if err != nil {
		_ = writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		return 0, 0, false
	}
	return limit, offset, true
}
