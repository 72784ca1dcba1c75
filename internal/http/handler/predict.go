package handler

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"

	"cropscan/internal/classifier"
	"cropscan/internal/http/middleware"
	"cropscan/internal/media"
	"cropscan/internal/service"
)

// classifyFunc matches the two pipeline entry points of InferenceService.
type classifyFunc func(c *fiber.Ctx, modelName, filename string, data []byte, username string) (*service.Result, error)

// Predict runs the upload through the named classifier and returns
// {class, confidence}. Token auth is optional on these routes: a valid
// token attributes the recorded classification to its subject.
func Predict(svc service.InferenceService, modelName string) fiber.Handler {
	return classify(modelName, func(c *fiber.Ctx, modelName, filename string, data []byte, username string) (*service.Result, error) {
		return svc.Classify(c.UserContext(), modelName, filename, data, username)
	})
}

// UploadFile persists the raw upload to object storage before
// classifying it, matching the persist-then-classify route contract.
func UploadFile(svc service.InferenceService, modelName string) fiber.Handler {
	return classify(modelName, func(c *fiber.Ctx, modelName, filename string, data []byte, username string) (*service.Result, error) {
		return svc.ClassifyUpload(c.UserContext(), modelName, filename, data, username)
	})
}

func classify(modelName string, run classifyFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot read uploaded file")
		}

		res, err := run(c, modelName, fh.Filename, data, middleware.SubjectFromCtx(c))
		if err != nil {
			switch {
			case errors.Is(err, media.ErrUnprocessable):
				return writeError(c, fiber.StatusUnprocessableEntity, "UNPROCESSABLE_INPUT", "upload could not be decoded")
			case errors.Is(err, service.ErrTimeout):
				return writeError(c, fiber.StatusGatewayTimeout, "TIMEOUT", "inference did not finish in time")
			case errors.Is(err, classifier.ErrUnavailable):
				return writeError(c, fiber.StatusServiceUnavailable, "DEPENDENCY_UNAVAILABLE", "model backend unavailable")
			default:
				return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}
		return c.JSON(res)
	}
}
