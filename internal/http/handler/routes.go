package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"cropscan/internal/auth"
	"cropscan/internal/classifier"
	"cropscan/internal/http/middleware"
	"cropscan/internal/repository"
	"cropscan/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers stay minimal; business logic lives in the services.
func RegisterRoutes(
	app *fiber.App,
	db *sql.DB,
	tokens *auth.TokenManager,
	authSvc service.AuthService,
	infSvc service.InferenceService,
	users repository.UserRepository,
	ledger repository.ClassificationRepository,
) {
	required := middleware.Auth(tokens, middleware.AuthRequired)
	optional := middleware.Auth(tokens, middleware.AuthOptional)

	// Health probes
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	// Auth endpoints
	app.Post("/register", Register(authSvc))
	app.Post("/login", Login(authSvc))
	app.Get("/ping", Ping())
	app.Get("/protect/ping", required, ProtectedPing())

	// Classification endpoints. Auth is optional: a valid token
	// attributes the recorded result to the caller.
	app.Post("/predict", optional, Predict(infSvc, classifier.ModelAppleVariety))
	app.Post("/predictwhitefly", optional, Predict(infSvc, classifier.ModelWhitefly))
	app.Post("/predictplesispa", optional, Predict(infSvc, classifier.ModelPlesispa))
	app.Post("/audio", optional, Predict(infSvc, classifier.ModelAudioEvent))
	app.Post("/upload-file", optional, UploadFile(infSvc, classifier.ModelAudioEvent))

	// Direct CRUD passthroughs to the backing stores
	app.Post("/add-user", AddUser(users))
	app.Get("/get-user/:id", GetUser(users))
	app.Get("/get-users", GetUsers(users))
	app.Get("/get-users-name", GetUserByName(users))
	app.Post("/add-classification", AddClassification(ledger))
	app.Get("/get-classification", GetClassifications(infSvc))
}
