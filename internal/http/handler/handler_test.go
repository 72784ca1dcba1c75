package handler

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cropscan/internal/auth"
	"cropscan/internal/classifier"
	"cropscan/internal/http/middleware"
	"cropscan/internal/media"
	"cropscan/internal/model"
	repoMocks "cropscan/internal/repository/mocks"
	"cropscan/internal/service"
	serviceMocks "cropscan/internal/service/mocks"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRegister(t *testing.T) {
	mockSvc := new(serviceMocks.MockAuthService)
	app := fiber.New()
	app.Post("/register", Register(mockSvc))

	t.Run("success", func(t *testing.T) {
		expected := &model.User{ID: uuid.New().String(), Username: "farmer"}
		mockSvc.On("Register", mock.Anything, "farmer", "s3cret").Return(expected, nil).Once()

		body, _ := json.Marshal(map[string]string{"username": "farmer", "password": "s3cret"})
		req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var result model.User
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, expected.ID, result.ID)
		assert.Equal(t, "farmer", result.Username)
		mockSvc.AssertExpectations(t)
	})

	t.Run("username taken", func(t *testing.T) {
		mockSvc.On("Register", mock.Anything, "farmer", "s3cret").Return(nil, service.ErrUsernameTaken).Once()

		body, _ := json.Marshal(map[string]string{"username": "farmer", "password": "s3cret"})
		req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "USERNAME_TAKEN", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("missing fields", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{"username": "farmer"})
		req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "BAD_REQUEST", res.Error.Code)
	})
}

func TestLogin(t *testing.T) {
	mockSvc := new(serviceMocks.MockAuthService)
	app := fiber.New()
	app.Post("/login", Login(mockSvc))

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Login", mock.Anything, "farmer", "s3cret").Return("signed.token.here", nil).Once()

		body, _ := json.Marshal(map[string]string{"username": "farmer", "password": "s3cret"})
		req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result map[string]string
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, "signed.token.here", result["token"])
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid credentials", func(t *testing.T) {
		mockSvc.On("Login", mock.Anything, "farmer", "wrong").Return("", service.ErrInvalidCredentials).Once()

		body, _ := json.Marshal(map[string]string{"username": "farmer", "password": "wrong"})
		req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "UNAUTHORIZED", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})
}

func TestProtectedPing(t *testing.T) {
	tokens := auth.NewTokenManager([]byte("test-secret"), time.Hour)
	app := fiber.New()
	app.Get("/protect/ping", middleware.Auth(tokens, middleware.AuthRequired), ProtectedPing())

	t.Run("with valid token", func(t *testing.T) {
		token, err := tokens.Issue("farmer", time.Now())
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/protect/ping", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("without token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protect/ping", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func newUploadRequest(t *testing.T, target, filename string, content []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	part.Write(content)
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestPredict(t *testing.T) {
	mockSvc := new(serviceMocks.MockInferenceService)
	app := fiber.New()
	app.Post("/predictwhitefly", Predict(mockSvc, classifier.ModelWhitefly))

	t.Run("success", func(t *testing.T) {
		expected := &service.Result{Label: "whitefly_infected_coconut", Confidence: 0.93}
		mockSvc.On("Classify", mock.Anything, classifier.ModelWhitefly, "leaf.jpg", mock.Anything, "").
			Return(expected, nil).Once()

		resp, _ := app.Test(newUploadRequest(t, "/predictwhitefly", "leaf.jpg", []byte("jpeg bytes")))

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result service.Result
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, "whitefly_infected_coconut", result.Label)
		assert.InDelta(t, 0.93, result.Confidence, 1e-9)
		assert.False(t, result.Warning)
		mockSvc.AssertExpectations(t)
	})

	t.Run("no file", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/predictwhitefly", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "FILE_REQUIRED", res.Error.Code)
	})

	t.Run("undecodable upload", func(t *testing.T) {
		mockSvc.On("Classify", mock.Anything, classifier.ModelWhitefly, "empty.jpg", mock.Anything, "").
			Return(nil, media.ErrUnprocessable).Once()

		resp, _ := app.Test(newUploadRequest(t, "/predictwhitefly", "empty.jpg", nil))

		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "UNPROCESSABLE_INPUT", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("timeout", func(t *testing.T) {
		mockSvc.On("Classify", mock.Anything, classifier.ModelWhitefly, "leaf.jpg", mock.Anything, "").
			Return(nil, service.ErrTimeout).Once()

		resp, _ := app.Test(newUploadRequest(t, "/predictwhitefly", "leaf.jpg", []byte("jpeg bytes")))

		assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "TIMEOUT", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("backend unavailable", func(t *testing.T) {
		mockSvc.On("Classify", mock.Anything, classifier.ModelWhitefly, "leaf.jpg", mock.Anything, "").
			Return(nil, classifier.ErrUnavailable).Once()

		resp, _ := app.Test(newUploadRequest(t, "/predictwhitefly", "leaf.jpg", []byte("jpeg bytes")))

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "DEPENDENCY_UNAVAILABLE", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("persistence warning passes through", func(t *testing.T) {
		expected := &service.Result{Label: "healthy_coconut", Confidence: 0.71, Warning: true}
		mockSvc.On("Classify", mock.Anything, classifier.ModelWhitefly, "leaf.jpg", mock.Anything, "").
			Return(expected, nil).Once()

		resp, _ := app.Test(newUploadRequest(t, "/predictwhitefly", "leaf.jpg", []byte("jpeg bytes")))

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result map[string]any
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, true, result["warning"])
		mockSvc.AssertExpectations(t)
	})
}

func TestPredictAuthenticatedSubject(t *testing.T) {
	tokens := auth.NewTokenManager([]byte("test-secret"), time.Hour)
	mockSvc := new(serviceMocks.MockInferenceService)
	app := fiber.New()
	app.Post("/audio", middleware.Auth(tokens, middleware.AuthOptional), Predict(mockSvc, classifier.ModelAudioEvent))

	token, err := tokens.Issue("farmer", time.Now())
	require.NoError(t, err)

	expected := &service.Result{Label: "go", Confidence: 0.88}
	mockSvc.On("Classify", mock.Anything, classifier.ModelAudioEvent, "cmd.wav", mock.Anything, "farmer").
		Return(expected, nil).Once()

	req := newUploadRequest(t, "/audio", "cmd.wav", []byte("RIFF data"))
	req.Header.Set("Authorization", "Bearer "+token)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	mockSvc.AssertExpectations(t)
}

func TestUploadFile(t *testing.T) {
	mockSvc := new(serviceMocks.MockInferenceService)
	app := fiber.New()
	app.Post("/upload-file", UploadFile(mockSvc, classifier.ModelAudioEvent))

	t.Run("success", func(t *testing.T) {
		expected := &service.Result{Label: "stop", Confidence: 0.97}
		mockSvc.On("ClassifyUpload", mock.Anything, classifier.ModelAudioEvent, "cmd.wav", mock.Anything, "").
			Return(expected, nil).Once()

		resp, _ := app.Test(newUploadRequest(t, "/upload-file", "cmd.wav", []byte("RIFF data")))

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result service.Result
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, "stop", result.Label)
		mockSvc.AssertExpectations(t)
	})

	t.Run("storage failure", func(t *testing.T) {
		mockSvc.On("ClassifyUpload", mock.Anything, classifier.ModelAudioEvent, "cmd.wav", mock.Anything, "").
			Return(nil, errors.New("put object: connection refused")).Once()

		resp, _ := app.Test(newUploadRequest(t, "/upload-file", "cmd.wav", []byte("RIFF data")))

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "INTERNAL_ERROR", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})
}

func TestGetClassifications(t *testing.T) {
	mockSvc := new(serviceMocks.MockInferenceService)
	app := fiber.New()
	app.Get("/get-classification", GetClassifications(mockSvc))

	t.Run("success", func(t *testing.T) {
		expected := &service.HistoryResult{
			Items: []model.Classification{{ID: uuid.New().String(), Label: "infected", Confidence: 0.9}},
			Total: 1,
		}
		mockSvc.On("History", mock.Anything, 10, 0).Return(expected, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/get-classification?limit=10&offset=0", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result service.HistoryResult
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Len(t, result.Items, 1)
		assert.Equal(t, 1, result.Total)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/get-classification?limit=abc", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "INVALID_LIMIT", res.Error.Code)
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("History", mock.Anything, 100, 0).Return(nil, errors.New("db down")).Once()

		req := httptest.NewRequest(http.MethodGet, "/get-classification", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestGetUser(t *testing.T) {
	mockRepo := new(repoMocks.MockUserRepository)
	app := fiber.New()
	app.Get("/get-user/:id", GetUser(mockRepo))

	t.Run("success", func(t *testing.T) {
		id := uuid.New().String()
		expected := &model.User{ID: id, Username: "farmer"}
		mockRepo.On("FindByID", mock.Anything, id).Return(expected, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/get-user/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result model.User
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, id, result.ID)
		assert.Empty(t, result.PasswordHash)
		mockRepo.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New().String()
		mockRepo.On("FindByID", mock.Anything, id).Return(nil, sql.ErrNoRows).Once()

		req := httptest.NewRequest(http.MethodGet, "/get-user/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
		mockRepo.AssertExpectations(t)
	})

	t.Run("invalid id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/get-user/invalid-uuid", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "INVALID_ID", res.Error.Code)
	})
}

func TestGetUserByName(t *testing.T) {
	mockRepo := new(repoMocks.MockUserRepository)
	app := fiber.New()
	app.Get("/get-users-name", GetUserByName(mockRepo))

	t.Run("success", func(t *testing.T) {
		expected := &model.User{ID: uuid.New().String(), Username: "farmer"}
		mockRepo.On("FindByUsername", mock.Anything, "farmer").Return(expected, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/get-users-name?name=farmer", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result model.User
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, "farmer", result.Username)
		mockRepo.AssertExpectations(t)
	})

	t.Run("missing name", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/get-users-name", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("not found", func(t *testing.T) {
		mockRepo.On("FindByUsername", mock.Anything, "ghost").Return(nil, sql.ErrNoRows).Once()

		req := httptest.NewRequest(http.MethodGet, "/get-users-name?name=ghost", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		mockRepo.AssertExpectations(t)
	})
}

func TestAddUser(t *testing.T) {
	mockRepo := new(repoMocks.MockUserRepository)
	app := fiber.New()
	app.Post("/add-user", AddUser(mockRepo))

	t.Run("success", func(t *testing.T) {
		stored := &model.User{ID: uuid.New().String(), Username: "farmer"}
		mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
			return u.Username == "farmer" && u.PasswordHash == "precomputed-hash"
		})).Return(stored, nil).Once()

		body, _ := json.Marshal(map[string]string{"username": "farmer", "password": "precomputed-hash"})
		req := httptest.NewRequest(http.MethodPost, "/add-user", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result map[string]any
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, true, result["success"])
		assert.Equal(t, stored.ID, result["create_id"])
		mockRepo.AssertExpectations(t)
	})

	t.Run("missing fields", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{"username": "farmer"})
		req := httptest.NewRequest(http.MethodPost, "/add-user", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestAddClassification(t *testing.T) {
	mockRepo := new(repoMocks.MockClassificationRepository)
	app := fiber.New()
	app.Post("/add-classification", AddClassification(mockRepo))

	t.Run("success", func(t *testing.T) {
		stored := &model.Classification{ID: uuid.New().String()}
		mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(rec *model.Classification) bool {
			return rec.Label == "infected" && rec.Confidence == 0.9
		})).Return(stored, nil).Once()

		body, _ := json.Marshal(map[string]any{
			"category":   "plesispa",
			"filename":   "leaf.jpg",
			"label":      "infected",
			"confidence": 0.9,
		})
		req := httptest.NewRequest(http.MethodPost, "/add-classification", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockRepo.AssertExpectations(t)
	})

	t.Run("confidence out of range", func(t *testing.T) {
		body, _ := json.Marshal(map[string]any{"label": "infected", "confidence": 1.5})
		req := httptest.NewRequest(http.MethodPost, "/add-classification", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
