package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"cropscan/internal/classifier"
	"cropscan/internal/config"
	"cropscan/internal/media"
	"cropscan/internal/model"
	"cropscan/internal/repository"
	"cropscan/internal/storage"
)

// ErrTimeout is returned when the decode or classify stage exceeds its
// configured wall-clock budget.
var ErrTimeout = errors.New("inference stage timed out")

// uploadURLExpiry bounds the presigned download link returned for an
// archived upload.
const uploadURLExpiry = 15 * time.Minute

// Result is the success contract of one classification.
// Warning is set when the result could not be recorded in the ledger;
// the classification itself is still valid.
type Result struct {
	Label      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	Warning    bool    `json:"warning,omitempty"`
	UploadURL  string  `json:"upload_url,omitempty"`
}

// HistoryResult is the service-level DTO for paginated ledger entries.
type HistoryResult struct {
	Items []model.Classification `json:"data"`
	Total int                    `json:"total"`
}

// InferenceService runs the classification pipeline:
// decode -> dispatch -> interpret -> persist -> respond.
type InferenceService interface {
	// Classify decodes the upload, runs the named classifier, records the
	// result, and returns it. An empty username leaves the record
	// unattributed. Persistence failure does not fail the call.
	Classify(ctx context.Context, modelName, filename string, data []byte, username string) (*Result, error)

	// ClassifyUpload stores the raw upload in object storage before
	// classifying it. Unlike the ledger write, a storage failure here is
	// fatal: the route's contract is persist-then-classify.
	ClassifyUpload(ctx context.Context, modelName, filename string, data []byte, username string) (*Result, error)

	// History returns recorded classifications, newest first.
	History(ctx context.Context, limit, offset int) (*HistoryResult, error)
}

// inferenceService is a concrete implementation of InferenceService.
// The registry and model clients are read-only after startup and shared
// between concurrent requests without locking.
type inferenceService struct {
	registry *classifier.Registry
	ledger   repository.ClassificationRepository
	users    repository.UserRepository
	store    storage.Storage
	timeouts config.TimeoutsConfig
}

// NewInferenceService constructs a new InferenceService.
func NewInferenceService(
	registry *classifier.Registry,
	ledger repository.ClassificationRepository,
	users repository.UserRepository,
	store storage.Storage,
	timeouts config.TimeoutsConfig,
) InferenceService {
	return &inferenceService{
		registry: registry,
		ledger:   ledger,
		users:    users,
		store:    store,
		timeouts: timeouts,
	}
}

func (s *inferenceService) Classify(ctx context.Context, modelName, filename string, data []byte, username string) (*Result, error) {
	desc, err := s.registry.Get(modelName)
	if err != nil {
		return nil, err
	}

	decoded, err := s.decode(ctx, desc, data)
	if err != nil {
		return nil, err
	}

	scores, err := s.dispatch(ctx, desc, decoded)
	if err != nil {
		return nil, err
	}

	label, confidence, err := classifier.Interpret(scores, desc.Labels)
	if err != nil {
		return nil, fmt.Errorf("interpret output of %q: %w", desc.Name, err)
	}

	res := &Result{Label: label, Confidence: confidence}
	if err := s.persist(ctx, desc, filename, label, confidence, username); err != nil {
		// Availability over audit completeness: the classification is
		// already computed, so report the write failure and respond.
		logJSON(map[string]any{
			"level":    "error",
			"msg":      "classification_record_failed",
			"category": desc.Category,
			"filename": filename,
			"error":    err.Error(),
		})
		res.Warning = true
	}
	return res, nil
}

func (s *inferenceService) ClassifyUpload(ctx context.Context, modelName, filename string, data []byte, username string) (*Result, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", media.ErrUnprocessable)
	}

	key := filepath.ToSlash(filepath.Join("uploads", uuid.New().String()+filepath.Ext(filename)))
	_, err := s.store.Put(ctx, key, bytes.NewReader(data), storage.PutObjectOptions{
		Size: int64(len(data)),
		Metadata: map[string]string{
			"original-filename": filename,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	res, err := s.Classify(ctx, modelName, filename, data, username)
	if err != nil {
		// Rollback: a failed classification leaves no archived object.
		if delErr := s.store.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			logJSON(map[string]any{
				"level": "error",
				"msg":   "upload_rollback_failed",
				"key":   key,
				"error": delErr.Error(),
			})
		}
		return nil, err
	}

	if url, urlErr := s.store.PresignGet(ctx, key, uploadURLExpiry); urlErr == nil {
		res.UploadURL = url
	} else {
		logJSON(map[string]any{
			"level": "warn",
			"msg":   "upload_presign_failed",
			"key":   key,
			"error": urlErr.Error(),
		})
	}
	return res, nil
}

func (s *inferenceService) History(ctx context.Context, limit, offset int) (*HistoryResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.ledger.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &HistoryResult{Items: res.Items, Total: res.Total}, nil
}

// decode runs the media-type-specific decoder on its own goroutine so an
// oversized upload cannot run past the decode budget.
func (s *inferenceService) decode(ctx context.Context, desc *classifier.Descriptor, data []byte) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeouts.Decode)
	defer cancel()

	type outcome struct {
		value any
		err   error
	}
	ch := make(chan outcome, 1)
	go func() {
		switch desc.Kind {
		case classifier.KindAudio:
			v, err := media.DecodeAudio(data)
			ch <- outcome{v, err}
		default:
			v, err := media.DecodeImage(data, desc.Width, desc.Height)
			ch <- outcome{v, err}
		}
	}()

	select {
	case out := <-ch:
		if out.err != nil {
			return nil, out.err
		}
		return out.value, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, ctx.Err()
	}
}

// dispatch wraps the decoded input into a single-item batch and calls
// the model under the classify budget.
func (s *inferenceService) dispatch(ctx context.Context, desc *classifier.Descriptor, decoded any) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeouts.Classify)
	defer cancel()

	scores, err := desc.Model.Predict(ctx, decoded)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, err
	}
	return scores, nil
}

// persist appends one ledger record. The write is detached from request
// cancellation so a client disconnect cannot corrupt it mid-flight.
func (s *inferenceService) persist(ctx context.Context, desc *classifier.Descriptor, filename, label string, confidence float64, username string) error {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	rec := &model.Classification{
		ID:         uuid.New().String(),
		Category:   desc.Category,
		Filename:   filename,
		Label:      label,
		Confidence: confidence,
		CreatedAt:  time.Now().UTC(),
	}
	if username != "" {
		user, err := s.users.FindByUsername(writeCtx, username)
		switch {
		case err == nil:
			rec.UserID = &user.ID
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("resolve user %q: %w", username, err)
		}
	}

	if _, err := s.ledger.Create(writeCtx, rec); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	return nil
}

func logJSON(data map[string]any) {
	data["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal log entry: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
