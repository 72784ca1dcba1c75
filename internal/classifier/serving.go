package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ServingModel calls a TensorFlow Serving REST endpoint. One instance
// per published model; the underlying http.Client is shared and safe
// for concurrent use.
type ServingModel struct {
	baseURL string
	name    string
	client  *http.Client
}

// NewServingModel builds a client for the model published under name on
// the serving endpoint at baseURL. The client carries no timeout of its
// own: callers bound each Predict through the request context.
func NewServingModel(baseURL, name string, client *http.Client) *ServingModel {
	if client == nil {
		client = &http.Client{}
	}
	return &ServingModel{baseURL: baseURL, name: name, client: client}
}

var _ Model = (*ServingModel)(nil)

type predictRequest struct {
	Instances []any `json:"instances"`
}

type predictResponse struct {
	Predictions [][]float64 `json:"predictions"`
	Error       string      `json:"error,omitempty"`
}

// Predict posts a single-item batch to {base}/v1/models/{name}:predict
// and returns the score vector for that item.
func (m *ServingModel) Predict(ctx context.Context, instance any) ([]float64, error) {
	body, err := json.Marshal(predictRequest{Instances: []any{instance}})
	if err != nil {
		return nil, fmt.Errorf("encode predict request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/models/%s:predict", m.baseURL, m.name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: serving returned %d", ErrUnavailable, resp.StatusCode)
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode predict response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, out.Error)
	}
	if len(out.Predictions) != 1 {
		return nil, fmt.Errorf("expected one prediction, got %d", len(out.Predictions))
	}
	return out.Predictions[0], nil
}

// DefaultHTTPClient is the shared transport for serving models. Keep-alive
// connections are reused across requests to the same endpoint.
func DefaultHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			MaxIdleConnsPerHost: 16,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
