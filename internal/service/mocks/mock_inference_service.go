package mocks

import (
	"context"

	"cropscan/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockInferenceService struct {
	mock.Mock
}

func (m *MockInferenceService) Classify(ctx context.Context, modelName, filename string, data []byte, username string) (*service.Result, error) {
	args := m.Called(ctx, modelName, filename, data, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Result), args.Error(1)
}

func (m *MockInferenceService) ClassifyUpload(ctx context.Context, modelName, filename string, data []byte, username string) (*service.Result, error) {
	args := m.Called(ctx, modelName, filename, data, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Result), args.Error(1)
}

func (m *MockInferenceService) History(ctx context.Context, limit, offset int) (*service.HistoryResult, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.HistoryResult), args.Error(1)
}
