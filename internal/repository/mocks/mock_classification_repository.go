package mocks

import (
	"context"

	"cropscan/internal/model"
	"cropscan/internal/repository"
	"github.com/stretchr/testify/mock"
)

type MockClassificationRepository struct {
	mock.Mock
}

func (m *MockClassificationRepository) Create(ctx context.Context, rec *model.Classification) (*model.Classification, error) {
	args := m.Called(ctx, rec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Classification), args.Error(1)
}

func (m *MockClassificationRepository) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Classification], error) {
	args := m.Called(ctx, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Classification]), args.Error(1)
}
