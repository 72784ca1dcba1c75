package repository

import (
	"context"

	"cropscan/internal/model"
)

// ClassificationRepository defines append/query access to the
// classification ledger. Records are immutable once written; there is no
// update or delete.
type ClassificationRepository interface {
	// Create appends one classification record and returns the stored row.
	Create(ctx context.Context, rec *model.Classification) (*model.Classification, error)

	// List returns classification records newest first with a total count.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Classification], error)
}
