package postgres

import (
	"context"
	"database/sql"

	"cropscan/internal/model"
	"cropscan/internal/repository"
)

// ClassificationPostgres is a PostgreSQL implementation of
// repository.ClassificationRepository. Records are append-only.
type ClassificationPostgres struct {
	db *sql.DB
}

// NewClassificationPostgres creates a new ClassificationPostgres repository.
func NewClassificationPostgres(db *sql.DB) *ClassificationPostgres {
	return &ClassificationPostgres{db: db}
}

var _ repository.ClassificationRepository = (*ClassificationPostgres)(nil)

// Create inserts a new classification row and returns the stored record.
// Each insert is its own transaction, auto-committed before the response.
func (r *ClassificationPostgres) Create(ctx context.Context, rec *model.Classification) (*model.Classification, error) {
	const q = `
		INSERT INTO classifications (id, category, filename, label, confidence, created_at, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, category, filename, label, confidence, created_at, user_id
	`
	row := r.db.QueryRowContext(ctx, q,
		rec.ID,
		rec.Category,
		rec.Filename,
		rec.Label,
		rec.Confidence,
		rec.CreatedAt,
		rec.UserID,
	)
	var out model.Classification
	if err := row.Scan(
		&out.ID,
		&out.Category,
		&out.Filename,
		&out.Label,
		&out.Confidence,
		&out.CreatedAt,
		&out.UserID,
	); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns classification records using LIMIT/OFFSET pagination and a total count.
func (r *ClassificationPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Classification], error) {
	const qCount = `SELECT COUNT(*) FROM classifications`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT id, category, filename, label, confidence, created_at, user_id
		FROM classifications
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, qList, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Classification, 0)
	for rows.Next() {
		var c model.Classification
		if err := rows.Scan(
			&c.ID,
			&c.Category,
			&c.Filename,
			&c.Label,
			&c.Confidence,
			&c.CreatedAt,
			&c.UserID,
		); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Classification]{
		Items: items,
		Total: total,
	}, nil
}
