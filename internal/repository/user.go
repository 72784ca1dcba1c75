package repository

import (
	"context"

	"cropscan/internal/model"
)

// UserRepository defines data access for accounts using SQL queries only.
// No business logic here — strictly persistence operations.
type UserRepository interface {
	// Create inserts a new user record and returns the stored row.
	Create(ctx context.Context, user *model.User) (*model.User, error)

	// FindByUsername returns the user with the exact (case-sensitive)
	// username, or sql.ErrNoRows when absent.
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// FindByID returns a user by its ID.
	FindByID(ctx context.Context, id string) (*model.User, error)

	// List returns a paginated list of users and the total row count.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.User], error)
}
