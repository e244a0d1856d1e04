package usecase

import (
	"context"

	"taskman/internal/taskapi/domain"
)

// TaskRepository persists tasks. GetByID returns (nil, nil) for a missing
// record; the service layer turns that into an ownership decision.
type TaskRepository interface {
	Create(ctx context.Context, task domain.Task) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Task, error)
	Update(ctx context.Context, task domain.Task) error
	Delete(ctx context.Context, id string) error
}

// UserRepository persists users. GetByEmail returns (nil, nil) when no
// user matches.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}
