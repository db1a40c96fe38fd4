package repository

import (
	"context"

	"github.com/aitteam/whm/internal/domain"
)

// ListQuery selects one page of a newest-first list.
type ListQuery struct {
	Page    int
	PerPage int
	Filter  string
}

type ProjectRepo interface {
	List(ctx context.Context, q ListQuery) (domain.Page[domain.Project], error)
	Get(ctx context.Context, id string) (*domain.Project, error)
	Create(ctx context.Context, p *domain.Project) (*domain.Project, error)
	Update(ctx context.Context, id string, p *domain.Project) (*domain.Project, error)
	Delete(ctx context.Context, id string) error
}

type TaskRepo interface {
	List(ctx context.Context, q ListQuery) (domain.Page[domain.Task], error)
	Get(ctx context.Context, id string) (*domain.Task, error)
	Create(ctx context.Context, t *domain.Task) (*domain.Task, error)
	Update(ctx context.Context, id string, t *domain.Task) (*domain.Task, error)
	Delete(ctx context.Context, id string) error
}

// WorkRepo lists works with their user, project and task relations expanded.
type WorkRepo interface {
	List(ctx context.Context, q ListQuery) (domain.Page[domain.Work], error)
	Get(ctx context.Context, id string) (*domain.Work, error)
	Create(ctx context.Context, w *domain.Work) (*domain.Work, error)
	Update(ctx context.Context, id string, w *domain.Work) (*domain.Work, error)
	Delete(ctx context.Context, id string) error
}

// UserRepo covers the users collection. Accounts are created through signup
// and never deleted from the dashboard.
type UserRepo interface {
	List(ctx context.Context, q ListQuery) (domain.Page[domain.User], error)
	Get(ctx context.Context, id string) (*domain.User, error)
	UpdateRoles(ctx context.Context, id string, roles []domain.Role) (*domain.User, error)
}
