package service

import (
	"context"

	"github.com/aitteam/whm/internal/domain"
)

// ResourceService is the paginated CRUD surface of one record type.
type ResourceService[T any] interface {
	List(ctx context.Context, page, perPage int) (domain.Page[T], error)
	// All walks every page, for pickers that offer the whole collection.
	All(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id string) (*T, error)
	Create(ctx context.Context, item *T) (*T, error)
	Update(ctx context.Context, id string, item *T) (*T, error)
	Delete(ctx context.Context, id string) error
}

type ProjectService = ResourceService[domain.Project]

type TaskService = ResourceService[domain.Task]

// WorkService assigns new works without an owner to the signed-in user.
type WorkService = ResourceService[domain.Work]

type UserService interface {
	List(ctx context.Context, page, perPage int) (domain.Page[domain.User], error)
	All(ctx context.Context) ([]domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	UpdateRoles(ctx context.Context, id string, roles []domain.Role) (*domain.User, error)
}

// SignupInput is the account registration form.
type SignupInput struct {
	Username        string
	Email           string
	Name            string
	Password        string
	PasswordConfirm string
}

type AuthService interface {
	Login(ctx context.Context, email, password string) (domain.Session, error)
	LoginWithOAuth(ctx context.Context, provider string) (domain.Session, error)
	Signup(ctx context.Context, in SignupInput) (*domain.User, error)
	Logout() error
	CurrentUser(ctx context.Context) (*domain.User, error)
	// Restore attaches the persisted token to the backend client.
	Restore()
}
