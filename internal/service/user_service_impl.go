package service

import (
	"context"
	"fmt"

	"github.com/aitteam/whm/internal/domain"
	"github.com/aitteam/whm/internal/repository"
)

type userService struct {
	users    repository.UserRepo
	observer UseCaseObserver
}

func NewUserService(users repository.UserRepo, observers ...UseCaseObserver) UserService {
	return &userService{users: users, observer: useCaseObserverOrNoop(observers)}
}

func (s *userService) List(ctx context.Context, page, perPage int) (out domain.Page[domain.User], err error) {
	done := track(ctx, s.observer, "user.list", map[string]any{"page": page, "per_page": perPage})
	defer func() { done(err) }()
	return s.users.List(ctx, repository.ListQuery{Page: page, PerPage: perPage})
}

func (s *userService) All(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	for page := 1; ; page++ {
		res, err := s.users.List(ctx, repository.ListQuery{Page: page, PerPage: allPageSize})
		if err != nil {
			return nil, err
		}
		users = append(users, res.Items...)
		if page >= res.TotalPages {
			return users, nil
		}
	}
}

func (s *userService) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.users.Get(ctx, id)
}

func (s *userService) UpdateRoles(ctx context.Context, id string, roles []domain.Role) (out *domain.User, err error) {
	done := track(ctx, s.observer, "user.update_roles", map[string]any{"id": id, "roles": len(roles)})
	defer func() { done(err) }()
	for _, r := range roles {
		if !r.Valid() {
			return nil, &domain.ValidationError{Field: "ait_whm_roles", Message: fmt.Sprintf("角色不合法：%s", r)}
		}
	}
	return s.users.UpdateRoles(ctx, id, roles)
}
