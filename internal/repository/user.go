package repository

import (
	"context"

	"github.com/aitteam/whm/internal/backend"
	"github.com/aitteam/whm/internal/domain"
)

type BackendUserRepo struct {
	recordRepo[domain.User]
}

func NewBackendUserRepo(client backend.Client) *BackendUserRepo {
	return &BackendUserRepo{recordRepo[domain.User]{
		client: client,
		name:   UsersCollection,
		noun:   "user",
		payload: func(u *domain.User) backend.Record {
			return rolesPayload(u.Roles)
		},
	}}
}

func (r *BackendUserRepo) UpdateRoles(ctx context.Context, id string, roles []domain.Role) (*domain.User, error) {
	return r.patch(ctx, id, rolesPayload(roles))
}

func rolesPayload(roles []domain.Role) backend.Record {
	values := make([]string, len(roles))
	for i, r := range roles {
		values[i] = string(r)
	}
	return backend.Record{"ait_whm_roles": values}
}
