package repository

import (
	"github.com/aitteam/whm/internal/backend"
	"github.com/aitteam/whm/internal/domain"
)

type BackendProjectRepo struct {
	recordRepo[domain.Project]
}

func NewBackendProjectRepo(client backend.Client) *BackendProjectRepo {
	return &BackendProjectRepo{recordRepo[domain.Project]{
		client:  client,
		name:    ProjectsCollection,
		noun:    "project",
		payload: projectPayload,
	}}
}

func projectPayload(p *domain.Project) backend.Record {
	return backend.Record{
		"name":        p.Name,
		"description": p.Description,
		"start_time":  p.StartTime.String(),
		"end_time":    p.EndTime.String(),
		"enable":      p.Enable,
		"note":        p.Note,
		"own_tasks":   nonNil(p.OwnTasks),
	}
}
