package local

import "github.com/aitteam/whm/internal/domain"

// Collection names served by the local backend.
const (
	ProjectsCollection = "ait_whm_projects"
	TasksCollection    = "ait_whm_tasks"
	WorksCollection    = "ait_whm_works"
	UsersCollection    = "users"
)

type fieldKind int

const (
	kindText fieldKind = iota
	kindEmail
	kindBool
	kindNumber
	kindDate
	kindSelect
	kindRelation
)

type field struct {
	name     string
	kind     fieldKind
	required bool
	multi    bool
	values   []string // select options
	target   string   // relation collection
	// adminOnly fields may only be changed by a user holding the Admin role.
	adminOnly bool
}

type schema struct {
	name   string
	auth   bool
	fields []field
}

func (s *schema) field(name string) (field, bool) {
	for _, f := range s.fields {
		if f.name == name {
			return f, true
		}
	}
	return field{}, false
}

func roleValues() []string {
	out := make([]string, len(domain.Roles))
	for i, r := range domain.Roles {
		out[i] = string(r)
	}
	return out
}

func taskTypeValues() []string {
	out := make([]string, len(domain.TaskTypes))
	for i, t := range domain.TaskTypes {
		out[i] = string(t)
	}
	return out
}

func defaultSchemas() map[string]*schema {
	list := []*schema{
		{
			name: UsersCollection,
			auth: true,
			fields: []field{
				{name: "username", kind: kindText},
				{name: "email", kind: kindEmail, required: true},
				{name: "name", kind: kindText},
				{name: "emailVisibility", kind: kindBool},
				{name: "verified", kind: kindBool, adminOnly: true},
				{name: "ait_whm_roles", kind: kindSelect, multi: true, values: roleValues(), adminOnly: true},
			},
		},
		{
			name: ProjectsCollection,
			fields: []field{
				{name: "name", kind: kindText, required: true},
				{name: "description", kind: kindText},
				{name: "start_time", kind: kindDate},
				{name: "end_time", kind: kindDate},
				{name: "enable", kind: kindBool},
				{name: "note", kind: kindText},
				{name: "own_tasks", kind: kindRelation, multi: true, target: TasksCollection},
			},
		},
		{
			name: TasksCollection,
			fields: []field{
				{name: "name", kind: kindText, required: true},
				{name: "note", kind: kindText},
				{name: "type", kind: kindSelect, values: taskTypeValues()},
			},
		},
		{
			name: WorksCollection,
			fields: []field{
				{name: "name", kind: kindText, required: true},
				{name: "own_users", kind: kindRelation, target: UsersCollection},
				{name: "own_projects", kind: kindRelation, target: ProjectsCollection},
				{name: "own_tasks", kind: kindRelation, target: TasksCollection},
				{name: "note", kind: kindText},
				{name: "hour", kind: kindNumber},
				{name: "start_date", kind: kindDate},
				{name: "end_date", kind: kindDate},
				{name: "files", kind: kindText, multi: true},
			},
		},
	}
	out := make(map[string]*schema, len(list))
	for _, s := range list {
		out[s.name] = s
	}
	return out
}
