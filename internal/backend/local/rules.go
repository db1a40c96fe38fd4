package local

import (
	"github.com/aitteam/whm/internal/backend"
	"github.com/aitteam/whm/internal/domain"
)

func isSelf(caller *storedRecord, id string) bool {
	return caller != nil && caller.ID == id
}

func isAdmin(caller *storedRecord) bool {
	if caller == nil {
		return false
	}
	roles, _ := caller.Data["ait_whm_roles"].([]any)
	for _, r := range roles {
		if r == string(domain.RoleAdmin) {
			return true
		}
	}
	return false
}

// canRead guards list, view and subscribe.
func canRead(caller *storedRecord) error {
	if caller == nil {
		return backend.ErrUnauthorized()
	}
	return nil
}

// canCreate guards record creation. Anyone may sign up; every other
// collection needs an authenticated caller.
func canCreate(s *schema, caller *storedRecord) error {
	if s.auth || caller != nil {
		return nil
	}
	return backend.ErrUnauthorized()
}

// canModify guards update and delete of an existing record. Records the
// caller may not touch are reported as not found.
func canModify(s *schema, rec *storedRecord, caller *storedRecord, deleting bool) error {
	if caller == nil {
		return backend.ErrUnauthorized()
	}
	if isAdmin(caller) {
		return nil
	}
	switch s.name {
	case UsersCollection:
		if deleting || !isSelf(caller, rec.ID) {
			return backend.ErrNotFound()
		}
	case WorksCollection:
		if owner := rec.str("own_users"); owner != "" && owner != caller.ID {
			return backend.ErrNotFound()
		}
	}
	return nil
}

// adminFieldsChanged reports whether an update touches a field only admins
// may set.
func adminFieldsChanged(s *schema, before, after map[string]any) bool {
	for _, f := range s.fields {
		if !f.adminOnly {
			continue
		}
		if !sameValue(before[f.name], after[f.name]) {
			return true
		}
	}
	return false
}

func sameValue(a, b any) bool {
	la, aList := a.([]any)
	lb, bList := b.([]any)
	if aList || bList {
		if len(la) != len(lb) {
			return false
		}
		seen := make(map[any]int, len(la))
		for _, v := range la {
			seen[v]++
		}
		for _, v := range lb {
			if seen[v] == 0 {
				return false
			}
			seen[v]--
		}
		return true
	}
	if a == nil {
		a = zeroLike(b)
	}
	if b == nil {
		b = zeroLike(a)
	}
	return a == b
}

func zeroLike(v any) any {
	switch v.(type) {
	case bool:
		return false
	case float64:
		return float64(0)
	}
	return ""
}
