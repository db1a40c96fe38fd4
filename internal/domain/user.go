package domain

import "strings"

type User struct {
	ID              string   `json:"id"`
	Username        string   `json:"username"`
	Email           string   `json:"email"`
	Name            string   `json:"name"`
	Verified        bool     `json:"verified"`
	EmailVisibility bool     `json:"emailVisibility"`
	Roles           []Role   `json:"ait_whm_roles"`
	Created         DateTime `json:"created"`
	Updated         DateTime `json:"updated"`
}

// DisplayName returns the first non-empty of name, username and email.
func (u *User) DisplayName() string {
	return Coalesce(u.Name, u.Username, u.Email)
}

func (u *User) HasRole(r Role) bool {
	for _, have := range u.Roles {
		if have == r {
			return true
		}
	}
	return false
}

// RoleList renders the roles the way the users table shows them.
func (u *User) RoleList() string {
	parts := make([]string, len(u.Roles))
	for i, r := range u.Roles {
		parts[i] = string(r)
	}
	return strings.Join(parts, ", ")
}
