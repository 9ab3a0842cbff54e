package models

import (
	"slices"

	"github.com/octabyte/license-client/enums"
)

type User struct {
	ID            string   `json:"id"`
	Email         string   `json:"email"`
	FirstName     string   `json:"firstName"`
	LastName      string   `json:"lastName"`
	Avatar        string   `json:"avatar,omitempty"`
	EmailVerified bool     `json:"emailVerified"`
	IsActive      bool     `json:"isActive"`
	IsSuperAdmin  bool     `json:"isSuperAdmin"`
	Role          string   `json:"role,omitempty"`
	Roles         []string `json:"roles,omitempty"`
}

// DisplayName returns "First Last", falling back to the email address.
func (u *User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Email
	}
}

// IsAdmin reports whether the user may access the admin dashboard.
func (u *User) IsAdmin() bool {
	if u == nil {
		return false
	}
	if u.IsSuperAdmin || enums.Role(u.Role) == enums.RoleAdmin {
		return true
	}
	return slices.Contains(u.Roles, string(enums.RoleAdmin))
}
