// Package models declares the stored record types. Records are plain value
// objects: repositories hand out copies and an update always replaces the
// whole record.
package models

import "strings"

// Account is a registered user identity. Email and username are unique
// (case-insensitive) within a backend instance. PasswordHash is an opaque
// string owned by the auth layer. Projects and Teams hold denormalized
// back-references kept consistent by the integrity helpers.
type Account struct {
	ID             string   `json:"id"`
	Email          string   `json:"email"`
	Username       string   `json:"username"`
	ProfilePicture string   `json:"profilePicture"`
	Hidden         bool     `json:"isHidden"`
	PasswordHash   string   `json:"passwordHash"`
	Admin          bool     `json:"isAdmin"`
	Permissions    []string `json:"permissions"`
	Projects       []string `json:"projects"`
	Teams          []string `json:"teams"`
	CreatedAt      int64    `json:"createdAt"`
	UpdatedAt      int64    `json:"updatedAt"`
}

// HasPermission reports whether the account carries the named permission
// (case-insensitive). Administrators implicitly hold every permission.
func (a Account) HasPermission(name string) bool {
	if a.Admin {
		return true
	}
	for _, p := range a.Permissions {
		if strings.EqualFold(p, name) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy, so a stored record can never be mutated
// through slices held by a caller.
func (a Account) Clone() Account {
	a.Permissions = cloneStrings(a.Permissions)
	a.Projects = cloneStrings(a.Projects)
	a.Teams = cloneStrings(a.Teams)
	return a
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
