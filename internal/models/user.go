package models

import (
	"strings"
	"time"
	"unicode/utf8"
)

type User struct {
	ID             int64      `json:"-"`
	PublicID       string     `json:"id"`
	Email          string     `json:"email"`
	PasswordHash   string     `json:"-"`
	LastSignedInAt *time.Time `json:"lastSignedInAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      *time.Time `json:"updatedAt,omitempty"`
	DeletedAt      *time.Time `json:"-"`
	Profile        *Profile   `json:"profile,omitempty"`
	Roles          []string   `json:"roles,omitempty"`
}

// HasRole reports membership in an already-loaded role list. Role names
// compare case-insensitively.
func (u *User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if strings.EqualFold(r, name) {
			return true
		}
	}
	return false
}

// AvatarInitial is the single character used for placeholder avatars:
// the first letter of the profile first name, falling back to the email.
func (u *User) AvatarInitial() string {
	if u.Profile != nil && u.Profile.FirstName != "" {
		return firstInitial(u.Profile.FirstName)
	}
	if u.Email != "" {
		return firstInitial(u.Email)
	}
	return "?"
}

// firstInitial takes the first rune, not the first byte, so multi-byte
// names ("Émile") keep a valid initial.
func firstInitial(s string) string {
	r, _ := utf8.DecodeRuneInString(s)
	return strings.ToUpper(string(r))
}

type Profile struct {
	ID        int64      `json:"-"`
	UserID    int64      `json:"-"`
	FirstName string     `json:"firstName,omitempty"`
	LastName  string     `json:"lastName,omitempty"`
	CreatedAt time.Time  `json:"-"`
	UpdatedAt *time.Time `json:"-"`
}

type Role struct {
	ID   int64
	Name string
}

type UserRole struct {
	ID        int64
	UserID    int64
	RoleID    int64
	CreatedAt time.Time
	DeletedAt *time.Time
}
