// Package models contains data structures cached by the member CLI.
package models

import "time"

// User is the account record returned by the backend. It is replaced
// wholesale on every state change, never mutated field by field.
type User struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	FullName  string     `json:"full_name"`
	Avatar    string     `json:"avatar,omitempty"`
	Level     string     `json:"level,omitempty"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// DisplayName returns the full name if set, otherwise the username.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}
