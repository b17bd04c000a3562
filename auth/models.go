package auth

import (
	"encoding/json"
	"time"
)

// Role is one role assigned to a user.
type Role struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// User is the server's snapshot of an operator account. It is replaced
// wholesale on refresh, never patched.
type User struct {
	ID               int64     `json:"id"`
	Email            string    `json:"email"`
	FirstName        string    `json:"first_name,omitempty"`
	LastName         string    `json:"last_name,omitempty"`
	Name             string    `json:"name,omitempty"`
	UserType         string    `json:"userType,omitempty"`
	Roles            []Role    `json:"roles,omitempty"`
	TwoFactorEnabled bool      `json:"two_factor_enabled,omitempty"`
	CreatedAt        time.Time `json:"createdAt,omitzero"`
	UpdatedAt        time.Time `json:"updatedAt,omitzero"`
}

// DisplayName prefers the full name, then first/last, then the email.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	}
	return u.Email
}

// HasRole reports whether the user carries the named role.
func (u User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

// UnmarshalJSON accepts created_at as well as createdAt, and ignores
// timestamps it cannot parse.
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	var raw struct {
		plain
		CreatedAt      *string `json:"createdAt"`
		CreatedAtSnake *string `json:"created_at"`
		UpdatedAt      *string `json:"updatedAt"`
		UpdatedAtSnake *string `json:"updated_at"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*u = User(raw.plain)
	u.CreatedAt = parseTimestamp(raw.CreatedAt, raw.CreatedAtSnake)
	u.UpdatedAt = parseTimestamp(raw.UpdatedAt, raw.UpdatedAtSnake)
	return nil
}

func parseTimestamp(candidates ...*string) time.Time {
	for _, c := range candidates {
		if c == nil || *c == "" {
			continue
		}
		if ts, err := time.Parse(time.RFC3339Nano, *c); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// Credentials are submitted once per login attempt and never stored.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TwoFactorChallenge answers a pending login. UserID is whatever the login
// step returned, usually the email.
type TwoFactorChallenge struct {
	UserID string
	Code   string
}

// LoginResult is the normalized outcome of a login call. When Pending2FA is
// set, UserID identifies the challenge and User is nil; otherwise User is set
// and the token has been stored.
type LoginResult struct {
	Pending2FA bool
	UserID     string
	User       *User
	Message    string
}

// VerifyResult is the outcome of a successful verification.
type VerifyResult struct {
	Token string
	User  User
}
