package users

import (
	"errors"
	"fmt"
	"net/mail"
	"slices"
	"strings"

	"propdesk/auth"
)

// Known user types.
const (
	TypeAdmin  = "ADMIN"
	TypeClient = "CLIENT"
	TypeStaff  = "STAFF"
)

// DefaultType is assigned when a create form leaves the type empty.
const DefaultType = TypeClient

const minPasswordLen = 6

var knownTypes = []string{TypeAdmin, TypeClient, TypeStaff}

var (
	// ErrInvalidID signals a non-positive user identifier.
	ErrInvalidID = errors.New("users: invalid user id")
	// ErrInvalidInput signals a user form that failed validation.
	ErrInvalidInput = errors.New("users: invalid user input")
)

// Account is a user as listed by the administration endpoints.
type Account = auth.User

// CreateInput is the registration payload.
type CreateInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	UserType  string `json:"userType"`
}

// UpdateInput edits an existing user. An empty password keeps the current one.
type UpdateInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password,omitempty"`
	UserType  string `json:"userType"`
}

// Validate normalizes the input in place and checks it.
func (in *CreateInput) Validate() error {
	profile := profileFields{&in.FirstName, &in.LastName, &in.Email, &in.UserType}
	problems := profile.check()
	if in.Password == "" {
		problems = append(problems, "password is required")
	} else if len(in.Password) < minPasswordLen {
		problems = append(problems, fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}
	return joinProblems(problems)
}

// Validate normalizes the input in place and checks it.
func (in *UpdateInput) Validate() error {
	profile := profileFields{&in.FirstName, &in.LastName, &in.Email, &in.UserType}
	problems := profile.check()
	if in.Password != "" && len(in.Password) < minPasswordLen {
		problems = append(problems, fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}
	return joinProblems(problems)
}

type profileFields struct {
	firstName, lastName, email, userType *string
}

func (p profileFields) check() []string {
	*p.firstName = strings.TrimSpace(*p.firstName)
	*p.lastName = strings.TrimSpace(*p.lastName)
	*p.email = strings.TrimSpace(*p.email)
	*p.userType = strings.ToUpper(strings.TrimSpace(*p.userType))
	if *p.userType == "" {
		*p.userType = DefaultType
	}

	var problems []string
	if *p.firstName == "" {
		problems = append(problems, "first name is required")
	}
	if *p.lastName == "" {
		problems = append(problems, "last name is required")
	}
	if *p.email == "" {
		problems = append(problems, "email is required")
	} else if addr, err := mail.ParseAddress(*p.email); err != nil || addr.Address != *p.email {
		problems = append(problems, "invalid email address")
	}
	if !slices.Contains(knownTypes, *p.userType) {
		problems = append(problems, fmt.Sprintf("unknown user type %q", *p.userType))
	}
	return problems
}

func joinProblems(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(problems, "; "))
}
