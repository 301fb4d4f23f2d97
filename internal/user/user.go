package user

import (
	"errors"
	"strings"
	"time"

	userDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/user"
)

type Role string

const (
	RoleEmployee Role = "EMPLOYEE"
	RoleManager  Role = "MANAGER"
	RoleAdmin    Role = "ADMIN"
	RoleFinance  Role = "FINANCE"
)

func (r Role) Valid() bool {
	switch r {
	case RoleEmployee, RoleManager, RoleAdmin, RoleFinance:
		return true
	}
	return false
}

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", ErrInvalidRole
	}
	return r, nil
}

// User is an actor in the approval workflow. Values are passed by copy and no
// operation in this module changes a user's role after construction.
type User struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       Role   `json:"role"`
	Department string `json:"department,omitempty"`
	Avatar     string `json:"avatar,omitempty"`
}

// CanApprove reports whether the user may approve, reject or forward requests.
func (u User) CanApprove() bool {
	return u.Role == RoleManager || u.Role == RoleAdmin
}

func (u User) IsFinance() bool {
	return u.Role == RoleFinance
}

func (u User) IsZero() bool {
	return u.ID == ""
}

// Account pairs a user with its stored credential.
type Account struct {
	User
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

var (
	ErrNotFound    = errors.New("user not found")
	ErrInvalidRole = errors.New("invalid role")
)

func ToDataModel(a *Account) *userDatamodel.User {
	return &userDatamodel.User{
		ID:           a.ID,
		Email:        a.Email,
		Name:         a.Name,
		Role:         string(a.Role),
		Department:   a.Department,
		Avatar:       a.Avatar,
		PasswordHash: a.PasswordHash,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func FromDataModel(u *userDatamodel.User) *Account {
	return &Account{
		User: User{
			ID:         u.ID,
			Name:       u.Name,
			Email:      u.Email,
			Role:       Role(u.Role),
			Department: u.Department,
			Avatar:     u.Avatar,
		},
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}
