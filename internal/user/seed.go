package user

import (
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Credential is a fixed demo login.
type Credential struct {
	User     User
	Password string
}

// DemoCredentials lists the seeded accounts. They exist for local use only.
var DemoCredentials = []Credential{
	{
		User:     User{ID: "admin-1", Name: "Admin Nguyễn", Email: "admin@example.com", Role: RoleAdmin, Department: "Quản lý"},
		Password: "admin123",
	},
	{
		User:     User{ID: "manager-1", Name: "Manager Trần", Email: "manager@example.com", Role: RoleManager, Department: "IT Department"},
		Password: "manager123",
	},
	{
		User:     User{ID: "user-1", Name: "User Lê", Email: "user@example.com", Role: RoleEmployee, Department: "Marketing"},
		Password: "user123",
	},
	{
		User:     User{ID: "finance-1", Name: "Finance Phạm", Email: "finance@example.com", Role: RoleFinance, Department: "Finance"},
		Password: "finance123",
	},
}

// DemoAccounts hashes the demo credentials with the given bcrypt cost.
func DemoAccounts(cost int) ([]*Account, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	now := time.Now().UTC()
	accounts := make([]*Account, 0, len(DemoCredentials))
	for _, c := range DemoCredentials {
		hash, err := bcrypt.GenerateFromPassword([]byte(c.Password), cost)
		if err != nil {
			return nil, fmt.Errorf("hash password for %s: %w", c.User.Email, err)
		}
		accounts = append(accounts, &Account{
			User:         c.User,
			PasswordHash: string(hash),
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	return accounts, nil
}
