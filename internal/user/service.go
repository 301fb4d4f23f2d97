package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/frahmantamala/expense-approval/internal"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	Upsert(ctx context.Context, account *Account) error
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, internal.ErrUserNotFound.WithCause(err)
		}
		s.logger.Error("failed to get user", "error", err, "user_id", id)
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	u := a.User
	return &u, nil
}

// GetAccountByEmail is used by login. Emails are matched case-insensitively.
func (s *Service) GetAccountByEmail(ctx context.Context, email string) (*Account, error) {
	a, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return a, nil
}
