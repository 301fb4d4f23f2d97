package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	userDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/user"
	"github.com/frahmantamala/expense-approval/internal/user"
	"github.com/jmoiron/sqlx"
)

const selectUser = `SELECT id, email, name, role, department, avatar, password_hash, created_at, updated_at FROM users`

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.Account, error) {
	return r.getOne(ctx, selectUser+` WHERE id = ?`, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.Account, error) {
	return r.getOne(ctx, selectUser+` WHERE lower(email) = ?`, strings.ToLower(email))
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg string) (*user.Account, error) {
	var row userDatamodel.User
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(query), arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return user.FromDataModel(&row), nil
}

func (r *UserRepository) Upsert(ctx context.Context, account *user.Account) error {
	row := user.ToDataModel(account)
	_, err := r.db.NamedExecContext(ctx, `
INSERT INTO users (id, email, name, role, department, avatar, password_hash, created_at, updated_at)
VALUES (:id, :email, :name, :role, :department, :avatar, :password_hash, :created_at, :updated_at)
ON CONFLICT (id) DO UPDATE SET
  email = excluded.email,
  name = excluded.name,
  role = excluded.role,
  department = excluded.department,
  avatar = excluded.avatar,
  password_hash = excluded.password_hash,
  updated_at = excluded.updated_at`, row)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}
