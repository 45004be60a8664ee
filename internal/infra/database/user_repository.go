package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/xavierca1/diag-leads/internal/entity"
)

type UserRepository struct {
	Pool Pool
}

func NewUserRepository(pool Pool) *UserRepository {
	return &UserRepository{Pool: pool}
}

func (r *UserRepository) FindUser(ctx context.Context, id string) (*entity.User, error) {
	var u entity.User
	err := r.Pool.QueryRow(ctx,
		`SELECT id, name, email, role FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrUserNotFound
		}
		return nil, eris.Wrapf(err, "users: find %s", id)
	}
	return &u, nil
}
