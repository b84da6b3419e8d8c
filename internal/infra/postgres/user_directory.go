package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizarena-service/internal/domain"
)

// UserDirectory is the Postgres mirror of the external identity store.
type UserDirectory struct {
	pool *pgxpool.Pool
}

func NewUserDirectory(pool *pgxpool.Pool) *UserDirectory {
	return &UserDirectory{pool: pool}
}

func (d *UserDirectory) Get(ctx context.Context, id string) (domain.User, error) {
	var user domain.User
	err := d.pool.QueryRow(ctx, `
		SELECT id, email, COALESCE(first_name, ''), COALESCE(last_name, '')
		FROM users
		WHERE id = $1`, id).
		Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func (d *UserDirectory) Upsert(ctx context.Context, user domain.User) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO users (id, email, first_name, last_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET email      = EXCLUDED.email,
		    first_name = EXCLUDED.first_name,
		    last_name  = EXCLUDED.last_name,
		    updated_at = now()`,
		user.ID, user.Email, user.FirstName, user.LastName)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}
