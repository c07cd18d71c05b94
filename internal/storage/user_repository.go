package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/healthcare-ab/careapi/internal/model"
	"github.com/healthcare-ab/careapi/internal/scheduling"
	"github.com/healthcare-ab/careapi/libs/db"
)

// UserRepository stores accounts and doubles as the directory behind
// display-name enrichment.
type UserRepository struct {
	pool *db.Pool
}

func NewUserRepository(pool *db.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, user model.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, role, first_name, last_name)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, user.ID, user.Email, user.PasswordHash, user.Role, user.FirstName, user.LastName)
	return err
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.get(ctx, `
		SELECT id, email, password_hash, role, first_name, last_name, created_at
		FROM users
		WHERE email = $1
	`, email)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (model.User, error) {
	return r.get(ctx, `
		SELECT id, email, password_hash, role, first_name, last_name, created_at
		FROM users
		WHERE id = $1
	`, id)
}

func (r *UserRepository) UpdateProfile(ctx context.Context, user model.User) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET first_name = $2,
			last_name = $3
		WHERE id = $1
	`, user.ID, user.FirstName, user.LastName)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return scheduling.ErrNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM users
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return scheduling.ErrNotFound
	}
	return nil
}

func (r *UserRepository) EmailTaken(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)
	`, email).Scan(&exists)
	return exists, err
}

func (r *UserRepository) get(ctx context.Context, query, arg string) (model.User, error) {
	var user model.User
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.FirstName,
		&user.LastName,
		&user.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, scheduling.ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	return user, nil
}
