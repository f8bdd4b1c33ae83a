package store

import (
	"context"
	"fmt"
	"time"

	"github.com/flashdeck/flashdeck/internal/models"
)

// CreateUser inserts a user. A taken username yields ErrConflict.
func (q *Queries) CreateUser(ctx context.Context, username, passwordHash string, now time.Time) (*models.User, error) {
	user := &models.User{
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Unix(now.Unix(), 0).UTC(),
	}

	err := q.queryRow(ctx,
		"INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?) RETURNING id",
		user.Username, user.PasswordHash, user.CreatedAt.Unix(),
	).Scan(&user.ID)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", mapError(err))
	}
	return user, nil
}

// GetUserByID retrieves a user by id
func (q *Queries) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return q.getUser(ctx, "SELECT id, username, password_hash, created_at FROM users WHERE id = ?", id)
}

// GetUserByUsername retrieves a user by username
func (q *Queries) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return q.getUser(ctx, "SELECT id, username, password_hash, created_at FROM users WHERE username = ?", username)
}

func (q *Queries) getUser(ctx context.Context, query string, arg any) (*models.User, error) {
	var (
		user      models.User
		createdAt int64
	)
	err := q.queryRow(ctx, query, arg).Scan(&user.ID, &user.Username, &user.PasswordHash, &createdAt)
	if err != nil {
		return nil, mapError(err)
	}
	user.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &user, nil
}
