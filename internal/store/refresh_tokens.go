package store

import (
	"context"
	"fmt"
	"time"

	"github.com/flashdeck/flashdeck/internal/models"
)

// CreateRefreshToken persists a refresh token.
func (q *Queries) CreateRefreshToken(ctx context.Context, token models.RefreshToken) error {
	_, err := q.exec(ctx,
		"INSERT INTO refresh_tokens (token, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)",
		token.Token, token.UserID, token.ExpiresAt.Unix(), token.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("create refresh token: %w", mapError(err))
	}
	return nil
}

// ConsumeRefreshToken deletes token if it exists and has not expired at now,
// returning its owner. The check and the delete are one statement, so a
// token can be consumed at most once. A missing or expired token yields
// ErrNotFound.
func (q *Queries) ConsumeRefreshToken(ctx context.Context, token string, now time.Time) (int64, error) {
	var userID int64
	err := q.queryRow(ctx,
		"DELETE FROM refresh_tokens WHERE token = ? AND expires_at >= ? RETURNING user_id",
		token, now.Unix(),
	).Scan(&userID)
	if err != nil {
		return 0, mapError(err)
	}
	return userID, nil
}

// DeleteRefreshToken revokes a refresh token. Revoking an unknown token is a no-op.
func (q *Queries) DeleteRefreshToken(ctx context.Context, token string) error {
	if _, err := q.exec(ctx, "DELETE FROM refresh_tokens WHERE token = ?", token); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

// DeleteExpiredRefreshTokens removes tokens that expired before now and
// returns how many were removed.
func (q *Queries) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := q.exec(ctx, "DELETE FROM refresh_tokens WHERE expires_at < ?", now.Unix())
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	return res.RowsAffected()
}
