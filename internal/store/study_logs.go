package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/flashdeck/flashdeck/internal/models"
)

// CreateStudyLog inserts a study log.
func (q *Queries) CreateStudyLog(ctx context.Context, entry models.StudyLog) (*models.StudyLog, error) {
	err := q.queryRow(ctx,
		"INSERT INTO study_logs (date, card_id, deck_id, user_id) VALUES (?, ?, ?, ?) RETURNING id",
		entry.Date, nullID(entry.CardID), nullID(entry.DeckID), nullID(entry.UserID),
	).Scan(&entry.ID)
	if err != nil {
		return nil, fmt.Errorf("create study log: %w", mapError(err))
	}
	return &entry, nil
}

// ListStudyLogs returns every study log in creation order.
func (q *Queries) ListStudyLogs(ctx context.Context) ([]models.StudyLog, error) {
	return q.listStudyLogs(ctx, "SELECT id, date, card_id, deck_id, user_id FROM study_logs ORDER BY id")
}

// ListStudyLogsByUser returns the study logs recorded by userID.
func (q *Queries) ListStudyLogsByUser(ctx context.Context, userID int64) ([]models.StudyLog, error) {
	return q.listStudyLogs(ctx, "SELECT id, date, card_id, deck_id, user_id FROM study_logs WHERE user_id = ? ORDER BY id", userID)
}

func (q *Queries) listStudyLogs(ctx context.Context, query string, args ...any) ([]models.StudyLog, error) {
	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list study logs: %w", err)
	}
	defer rows.Close()

	logs := []models.StudyLog{}
	for rows.Next() {
		var (
			entry                  models.StudyLog
			cardID, deckID, userID sql.NullInt64
		)
		if err := rows.Scan(&entry.ID, &entry.Date, &cardID, &deckID, &userID); err != nil {
			return nil, err
		}
		entry.CardID = idPtr(cardID)
		entry.DeckID = idPtr(deckID)
		entry.UserID = idPtr(userID)
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

func nullID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func idPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
