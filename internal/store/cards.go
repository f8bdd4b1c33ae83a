package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/flashdeck/flashdeck/internal/models"
)

const cardColumns = "id, front, back, mastery_level, deck_id"

// CreateCard inserts a card into deckID.
func (q *Queries) CreateCard(ctx context.Context, deckID int64, front, back string, masteryLevel int) (*models.Card, error) {
	card := &models.Card{Front: front, Back: back, MasteryLevel: masteryLevel, DeckID: deckID}
	err := q.queryRow(ctx,
		"INSERT INTO cards (front, back, mastery_level, deck_id) VALUES (?, ?, ?, ?) RETURNING id",
		card.Front, card.Back, card.MasteryLevel, card.DeckID,
	).Scan(&card.ID)
	if err != nil {
		return nil, fmt.Errorf("create card: %w", mapError(err))
	}
	return card, nil
}

// GetCard retrieves a card by id
func (q *Queries) GetCard(ctx context.Context, id int64) (*models.Card, error) {
	card, err := scanCard(q.queryRow(ctx, "SELECT "+cardColumns+" FROM cards WHERE id = ?", id))
	if err != nil {
		return nil, mapError(err)
	}
	return card, nil
}

// ListCardsByDeck returns the cards of one deck in creation order.
func (q *Queries) ListCardsByDeck(ctx context.Context, deckID int64) ([]models.Card, error) {
	return q.listCards(ctx, "SELECT "+cardColumns+" FROM cards WHERE deck_id = ? ORDER BY id", deckID)
}

// ListCardsByOwner returns the cards of every deck owned by ownerID.
func (q *Queries) ListCardsByOwner(ctx context.Context, ownerID int64) ([]models.Card, error) {
	return q.listCards(ctx, `
		SELECT c.id, c.front, c.back, c.mastery_level, c.deck_id
		FROM cards c
		JOIN decks d ON d.id = c.deck_id
		WHERE d.owner_id = ?
		ORDER BY c.id`, ownerID)
}

func (q *Queries) listCards(ctx context.Context, query string, arg any) ([]models.Card, error) {
	rows, err := q.query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	cards := []models.Card{}
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, *card)
	}
	return cards, rows.Err()
}

// UpdateCard applies the non-nil fields of upd and returns the stored card.
func (q *Queries) UpdateCard(ctx context.Context, id int64, upd models.CardUpdate) (*models.Card, error) {
	card, err := scanCard(q.queryRow(ctx, `
		UPDATE cards SET
			front = COALESCE(?, front),
			back = COALESCE(?, back),
			mastery_level = COALESCE(?, mastery_level)
		WHERE id = ?
		RETURNING `+cardColumns,
		nullString(upd.Front), nullString(upd.Back), nullInt(upd.MasteryLevel), id,
	))
	if err != nil {
		return nil, mapError(err)
	}
	return card, nil
}

// DeleteCard removes a card and its tag links. Study logs that referenced
// it keep existing with the reference cleared.
func (q *Queries) DeleteCard(ctx context.Context, id int64) error {
	if _, err := q.exec(ctx, "DELETE FROM card_tags WHERE card_id = ?", id); err != nil {
		return fmt.Errorf("delete card %d: %w", id, err)
	}
	if _, err := q.exec(ctx, "UPDATE study_logs SET card_id = NULL WHERE card_id = ?", id); err != nil {
		return fmt.Errorf("delete card %d: %w", id, err)
	}

	res, err := q.exec(ctx, "DELETE FROM cards WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete card %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (*models.Card, error) {
	var card models.Card
	if err := row.Scan(&card.ID, &card.Front, &card.Back, &card.MasteryLevel, &card.DeckID); err != nil {
		return nil, err
	}
	return &card, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}
