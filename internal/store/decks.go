package store

import (
	"context"
	"fmt"

	"github.com/flashdeck/flashdeck/internal/models"
)

// CreateDeck inserts a deck owned by ownerID.
func (q *Queries) CreateDeck(ctx context.Context, name string, ownerID int64) (*models.Deck, error) {
	deck := &models.Deck{Name: name, OwnerID: ownerID}
	err := q.queryRow(ctx,
		"INSERT INTO decks (name, owner_id) VALUES (?, ?) RETURNING id",
		deck.Name, deck.OwnerID,
	).Scan(&deck.ID)
	if err != nil {
		return nil, fmt.Errorf("create deck: %w", mapError(err))
	}
	return deck, nil
}

// GetDeck retrieves a deck by id
func (q *Queries) GetDeck(ctx context.Context, id int64) (*models.Deck, error) {
	var deck models.Deck
	err := q.queryRow(ctx, "SELECT id, name, owner_id FROM decks WHERE id = ?", id).
		Scan(&deck.ID, &deck.Name, &deck.OwnerID)
	if err != nil {
		return nil, mapError(err)
	}
	return &deck, nil
}

// ListDecksByOwner returns the decks owned by ownerID in creation order.
func (q *Queries) ListDecksByOwner(ctx context.Context, ownerID int64) ([]models.Deck, error) {
	rows, err := q.query(ctx, "SELECT id, name, owner_id FROM decks WHERE owner_id = ? ORDER BY id", ownerID)
	if err != nil {
		return nil, fmt.Errorf("list decks: %w", err)
	}
	defer rows.Close()

	decks := []models.Deck{}
	for rows.Next() {
		var deck models.Deck
		if err := rows.Scan(&deck.ID, &deck.Name, &deck.OwnerID); err != nil {
			return nil, err
		}
		decks = append(decks, deck)
	}
	return decks, rows.Err()
}

// DeleteDeck removes a deck together with its cards and their tag links.
// Study logs that referenced the deck or its cards keep existing with the
// reference cleared.
func (q *Queries) DeleteDeck(ctx context.Context, id int64) error {
	steps := []string{
		"DELETE FROM card_tags WHERE card_id IN (SELECT id FROM cards WHERE deck_id = ?)",
		"UPDATE study_logs SET card_id = NULL WHERE card_id IN (SELECT id FROM cards WHERE deck_id = ?)",
		"UPDATE study_logs SET deck_id = NULL WHERE deck_id = ?",
		"DELETE FROM cards WHERE deck_id = ?",
	}
	for _, stmt := range steps {
		if _, err := q.exec(ctx, stmt, id); err != nil {
			return fmt.Errorf("delete deck %d: %w", id, err)
		}
	}

	res, err := q.exec(ctx, "DELETE FROM decks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete deck %d: %w", id, err)
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
