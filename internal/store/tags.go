package store

import (
	"context"
	"fmt"

	"github.com/flashdeck/flashdeck/internal/models"
)

// CreateTag inserts a tag. A name already used by the same owner yields ErrConflict.
func (q *Queries) CreateTag(ctx context.Context, name string, ownerID int64) (*models.Tag, error) {
	tag := &models.Tag{Name: name, OwnerID: ownerID}
	err := q.queryRow(ctx,
		"INSERT INTO tags (name, owner_id) VALUES (?, ?) RETURNING id",
		tag.Name, tag.OwnerID,
	).Scan(&tag.ID)
	if err != nil {
		return nil, fmt.Errorf("create tag: %w", mapError(err))
	}
	return tag, nil
}

// GetTag retrieves a tag by id
func (q *Queries) GetTag(ctx context.Context, id int64) (*models.Tag, error) {
	var tag models.Tag
	err := q.queryRow(ctx, "SELECT id, name, owner_id FROM tags WHERE id = ?", id).
		Scan(&tag.ID, &tag.Name, &tag.OwnerID)
	if err != nil {
		return nil, mapError(err)
	}
	return &tag, nil
}

// ListTagsByOwner returns the tags owned by ownerID ordered by name.
func (q *Queries) ListTagsByOwner(ctx context.Context, ownerID int64) ([]models.Tag, error) {
	rows, err := q.query(ctx, "SELECT id, name, owner_id FROM tags WHERE owner_id = ? ORDER BY name, id", ownerID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	tags := []models.Tag{}
	for rows.Next() {
		var tag models.Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.OwnerID); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// LinkTag associates a tag with a card. Linking twice is a no-op.
func (q *Queries) LinkTag(ctx context.Context, cardID, tagID int64) error {
	_, err := q.exec(ctx,
		"INSERT INTO card_tags (card_id, tag_id) VALUES (?, ?) ON CONFLICT (card_id, tag_id) DO NOTHING",
		cardID, tagID,
	)
	if err != nil {
		return fmt.Errorf("link tag %d to card %d: %w", tagID, cardID, mapError(err))
	}
	return nil
}

// UnlinkTag removes a tag from a card. Removing an absent link is a no-op.
func (q *Queries) UnlinkTag(ctx context.Context, cardID, tagID int64) error {
	_, err := q.exec(ctx, "DELETE FROM card_tags WHERE card_id = ? AND tag_id = ?", cardID, tagID)
	if err != nil {
		return fmt.Errorf("unlink tag %d from card %d: %w", tagID, cardID, err)
	}
	return nil
}

// ListTagsForCard returns the tags linked to a card ordered by name.
func (q *Queries) ListTagsForCard(ctx context.Context, cardID int64) ([]models.Tag, error) {
	byCard, err := q.listCardTags(ctx, `
		SELECT ct.card_id, t.id, t.name, t.owner_id
		FROM card_tags ct
		JOIN tags t ON t.id = ct.tag_id
		WHERE ct.card_id = ?
		ORDER BY t.name, t.id`, cardID)
	if err != nil {
		return nil, err
	}
	if tags, ok := byCard[cardID]; ok {
		return tags, nil
	}
	return []models.Tag{}, nil
}

// ListTagsForOwnerCards returns the tags of every card in decks owned by
// ownerID, keyed by card id.
func (q *Queries) ListTagsForOwnerCards(ctx context.Context, ownerID int64) (map[int64][]models.Tag, error) {
	return q.listCardTags(ctx, `
		SELECT ct.card_id, t.id, t.name, t.owner_id
		FROM card_tags ct
		JOIN tags t ON t.id = ct.tag_id
		JOIN cards c ON c.id = ct.card_id
		JOIN decks d ON d.id = c.deck_id
		WHERE d.owner_id = ?
		ORDER BY t.name, t.id`, ownerID)
}

func (q *Queries) listCardTags(ctx context.Context, query string, arg any) (map[int64][]models.Tag, error) {
	rows, err := q.query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list card tags: %w", err)
	}
	defer rows.Close()

	byCard := make(map[int64][]models.Tag)
	for rows.Next() {
		var (
			cardID int64
			tag    models.Tag
		)
		if err := rows.Scan(&cardID, &tag.ID, &tag.Name, &tag.OwnerID); err != nil {
			return nil, err
		}
		byCard[cardID] = append(byCard[cardID], tag)
	}
	return byCard, rows.Err()
}
