package flashcards

import (
	"context"

	"github.com/flashdeck/flashdeck/internal/models"
	"github.com/flashdeck/flashdeck/internal/store"
)

// CreateCard adds a card to one of user's decks.
func (s *Service) CreateCard(ctx context.Context, user *models.User, req CreateCardRequest) (*models.CardWithTags, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	var card *models.Card
	err := s.inTx(ctx, func(q *store.Queries) error {
		deck, err := ownedDeck(ctx, q, user, req.DeckID)
		if err != nil {
			return err
		}
		card, err = q.CreateCard(ctx, deck.ID, req.Front, req.Back, req.MasteryLevel)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &models.CardWithTags{Card: *card, Tags: []models.Tag{}}, nil
}

// GetCard returns one of user's cards with its tags.
func (s *Service) GetCard(ctx context.Context, user *models.User, id int64) (*models.CardWithTags, error) {
	var result *models.CardWithTags
	err := s.inTx(ctx, func(q *store.Queries) error {
		card, err := ownedCard(ctx, q, user, id)
		if err != nil {
			return err
		}
		result, err = withTags(ctx, q, card)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateCard applies a partial update to one of user's cards. Fields left
// nil in upd keep their stored values.
func (s *Service) UpdateCard(ctx context.Context, user *models.User, id int64, upd models.CardUpdate) (*models.CardWithTags, error) {
	var result *models.CardWithTags
	err := s.inTx(ctx, func(q *store.Queries) error {
		card, err := ownedCard(ctx, q, user, id)
		if err != nil {
			return err
		}
		if !upd.Empty() {
			if card, err = q.UpdateCard(ctx, card.ID, upd); err != nil {
				return err
			}
		}
		result, err = withTags(ctx, q, card)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteCard deletes one of user's cards.
func (s *Service) DeleteCard(ctx context.Context, user *models.User, id int64) error {
	return s.inTx(ctx, func(q *store.Queries) error {
		card, err := ownedCard(ctx, q, user, id)
		if err != nil {
			return err
		}
		return q.DeleteCard(ctx, card.ID)
	})
}
