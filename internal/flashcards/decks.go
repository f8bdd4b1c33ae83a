package flashcards

import (
	"context"

	"github.com/flashdeck/flashdeck/internal/models"
	"github.com/flashdeck/flashdeck/internal/store"
)

// CreateDeck creates a deck owned by user.
func (s *Service) CreateDeck(ctx context.Context, user *models.User, req CreateDeckRequest) (*models.Deck, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	var deck *models.Deck
	err := s.inTx(ctx, func(q *store.Queries) error {
		var err error
		deck, err = q.CreateDeck(ctx, req.Name, user.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("deck created", "deck_id", deck.ID, "user_id", user.ID)
	return deck, nil
}

// ListDecks returns user's decks with their cards, each card with its tags.
func (s *Service) ListDecks(ctx context.Context, user *models.User) ([]models.DeckWithCards, error) {
	var result []models.DeckWithCards
	err := s.inTx(ctx, func(q *store.Queries) error {
		decks, err := q.ListDecksByOwner(ctx, user.ID)
		if err != nil {
			return err
		}
		cards, err := q.ListCardsByOwner(ctx, user.ID)
		if err != nil {
			return err
		}
		tags, err := q.ListTagsForOwnerCards(ctx, user.ID)
		if err != nil {
			return err
		}

		result = assembleDecks(decks, cards, tags)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetDeck returns one of user's decks with its cards.
func (s *Service) GetDeck(ctx context.Context, user *models.User, id int64) (*models.DeckWithCards, error) {
	var result *models.DeckWithCards
	err := s.inTx(ctx, func(q *store.Queries) error {
		deck, err := ownedDeck(ctx, q, user, id)
		if err != nil {
			return err
		}
		cards, err := q.ListCardsByDeck(ctx, deck.ID)
		if err != nil {
			return err
		}
		tags, err := q.ListTagsForOwnerCards(ctx, user.ID)
		if err != nil {
			return err
		}

		assembled := assembleDecks([]models.Deck{*deck}, cards, tags)
		result = &assembled[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteDeck deletes one of user's decks together with its cards.
func (s *Service) DeleteDeck(ctx context.Context, user *models.User, id int64) error {
	err := s.inTx(ctx, func(q *store.Queries) error {
		deck, err := ownedDeck(ctx, q, user, id)
		if err != nil {
			return err
		}
		return q.DeleteDeck(ctx, deck.ID)
	})
	if err != nil {
		return err
	}

	s.log.Debug("deck deleted", "deck_id", id, "user_id", user.ID)
	return nil
}

func assembleDecks(decks []models.Deck, cards []models.Card, tags map[int64][]models.Tag) []models.DeckWithCards {
	byDeck := make(map[int64][]models.CardWithTags, len(decks))
	for _, card := range cards {
		cardTags := tags[card.ID]
		if cardTags == nil {
			cardTags = []models.Tag{}
		}
		byDeck[card.DeckID] = append(byDeck[card.DeckID], models.CardWithTags{Card: card, Tags: cardTags})
	}

	result := make([]models.DeckWithCards, 0, len(decks))
	for _, deck := range decks {
		deckCards := byDeck[deck.ID]
		if deckCards == nil {
			deckCards = []models.CardWithTags{}
		}
		result = append(result, models.DeckWithCards{Deck: deck, Cards: deckCards})
	}
	return result
}
