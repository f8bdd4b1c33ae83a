package flashcards

import (
	"context"
	"errors"

	domainerrors "github.com/flashdeck/flashdeck/internal/errors"
	"github.com/flashdeck/flashdeck/internal/models"
	"github.com/flashdeck/flashdeck/internal/store"
)

// CreateTag creates a tag owned by user. Tag names are unique per owner.
func (s *Service) CreateTag(ctx context.Context, user *models.User, req CreateTagRequest) (*models.Tag, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	var tag *models.Tag
	err := s.inTx(ctx, func(q *store.Queries) error {
		var err error
		tag, err = q.CreateTag(ctx, req.Name, user.ID)
		if errors.Is(err, store.ErrConflict) {
			return domainerrors.Conflict("Tag already exists")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return tag, nil
}

// ListTags returns user's tags.
func (s *Service) ListTags(ctx context.Context, user *models.User) ([]models.Tag, error) {
	var tags []models.Tag
	err := s.inTx(ctx, func(q *store.Queries) error {
		var err error
		tags, err = q.ListTagsByOwner(ctx, user.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}

// AttachTag links a tag to a card. Card and tag ownership are checked
// separately. Attaching an already linked tag changes nothing.
func (s *Service) AttachTag(ctx context.Context, user *models.User, cardID, tagID int64) (*models.CardWithTags, error) {
	return s.changeLink(ctx, user, cardID, tagID, (*store.Queries).LinkTag)
}

// DetachTag removes a tag from a card. Detaching a tag that is not linked
// changes nothing.
func (s *Service) DetachTag(ctx context.Context, user *models.User, cardID, tagID int64) (*models.CardWithTags, error) {
	return s.changeLink(ctx, user, cardID, tagID, (*store.Queries).UnlinkTag)
}

func (s *Service) changeLink(
	ctx context.Context,
	user *models.User,
	cardID, tagID int64,
	apply func(q *store.Queries, ctx context.Context, cardID, tagID int64) error,
) (*models.CardWithTags, error) {
	var result *models.CardWithTags
	err := s.inTx(ctx, func(q *store.Queries) error {
		card, err := ownedCard(ctx, q, user, cardID)
		if err != nil {
			return err
		}
		tag, err := ownedTag(ctx, q, user, tagID)
		if err != nil {
			return err
		}
		if err := apply(q, ctx, card.ID, tag.ID); err != nil {
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
