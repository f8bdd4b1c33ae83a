// Package flashcards implements the deck, card, tag and study log
// operations. Every operation runs in one transaction and checks ownership
// after confirming the entity exists: a missing entity is NotFound, an
// entity owned by someone else is Forbidden.
package flashcards

import (
	"context"
	"errors"
	"log/slog"

	"github.com/flashdeck/flashdeck/internal/auth"
	"github.com/flashdeck/flashdeck/internal/config"
	domainerrors "github.com/flashdeck/flashdeck/internal/errors"
	"github.com/flashdeck/flashdeck/internal/models"
	"github.com/flashdeck/flashdeck/internal/store"
	"github.com/flashdeck/flashdeck/internal/validation"
)

var (
	errDeckNotFound = domainerrors.NotFound("Deck not found")
	errCardNotFound = domainerrors.NotFound("Card not found")
	errTagNotFound  = domainerrors.NotFound("Tag not found")
	errNotOwner     = domainerrors.Forbidden("Not authorized")
)

type CreateDeckRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

type CreateCardRequest struct {
	Front        string `json:"front" validate:"required"`
	Back         string `json:"back" validate:"required"`
	DeckID       int64  `json:"deck_id" validate:"required"`
	MasteryLevel int    `json:"mastery_level"`
}

type CreateTagRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type CreateStudyLogRequest struct {
	Date   string `json:"date" validate:"required,datetime=2006-01-02"`
	CardID *int64 `json:"card_id,omitempty"`
	DeckID *int64 `json:"deck_id,omitempty"`
}

// Service implements the flashcard operations on top of the store.
type Service struct {
	store          *store.Store
	validate       *validation.Validator
	studyLogPolicy string
	log            *slog.Logger
}

// NewService creates a flashcard service. studyLogPolicy is
// config.StudyLogPolicyOpen or config.StudyLogPolicyScoped.
func NewService(st *store.Store, studyLogPolicy string, log *slog.Logger) *Service {
	if studyLogPolicy == "" {
		studyLogPolicy = config.StudyLogPolicyOpen
	}
	return &Service{
		store:          st,
		validate:       validation.New(),
		studyLogPolicy: studyLogPolicy,
		log:            log.With("component", "flashcards"),
	}
}

// StudyLogPolicy returns the configured study log policy.
func (s *Service) StudyLogPolicy() string {
	return s.studyLogPolicy
}

// inTx runs fn in a transaction. Errors that are not already domain errors
// become internal errors.
func (s *Service) inTx(ctx context.Context, fn func(q *store.Queries) error) error {
	err := s.store.WithTx(ctx, fn)
	if err == nil {
		return nil
	}
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	return domainerrors.Internal(err)
}

func ownedDeck(ctx context.Context, q *store.Queries, user *models.User, id int64) (*models.Deck, error) {
	deck, err := q.GetDeck(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errDeckNotFound
		}
		return nil, err
	}
	if !auth.OwnsDeck(user, deck) {
		return nil, errNotOwner
	}
	return deck, nil
}

func ownedCard(ctx context.Context, q *store.Queries, user *models.User, id int64) (*models.Card, error) {
	card, err := q.GetCard(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errCardNotFound
		}
		return nil, err
	}
	deck, err := q.GetDeck(ctx, card.DeckID)
	if err != nil {
		return nil, err
	}
	if !auth.OwnsCard(user, card, deck) {
		return nil, errNotOwner
	}
	return card, nil
}

func ownedTag(ctx context.Context, q *store.Queries, user *models.User, id int64) (*models.Tag, error) {
	tag, err := q.GetTag(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errTagNotFound
		}
		return nil, err
	}
	if !auth.OwnsTag(user, tag) {
		return nil, errNotOwner
	}
	return tag, nil
}

func withTags(ctx context.Context, q *store.Queries, card *models.Card) (*models.CardWithTags, error) {
	tags, err := q.ListTagsForCard(ctx, card.ID)
	if err != nil {
		return nil, err
	}
	return &models.CardWithTags{Card: *card, Tags: tags}, nil
}
