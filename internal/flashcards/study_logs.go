package flashcards

import (
	"context"
	"errors"

	"github.com/flashdeck/flashdeck/internal/config"
	domainerrors "github.com/flashdeck/flashdeck/internal/errors"
	"github.com/flashdeck/flashdeck/internal/models"
	"github.com/flashdeck/flashdeck/internal/store"
)

// CreateStudyLog records a study session. Under the open policy user may be
// nil, and a reference to a card or deck that does not exist is stored as
// null. Under the scoped policy user is required and must own what the log
// references.
func (s *Service) CreateStudyLog(ctx context.Context, user *models.User, req CreateStudyLogRequest) (*models.StudyLog, error) {
	scoped := s.studyLogPolicy == config.StudyLogPolicyScoped
	if scoped && user == nil {
		return nil, domainerrors.ErrUnauthenticated
	}
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	entry := models.StudyLog{Date: req.Date, CardID: req.CardID, DeckID: req.DeckID}
	if user != nil {
		entry.UserID = &user.ID
	}

	var created *models.StudyLog
	err := s.inTx(ctx, func(q *store.Queries) error {
		if entry.CardID != nil {
			if scoped {
				if _, err := ownedCard(ctx, q, user, *entry.CardID); err != nil {
					return err
				}
			} else if err := s.dropMissingRef(&entry.CardID, "card", func(id int64) error {
				_, err := q.GetCard(ctx, id)
				return err
			}); err != nil {
				return err
			}
		}
		if entry.DeckID != nil {
			if scoped {
				if _, err := ownedDeck(ctx, q, user, *entry.DeckID); err != nil {
					return err
				}
			} else if err := s.dropMissingRef(&entry.DeckID, "deck", func(id int64) error {
				_, err := q.GetDeck(ctx, id)
				return err
			}); err != nil {
				return err
			}
		}

		var err error
		created, err = q.CreateStudyLog(ctx, entry)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ListStudyLogs returns every study log under the open policy and only the
// caller's logs under the scoped policy.
func (s *Service) ListStudyLogs(ctx context.Context, user *models.User) ([]models.StudyLog, error) {
	scoped := s.studyLogPolicy == config.StudyLogPolicyScoped
	if scoped && user == nil {
		return nil, domainerrors.ErrUnauthenticated
	}

	var logs []models.StudyLog
	err := s.inTx(ctx, func(q *store.Queries) error {
		var err error
		if scoped {
			logs, err = q.ListStudyLogsByUser(ctx, user.ID)
		} else {
			logs, err = q.ListStudyLogs(ctx)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// dropMissingRef clears *ref when lookup reports the referenced row missing.
func (s *Service) dropMissingRef(ref **int64, kind string, lookup func(id int64) error) error {
	err := lookup(**ref)
	if errors.Is(err, store.ErrNotFound) {
		s.log.Debug("study log references missing "+kind+", storing null", kind+"_id", **ref)
		*ref = nil
		return nil
	}
	return err
}
