// Package export writes a deck snapshot as JSON to object storage and hands
// back a time limited download URL.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/flashdeck/flashdeck/internal/models"
	"github.com/flashdeck/flashdeck/internal/storage"
)

// ObjectStore is the subset of storage.S3Client the exporter needs.
type ObjectStore interface {
	UploadFile(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (*storage.UploadResult, error)
	GeneratePresignedURL(ctx context.Context, key string, expiration time.Duration) (string, error)
	DeletePrefix(ctx context.Context, prefix string) error
}

// DeckSource loads a deck the user owns.
type DeckSource interface {
	GetDeck(ctx context.Context, user *models.User, id int64) (*models.DeckWithCards, error)
}

type Result struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Exporter struct {
	decks   DeckSource
	objects ObjectStore
	urlTTL  time.Duration
	log     *slog.Logger
	now     func() time.Time
}

func NewExporter(decks DeckSource, objects ObjectStore, urlTTL time.Duration, log *slog.Logger) *Exporter {
	return &Exporter{
		decks:   decks,
		objects: objects,
		urlTTL:  urlTTL,
		log:     log.With("component", "export"),
		now:     time.Now,
	}
}

// ExportDeck uploads a snapshot of the deck and returns a presigned URL for
// it. Ownership errors from the deck source are returned unchanged.
func (e *Exporter) ExportDeck(ctx context.Context, user *models.User, deckID int64) (*Result, error) {
	deck, err := e.decks.GetDeck(ctx, user, deckID)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	body, err := json.Marshal(models.DeckExport{Deck: *deck, ExportedAt: now})
	if err != nil {
		return nil, fmt.Errorf("encoding deck %d: %w", deckID, err)
	}

	key := deckPrefix(user.ID, deck.ID) + uuid.NewString() + ".json"
	if _, err := e.objects.UploadFile(ctx, key, bytes.NewReader(body), int64(len(body)), "application/json"); err != nil {
		return nil, err
	}

	url, err := e.objects.GeneratePresignedURL(ctx, key, e.urlTTL)
	if err != nil {
		return nil, err
	}

	e.log.Info("deck exported", "deck_id", deck.ID, "user_id", user.ID, "key", key, "bytes", len(body))
	return &Result{Key: key, URL: url, ExpiresAt: now.Add(e.urlTTL)}, nil
}

// DeleteDeckExports removes every snapshot written for the deck. Called
// after the deck itself is deleted.
func (e *Exporter) DeleteDeckExports(ctx context.Context, userID, deckID int64) error {
	prefix := deckPrefix(userID, deckID)
	if err := e.objects.DeletePrefix(ctx, prefix); err != nil {
		return fmt.Errorf("deleting exports under %s: %w", prefix, err)
	}
	e.log.Debug("deck exports deleted", "deck_id", deckID, "user_id", userID)
	return nil
}

func deckPrefix(userID, deckID int64) string {
	return fmt.Sprintf("exports/%d/%d/", userID, deckID)
}
