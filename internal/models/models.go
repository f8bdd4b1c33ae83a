package models

import (
	"time"
)

// User represents an account. Identity is immutable once created.
type User struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"-" db:"created_at"`
}

// Deck is a named collection of cards owned by one user.
type Deck struct {
	ID      int64  `json:"id" db:"id"`
	Name    string `json:"name" db:"name"`
	OwnerID int64  `json:"owner_id" db:"owner_id"`
}

// DeckWithCards is a deck together with its cards, as returned by list and
// read endpoints.
type DeckWithCards struct {
	Deck
	Cards []CardWithTags `json:"cards"`
}

// Card belongs to exactly one deck. Its owner is the owner of that deck.
type Card struct {
	ID           int64  `json:"id" db:"id"`
	Front        string `json:"front" db:"front"`
	Back         string `json:"back" db:"back"`
	MasteryLevel int    `json:"mastery_level" db:"mastery_level"`
	DeckID       int64  `json:"deck_id" db:"deck_id"`
}

// CardWithTags is a card together with the tags linked to it.
type CardWithTags struct {
	Card
	Tags []Tag `json:"tags"`
}

// CardUpdate is a partial card update. Nil fields are left unchanged.
type CardUpdate struct {
	Front        *string `json:"front,omitempty"`
	Back         *string `json:"back,omitempty"`
	MasteryLevel *int    `json:"mastery_level,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u CardUpdate) Empty() bool {
	return u.Front == nil && u.Back == nil && u.MasteryLevel == nil
}

// Tag is a label owned by one user. Names are unique per owner.
type Tag struct {
	ID      int64  `json:"id" db:"id"`
	Name    string `json:"name" db:"name"`
	OwnerID int64  `json:"owner_id" db:"owner_id"`
}

// StudyLog records a study session on a date, optionally for a card or deck.
type StudyLog struct {
	ID     int64  `json:"id" db:"id"`
	Date   string `json:"date" db:"date"`
	CardID *int64 `json:"card_id" db:"card_id"`
	DeckID *int64 `json:"deck_id" db:"deck_id"`
	UserID *int64 `json:"-" db:"user_id"`
}

// RefreshToken is an opaque, single-use credential exchanged for a new token pair.
type RefreshToken struct {
	Token     string    `db:"token"`
	UserID    int64     `db:"user_id"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token"`
}

// DeckExport is the JSON snapshot written by the deck export.
type DeckExport struct {
	Deck       DeckWithCards `json:"deck"`
	ExportedAt time.Time     `json:"exported_at"`
}
