package auth

import "github.com/flashdeck/flashdeck/internal/models"

// OwnsDeck reports whether user owns deck.
func OwnsDeck(user *models.User, deck *models.Deck) bool {
	return user != nil && deck != nil && deck.OwnerID == user.ID
}

// OwnsCard reports whether user owns card. Cards carry no owner of their
// own: deck must be the card's deck and user must own it.
func OwnsCard(user *models.User, card *models.Card, deck *models.Deck) bool {
	return card != nil && deck != nil && card.DeckID == deck.ID && OwnsDeck(user, deck)
}

// OwnsTag reports whether user owns tag.
func OwnsTag(user *models.User, tag *models.Tag) bool {
	return user != nil && tag != nil && tag.OwnerID == user.ID
}
