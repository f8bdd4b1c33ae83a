package api

import (
	"context"
	"net/http"

	"github.com/flashdeck/flashdeck/internal/auth"
	"github.com/flashdeck/flashdeck/internal/flashcards"
	"github.com/flashdeck/flashdeck/internal/models"
)

func (api *Api) CreateDeckHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := api.currentUser(w, r)
	if !ok {
		return
	}
	var req flashcards.CreateDeckRequest
	if err := decodeJSON(r, w, &req); err != nil {
		api.writeError(w, r, err)
		return
	}

	deck, err := api.cards.CreateDeck(r.Context(), user, req)
	if err != nil {
		api.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deck)
}

func (api *Api) ListDecksHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := api.currentUser(w, r)
	if !ok {
		return
	}

	decks, err := api.cards.ListDecks(r.Context(), user)
	if err != nil {
		api.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, decks)
}

func (api *Api) GetDeckHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := api.currentUser(w, r)
	if !ok {
		return
	}
	deckID, err := idParam(r, "deckID")
	if err != nil {
		api.writeError(w, r, err)
		return
	}

	deck, err := api.cards.GetDeck(r.Context(), user, deckID)
	if err != nil {
		api.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deck)
}

func (api *Api) DeleteDeckHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := api.currentUser(w, r)
	if !ok {
		return
	}
	deckID, err := idParam(r, "deckID")
	if err != nil {
		api.writeError(w, r, err)
		return
	}

	if err := api.cards.DeleteDeck(r.Context(), user, deckID); err != nil {
		api.writeError(w, r, err)
		return
	}
	if api.exporter != nil {
		// The deck is already gone; stale snapshots are only logged.
		if err := api.exporter.DeleteDeckExports(r.Context(), user.ID, deckID); err != nil {
			api.log.Warn("failed to delete deck exports", "deck_id", deckID, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, okResponse)
}

func (api *Api) ExportDeckHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := api.currentUser(w, r)
	if !ok {
		return
	}
	deckID, err := idParam(r, "deckID")
	if err != nil {
		api.writeError(w, r, err)
		return
	}

	res, err := api.exporter.ExportDeck(r.Context(), user, deckID)
	if err != nil {
		api.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (api *Api) CreateCardHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := api.currentUser(w, r)
	if !ok {
		return
	}
	var req flashcards.CreateCardRequest
	if err := decodeJSON(r, w, &req); err != nil {
		api.writeError(w, r, err)
		return
	}

	card, err := api.cards.CreateCard(r.Context(), user, req)
	if err != nil {
		api.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (api *Api) GetCardHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := api.currentUser(w, r)
	if !ok {
		return
	}
	cardID, err := idParam(r, "cardID")
	if err != nil {
		api.writeError(w, r, err)
		return
	}

	card, err := api.cards.GetCard(r.Context(), user, cardID)
	if err != nil {
		api.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (api *Api) UpdateCardHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := api.currentUser(w, r)
	if !ok {
		return
	}
	cardID, err := idParam(r, "cardID")
	if err != nil {
		api.writeError(w, r, err)
		return
	}
	var upd models.CardUpdate
	if err := decodeJSON(r, w, &upd); err != nil {
		api.writeError(w, r, err)
		return
	}

	card, err := api.cards.UpdateCard(r.Context(), user, cardID, upd)
	if err != nil {
		api.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (api *Api) DeleteCardHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := api.currentUser(w, r)
	if !ok {
		return
	}
	cardID, err := idParam(r, "cardID")
	if err != nil {
		api.writeError(w, r, err)
		return
	}

	if err := api.cards.DeleteCard(r.Context(), user, cardID); err != nil {
		api.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse)
}

func (api *Api) AttachTagHandler(w http.ResponseWriter, r *http.Request) {
	api.changeTag(w, r, api.cards.AttachTag)
}

func (api *Api) DetachTagHandler(w http.ResponseWriter, r *http.Request) {
	api.changeTag(w, r, api.cards.DetachTag)
}

type tagChange func(ctx context.Context, user *models.User, cardID, tagID int64) (*models.CardWithTags, error)

func (api *Api) changeTag(w http.ResponseWriter, r *http.Request, change tagChange) {
	user, ok := api.currentUser(w, r)
	if !ok {
		return
	}
	cardID, err := idParam(r, "cardID")
	if err != nil {
		api.writeError(w, r, err)
		return
	}
	tagID, err := idParam(r, "tagID")
	if err != nil {
		api.writeError(w, r, err)
		return
	}

	card, err := change(r.Context(), user, cardID, tagID)
	if err != nil {
		api.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (api *Api) CreateTagHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := api.currentUser(w, r)
	if !ok {
		return
	}
	var req flashcards.CreateTagRequest
	if err := decodeJSON(r, w, &req); err != nil {
		api.writeError(w, r, err)
		return
	}

	tag, err := api.cards.CreateTag(r.Context(), user, req)
	if err != nil {
		api.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

func (api *Api) ListTagsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := api.currentUser(w, r)
	if !ok {
		return
	}

	tags, err := api.cards.ListTags(r.Context(), user)
	if err != nil {
		api.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

// CreateStudyLogHandler records a study log. The caller is optional under
// the open policy; the route middleware enforces the scoped policy.
func (api *Api) CreateStudyLogHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.GetUserFromContext(r.Context())
	var req flashcards.CreateStudyLogRequest
	if err := decodeJSON(r, w, &req); err != nil {
		api.writeError(w, r, err)
		return
	}

	entry, err := api.cards.CreateStudyLog(r.Context(), user, req)
	if err != nil {
		api.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (api *Api) ListStudyLogsHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.GetUserFromContext(r.Context())

	logs, err := api.cards.ListStudyLogs(r.Context(), user)
	if err != nil {
		api.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}
