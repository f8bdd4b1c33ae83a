package api

import (
	"net/http"

	"github.com/flashdeck/flashdeck/internal/auth"
	domainerrors "github.com/flashdeck/flashdeck/internal/errors"
	"github.com/flashdeck/flashdeck/internal/models"
)

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (api *Api) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var creds auth.Credentials
	if err := decodeJSON(r, w, &creds); err != nil {
		api.writeError(w, r, err)
		return
	}

	user, err := api.auth.Register(r.Context(), creds)
	if err != nil {
		api.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// TokenHandler logs a user in with username and password sent as a
// urlencoded or multipart form.
func (api *Api) TokenHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	pair, err := api.auth.Login(r.Context(), auth.Credentials{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	})
	if err != nil {
		api.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (api *Api) RefreshTokenHandler(w http.ResponseWriter, r *http.Request) {
	token, err := readRefreshToken(w, r)
	if err != nil {
		api.writeError(w, r, err)
		return
	}

	pair, err := api.auth.Refresh(r.Context(), token)
	if err != nil {
		api.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (api *Api) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	token, err := readRefreshToken(w, r)
	if err != nil {
		api.writeError(w, r, err)
		return
	}

	if err := api.auth.Logout(r.Context(), token); err != nil {
		api.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse)
}

func (api *Api) MeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := api.currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// readRefreshToken accepts the refresh token as a JSON body or a form field,
// urlencoded or multipart.
func readRefreshToken(w http.ResponseWriter, r *http.Request) (string, error) {
	if isJSON(r) {
		var req refreshRequest
		if err := decodeJSON(r, w, &req); err != nil {
			return "", err
		}
		return req.RefreshToken, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return r.PostFormValue("refresh_token"), nil
}

// currentUser returns the authenticated user, writing a 401 when there is
// none.
func (api *Api) currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		api.writeError(w, r, domainerrors.ErrUnauthenticated)
		return nil, false
	}
	return user, true
}
