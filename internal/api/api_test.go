package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/flashdeck/flashdeck/internal/auth"
	"github.com/flashdeck/flashdeck/internal/config"
	"github.com/flashdeck/flashdeck/internal/export"
	"github.com/flashdeck/flashdeck/internal/flashcards"
	"github.com/flashdeck/flashdeck/internal/logger"
	"github.com/flashdeck/flashdeck/internal/models"
	"github.com/flashdeck/flashdeck/internal/storage"
	"github.com/flashdeck/flashdeck/internal/store"
	"github.com/flashdeck/flashdeck/internal/testutil"
)

type fakeObjectStore struct {
	uploads map[string][]byte
}

func (f *fakeObjectStore) UploadFile(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (*storage.UploadResult, error) {
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	f.uploads[key] = body
	return &storage.UploadResult{Key: key, Size: size}, nil
}

func (f *fakeObjectStore) DeletePrefix(ctx context.Context, prefix string) error {
	for key := range f.uploads {
		if strings.HasPrefix(key, prefix) {
			delete(f.uploads, key)
		}
	}
	return nil
}

func (f *fakeObjectStore) GeneratePresignedURL(ctx context.Context, key string, expiration time.Duration) (string, error) {
	return "https://objects.test/" + key, nil
}

func testConfig(policy string) *config.Config {
	return &config.Config{
		Env: config.EnvLocal,
		API: config.API{Port: 8000, CORSOrigins: []string{"http://localhost:3000"}},
		Database: config.Database{
			Type: "sqlite",
		},
		Auth: config.Auth{
			JWTSecret:             "test-secret",
			AccessTokenTTLMinutes: 30,
			RefreshTokenTTLDays:   7,
			BcryptCost:            bcrypt.MinCost,
		},
		StudyLog: config.StudyLog{AuthPolicy: policy},
		Export:   config.Export{URLTTL: 15 * time.Minute},
	}
}

func newTestApi(t *testing.T, policy string, objects export.ObjectStore) *Api {
	cfg := testConfig(policy)
	log := logger.Discard()
	st := store.New(testutil.OpenDB(t), "sqlite")
	cards := flashcards.NewService(st, policy, log)

	var exporter *export.Exporter
	if objects != nil {
		exporter = export.NewExporter(cards, objects, cfg.Export.URLTTL, log)
	}
	return New(cfg, log, st, auth.NewService(st, cfg.Auth, log), cards, exporter)
}

type ApiTestSuite struct {
	suite.Suite
	api     *Api
	objects *fakeObjectStore
}

func (s *ApiTestSuite) SetupTest() {
	s.objects = &fakeObjectStore{uploads: map[string][]byte{}}
	s.api = newTestApi(s.T(), config.StudyLogPolicyOpen, s.objects)
}

func (s *ApiTestSuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.api.Router.ServeHTTP(rec, req)
	return rec
}

func (s *ApiTestSuite) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.api.Router.ServeHTTP(rec, req)
	return rec
}

func (s *ApiTestSuite) postMultipart(path string, fields map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, value := range fields {
		s.Require().NoError(mw.WriteField(name, value))
	}
	s.Require().NoError(mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.api.Router.ServeHTTP(rec, req)
	return rec
}

func (s *ApiTestSuite) decode(rec *httptest.ResponseRecorder, v any) {
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func (s *ApiTestSuite) signUp(username, password string) models.TokenPair {
	rec := s.do(http.MethodPost, "/users/", "", map[string]string{"username": username, "password": password})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec = s.postForm("/token", url.Values{"username": {username}, "password": {password}})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var pair models.TokenPair
	s.decode(rec, &pair)
	return pair
}

func (s *ApiTestSuite) createDeck(token, name string) models.Deck {
	rec := s.do(http.MethodPost, "/decks", token, map[string]string{"name": name})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var deck models.Deck
	s.decode(rec, &deck)
	return deck
}

func (s *ApiTestSuite) createCard(token string, deckID int64, front, back string) models.CardWithTags {
	rec := s.do(http.MethodPost, "/cards", token, map[string]any{"front": front, "back": back, "deck_id": deckID})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var card models.CardWithTags
	s.decode(rec, &card)
	return card
}

func (s *ApiTestSuite) errorCode(rec *httptest.ResponseRecorder) string {
	var body errorResponse
	s.decode(rec, &body)
	s.NotEmpty(body.Detail)
	return string(body.Code)
}

func (s *ApiTestSuite) TestStudyScenario() {
	alice := s.signUp("alice", "pw1")
	s.Equal("bearer", alice.TokenType)
	s.NotEmpty(alice.RefreshToken)

	rec := s.do(http.MethodGet, "/users/me", alice.AccessToken, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var me map[string]any
	s.decode(rec, &me)
	s.Equal("alice", me["username"])
	s.NotContains(me, "password_hash")

	deck := s.createDeck(alice.AccessToken, "Spanish")
	card := s.createCard(alice.AccessToken, deck.ID, "hola", "hello")

	rec = s.do(http.MethodPatch, fmt.Sprintf("/cards/%d", card.ID), alice.AccessToken, map[string]int{"mastery_level": 3})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var patched models.CardWithTags
	s.decode(rec, &patched)
	s.Equal("hola", patched.Front)
	s.Equal("hello", patched.Back)
	s.Equal(3, patched.MasteryLevel)

	rec = s.do(http.MethodGet, "/decks", alice.AccessToken, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var decks []models.DeckWithCards
	s.decode(rec, &decks)
	s.Require().Len(decks, 1)
	s.Equal("Spanish", decks[0].Name)
	s.Require().Len(decks[0].Cards, 1)
	s.Equal(3, decks[0].Cards[0].MasteryLevel)
	s.NotNil(decks[0].Cards[0].Tags)
}

func (s *ApiTestSuite) TestDuplicateUsername() {
	s.signUp("alice", "pw1")
	rec := s.do(http.MethodPost, "/users", "", map[string]string{"username": "alice", "password": "other"})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("CONFLICT", s.errorCode(rec))
}

func (s *ApiTestSuite) TestLoginFailure() {
	s.signUp("alice", "pw1")
	rec := s.postForm("/token", url.Values{"username": {"alice"}, "password": {"wrong"}})
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Equal("Bearer", rec.Header().Get("WWW-Authenticate"))
	s.Equal("INVALID_CREDENTIALS", s.errorCode(rec))
}

func (s *ApiTestSuite) TestMultipartForms() {
	s.signUp("alice", "pw1")

	rec := s.postMultipart("/token", map[string]string{"username": "alice", "password": "pw1"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var pair models.TokenPair
	s.decode(rec, &pair)
	s.Equal("bearer", pair.TokenType)

	rec = s.do(http.MethodGet, "/users/me", pair.AccessToken, nil)
	s.Equal(http.StatusOK, rec.Code)

	rec = s.postMultipart("/token", map[string]string{"username": "alice", "password": "wrong"})
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Equal("INVALID_CREDENTIALS", s.errorCode(rec))

	rec = s.postMultipart("/refresh_token", map[string]string{"refresh_token": pair.RefreshToken})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
}

func (s *ApiTestSuite) TestProtectedRoutesRequireToken() {
	for _, path := range []string{"/users/me", "/decks", "/tags"} {
		rec := s.do(http.MethodGet, path, "", nil)
		s.Equal(http.StatusUnauthorized, rec.Code, path)
		s.Equal("Bearer", rec.Header().Get("WWW-Authenticate"), path)
	}

	rec := s.do(http.MethodGet, "/decks", "not-a-jwt", nil)
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Equal("UNAUTHENTICATED", s.errorCode(rec))
}

func (s *ApiTestSuite) TestForeignAndMissingEntities() {
	alice := s.signUp("alice", "pw1")
	bob := s.signUp("bob", "pw2")
	deck := s.createDeck(alice.AccessToken, "Spanish")
	card := s.createCard(alice.AccessToken, deck.ID, "hola", "hello")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"patch foreign card", http.MethodPatch, fmt.Sprintf("/cards/%d", card.ID), map[string]int{"mastery_level": 1}, http.StatusForbidden},
		{"delete foreign card", http.MethodDelete, fmt.Sprintf("/cards/%d", card.ID), nil, http.StatusForbidden},
		{"delete foreign deck", http.MethodDelete, fmt.Sprintf("/decks/%d", deck.ID), nil, http.StatusForbidden},
		{"card in foreign deck", http.MethodPost, "/cards", map[string]any{"front": "a", "back": "b", "deck_id": deck.ID}, http.StatusForbidden},
		{"patch missing card", http.MethodPatch, "/cards/9999", map[string]int{"mastery_level": 1}, http.StatusNotFound},
		{"delete missing deck", http.MethodDelete, "/decks/9999", nil, http.StatusNotFound},
		{"card in missing deck", http.MethodPost, "/cards", map[string]any{"front": "a", "back": "b", "deck_id": 9999}, http.StatusNotFound},
		{"bad id", http.MethodGet, "/cards/abc", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			rec := s.do(tt.method, tt.path, bob.AccessToken, tt.body)
			s.Equal(tt.status, rec.Code, rec.Body.String())
		})
	}

	rec := s.do(http.MethodGet, fmt.Sprintf("/cards/%d", card.ID), alice.AccessToken, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var got models.CardWithTags
	s.decode(rec, &got)
	s.Equal(0, got.MasteryLevel)
}

func (s *ApiTestSuite) TestDeleteDeck() {
	alice := s.signUp("alice", "pw1")
	deck := s.createDeck(alice.AccessToken, "Spanish")
	card := s.createCard(alice.AccessToken, deck.ID, "hola", "hello")

	rec := s.do(http.MethodDelete, fmt.Sprintf("/decks/%d", deck.ID), alice.AccessToken, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"ok":true}`, rec.Body.String())

	rec = s.do(http.MethodGet, fmt.Sprintf("/cards/%d", card.ID), alice.AccessToken, nil)
	s.Equal(http.StatusNotFound, rec.Code)
	rec = s.do(http.MethodDelete, fmt.Sprintf("/decks/%d", deck.ID), alice.AccessToken, nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *ApiTestSuite) TestTagLinks() {
	alice := s.signUp("alice", "pw1")
	deck := s.createDeck(alice.AccessToken, "Spanish")
	card := s.createCard(alice.AccessToken, deck.ID, "hablar", "to speak")

	rec := s.do(http.MethodPost, "/tags/", alice.AccessToken, map[string]string{"name": "verbs"})
	s.Require().Equal(http.StatusOK, rec.Code)
	var tag models.Tag
	s.decode(rec, &tag)

	rec = s.do(http.MethodPost, "/tags", alice.AccessToken, map[string]string{"name": "verbs"})
	s.Equal(http.StatusBadRequest, rec.Code)

	path := fmt.Sprintf("/cards/%d/tags/%d", card.ID, tag.ID)
	for i := 0; i < 2; i++ {
		rec = s.do(http.MethodPost, path, alice.AccessToken, nil)
		s.Require().Equal(http.StatusOK, rec.Code)
		var linked models.CardWithTags
		s.decode(rec, &linked)
		s.Len(linked.Tags, 1)
	}

	rec = s.do(http.MethodDelete, path, alice.AccessToken, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var unlinked models.CardWithTags
	s.decode(rec, &unlinked)
	s.Empty(unlinked.Tags)

	rec = s.do(http.MethodGet, "/tags", alice.AccessToken, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var tags []models.Tag
	s.decode(rec, &tags)
	s.Len(tags, 1)
}

func (s *ApiTestSuite) TestRefreshTokenRotation() {
	alice := s.signUp("alice", "pw1")

	rec := s.do(http.MethodPost, "/refresh_token", "", map[string]string{"refresh_token": alice.RefreshToken})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var rotated models.TokenPair
	s.decode(rec, &rotated)
	s.NotEqual(alice.RefreshToken, rotated.RefreshToken)

	rec = s.do(http.MethodPost, "/refresh_token", "", map[string]string{"refresh_token": alice.RefreshToken})
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Equal("INVALID_REFRESH_TOKEN", s.errorCode(rec))

	rec = s.postForm("/refresh_token", url.Values{"refresh_token": {rotated.RefreshToken}})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var again models.TokenPair
	s.decode(rec, &again)

	rec = s.do(http.MethodGet, "/users/me", again.AccessToken, nil)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *ApiTestSuite) TestLogout() {
	alice := s.signUp("alice", "pw1")

	rec := s.do(http.MethodPost, "/logout", "", map[string]string{"refresh_token": alice.RefreshToken})
	s.Require().Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"ok":true}`, rec.Body.String())

	rec = s.do(http.MethodPost, "/refresh_token", "", map[string]string{"refresh_token": alice.RefreshToken})
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *ApiTestSuite) TestStudyLogsOpen() {
	alice := s.signUp("alice", "pw1")
	deck := s.createDeck(alice.AccessToken, "Spanish")

	rec := s.do(http.MethodPost, "/study_logs", "", map[string]any{"date": "2024-03-01", "deck_id": deck.ID})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var entry models.StudyLog
	s.decode(rec, &entry)
	s.Equal("2024-03-01", entry.Date)
	s.Equal(deck.ID, *entry.DeckID)

	rec = s.do(http.MethodPost, "/study_logs", "", map[string]any{"date": "03/01/2024"})
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/study_logs", "", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var logs []models.StudyLog
	s.decode(rec, &logs)
	s.Len(logs, 1)
}

func (s *ApiTestSuite) TestExportDeck() {
	alice := s.signUp("alice", "pw1")
	bob := s.signUp("bob", "pw2")
	deck := s.createDeck(alice.AccessToken, "Spanish")
	s.createCard(alice.AccessToken, deck.ID, "hola", "hello")

	path := fmt.Sprintf("/decks/%d/export", deck.ID)
	rec := s.do(http.MethodPost, path, bob.AccessToken, nil)
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodGet, path, alice.AccessToken, nil)
	s.Equal(http.StatusMethodNotAllowed, rec.Code)
	s.Empty(s.objects.uploads)

	rec = s.do(http.MethodPost, path, alice.AccessToken, nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var res export.Result
	s.decode(rec, &res)
	s.Equal("https://objects.test/"+res.Key, res.URL)

	var snapshot models.DeckExport
	s.Require().NoError(json.Unmarshal(s.objects.uploads[res.Key], &snapshot))
	s.Equal("Spanish", snapshot.Deck.Name)
	s.Len(snapshot.Deck.Cards, 1)
}

func (s *ApiTestSuite) TestDeleteDeckRemovesExports() {
	alice := s.signUp("alice", "pw1")
	spanish := s.createDeck(alice.AccessToken, "Spanish")
	french := s.createDeck(alice.AccessToken, "French")

	for _, deck := range []models.Deck{spanish, spanish, french} {
		rec := s.do(http.MethodPost, fmt.Sprintf("/decks/%d/export", deck.ID), alice.AccessToken, nil)
		s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	}
	s.Require().Len(s.objects.uploads, 3)

	rec := s.do(http.MethodDelete, fmt.Sprintf("/decks/%d", spanish.ID), alice.AccessToken, nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/users/me", alice.AccessToken, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var me models.User
	s.decode(rec, &me)

	s.Require().Len(s.objects.uploads, 1)
	for key := range s.objects.uploads {
		s.True(strings.HasPrefix(key, fmt.Sprintf("exports/%d/%d/", me.ID, french.ID)), key)
	}
}

func (s *ApiTestSuite) TestHeartbeatAndCORS() {
	rec := s.do(http.MethodGet, "/heartbeat", "", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"status":"ok"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodOptions, "/decks", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	preflight := httptest.NewRecorder()
	s.api.Router.ServeHTTP(preflight, req)
	s.Equal(http.StatusOK, preflight.Code)
	s.Equal("http://localhost:3000", preflight.Header().Get("Access-Control-Allow-Origin"))

	rec = s.do(http.MethodGet, "/nonexistent", "", nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func TestApiSuite(t *testing.T) {
	suite.Run(t, new(ApiTestSuite))
}

func TestScopedStudyLogs(t *testing.T) {
	api := newTestApi(t, config.StudyLogPolicyScoped, nil)

	req := httptest.NewRequest(http.MethodGet, "/study_logs", nil)
	rec := httptest.NewRecorder()
	api.Router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/study_logs", strings.NewReader(`{"date":"2024-03-01"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	api.Router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous study log, got %d", rec.Code)
	}
}

func TestNewApiRequiresPort(t *testing.T) {
	cfg := testConfig(config.StudyLogPolicyOpen)
	cfg.API.Port = 0
	_, err := NewApi(cfg, logger.Discard())
	if err == nil || !strings.Contains(err.Error(), "port") {
		t.Fatalf("expected port error, got %v", err)
	}
}
