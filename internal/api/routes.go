package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/flashdeck/flashdeck/internal/auth"
	"github.com/flashdeck/flashdeck/internal/config"
	domainerrors "github.com/flashdeck/flashdeck/internal/errors"
)

func (api *Api) setupRoutes() {
	r := api.Router

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(api.log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   api.Config.API.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		api.writeError(w, r, domainerrors.NotFound("Not Found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Detail: "Method Not Allowed", Code: "METHOD_NOT_ALLOWED"})
	})

	r.Get("/heartbeat", api.Heartbeat)

	// Public routes
	r.Post("/users", api.RegisterHandler)
	r.Post("/token", api.TokenHandler)
	r.Post("/refresh_token", api.RefreshTokenHandler)
	r.Post("/logout", api.LogoutHandler)

	requireAuth := auth.AuthMiddleware(api.auth, api.writeError)

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)

		r.Get("/users/me", api.MeHandler)

		r.Route("/decks", func(r chi.Router) {
			r.Post("/", api.CreateDeckHandler)
			r.Get("/", api.ListDecksHandler)
			r.Get("/{deckID}", api.GetDeckHandler)
			r.Delete("/{deckID}", api.DeleteDeckHandler)
			if api.exporter != nil {
				r.Post("/{deckID}/export", api.ExportDeckHandler)
			}
		})

		r.Route("/cards", func(r chi.Router) {
			r.Post("/", api.CreateCardHandler)
			r.Get("/{cardID}", api.GetCardHandler)
			r.Patch("/{cardID}", api.UpdateCardHandler)
			r.Delete("/{cardID}", api.DeleteCardHandler)
			r.Post("/{cardID}/tags/{tagID}", api.AttachTagHandler)
			r.Delete("/{cardID}/tags/{tagID}", api.DetachTagHandler)
		})

		r.Route("/tags", func(r chi.Router) {
			r.Post("/", api.CreateTagHandler)
			r.Get("/", api.ListTagsHandler)
		})
	})

	// Study logs follow the configured policy.
	r.Group(func(r chi.Router) {
		if api.cards.StudyLogPolicy() == config.StudyLogPolicyScoped {
			r.Use(requireAuth)
		} else {
			r.Use(auth.OptionalAuthMiddleware(api.auth))
		}
		r.Post("/study_logs", api.CreateStudyLogHandler)
		r.Get("/study_logs", api.ListStudyLogsHandler)
	})
}
