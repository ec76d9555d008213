package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	// Registers the OpenAPI description served under /api/swagger/.
	_ "aria-chat/backend/docs"
)

// NewRouter creates the chi router with all of the application's routes.
func NewRouter(h *ConversationHandler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/api/swagger/*", httpSwagger.WrapHandler)

	// Liveness and readiness check: 200 only when the store answers.
	r.Get("/healthz", h.Health)

	r.With(middleware.Timeout(60*time.Second)).Post("/api/v1/conversations", h.CreateConversation)

	r.Route("/api/v1/conversations/{conversationID}", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.Put("/", h.OpenConversation)
			r.Delete("/", h.CloseConversation)
			r.Post("/flush", h.Flush)

			r.Get("/messages", h.ListMessages)
			r.Delete("/messages", h.DeleteMessages)
			r.Post("/messages/user", h.AddUserMessage)
			r.Post("/messages/bot", h.AddBotMessage)
			r.Patch("/messages/{messageID}", h.UpdateUserMessage)
			r.Get("/messages/{messageID}/previous-user", h.PreviousUserMessage)
			r.Post("/messages/{messageID}/steps", h.AddBotStep)
			r.Patch("/messages/{messageID}/steps/{stepID}", h.UpdateBotStep)
			r.Post("/messages/{messageID}/steps/{stepID}/complete", h.CompleteBotMessageStep)
			r.Patch("/messages/{messageID}/steps/{stepID}/actions/{actionID}", h.UpdateBotAction)
		})

		// An event stream lasts as long as the assistant run, so it has no
		// request timeout.
		r.Post("/messages/{messageID}/events", h.ConsumeEvents)
	})

	return r
}
