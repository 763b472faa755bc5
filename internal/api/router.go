package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sellis/critterdex/internal/dexservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// events, if non-nil, receives deck change notifications.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// spriteDir is where fetched sprites are cached on disk.
func NewRouter(svc *dexservice.Service, authEnabled bool, token string, events EventPublisher, sseHandler http.Handler, spriteDir string) chi.Router {
	h := NewHandler(svc, events)
	sh := NewSpriteHandler(svc, spriteDir)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Catalog browse and lookup.
	r.Get("/creatures", h.ListCreatures)
	r.Get("/creatures/{key}", h.GetCreature)
	r.Get("/suggest", h.Suggest)
	r.Get("/presets", h.Presets)

	// Deck.
	r.Get("/deck", h.ListDeck)
	r.Post("/deck", h.AddToDeck)
	r.Delete("/deck", h.ClearDeck)
	r.Post("/deck/bulk", h.BulkAdd)
	r.Delete("/deck/bulk", h.BulkRemove)
	r.Get("/deck/stats", h.DeckStats)
	r.Get("/deck/export", h.ExportDeck)
	r.Post("/deck/import", h.ImportDeck)
	r.Delete("/deck/{id}", h.RemoveFromDeck)

	// Sprite cache passthrough.
	r.Get("/sprites/{id}", sh.ServeSprite)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
