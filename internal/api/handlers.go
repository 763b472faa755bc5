package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sellis/critterdex/internal/apperr"
	"github.com/sellis/critterdex/internal/deck"
	"github.com/sellis/critterdex/internal/dexservice"
	"github.com/sellis/critterdex/internal/query"
	"github.com/sellis/critterdex/internal/sse"
)

// EventPublisher receives deck change notifications for the SSE feed.
// A nil publisher disables the feed.
type EventPublisher interface {
	PublishDeckEvent(kind string, id int)
}

// Handler holds API route handlers.
type Handler struct {
	svc    *dexservice.Service
	events EventPublisher
}

// NewHandler creates a new Handler. events may be nil.
func NewHandler(svc *dexservice.Service, events EventPublisher) *Handler {
	return &Handler{svc: svc, events: events}
}

func (h *Handler) publish(kind string, id int) {
	if h.events != nil {
		h.events.PublishDeckEvent(kind, id)
	}
}

// specFromQuery maps browse query parameters onto a query.Spec.
func specFromQuery(r *http.Request) query.Spec {
	q := r.URL.Query()
	spec := query.Spec{
		Text:      q.Get("q"),
		Type:      q.Get("type"),
		Preset:    q.Get("preset"),
		SortBy:    q.Get("sort"),
		SortOrder: q.Get("order"),
	}
	if v := q.Get("min_id"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			spec.MinID = &n
		}
	}
	if v := q.Get("max_id"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			spec.MaxID = &n
		}
	}
	return spec
}

// ListCreatures handles GET /creatures: the browse view over the catalog
// working set, filtered and sorted by the query engine.
func (h *Handler) ListCreatures(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	page, info, err := h.svc.Browse(r.Context(), specFromQuery(r), offset, limit)
	if err != nil {
		slog.Error("list creatures failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, errorBody("catalog unavailable"))
		return
	}
	writeJSON(w, http.StatusOK, CreatureListResponse{Creatures: page, Page: info})
}

// GetCreature handles GET /creatures/{key}. A numeric key is an ID lookup,
// anything else is a name lookup.
func (h *Handler) GetCreature(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("creature id or name is required"))
		return
	}

	var (
		record any
		err    error
	)
	if id, convErr := strconv.Atoi(key); convErr == nil {
		record, err = h.svc.GetCreature(r.Context(), id)
	} else {
		record, err = h.svc.GetCreatureByName(r.Context(), strings.ToLower(key))
	}
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get creature failed", slog.String("key", key), slog.String("error", err.Error()))
			writeJSON(w, http.StatusBadGateway, errorBody("catalog unavailable"))
		}
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// Suggest handles GET /suggest: type-ahead search hits.
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	hits, err := h.svc.Suggest(r.Context(), q, limit)
	if err != nil {
		slog.Error("suggest failed", slog.String("q", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, errorBody("catalog unavailable"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": hits})
}

// Presets handles GET /presets.
func (h *Handler) Presets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, PresetListResponse{Presets: h.svc.Presets()})
}

// ListDeck handles GET /deck with optional q (substring search) and sort
// (name, id, date_added) parameters.
func (h *Handler) ListDeck(w http.ResponseWriter, r *http.Request) {
	store := h.svc.Deck()
	q := r.URL.Query().Get("q")

	entries := store.AllSorted(r.URL.Query().Get("sort"))
	if strings.TrimSpace(q) != "" {
		entries = store.Search(q)
	}
	writeJSON(w, http.StatusOK, DeckListResponse{
		Entries: entries,
		Total:   store.Count(),
		Max:     store.MaxSize(),
	})
}

// AddToDeck handles POST /deck.
func (h *Handler) AddToDeck(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req AddEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	added, err := h.svc.Deck().Add(req.input())
	if err != nil {
		if errors.Is(err, apperr.ErrDeckFull) {
			writeJSON(w, http.StatusConflict, errorBody("deck is full"))
		} else {
			slog.Error("add to deck failed", slog.Int("id", req.ID), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	if !added {
		writeJSON(w, http.StatusOK, AddEntryResponse{Added: false})
		return
	}
	h.publish(sse.KindAdded, req.ID)
	writeJSON(w, http.StatusCreated, AddEntryResponse{Added: true})
}

// RemoveFromDeck handles DELETE /deck/{id}.
func (h *Handler) RemoveFromDeck(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return
	}
	if !h.svc.Deck().Remove(id) {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	h.publish(sse.KindRemoved, id)
	w.WriteHeader(http.StatusNoContent)
}

// ClearDeck handles DELETE /deck.
func (h *Handler) ClearDeck(w http.ResponseWriter, r *http.Request) {
	h.svc.Deck().Clear()
	h.publish(sse.KindCleared, 0)
	w.WriteHeader(http.StatusNoContent)
}

// BulkAdd handles POST /deck/bulk.
func (h *Handler) BulkAdd(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 4<<20)
	var req BulkAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if len(req.Entries) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("entries are required"))
		return
	}

	inputs := make([]deck.EntryInput, 0, len(req.Entries))
	for _, e := range req.Entries {
		if err := e.Validate(); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		inputs = append(inputs, e.input())
	}

	res := h.svc.Deck().AddAll(inputs)
	for _, id := range res.Added {
		h.publish(sse.KindAdded, id)
	}
	writeJSON(w, http.StatusOK, res)
}

// BulkRemove handles DELETE /deck/bulk.
func (h *Handler) BulkRemove(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req BulkRemoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	removed, missing := h.svc.Deck().RemoveAll(req.IDs)
	if removed > 0 {
		h.publish(sse.KindRemoved, 0)
	}
	writeJSON(w, http.StatusOK, BulkRemoveResponse{Removed: removed, Missing: missing})
}

// DeckStats handles GET /deck/stats.
func (h *Handler) DeckStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Deck().Stats())
}

// ExportDeck handles GET /deck/export.
func (h *Handler) ExportDeck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Deck().Export())
}

// ImportDeck handles POST /deck/import. Structural problems in the document
// are an expected outcome reported as 422, never a 5xx.
func (h *Handler) ImportDeck(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 4<<20)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}

	store := h.svc.Deck()
	if !store.Import(body) {
		writeJSON(w, http.StatusUnprocessableEntity, ImportResponse{Imported: false})
		return
	}
	h.publish(sse.KindImported, 0)
	writeJSON(w, http.StatusOK, ImportResponse{Imported: true, Count: store.Count()})
}
