package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sellis/critterdex/internal/apperr"
	"github.com/sellis/critterdex/internal/dexservice"
)

const maxSpriteBytes = 5 << 20 // 5 MB

// SpriteHandler serves creature sprites from a local disk cache, fetching
// them from the record's sprite URL on first request. Filenames are derived
// from the numeric ID only, so no caller-supplied path ever reaches the
// file system.
type SpriteHandler struct {
	svc   *dexservice.Service
	dir   string
	httpc *http.Client
}

// NewSpriteHandler creates a handler caching sprites under dir.
func NewSpriteHandler(svc *dexservice.Service, dir string) *SpriteHandler {
	return &SpriteHandler{
		svc:   svc,
		dir:   dir,
		httpc: &http.Client{Timeout: 15 * time.Second},
	}
}

func (h *SpriteHandler) spritePath(id int) string {
	return filepath.Join(h.dir, fmt.Sprintf("%d.png", id))
}

// ServeSprite handles GET /sprites/{id}.
func (h *SpriteHandler) ServeSprite(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return
	}

	abs := h.spritePath(id)
	if _, statErr := os.Stat(abs); statErr == nil {
		http.ServeFile(w, r, abs)
		return
	}

	record, err := h.svc.GetCreature(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("sprite lookup failed", slog.Int("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusBadGateway, errorBody("catalog unavailable"))
		}
		return
	}
	if record.SpriteURL == "" {
		writeJSON(w, http.StatusNotFound, errorBody("no sprite for this creature"))
		return
	}

	if err := h.download(record.SpriteURL, abs); err != nil {
		slog.Error("sprite download failed", slog.Int("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, errorBody("sprite unavailable"))
		return
	}
	http.ServeFile(w, r, abs)
}

// download fetches url into path via a temp file so a partial fetch never
// becomes a cached sprite.
func (h *SpriteHandler) download(url, path string) error {
	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		return fmt.Errorf("sprites: create cache dir: %w", err)
	}

	resp, err := h.httpc.Get(url)
	if err != nil {
		return fmt.Errorf("sprites: fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sprites: fetch: unexpected status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(h.dir, ".sprite-tmp-*")
	if err != nil {
		return fmt.Errorf("sprites: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, io.LimitReader(resp.Body, maxSpriteBytes)); err != nil {
		return fmt.Errorf("sprites: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("sprites: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("sprites: rename: %w", err)
	}
	success = true
	return nil
}
