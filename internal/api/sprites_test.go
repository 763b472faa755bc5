package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/sellis/critterdex/internal/catalog"
	"github.com/sellis/critterdex/internal/deck"
	"github.com/sellis/critterdex/internal/dexservice"
	"github.com/sellis/critterdex/internal/query"
	"github.com/sellis/critterdex/internal/storage"
)

func TestSpriteDownloadAndCache(t *testing.T) {
	spriteHits := 0
	imgServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		spriteHits++
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	}))
	t.Cleanup(imgServer.Close)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"id":25,"name":"zappet","types":[{"name":"electric"}],"sprite":%q}`,
			imgServer.URL+"/25.png")
	}))
	t.Cleanup(upstream.Close)

	client, err := catalog.NewClient(upstream.URL, nil, 100, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	slot, err := storage.NewFile(filepath.Join(t.TempDir(), "deck.json"))
	if err != nil {
		t.Fatal(err)
	}
	store, err := deck.New(slot, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	svc := dexservice.NewService(client, store, query.DefaultPresets())

	spriteDir := filepath.Join(t.TempDir(), "sprites")
	sh := NewSpriteHandler(svc, spriteDir)
	r := chi.NewRouter()
	r.Get("/sprites/{id}", sh.ServeSprite)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/sprites/25", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, body = %s", i, w.Code, w.Body.String())
		}
		if w.Body.String() != "png-bytes" {
			t.Errorf("request %d body = %q", i, w.Body.String())
		}
	}
	if spriteHits != 1 {
		t.Errorf("sprite fetched %d times, want 1 (disk cache miss only)", spriteHits)
	}

	if _, err := os.Stat(filepath.Join(spriteDir, "25.png")); err != nil {
		t.Errorf("cached sprite missing: %v", err)
	}
	entries, _ := os.ReadDir(spriteDir)
	for _, e := range entries {
		if e.Name() != "25.png" {
			t.Errorf("unexpected file in sprite cache: %s", e.Name())
		}
	}
}
