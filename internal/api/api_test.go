package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/sellis/critterdex/internal/catalog"
	"github.com/sellis/critterdex/internal/deck"
	"github.com/sellis/critterdex/internal/dexservice"
	"github.com/sellis/critterdex/internal/query"
	"github.com/sellis/critterdex/internal/storage"
)

// testEnv wires a fake catalog upstream, a temp deck slot, the service and
// the router. authToken == "" means auth disabled.
func testEnv(t *testing.T, authToken string) (*dexservice.Service, http.Handler) {
	t.Helper()
	return testEnvSized(t, authToken, 0)
}

func testEnvSized(t *testing.T, authToken string, maxSize int) (*dexservice.Service, http.Handler) {
	t.Helper()

	upstream := httptest.NewServer(http.HandlerFunc(fakeCatalog))
	t.Cleanup(upstream.Close)

	client, err := catalog.NewClient(upstream.URL, nil, 100, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	slot, err := storage.NewFile(filepath.Join(t.TempDir(), "deck.json"))
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	store, err := deck.New(slot, maxSize, nil)
	if err != nil {
		t.Fatalf("deck.New: %v", err)
	}

	svc := dexservice.NewService(client, store, query.DefaultPresets())
	router := NewRouter(svc, authToken != "", authToken, nil, nil, filepath.Join(t.TempDir(), "sprites"))
	return svc, router
}

func fakeCatalog(w http.ResponseWriter, r *http.Request) {
	creature := func(id int, name, typ string, height, weight float64) string {
		return fmt.Sprintf(`{"id":%d,"name":%q,"height":%g,"weight":%g,"types":[{"name":%q}],"sprite":""}`,
			id, name, height, weight, typ)
	}
	all := map[int]string{
		1:  creature(1, "sproutle", "grass", 7, 69),
		4:  creature(4, "cindercub", "fire", 6, 85),
		7:  creature(7, "shellfin", "water", 5, 90),
		25: creature(25, "zappet", "electric", 4, 60),
	}
	names := map[string]int{"sproutle": 1, "cindercub": 4, "shellfin": 7, "zappet": 25}

	if r.URL.Path == "/creatures" {
		fmt.Fprintf(w, `{"count":4,"next":false,"results":[%s,%s,%s,%s]}`,
			all[1], all[4], all[7], all[25])
		return
	}
	key := strings.TrimPrefix(r.URL.Path, "/creatures/")
	id, err := strconv.Atoi(key)
	if err != nil {
		id = names[key]
	}
	body, ok := all[id]
	if !ok {
		http.NotFound(w, r)
		return
	}
	fmt.Fprint(w, body)
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func addEntry(t *testing.T, router http.Handler, id int, name string, tags ...string) {
	t.Helper()
	w := do(t, router, http.MethodPost, "/deck", AddEntryRequest{ID: id, Name: name, TypeTags: tags})
	if w.Code != http.StatusCreated {
		t.Fatalf("add %d status = %d, body = %s", id, w.Code, w.Body.String())
	}
}

func TestListCreatures(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/creatures?type=fire&sort=id", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp CreatureListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Creatures) != 1 || resp.Creatures[0].ID != 4 {
		t.Errorf("creatures = %+v", resp.Creatures)
	}
	if resp.Page.Total != 1 {
		t.Errorf("page = %+v", resp.Page)
	}
}

func TestListCreaturesPagination(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/creatures?sort=id&offset=1&limit=2", nil)
	var resp CreatureListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Creatures) != 2 || resp.Creatures[0].ID != 4 || resp.Creatures[1].ID != 7 {
		t.Errorf("creatures = %+v", resp.Creatures)
	}
	if !resp.Page.HasNext || !resp.Page.HasPrevious {
		t.Errorf("page = %+v", resp.Page)
	}
}

func TestListCreaturesIDRangeAndPreset(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/creatures?min_id=4&max_id=7", nil)
	var resp CreatureListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Creatures) != 2 {
		t.Errorf("range creatures = %+v", resp.Creatures)
	}

	// Unknown preset is ignored rather than rejected.
	w = do(t, router, http.MethodGet, "/creatures?preset=nope", nil)
	resp = CreatureListResponse{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if w.Code != http.StatusOK || resp.Page.Total != 4 {
		t.Errorf("unknown preset: status = %d, total = %d", w.Code, resp.Page.Total)
	}
}

func TestGetCreature(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/creatures/25", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("by id status = %d", w.Code)
	}
	w = do(t, router, http.MethodGet, "/creatures/Zappet", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("by name status = %d, body = %s", w.Code, w.Body.String())
	}
	w = do(t, router, http.MethodGet, "/creatures/9999", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing status = %d", w.Code)
	}
}

func TestSuggestRequiresQuery(t *testing.T) {
	_, router := testEnv(t, "")

	if w := do(t, router, http.MethodGet, "/suggest", nil); w.Code != http.StatusBadRequest {
		t.Errorf("blank q status = %d", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/suggest?q=zap", nil); w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}

func TestPresets(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/presets", nil)
	var resp PresetListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Presets) == 0 {
		t.Error("no presets returned")
	}
}

func TestDeckAddListRemove(t *testing.T) {
	_, router := testEnv(t, "")

	addEntry(t, router, 25, "zappet", "electric")

	// Duplicate add is 200 with added=false.
	w := do(t, router, http.MethodPost, "/deck", AddEntryRequest{ID: 25, Name: "zappet"})
	if w.Code != http.StatusOK {
		t.Fatalf("dup status = %d", w.Code)
	}
	var addResp AddEntryResponse
	_ = json.Unmarshal(w.Body.Bytes(), &addResp)
	if addResp.Added {
		t.Error("dup reported added=true")
	}

	w = do(t, router, http.MethodGet, "/deck", nil)
	var listResp DeckListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &listResp)
	if listResp.Total != 1 || len(listResp.Entries) != 1 || listResp.Entries[0].ID != 25 {
		t.Errorf("deck list = %+v", listResp)
	}
	if listResp.Max != deck.DefaultMaxSize {
		t.Errorf("max = %d", listResp.Max)
	}

	if w := do(t, router, http.MethodDelete, "/deck/25", nil); w.Code != http.StatusNoContent {
		t.Errorf("remove status = %d", w.Code)
	}
	if w := do(t, router, http.MethodDelete, "/deck/25", nil); w.Code != http.StatusNotFound {
		t.Errorf("remove miss status = %d", w.Code)
	}
}

func TestDeckCapacityConflict(t *testing.T) {
	_, router := testEnvSized(t, "", 1)

	addEntry(t, router, 1, "sproutle")
	w := do(t, router, http.MethodPost, "/deck", AddEntryRequest{ID: 2, Name: "other"})
	if w.Code != http.StatusConflict {
		t.Errorf("over-capacity status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestAddValidation(t *testing.T) {
	_, router := testEnv(t, "")

	for _, body := range []AddEntryRequest{
		{ID: 0, Name: "x"},
		{ID: -2, Name: "x"},
		{ID: 5},
	} {
		if w := do(t, router, http.MethodPost, "/deck", body); w.Code != http.StatusBadRequest {
			t.Errorf("body %+v status = %d, want 400", body, w.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/deck", strings.NewReader("{broken"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed JSON status = %d", w.Code)
	}
}

func TestDeckSearchAndSort(t *testing.T) {
	_, router := testEnv(t, "")
	addEntry(t, router, 25, "zappet", "electric")
	addEntry(t, router, 4, "cindercub", "fire")

	w := do(t, router, http.MethodGet, "/deck?q=fire", nil)
	var resp DeckListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Entries) != 1 || resp.Entries[0].ID != 4 {
		t.Errorf("search entries = %+v", resp.Entries)
	}

	w = do(t, router, http.MethodGet, "/deck?sort=id", nil)
	resp = DeckListResponse{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Entries) != 2 || resp.Entries[0].ID != 4 || resp.Entries[1].ID != 25 {
		t.Errorf("sorted entries = %+v", resp.Entries)
	}
}

func TestClearDeck(t *testing.T) {
	svc, router := testEnv(t, "")
	addEntry(t, router, 25, "zappet")

	if w := do(t, router, http.MethodDelete, "/deck", nil); w.Code != http.StatusNoContent {
		t.Errorf("clear status = %d", w.Code)
	}
	if svc.Deck().Count() != 0 {
		t.Errorf("count = %d after clear", svc.Deck().Count())
	}
}

func TestBulkAdd(t *testing.T) {
	_, router := testEnvSized(t, "", 2)

	w := do(t, router, http.MethodPost, "/deck/bulk", BulkAddRequest{Entries: []AddEntryRequest{
		{ID: 1, Name: "sproutle"},
		{ID: 1, Name: "sproutle"},
		{ID: 4, Name: "cindercub"},
		{ID: 7, Name: "shellfin"},
	}})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var res deck.BatchResult
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if len(res.Added) != 2 || len(res.Skipped) != 1 || len(res.Failed) != 1 {
		t.Errorf("result = %+v", res)
	}

	if w := do(t, router, http.MethodPost, "/deck/bulk", BulkAddRequest{}); w.Code != http.StatusBadRequest {
		t.Errorf("empty bulk status = %d", w.Code)
	}
}

func TestBulkRemove(t *testing.T) {
	_, router := testEnv(t, "")
	addEntry(t, router, 1, "sproutle")
	addEntry(t, router, 4, "cindercub")

	w := do(t, router, http.MethodDelete, "/deck/bulk", BulkRemoveRequest{IDs: []int{1, 4, 99}})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var res BulkRemoveResponse
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Removed != 2 || res.Missing != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestDeckStatsEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	addEntry(t, router, 25, "zappet", "electric")
	addEntry(t, router, 4, "cindercub", "fire")
	addEntry(t, router, 7, "shellfin", "fire")

	w := do(t, router, http.MethodGet, "/deck/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var stats struct {
		Total          int    `json:"total"`
		MostCommonType string `json:"most_common_type"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &stats)
	if stats.Total != 3 || stats.MostCommonType != "fire" {
		t.Errorf("stats = %+v", stats)
	}
}

func TestExportImport(t *testing.T) {
	_, router := testEnv(t, "")
	addEntry(t, router, 25, "zappet", "electric")

	w := do(t, router, http.MethodGet, "/deck/export", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export status = %d", w.Code)
	}
	exported := w.Body.Bytes()

	// Import the document into a fresh environment.
	_, other := testEnv(t, "")
	req := httptest.NewRequest(http.MethodPost, "/deck/import", bytes.NewReader(exported))
	rec := httptest.NewRecorder()
	other.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp ImportResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp.Imported || resp.Count != 1 {
		t.Errorf("import = %+v", resp)
	}
}

func TestImportRejectedIs422(t *testing.T) {
	_, router := testEnv(t, "")

	for _, body := range []string{
		`garbage`,
		`{"version":"1.0","entries":[]}`,
		`{"version":"1.0","entries":[{"id":0,"name":"","type_tags":null}]}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/deck/import", strings.NewReader(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusUnprocessableEntity {
			t.Errorf("import %q status = %d, want 422", body, w.Code)
		}
		var resp ImportResponse
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
		if resp.Imported {
			t.Errorf("import %q reported imported=true", body)
		}
	}
}

func TestAuthModes(t *testing.T) {
	_, router := testEnv(t, "sekrit")

	// No header.
	if w := do(t, router, http.MethodGet, "/deck", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("no header status = %d", w.Code)
	}

	// Wrong token.
	req := httptest.NewRequest(http.MethodGet, "/deck", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d", w.Code)
	}

	// Correct token.
	req = httptest.NewRequest(http.MethodGet, "/deck", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token status = %d", w.Code)
	}

	// Disabled mode passes without a header.
	_, open := testEnv(t, "")
	if w := do(t, open, http.MethodGet, "/deck", nil); w.Code != http.StatusOK {
		t.Errorf("disabled mode status = %d", w.Code)
	}
}

func TestSpriteInvalidAndMissing(t *testing.T) {
	_, router := testEnv(t, "")

	if w := do(t, router, http.MethodGet, "/sprites/abc", nil); w.Code != http.StatusBadRequest {
		t.Errorf("invalid id status = %d", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/sprites/9999", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown creature status = %d", w.Code)
	}
	// Known creature without a sprite URL.
	if w := do(t, router, http.MethodGet, "/sprites/25", nil); w.Code != http.StatusNotFound {
		t.Errorf("no sprite URL status = %d", w.Code)
	}
}
