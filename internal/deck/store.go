// Package deck implements the persisted local collection of creatures.
package deck

import (
	"encoding/json"
	"log/slog"
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sellis/critterdex/internal/apperr"
	"github.com/sellis/critterdex/internal/models"
	"github.com/sellis/critterdex/internal/storage"
)

// DefaultMaxSize is the deck capacity used when the configured value is zero.
const DefaultMaxSize = 50

// statsTTL bounds how long a computed stats snapshot may be served without
// recomputation. Any mutation invalidates the snapshot immediately.
const statsTTL = 3 * time.Second

// EntryInput carries the fields a caller supplies when adding a creature.
// DateAdded is assigned by the store.
type EntryInput struct {
	ID        int      `json:"id"`
	Name      string   `json:"name"`
	SpriteURL string   `json:"sprite_url"`
	TypeTags  []string `json:"type_tags"`
}

// Listener receives the full entry list after every successful mutation.
// Listeners always get a fresh copy; mutating it cannot affect the store.
type Listener func(entries []models.CollectionEntry)

// BatchResult partitions the outcome of AddAll by entry ID.
type BatchResult struct {
	Added   []int `json:"added"`
	Skipped []int `json:"skipped"`
	Failed  []int `json:"failed"`
}

// Store is the sole owner of the persisted deck slot. All methods are safe
// for concurrent use; mutations are atomic with respect to read methods.
//
// Persistence is best-effort: a failed slot write is logged and the in-memory
// mutation stands, so a crash before the next successful write loses it. The
// deck is a local cache of preference data, not a system of record.
type Store struct {
	mu       sync.Mutex
	provider storage.Provider
	logger   *slog.Logger
	maxSize  int
	now      func() time.Time

	entries []models.CollectionEntry // insertion order
	byID    map[int]int              // id → index into entries

	statsCache *models.DeckStats
	statsAt    time.Time

	lastSaved string // checksum of the last successfully persisted payload

	nextSub   int
	listeners map[int]Listener
}

// New creates a Store over the given slot and loads any persisted entries.
// Corrupt or non-array slot content resets the deck to empty.
func New(provider storage.Provider, maxSize int, logger *slog.Logger) (*Store, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		provider:  provider,
		logger:    logger,
		maxSize:   maxSize,
		now:       time.Now,
		byID:      make(map[int]int),
		listeners: make(map[int]Listener),
	}
	s.mu.Lock()
	s.loadLocked()
	s.mu.Unlock()
	return s, nil
}

// loadLocked replaces in-memory state from the slot. Caller holds mu.
func (s *Store) loadLocked() {
	s.entries = nil
	s.byID = make(map[int]int)
	s.statsCache = nil

	raw, err := s.provider.Load()
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("deck: load failed, starting empty", slog.String("error", err.Error()))
		}
		return
	}

	var entries []models.CollectionEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		s.logger.Warn("deck: corrupt slot content, resetting to empty",
			slog.String("path", s.provider.Path()),
			slog.String("error", err.Error()))
		return
	}
	for _, e := range entries {
		if _, dup := s.byID[e.ID]; dup {
			continue
		}
		s.byID[e.ID] = len(s.entries)
		s.entries = append(s.entries, e)
	}
	s.lastSaved = storage.Checksum(raw)
}

// persistLocked writes the entry array to the slot. Failures are logged and
// swallowed: the in-memory mutation has already been applied. Caller holds mu.
func (s *Store) persistLocked() {
	raw, err := json.Marshal(s.entriesOrEmpty())
	if err != nil {
		s.logger.Error("deck: marshal failed, slot not updated", slog.String("error", err.Error()))
		return
	}
	if err := s.provider.Save(raw); err != nil {
		s.logger.Error("deck: persist failed, changes may not survive a restart",
			slog.String("path", s.provider.Path()),
			slog.String("error", err.Error()))
		return
	}
	s.lastSaved = storage.Checksum(raw)
}

func (s *Store) entriesOrEmpty() []models.CollectionEntry {
	if s.entries == nil {
		return []models.CollectionEntry{}
	}
	return s.entries
}

// snapshotLocked returns a copy of the entry list in insertion order.
func (s *Store) snapshotLocked() []models.CollectionEntry {
	out := make([]models.CollectionEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Add inserts a new entry, stamping DateAdded. It returns false when an entry
// with the same ID already exists (no fields are updated, DateAdded included)
// and apperr.ErrDeckFull when the deck is at capacity and the ID is new.
func (s *Store) Add(in EntryInput) (bool, error) {
	s.mu.Lock()
	if _, exists := s.byID[in.ID]; exists {
		s.mu.Unlock()
		return false, nil
	}
	if len(s.entries) >= s.maxSize {
		s.mu.Unlock()
		return false, apperr.ErrDeckFull
	}
	s.insertLocked(in)
	s.persistLocked()
	s.statsCache = nil
	snap, subs := s.notifyTargetsLocked()
	s.mu.Unlock()

	s.notify(snap, subs)
	return true, nil
}

func (s *Store) insertLocked(in EntryInput) {
	tags := in.TypeTags
	if tags == nil {
		tags = []string{}
	}
	s.byID[in.ID] = len(s.entries)
	s.entries = append(s.entries, models.CollectionEntry{
		ID:        in.ID,
		Name:      in.Name,
		SpriteURL: in.SpriteURL,
		TypeTags:  tags,
		DateAdded: s.now().UTC(),
	})
}

// Remove deletes the entry with the given ID. A miss is a no-op: no slot
// write, no notification, false returned.
func (s *Store) Remove(id int) bool {
	s.mu.Lock()
	idx, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.deleteAtLocked(idx)
	s.persistLocked()
	s.statsCache = nil
	snap, subs := s.notifyTargetsLocked()
	s.mu.Unlock()

	s.notify(snap, subs)
	return true
}

func (s *Store) deleteAtLocked(idx int) {
	delete(s.byID, s.entries[idx].ID)
	s.entries = append(s.entries[:idx], s.entries[idx+1:]...)
	for i := idx; i < len(s.entries); i++ {
		s.byID[s.entries[i].ID] = i
	}
}

// Has reports whether an entry with the given ID exists.
func (s *Store) Has(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byID[id]
	return ok
}

// Get returns the entry with the given ID.
func (s *Store) Get(id int) (models.CollectionEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.byID[id]
	if !ok {
		return models.CollectionEntry{}, false
	}
	return s.entries[idx], true
}

// Count returns the number of entries in the deck.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// MaxSize returns the deck capacity bound.
func (s *Store) MaxSize() int {
	return s.maxSize
}

// All returns every entry ordered by DateAdded descending (most recent
// first). Equal timestamps keep insertion order.
func (s *Store) All() []models.CollectionEntry {
	s.mu.Lock()
	out := s.snapshotLocked()
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DateAdded.After(out[j].DateAdded)
	})
	return out
}

// AllSorted returns every entry ordered by the given key: "name"
// (case-insensitive lexicographic), "id" (ascending) or "date_added"
// (descending). An unrecognized key falls back to date_added ordering.
func (s *Store) AllSorted(key string) []models.CollectionEntry {
	switch key {
	case "name":
		s.mu.Lock()
		out := s.snapshotLocked()
		s.mu.Unlock()
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
		})
		return out
	case "id":
		s.mu.Lock()
		out := s.snapshotLocked()
		s.mu.Unlock()
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].ID < out[j].ID
		})
		return out
	default:
		return s.All()
	}
}

// Search returns entries whose name, decimal ID or any type tag contains text
// as a substring, case-insensitively. Blank text matches every entry and
// delegates to All ordering; both this path and the query engine's text stage
// treat blank input as "no filter".
func (s *Store) Search(text string) []models.CollectionEntry {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return s.All()
	}

	all := s.All()
	var out []models.CollectionEntry
	for _, e := range all {
		if entryMatches(e, needle) {
			out = append(out, e)
		}
	}
	return out
}

func entryMatches(e models.CollectionEntry, needle string) bool {
	if strings.Contains(strings.ToLower(e.Name), needle) {
		return true
	}
	if strings.Contains(strconv.Itoa(e.ID), needle) {
		return true
	}
	for _, tag := range e.TypeTags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

// Clear empties the deck, persists and notifies. Clearing an already-empty
// deck is a no-op.
func (s *Store) Clear() {
	s.mu.Lock()
	if len(s.entries) == 0 {
		s.mu.Unlock()
		return
	}
	s.entries = nil
	s.byID = make(map[int]int)
	s.persistLocked()
	s.statsCache = nil
	snap, subs := s.notifyTargetsLocked()
	s.mu.Unlock()

	s.notify(snap, subs)
}

// Stats returns the aggregate deck statistics. The result is served from a
// cache no older than statsTTL; every mutation invalidates it, so a cached
// read never spans a mutation.
func (s *Store) Stats() models.DeckStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.statsCache != nil && s.now().Sub(s.statsAt) < statsTTL {
		return cloneStats(*s.statsCache)
	}

	stats := s.computeStatsLocked()
	s.statsCache = &stats
	s.statsAt = s.now()
	return cloneStats(stats)
}

func (s *Store) computeStatsLocked() models.DeckStats {
	stats := models.DeckStats{
		Total:         len(s.entries),
		TypeBreakdown: make(map[string]int),
	}

	// Scan in stored order so the most-common tie-break is deterministic:
	// first type to reach the winning count wins.
	var bestCount int
	for _, e := range s.entries {
		for _, tag := range e.TypeTags {
			stats.TypeBreakdown[tag]++
			if stats.TypeBreakdown[tag] > bestCount {
				bestCount = stats.TypeBreakdown[tag]
				stats.MostCommonType = tag
			}
		}

		if stats.OldestEntry == nil || e.DateAdded.Before(stats.OldestEntry.DateAdded) {
			stats.OldestEntry = &e
		}
		if stats.NewestEntry == nil || e.DateAdded.After(stats.NewestEntry.DateAdded) {
			stats.NewestEntry = &e
		}
	}

	if n := len(stats.TypeBreakdown); n > 0 {
		stats.AveragePerType = float64(stats.Total) / float64(n)
	}
	return stats
}

func cloneStats(in models.DeckStats) models.DeckStats {
	out := in
	out.TypeBreakdown = make(map[string]int, len(in.TypeBreakdown))
	for k, v := range in.TypeBreakdown {
		out.TypeBreakdown[k] = v
	}
	if in.OldestEntry != nil {
		e := *in.OldestEntry
		out.OldestEntry = &e
	}
	if in.NewestEntry != nil {
		e := *in.NewestEntry
		out.NewestEntry = &e
	}
	return out
}

// Subscribe registers a listener, invokes it immediately with the current
// entry list and returns an unsubscribe function. A panicking listener is
// recovered and logged; it never blocks other listeners or corrupts state.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = l
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.invoke(l, snap)

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// notifyTargetsLocked snapshots the entry list and listener set so listeners
// can be invoked without holding the store lock. Caller holds mu.
func (s *Store) notifyTargetsLocked() ([]models.CollectionEntry, []Listener) {
	subs := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		subs = append(subs, l)
	}
	return s.snapshotLocked(), subs
}

func (s *Store) notify(snap []models.CollectionEntry, subs []Listener) {
	for _, l := range subs {
		cp := make([]models.CollectionEntry, len(snap))
		copy(cp, snap)
		s.invoke(l, cp)
	}
}

func (s *Store) invoke(l Listener, entries []models.CollectionEntry) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("deck: listener panicked", slog.Any("panic", r))
		}
	}()
	l(entries)
}

// AddAll inserts a batch of entries, partitioning IDs into added, skipped
// (duplicates) and failed (capacity exceeded). The slot is written once
// regardless of batch size.
func (s *Store) AddAll(inputs []EntryInput) BatchResult {
	res := BatchResult{Added: []int{}, Skipped: []int{}, Failed: []int{}}

	s.mu.Lock()
	seen := make(map[int]struct{}, len(inputs))
	for _, in := range inputs {
		if _, dup := s.byID[in.ID]; dup {
			res.Skipped = append(res.Skipped, in.ID)
			continue
		}
		if _, dup := seen[in.ID]; dup {
			res.Skipped = append(res.Skipped, in.ID)
			continue
		}
		if len(s.entries) >= s.maxSize {
			res.Failed = append(res.Failed, in.ID)
			continue
		}
		seen[in.ID] = struct{}{}
		s.insertLocked(in)
		res.Added = append(res.Added, in.ID)
	}

	if len(res.Added) == 0 {
		s.mu.Unlock()
		return res
	}
	s.persistLocked()
	s.statsCache = nil
	snap, subs := s.notifyTargetsLocked()
	s.mu.Unlock()

	s.notify(snap, subs)
	return res
}

// RemoveAll deletes a batch of IDs, returning how many were removed and how
// many were not found. The slot is written at most once.
func (s *Store) RemoveAll(ids []int) (removed, missing int) {
	s.mu.Lock()
	for _, id := range ids {
		idx, ok := s.byID[id]
		if !ok {
			missing++
			continue
		}
		s.deleteAtLocked(idx)
		removed++
	}
	if removed == 0 {
		s.mu.Unlock()
		return removed, missing
	}
	s.persistLocked()
	s.statsCache = nil
	snap, subs := s.notifyTargetsLocked()
	s.mu.Unlock()

	s.notify(snap, subs)
	return removed, missing
}

// Export builds the versioned export document for the current deck state.
func (s *Store) Export() models.ExportDocument {
	stats := s.Stats()
	return models.ExportDocument{
		Version:    models.ExportVersion,
		ExportDate: s.now().UTC(),
		Entries:    s.All(),
		Stats:      &stats,
	}
}

// ExportChunked builds the export document in batches of batchSize entries,
// invoking progress after each batch and yielding the scheduler between
// batches so other work can run. There is no cancellation: the deck is
// capacity-bounded, so the operation is bounded too.
func (s *Store) ExportChunked(batchSize int, progress func(done, total int)) models.ExportDocument {
	if batchSize <= 0 {
		batchSize = 10
	}
	all := s.All()
	total := len(all)

	entries := make([]models.CollectionEntry, 0, total)
	for start := 0; start < total; start += batchSize {
		end := start + batchSize
		if end > total {
			end = total
		}
		entries = append(entries, all[start:end]...)
		if progress != nil {
			progress(len(entries), total)
		}
		runtime.Gosched()
	}
	if total == 0 && progress != nil {
		progress(0, 0)
	}

	stats := s.Stats()
	return models.ExportDocument{
		Version:    models.ExportVersion,
		ExportDate: s.now().UTC(),
		Entries:    entries,
		Stats:      &stats,
	}
}

// Import parses a versioned export document and, when at least one entry is
// structurally valid, replaces the whole deck content with the surviving
// entries (their DateAdded values are kept from the document). Invalid
// entries are dropped individually; if none survive the import fails and the
// deck is untouched. Malformed input is reported as false, never an error.
func (s *Store) Import(data []byte) bool {
	var doc struct {
		Entries []json.RawMessage `json:"entries"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn("deck: import rejected, unreadable document", slog.String("error", err.Error()))
		return false
	}
	if len(doc.Entries) == 0 {
		return false
	}

	var valid []models.CollectionEntry
	for _, raw := range doc.Entries {
		var e models.CollectionEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			continue
		}
		if err := e.Validate(); err != nil {
			continue
		}
		valid = append(valid, e)
	}
	if len(valid) == 0 {
		s.logger.Warn("deck: import rejected, no structurally valid entries")
		return false
	}
	if len(valid) > s.maxSize {
		valid = valid[:s.maxSize]
	}

	s.mu.Lock()
	s.entries = nil
	s.byID = make(map[int]int)
	for _, e := range valid {
		if _, dup := s.byID[e.ID]; dup {
			continue
		}
		s.byID[e.ID] = len(s.entries)
		s.entries = append(s.entries, e)
	}
	s.persistLocked()
	s.statsCache = nil
	snap, subs := s.notifyTargetsLocked()
	s.mu.Unlock()

	s.notify(snap, subs)
	return true
}

// Reload re-reads the slot and notifies subscribers. Used by the watcher when
// the slot changes underneath the store.
func (s *Store) Reload() {
	s.mu.Lock()
	s.loadLocked()
	snap, subs := s.notifyTargetsLocked()
	s.mu.Unlock()

	s.notify(snap, subs)
}

// LastSavedChecksum returns the checksum of the payload the store last wrote
// or loaded, letting the watcher ignore self-inflicted file events.
func (s *Store) LastSavedChecksum() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSaved
}
