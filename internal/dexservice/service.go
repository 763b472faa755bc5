// Package dexservice coordinates the catalog client, query engine and deck
// store for the API and MCP layers.
package dexservice

import (
	"context"
	"sync"
	"time"

	"github.com/sellis/critterdex/internal/catalog"
	"github.com/sellis/critterdex/internal/deck"
	"github.com/sellis/critterdex/internal/models"
	"github.com/sellis/critterdex/internal/query"
)

// workingSetTTL bounds how long a fetched catalog working set is reused
// before the client (and its own caches) are consulted again.
const workingSetTTL = 5 * time.Minute

// Suggestion is one type-ahead search hit.
type Suggestion struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	SpriteURL string `json:"sprite_url,omitempty"`
}

// Service is the coordinator between the remote catalog, the pure query
// engine and the stateful deck store.
type Service struct {
	client  *catalog.Client
	engine  *query.Engine
	store   *deck.Store
	presets []query.Preset

	mu        sync.Mutex
	records   []models.CreatureRecord
	fetchedAt time.Time
}

// NewService creates a Service.
func NewService(client *catalog.Client, store *deck.Store, presets []query.Preset) *Service {
	return &Service{
		client:  client,
		engine:  query.NewEngine(presets),
		store:   store,
		presets: presets,
	}
}

// Deck returns the deck store.
func (s *Service) Deck() *deck.Store {
	return s.store
}

// Presets returns the registered preset shortcuts.
func (s *Service) Presets() []query.Preset {
	return s.presets
}

// Engine returns the query engine.
func (s *Service) Engine() *query.Engine {
	return s.engine
}

// workingSet returns the full catalog record list, re-fetching through the
// client when the in-memory snapshot is stale.
func (s *Service) workingSet(ctx context.Context) ([]models.CreatureRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.records != nil && time.Since(s.fetchedAt) < workingSetTTL {
		return s.records, nil
	}
	records, err := s.client.All(ctx)
	if err != nil {
		if s.records != nil {
			// Stale beats nothing when the upstream is unreachable.
			return s.records, nil
		}
		return nil, err
	}
	s.records = records
	s.fetchedAt = time.Now()
	return records, nil
}

// Browse runs the query pipeline over the full working set and paginates.
func (s *Service) Browse(ctx context.Context, spec query.Spec, offset, limit int) ([]models.CreatureRecord, query.PageInfo, error) {
	records, err := s.workingSet(ctx)
	if err != nil {
		return nil, query.PageInfo{}, err
	}
	filtered := s.engine.Apply(records, spec)
	page, info := query.Paginate(filtered, offset, limit)
	return page, info, nil
}

// Suggest returns up to limit type-ahead hits for the given text, using only
// the engine's free-text stage.
func (s *Service) Suggest(ctx context.Context, text string, limit int) ([]Suggestion, error) {
	if limit <= 0 {
		limit = 10
	}
	records, err := s.workingSet(ctx)
	if err != nil {
		return nil, err
	}
	matched := s.engine.Apply(records, query.Spec{Text: text})

	out := make([]Suggestion, 0, limit)
	for _, r := range matched {
		out = append(out, Suggestion{ID: r.ID, Name: r.Name, SpriteURL: r.SpriteURL})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// GetCreature fetches a single record by ID.
func (s *Service) GetCreature(ctx context.Context, id int) (models.CreatureRecord, error) {
	return s.client.GetByID(ctx, id)
}

// GetCreatureByName fetches a single record by its unique name.
func (s *Service) GetCreatureByName(ctx context.Context, name string) (models.CreatureRecord, error) {
	return s.client.GetByName(ctx, name)
}
