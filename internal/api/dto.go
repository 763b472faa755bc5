package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/sellis/critterdex/internal/deck"
	"github.com/sellis/critterdex/internal/models"
	"github.com/sellis/critterdex/internal/query"
)

// AddEntryRequest is the request body for adding a creature to the deck.
type AddEntryRequest struct {
	ID        int      `json:"id"`
	Name      string   `json:"name"`
	SpriteURL string   `json:"sprite_url"`
	TypeTags  []string `json:"type_tags"`
}

// Validate checks the add request.
func (r AddEntryRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.Required, validation.Min(1)),
		validation.Field(&r.Name, validation.Required),
	)
}

func (r AddEntryRequest) input() deck.EntryInput {
	return deck.EntryInput{
		ID:        r.ID,
		Name:      r.Name,
		SpriteURL: r.SpriteURL,
		TypeTags:  r.TypeTags,
	}
}

// BulkAddRequest is the request body for POST /deck/bulk.
type BulkAddRequest struct {
	Entries []AddEntryRequest `json:"entries"`
}

// BulkRemoveRequest is the request body for DELETE /deck/bulk.
type BulkRemoveRequest struct {
	IDs []int `json:"ids"`
}

// AddEntryResponse reports the outcome of a single add.
type AddEntryResponse struct {
	Added bool `json:"added"`
}

// BulkRemoveResponse reports the outcome of a bulk removal.
type BulkRemoveResponse struct {
	Removed int `json:"removed"`
	Missing int `json:"missing"`
}

// ImportResponse reports the outcome of a deck import.
type ImportResponse struct {
	Imported bool `json:"imported"`
	Count    int  `json:"count"`
}

// CreatureListResponse wraps a browse page.
type CreatureListResponse struct {
	Creatures []models.CreatureRecord `json:"creatures"`
	Page      query.PageInfo          `json:"page"`
}

// DeckListResponse wraps a deck listing.
type DeckListResponse struct {
	Entries []models.CollectionEntry `json:"entries"`
	Total   int                      `json:"total"`
	Max     int                      `json:"max"`
}

// PresetListResponse wraps the preset registry.
type PresetListResponse struct {
	Presets []query.Preset `json:"presets"`
}
