package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// CollectionEntry is the reduced projection of a CreatureRecord persisted in
// the user's deck. DateAdded is assigned at insertion time and never changes.
type CollectionEntry struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	SpriteURL string    `json:"sprite_url"`
	TypeTags  []string  `json:"type_tags"`
	DateAdded time.Time `json:"date_added"`
}

// Validate checks the structural requirements an imported entry must meet.
// All fields are required; SpriteURL may be empty only as a string, not absent
// (the zero value passes because consumers substitute a placeholder sprite).
func (e CollectionEntry) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.ID, validation.Required, validation.Min(1)),
		validation.Field(&e.Name, validation.Required),
		validation.Field(&e.TypeTags, validation.NotNil),
		validation.Field(&e.DateAdded, validation.Required),
	)
}

// DeckStats is the derived aggregate view of the deck.
//
// MostCommonType ties break in favour of the type first encountered while
// scanning entries in their stored order.
type DeckStats struct {
	Total          int              `json:"total"`
	TypeBreakdown  map[string]int   `json:"type_breakdown"`
	OldestEntry    *CollectionEntry `json:"oldest_entry,omitempty"`
	NewestEntry    *CollectionEntry `json:"newest_entry,omitempty"`
	MostCommonType string           `json:"most_common_type,omitempty"`
	AveragePerType float64          `json:"average_per_type"`
}

// ExportVersion is the version stamp written into export documents.
const ExportVersion = "1.0"

// ExportDocument is the versioned deck export/import payload. Fields other
// than Entries are informational on import.
type ExportDocument struct {
	Version    string            `json:"version"`
	ExportDate time.Time         `json:"export_date"`
	Entries    []CollectionEntry `json:"entries"`
	Stats      *DeckStats        `json:"stats,omitempty"`
}
