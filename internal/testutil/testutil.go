// Package testutil provides shared test helpers for setting up deck slots and stores.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/sellis/critterdex/internal/deck"
	"github.com/sellis/critterdex/internal/models"
	"github.com/sellis/critterdex/internal/storage"
)

// TestSlot creates a file provider over a temporary deck slot path.
func TestSlot(t *testing.T) storage.Provider {
	t.Helper()
	slot, err := storage.NewFile(filepath.Join(t.TempDir(), "deck.json"))
	if err != nil {
		t.Fatal(err)
	}
	return slot
}

// TestStore creates a deck store over a temporary slot.
func TestStore(t *testing.T, maxSize int) *deck.Store {
	t.Helper()
	store, err := deck.New(TestSlot(t), maxSize, nil)
	if err != nil {
		t.Fatal(err)
	}
	return store
}

// SeedRecords returns a small fixed catalog used across query and service tests.
func SeedRecords() []models.CreatureRecord {
	return []models.CreatureRecord{
		{ID: 1, Name: "sproutle", TypeTags: []string{"grass", "poison"}, Height: 7, Weight: 69},
		{ID: 4, Name: "cindercub", TypeTags: []string{"fire"}, Height: 6, Weight: 85},
		{ID: 7, Name: "shellfin", TypeTags: []string{"water"}, Height: 5, Weight: 90},
		{ID: 25, Name: "zappet", TypeTags: []string{"electric"}, Height: 4, Weight: 60},
		{ID: 250, Name: "emberwing", TypeTags: []string{"fire", "flying"}, Height: 38, Weight: 1990},
	}
}
