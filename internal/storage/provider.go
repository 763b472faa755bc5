// Package storage defines the persistence slot abstraction for the deck.
package storage

// Provider is the interface over the single key-value slot the deck owns.
// No other component reads or writes the underlying location.
type Provider interface {
	// Load returns the raw bytes of the slot, or os.ErrNotExist if the slot
	// has never been written.
	Load() ([]byte, error)
	// Save atomically replaces the slot content.
	Save(data []byte) error
	// Path returns the on-disk location backing the slot.
	Path() string
}
