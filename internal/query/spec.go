// Package query implements the pure filtering, sorting and pagination engine
// over the creature catalog working set.
package query

// Sort keys accepted by Spec.SortBy.
const (
	SortByID     = "id"
	SortByName   = "name"
	SortByHeight = "height"
	SortByWeight = "weight"
)

// Sort directions accepted by Spec.SortOrder.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Spec is an immutable query specification. Every field is optional and the
// fields are independent: any combination, including the zero value (no
// filtering, input order), is valid.
type Spec struct {
	// Text is a free-text filter matched against decimal ID, name and type
	// tags as a case-insensitive substring. Blank (after trimming) means the
	// text stage is not applied.
	Text string
	// Type keeps only records carrying this exact type tag.
	Type string
	// MinID / MaxID bound the record ID inclusively; either may be nil.
	MinID *int
	MaxID *int
	// Preset names a fixed ID allowlist. An unrecognized name skips the
	// preset stage entirely rather than failing the query.
	Preset string
	// SortBy is one of the SortBy* keys; empty preserves input order.
	SortBy string
	// SortOrder is OrderAsc (default) or OrderDesc.
	SortOrder string
}

// Preset is a named, fixed allowlist of creature IDs usable as a one-click
// filter shortcut.
type Preset struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	IDs   []int  `json:"ids"`
}

// DefaultPresets returns the built-in preset shortcuts.
func DefaultPresets() []Preset {
	return []Preset{
		{Name: "originals", Label: "The originals", IDs: []int{1, 2, 3, 4, 5, 6, 7, 8, 9}},
		{Name: "fan-favorites", Label: "Fan favorites", IDs: []int{6, 25, 94, 130, 143}},
		{Name: "tiny", Label: "Tiny creatures", IDs: []int{10, 13, 50, 92, 172}},
	}
}
