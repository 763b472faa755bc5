// Package models defines the domain types for critterdex.
package models

// StatValue is a single base stat of a creature (e.g. "speed": 45).
type StatValue struct {
	Name string `json:"name"`
	Base int    `json:"base"`
}

// CreatureRecord is the external, read-only catalog item. Records are supplied
// by the remote catalog API and are never mutated after construction; identity
// is the numeric ID.
type CreatureRecord struct {
	ID             int         `json:"id"`
	Name           string      `json:"name"`
	TypeTags       []string    `json:"type_tags"`
	Height         float64     `json:"height"`
	Weight         float64     `json:"weight"`
	BaseExperience *int        `json:"base_experience,omitempty"`
	Stats          []StatValue `json:"stats,omitempty"`
	SpriteURL      string      `json:"sprite_url,omitempty"`
}

// HasType reports whether the record carries the given type tag exactly.
func (c CreatureRecord) HasType(tag string) bool {
	for _, t := range c.TypeTags {
		if t == tag {
			return true
		}
	}
	return false
}
