package catalog

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sellis/critterdex/internal/models"
)

// remoteCreature mirrors the wire shape the upstream API uses for a single
// creature. It is decoded here and nowhere else.
type remoteCreature struct {
	ID             int     `json:"id"`
	Name           string  `json:"name"`
	Height         float64 `json:"height"`
	Weight         float64 `json:"weight"`
	BaseExperience *int    `json:"base_experience"`
	Types          []struct {
		Name string `json:"name"`
	} `json:"types"`
	Stats []struct {
		Name     string `json:"name"`
		BaseStat int    `json:"base_stat"`
	} `json:"stats"`
	Sprite string `json:"sprite"`
}

// remoteList mirrors the wire shape of a paginated listing.
type remoteList struct {
	Count   int              `json:"count"`
	Next    bool             `json:"next"`
	Results []remoteCreature `json:"results"`
}

// decodeCreature turns a raw single-creature payload into the domain record,
// normalizing type tags to lower case.
func decodeCreature(raw []byte) (models.CreatureRecord, error) {
	var rc remoteCreature
	if err := json.Unmarshal(raw, &rc); err != nil {
		return models.CreatureRecord{}, fmt.Errorf("catalog: decode creature: %w", err)
	}
	return toRecord(rc), nil
}

// decodeList turns a raw listing payload into domain records plus paging info.
func decodeList(raw []byte) ([]models.CreatureRecord, int, bool, error) {
	var rl remoteList
	if err := json.Unmarshal(raw, &rl); err != nil {
		return nil, 0, false, fmt.Errorf("catalog: decode list: %w", err)
	}
	out := make([]models.CreatureRecord, len(rl.Results))
	for i, rc := range rl.Results {
		out[i] = toRecord(rc)
	}
	return out, rl.Count, rl.Next, nil
}

func toRecord(rc remoteCreature) models.CreatureRecord {
	tags := make([]string, 0, len(rc.Types))
	for _, t := range rc.Types {
		tag := strings.ToLower(strings.TrimSpace(t.Name))
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	stats := make([]models.StatValue, len(rc.Stats))
	for i, s := range rc.Stats {
		stats[i] = models.StatValue{Name: s.Name, Base: s.BaseStat}
	}
	return models.CreatureRecord{
		ID:             rc.ID,
		Name:           rc.Name,
		TypeTags:       tags,
		Height:         rc.Height,
		Weight:         rc.Weight,
		BaseExperience: rc.BaseExperience,
		Stats:          stats,
		SpriteURL:      rc.Sprite,
	}
}
