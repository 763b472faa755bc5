package query

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/sellis/critterdex/internal/models"
)

// Engine evaluates query specifications against an in-memory record list.
// An Engine is read-only after construction and safe for concurrent use;
// every Apply call is independent and deterministic for fixed inputs.
type Engine struct {
	presets map[string][]int
}

// NewEngine creates an Engine with the given preset allowlists.
func NewEngine(presets []Preset) *Engine {
	idx := make(map[string][]int, len(presets))
	for _, p := range presets {
		idx[p.Name] = p.IDs
	}
	return &Engine{presets: idx}
}

// KnownPreset reports whether name resolves to a registered preset.
func (e *Engine) KnownPreset(name string) bool {
	_, ok := e.presets[name]
	return ok
}

// Apply runs the full pipeline (text, type, ID range, preset, sort) and
// returns a new slice; the input is never reordered or mutated. Stages are
// conjoined predicates evaluated in one pass, cheapest first, then an
// optional stable sort. Absent a sort key the input order is preserved.
func (e *Engine) Apply(records []models.CreatureRecord, spec Spec) []models.CreatureRecord {
	text := strings.ToLower(strings.TrimSpace(spec.Text))

	var preset map[int]struct{}
	if spec.Preset != "" {
		if ids, ok := e.presets[spec.Preset]; ok {
			preset = make(map[int]struct{}, len(ids))
			for _, id := range ids {
				preset[id] = struct{}{}
			}
		}
		// Unrecognized preset: stage skipped, not an error.
	}

	out := make([]models.CreatureRecord, 0, len(records))
	for _, r := range records {
		if spec.MinID != nil && r.ID < *spec.MinID {
			continue
		}
		if spec.MaxID != nil && r.ID > *spec.MaxID {
			continue
		}
		if preset != nil {
			if _, ok := preset[r.ID]; !ok {
				continue
			}
		}
		if spec.Type != "" && !r.HasType(spec.Type) {
			continue
		}
		if text != "" && !recordMatches(r, text) {
			continue
		}
		out = append(out, r)
	}

	e.sortRecords(out, spec)
	return out
}

// recordMatches implements the free-text stage: decimal-ID substring, or
// case-folded substring of the name or any type tag. The folded name is
// derived once per record per invocation.
func recordMatches(r models.CreatureRecord, needle string) bool {
	if strings.Contains(strconv.Itoa(r.ID), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(r.Name), needle) {
		return true
	}
	for _, tag := range r.TypeTags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

// sortRecords stable-sorts in place per the given Spec. Ties keep their relative
// input order for both directions, which pagination relies on.
func (e *Engine) sortRecords(records []models.CreatureRecord, spec Spec) {
	if spec.SortBy == "" {
		return
	}
	desc := spec.SortOrder == OrderDesc

	var less func(a, b models.CreatureRecord) bool
	switch spec.SortBy {
	case SortByID:
		less = func(a, b models.CreatureRecord) bool { return a.ID < b.ID }
	case SortByHeight:
		less = func(a, b models.CreatureRecord) bool { return a.Height < b.Height }
	case SortByWeight:
		less = func(a, b models.CreatureRecord) bool { return a.Weight < b.Weight }
	case SortByName:
		// Collators carry an internal buffer, so build one per call rather
		// than sharing it across concurrent Apply invocations.
		c := collate.New(language.Und, collate.IgnoreCase)
		less = func(a, b models.CreatureRecord) bool {
			return c.CompareString(a.Name, b.Name) < 0
		}
	default:
		return
	}

	sort.SliceStable(records, func(i, j int) bool {
		if desc {
			return less(records[j], records[i])
		}
		return less(records[i], records[j])
	})
}
