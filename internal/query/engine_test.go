package query

import (
	"reflect"
	"testing"

	"github.com/sellis/critterdex/internal/models"
)

func testRecords() []models.CreatureRecord {
	return []models.CreatureRecord{
		{ID: 1, Name: "sproutle", TypeTags: []string{"grass", "poison"}, Height: 7, Weight: 69},
		{ID: 4, Name: "cindercub", TypeTags: []string{"fire"}, Height: 6, Weight: 85},
		{ID: 7, Name: "shellfin", TypeTags: []string{"water"}, Height: 5, Weight: 90},
		{ID: 25, Name: "zappet", TypeTags: []string{"electric"}, Height: 4, Weight: 60},
		{ID: 250, Name: "emberwing", TypeTags: []string{"fire", "flying"}, Height: 38, Weight: 1990},
	}
}

func ids(records []models.CreatureRecord) []int {
	out := make([]int, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func intp(v int) *int { return &v }

func TestApplyZeroSpec(t *testing.T) {
	e := NewEngine(nil)
	in := testRecords()
	got := e.Apply(in, Spec{})
	if !reflect.DeepEqual(ids(got), []int{1, 4, 7, 25, 250}) {
		t.Errorf("zero spec ids = %v, want input order", ids(got))
	}
	// The result is a new slice; mutating it must not touch the input.
	got[0].Name = "mutated"
	if in[0].Name != "sproutle" {
		t.Error("Apply returned a view over the input")
	}
}

func TestApplyText(t *testing.T) {
	e := NewEngine(nil)
	tests := []struct {
		text string
		want []int
	}{
		{"25", []int{25, 250}},   // decimal ID substring
		{"Zap", []int{25}},       // name, case-folded
		{"fly", []int{250}},      // type tag substring
		{"fire", []int{4, 250}},  // tag on two records
		{"  ", []int{1, 4, 7, 25, 250}}, // blank is no filter
		{"xyzzy", []int{}},
	}
	for _, tt := range tests {
		got := e.Apply(testRecords(), Spec{Text: tt.text})
		if !reflect.DeepEqual(ids(got), tt.want) {
			t.Errorf("Apply(Text=%q) ids = %v, want %v", tt.text, ids(got), tt.want)
		}
	}
}

func TestApplyTypeFilter(t *testing.T) {
	e := NewEngine(nil)

	got := e.Apply(testRecords(), Spec{Type: "fire"})
	if !reflect.DeepEqual(ids(got), []int{4, 250}) {
		t.Errorf("Type=fire ids = %v", ids(got))
	}

	// Exact tag match only: "fir" is not a tag.
	got = e.Apply(testRecords(), Spec{Type: "fir"})
	if len(got) != 0 {
		t.Errorf("Type=fir matched %v", ids(got))
	}

	// A type no record carries yields empty, not an error.
	got = e.Apply(testRecords(), Spec{Type: "dragon"})
	if len(got) != 0 {
		t.Errorf("Type=dragon matched %v", ids(got))
	}
}

func TestApplyIDRange(t *testing.T) {
	e := NewEngine(nil)
	tests := []struct {
		name string
		spec Spec
		want []int
	}{
		{"min only", Spec{MinID: intp(7)}, []int{7, 25, 250}},
		{"max only", Spec{MaxID: intp(7)}, []int{1, 4, 7}},
		{"inclusive bounds", Spec{MinID: intp(4), MaxID: intp(25)}, []int{4, 7, 25}},
		{"min equals max", Spec{MinID: intp(7), MaxID: intp(7)}, []int{7}},
		{"inverted range", Spec{MinID: intp(10), MaxID: intp(5)}, []int{}},
	}
	for _, tt := range tests {
		got := e.Apply(testRecords(), tt.spec)
		if !reflect.DeepEqual(ids(got), tt.want) {
			t.Errorf("%s: ids = %v, want %v", tt.name, ids(got), tt.want)
		}
	}
}

func TestApplyPreset(t *testing.T) {
	e := NewEngine([]Preset{{Name: "starters", IDs: []int{1, 4, 7}}})

	got := e.Apply(testRecords(), Spec{Preset: "starters"})
	if !reflect.DeepEqual(ids(got), []int{1, 4, 7}) {
		t.Errorf("preset ids = %v", ids(got))
	}

	// An unknown preset skips the stage rather than failing.
	got = e.Apply(testRecords(), Spec{Preset: "does-not-exist"})
	if !reflect.DeepEqual(ids(got), []int{1, 4, 7, 25, 250}) {
		t.Errorf("unknown preset ids = %v, want full input", ids(got))
	}

	if !e.KnownPreset("starters") || e.KnownPreset("does-not-exist") {
		t.Error("KnownPreset misreports registration")
	}
}

func TestApplyCombinedStages(t *testing.T) {
	e := NewEngine(nil)
	// fire records sorted by name ascending.
	got := e.Apply(testRecords(), Spec{Type: "fire", SortBy: SortByName, SortOrder: OrderAsc})
	if !reflect.DeepEqual(ids(got), []int{4, 250}) { // cindercub, emberwing
		t.Errorf("combined ids = %v, want [4 250]", ids(got))
	}
}

func TestSortKeys(t *testing.T) {
	e := NewEngine(nil)
	tests := []struct {
		name string
		spec Spec
		want []int
	}{
		{"id asc", Spec{SortBy: SortByID, SortOrder: OrderAsc}, []int{1, 4, 7, 25, 250}},
		{"id desc", Spec{SortBy: SortByID, SortOrder: OrderDesc}, []int{250, 25, 7, 4, 1}},
		{"name asc", Spec{SortBy: SortByName}, []int{4, 250, 7, 1, 25}},
		{"name desc", Spec{SortBy: SortByName, SortOrder: OrderDesc}, []int{25, 1, 7, 250, 4}},
		{"height asc", Spec{SortBy: SortByHeight}, []int{25, 7, 4, 1, 250}},
		{"weight desc", Spec{SortBy: SortByWeight, SortOrder: OrderDesc}, []int{250, 7, 4, 1, 25}},
		{"unknown key keeps order", Spec{SortBy: "bogus"}, []int{1, 4, 7, 25, 250}},
	}
	for _, tt := range tests {
		got := e.Apply(testRecords(), tt.spec)
		if !reflect.DeepEqual(ids(got), tt.want) {
			t.Errorf("%s: ids = %v, want %v", tt.name, ids(got), tt.want)
		}
	}
}

func TestSortNameCaseInsensitive(t *testing.T) {
	e := NewEngine(nil)
	in := []models.CreatureRecord{
		{ID: 1, Name: "Bramble"},
		{ID: 2, Name: "acorn"},
		{ID: 3, Name: "CINDER"},
	}
	got := e.Apply(in, Spec{SortBy: SortByName})
	if !reflect.DeepEqual(ids(got), []int{2, 1, 3}) {
		t.Errorf("name order = %v, want [2 1 3]", ids(got))
	}
}

func TestSortStabilityBothDirections(t *testing.T) {
	e := NewEngine(nil)
	// Three records with equal height; ties must keep input order either way.
	in := []models.CreatureRecord{
		{ID: 10, Name: "a", Height: 5},
		{ID: 20, Name: "b", Height: 5},
		{ID: 30, Name: "c", Height: 5},
		{ID: 40, Name: "d", Height: 1},
	}
	asc := e.Apply(in, Spec{SortBy: SortByHeight, SortOrder: OrderAsc})
	if !reflect.DeepEqual(ids(asc), []int{40, 10, 20, 30}) {
		t.Errorf("asc ties = %v, want [40 10 20 30]", ids(asc))
	}
	desc := e.Apply(in, Spec{SortBy: SortByHeight, SortOrder: OrderDesc})
	if !reflect.DeepEqual(ids(desc), []int{10, 20, 30, 40}) {
		t.Errorf("desc ties = %v, want [10 20 30 40]", ids(desc))
	}
}

func TestApplyDeterministic(t *testing.T) {
	e := NewEngine([]Preset{{Name: "starters", IDs: []int{1, 4, 7}}})
	spec := Spec{Text: "r", Preset: "starters", SortBy: SortByWeight, SortOrder: OrderDesc}

	first := e.Apply(testRecords(), spec)
	for i := 0; i < 10; i++ {
		if got := e.Apply(testRecords(), spec); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: %v vs %v", i, ids(got), ids(first))
		}
	}
}

func TestDefaultPresets(t *testing.T) {
	presets := DefaultPresets()
	e := NewEngine(presets)
	for _, p := range presets {
		if !e.KnownPreset(p.Name) {
			t.Errorf("preset %q not registered", p.Name)
		}
		if p.Label == "" || len(p.IDs) == 0 {
			t.Errorf("preset %q incomplete: %+v", p.Name, p)
		}
	}
}
