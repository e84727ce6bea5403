// Package filter derives the visible, sorted subset of the collection from
// the categorical predicates and the free-text query.  Every function here is
// pure.
package filter

import (
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/sigtopo/coop-driouch/internal/domain/feature"
)

// MaxSuggestions bounds the autocomplete list.
const MaxSuggestions = 6

// MinSuggestionRunes is the shortest trimmed query that yields suggestions.
const MinSuggestionRunes = 2

// Predicates is the active filter set.  Empty fields match everything.
type Predicates struct {
	Query     string `json:"query"`
	Commune   string `json:"commune"`
	Genre     string `json:"genre"`
	Sector    string `json:"sector"`
	Education string `json:"education"`
}

// IsZero reports whether no predicate is set.
func (p Predicates) IsZero() bool {
	return strings.TrimSpace(p.Query) == "" && p.Commune == "" && p.Genre == "" && p.Sector == "" && p.Education == ""
}

// normalizeQuery trims and lower-cases a query.
func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// matchesText reports whether the display name or the manager name contains
// q.  q must already be normalized; an empty q matches everything.
func matchesText(f feature.Feature, q string) bool {
	if q == "" {
		return true
	}
	if name := f.Name(); name != "" && strings.Contains(strings.ToLower(name), q) {
		return true
	}
	if m := f.Manager(); m != "" && strings.Contains(strings.ToLower(m), q) {
		return true
	}
	return false
}

func matchesExact(f feature.Feature, field feature.Field, want string) bool {
	return want == "" || f.Text(field) == want
}

// Matches applies every predicate to f.
func Matches(f feature.Feature, p Predicates) bool {
	return matches(f, normalizeQuery(p.Query), p)
}

func matches(f feature.Feature, q string, p Predicates) bool {
	return matchesText(f, q) &&
		matchesExact(f, feature.FieldCommune, p.Commune) &&
		matchesExact(f, feature.FieldGenre, p.Genre) &&
		matchesExact(f, feature.FieldSector, p.Sector) &&
		matchesExact(f, feature.FieldEducation, p.Education)
}

// newCollator returns a French, case-insensitive collator.  Collators are not
// safe for concurrent use, so each call sorts with its own.
func newCollator() *collate.Collator {
	return collate.New(language.French, collate.IgnoreCase)
}

// SortByName stable-sorts features in place by display name.  Equal names
// keep their input order.
func SortByName(features []feature.Feature) {
	if len(features) < 2 {
		return
	}
	col := newCollator()
	keys := make([]string, len(features))
	for i, f := range features {
		keys[i] = f.Name()
	}
	idx := make([]int, len(features))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return col.CompareString(keys[idx[a]], keys[idx[b]]) < 0
	})
	sorted := make([]feature.Feature, len(features))
	for i, j := range idx {
		sorted[i] = features[j]
	}
	copy(features, sorted)
}

// FilterAndSort returns the features matching p, sorted by display name.  The
// input is not modified.  The result is never nil.
func FilterAndSort(features []feature.Feature, p Predicates) []feature.Feature {
	q := normalizeQuery(p.Query)
	out := make([]feature.Feature, 0, len(features))
	for _, f := range features {
		if matches(f, q, p) {
			out = append(out, f)
		}
	}
	SortByName(out)
	return out
}

// Suggest returns at most MaxSuggestions features whose name or manager
// contains query, searched over the whole collection regardless of the
// categorical predicates.  Queries shorter than MinSuggestionRunes yield
// nothing.  Matches are ranked by suggestRank, then by name.
func Suggest(features []feature.Feature, query string) []feature.Feature {
	q := normalizeQuery(query)
	if len([]rune(q)) < MinSuggestionRunes {
		return []feature.Feature{}
	}
	var ranked [rankManager + 1][]feature.Feature
	for _, f := range features {
		if r, ok := suggestRank(f, q); ok {
			ranked[r] = append(ranked[r], f)
		}
	}
	out := make([]feature.Feature, 0, MaxSuggestions)
	for _, group := range ranked {
		SortByName(group)
		for _, f := range group {
			if len(out) == MaxSuggestions {
				return out
			}
			out = append(out, f)
		}
	}
	return out
}

// Suggestion ranks, best first.
const (
	rankNamePrefix = iota
	rankWordPrefix
	rankNameContains
	rankManager
)

// suggestRank classifies how f matches the normalized query q.
func suggestRank(f feature.Feature, q string) (int, bool) {
	name := strings.ToLower(f.Name())
	switch {
	case name == "":
	case strings.HasPrefix(name, q):
		return rankNamePrefix, true
	case strings.Contains(name, q):
		for _, w := range strings.Fields(name) {
			if strings.HasPrefix(w, q) {
				return rankWordPrefix, true
			}
		}
		return rankNameContains, true
	}
	if m := f.Manager(); m != "" && strings.Contains(strings.ToLower(m), q) {
		return rankManager, true
	}
	return 0, false
}

// ─────────────────────────────────────────────────────────────────────────────
// Option sets
// ─────────────────────────────────────────────────────────────────────────────

// OptionSets lists the selectable values of every categorical dimension.
type OptionSets struct {
	Communes   []string `json:"communes"`
	Genres     []string `json:"genres"`
	Sectors    []string `json:"sectors"`
	Educations []string `json:"educations"`
}

// Options collects the distinct non-empty values of each dimension from the
// unfiltered collection, collated ascending.
func Options(features []feature.Feature) OptionSets {
	col := newCollator()
	return OptionSets{
		Communes:   distinct(col, features, feature.FieldCommune),
		Genres:     distinct(col, features, feature.FieldGenre),
		Sectors:    distinct(col, features, feature.FieldSector),
		Educations: distinct(col, features, feature.FieldEducation),
	}
}

func distinct(col *collate.Collator, features []feature.Feature, field feature.Field) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, f := range features {
		v := f.Text(field)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	col.SortStrings(out)
	return out
}

// OptionCache memoises Options per store version so option lists change only
// when the collection does.
type OptionCache struct {
	mu      sync.Mutex
	version uint64
	valid   bool
	sets    OptionSets
}

// Get returns the option sets of snap, recomputing only on a version change.
func (c *OptionCache) Get(snap *feature.Snapshot) OptionSets {
	var version uint64
	if snap != nil {
		version = snap.Version
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid && c.version == version {
		return c.sets
	}
	c.sets = Options(snap.FeatureList())
	c.version = version
	c.valid = true
	return c.sets
}
