package services

import (
	"sort"
	"strings"

	"github.com/bethelevents/assessor/internal/catalog"
	"github.com/bethelevents/assessor/internal/models"
)

// AnswerSet maps a question id to the chosen option index.
type AnswerSet map[int]int

// ScoreResult is the deterministic output of scoring one answer set.
type ScoreResult struct {
	TraitCounts        models.TraitCounts `json:"traitCounts"`
	TraitProfile       string             `json:"traitProfile"`
	PrimaryArchetype   string             `json:"primaryArchetype"`
	SecondaryArchetype string             `json:"secondaryArchetype"`
}

// Scorer turns answer sets into trait and archetype results against a catalog.
type Scorer struct {
	catalog *catalog.Catalog
}

func NewScorer(c *catalog.Catalog) *Scorer { return &Scorer{catalog: c} }

// Score tallies traits and archetypes. Unknown question ids and out-of-range
// option indices are ignored. Answers are visited in ascending question id so
// archetype ties resolve by first encounter.
func (s *Scorer) Score(answers AnswerSet) ScoreResult {
	ids := make([]int, 0, len(answers))
	for id := range answers {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var counts models.TraitCounts
	archetypeCounts := map[string]int{}
	var seen []string
	for _, id := range ids {
		opt, ok := s.catalog.Option(id, answers[id])
		if !ok {
			continue
		}
		counts.Add(opt.Trait)
		if opt.Archetype == "" {
			continue
		}
		if _, ok := archetypeCounts[opt.Archetype]; !ok {
			seen = append(seen, opt.Archetype)
		}
		archetypeCounts[opt.Archetype]++
	}

	primary, secondary := s.rankArchetypes(seen, archetypeCounts)
	return ScoreResult{
		TraitCounts:        counts,
		TraitProfile:       TraitProfile(counts),
		PrimaryArchetype:   primary,
		SecondaryArchetype: secondary,
	}
}

func (s *Scorer) rankArchetypes(seen []string, counts map[string]int) (string, string) {
	sort.SliceStable(seen, func(i, j int) bool { return counts[seen[i]] > counts[seen[j]] })
	def1, def2 := s.catalog.DefaultArchetypes()
	switch len(seen) {
	case 0:
		return def1, def2
	case 1:
		if seen[0] == def1 {
			return seen[0], def2
		}
		return seen[0], def1
	}
	return seen[0], seen[1]
}

// TraitProfile labels the dominant traits: every non-zero trait within one
// point of the maximum qualifies, the top two by count are joined with "/".
// Equal counts keep D, I, S, C order. No counts yields "".
func TraitProfile(c models.TraitCounts) string {
	top := 0
	for _, t := range models.Traits {
		if n := c.Get(t); n > top {
			top = n
		}
	}
	if top == 0 {
		return ""
	}
	var picked []models.Trait
	for _, t := range models.Traits {
		if n := c.Get(t); n > 0 && n >= top-1 {
			picked = append(picked, t)
		}
	}
	sort.SliceStable(picked, func(i, j int) bool { return c.Get(picked[i]) > c.Get(picked[j]) })
	if len(picked) > 2 {
		picked = picked[:2]
	}
	letters := make([]string, len(picked))
	for i, t := range picked {
		letters[i] = string(t)
	}
	return strings.Join(letters, "/")
}

// PrimaryTrait is the first letter of a profile label, falling back to the
// highest count when the label is empty.
func PrimaryTrait(profile string, c models.TraitCounts) models.Trait {
	if profile != "" {
		if t := models.Trait(profile[:1]); t.Valid() {
			return t
		}
	}
	best := models.TraitD
	for _, t := range models.Traits {
		if c.Get(t) > c.Get(best) {
			best = t
		}
	}
	return best
}
