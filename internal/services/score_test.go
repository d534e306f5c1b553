package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/bethelevents/assessor/internal/catalog"
	"github.com/bethelevents/assessor/internal/models"
)

// letterCatalog builds ten questions whose options 0..3 carry archetypes A..D.
func letterCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	var b strings.Builder
	b.WriteString("default_archetypes: [A, B]\ncombined_default: \"%s e %s\"\narchetypes:\n")
	for _, a := range []string{"A", "B", "C", "D"} {
		fmt.Fprintf(&b, "  - {name: %s, emoji: x, description: x}\n", a)
	}
	b.WriteString("traits:\n  D: {name: d}\n  I: {name: i}\n  S: {name: s}\n  C: {name: c}\nquestions:\n")
	for id := 1; id <= 10; id++ {
		fmt.Fprintf(&b, "  - id: %d\n    text: q\n    options:\n", id)
		fmt.Fprintf(&b, "      - {label: a, trait: D, archetype: A}\n")
		fmt.Fprintf(&b, "      - {label: b, trait: I, archetype: B}\n")
		fmt.Fprintf(&b, "      - {label: c, trait: S, archetype: C}\n")
		fmt.Fprintf(&b, "      - {label: d, trait: C, archetype: D}\n")
	}
	c, err := catalog.Parse([]byte(b.String()))
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}
	return c
}

func defaultScorer(t *testing.T) *Scorer {
	t.Helper()
	c, err := catalog.Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	return NewScorer(c)
}

func TestTraitProfile(t *testing.T) {
	cases := []struct {
		counts models.TraitCounts
		want   string
	}{
		{models.TraitCounts{D: 5, I: 5, S: 4, C: 2}, "D/I"},
		{models.TraitCounts{D: 2, I: 6, S: 5, C: 1}, "I/S"},
		{models.TraitCounts{D: 7, I: 2, S: 1, C: 0}, "D"},
		{models.TraitCounts{D: 1, I: 1, S: 1, C: 1}, "D/I"},
		{models.TraitCounts{D: 3, I: 0, S: 4, C: 4}, "S/C"},
		{models.TraitCounts{D: 0, I: 0, S: 0, C: 1}, "C"},
		{models.TraitCounts{}, ""},
	}
	for _, c := range cases {
		if got := TraitProfile(c.counts); got != c.want {
			t.Fatalf("TraitProfile(%+v)=%q, want %q", c.counts, got, c.want)
		}
	}
}

func TestScoreArchetypeRanking(t *testing.T) {
	s := NewScorer(letterCatalog(t))
	picks := []int{0, 0, 0, 1, 1, 2, 2, 2, 3, 0}
	answers := AnswerSet{}
	for i, p := range picks {
		answers[i+1] = p
	}
	got := s.Score(answers)
	if got.PrimaryArchetype != "A" || got.SecondaryArchetype != "C" {
		t.Fatalf("want A/C, got %s/%s", got.PrimaryArchetype, got.SecondaryArchetype)
	}
	want := models.TraitCounts{D: 4, I: 2, S: 3, C: 1}
	if got.TraitCounts != want {
		t.Fatalf("counts=%+v, want %+v", got.TraitCounts, want)
	}
	if got.TraitProfile != "D/S" {
		t.Fatalf("profile=%q, want D/S", got.TraitProfile)
	}
}

func TestScoreTieKeepsEncounterOrder(t *testing.T) {
	s := NewScorer(letterCatalog(t))
	got := s.Score(AnswerSet{1: 3, 2: 1, 3: 3, 4: 1})
	if got.PrimaryArchetype != "D" || got.SecondaryArchetype != "B" {
		t.Fatalf("want D/B, got %s/%s", got.PrimaryArchetype, got.SecondaryArchetype)
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	s := defaultScorer(t)
	answers := AnswerSet{1: 2, 2: 5, 3: 0, 4: 1, 5: 4, 11: 0, 12: 3, 13: 2, 14: 1, 20: 0}
	first := s.Score(answers)
	for i := 0; i < 50; i++ {
		if got := s.Score(answers); got != first {
			t.Fatalf("run %d differs: %+v vs %+v", i, got, first)
		}
	}
}

func TestScoreTraitOnlyUsesDefaults(t *testing.T) {
	s := defaultScorer(t)
	got := s.Score(AnswerSet{11: 0, 12: 0, 13: 1, 14: 3})
	if got.PrimaryArchetype != "Explorador" || got.SecondaryArchetype != "Sábio" {
		t.Fatalf("want defaults, got %s/%s", got.PrimaryArchetype, got.SecondaryArchetype)
	}
	if got.TraitCounts != (models.TraitCounts{D: 2, S: 1, I: 1}) {
		t.Fatalf("counts=%+v", got.TraitCounts)
	}
}

func TestScoreSingleArchetypeFillsSecondary(t *testing.T) {
	s := defaultScorer(t)
	// Q1 option 3 is Explorador, the first default.
	got := s.Score(AnswerSet{1: 3})
	if got.PrimaryArchetype != "Explorador" || got.SecondaryArchetype != "Sábio" {
		t.Fatalf("got %s/%s", got.PrimaryArchetype, got.SecondaryArchetype)
	}
	// Q1 option 1 is Herói.
	got = s.Score(AnswerSet{1: 1})
	if got.PrimaryArchetype != "Herói" || got.SecondaryArchetype != "Explorador" {
		t.Fatalf("got %s/%s", got.PrimaryArchetype, got.SecondaryArchetype)
	}
}

func TestScoreIgnoresInvalidAnswers(t *testing.T) {
	s := defaultScorer(t)
	got := s.Score(AnswerSet{999: 0, 1: 42, 11: -1, 12: 0})
	if got.TraitCounts != (models.TraitCounts{D: 1}) {
		t.Fatalf("counts=%+v", got.TraitCounts)
	}
	if got.TraitProfile != "D" {
		t.Fatalf("profile=%q", got.TraitProfile)
	}
}

func TestScoreEmpty(t *testing.T) {
	got := defaultScorer(t).Score(AnswerSet{})
	if got.TraitProfile != "" || got.PrimaryArchetype == "" || got.SecondaryArchetype == "" {
		t.Fatalf("unexpected %+v", got)
	}
}

func TestPrimaryTrait(t *testing.T) {
	if got := PrimaryTrait("S/C", models.TraitCounts{}); got != models.TraitS {
		t.Fatalf("got %s", got)
	}
	if got := PrimaryTrait("", models.TraitCounts{I: 2, C: 2}); got != models.TraitI {
		t.Fatalf("got %s", got)
	}
}
