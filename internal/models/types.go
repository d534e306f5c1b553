package models

import (
	"math"
	"time"
)

// Trait is one letter of the four-trait behavioral profile.
type Trait string

const (
	TraitD Trait = "D"
	TraitI Trait = "I"
	TraitS Trait = "S"
	TraitC Trait = "C"
)

// Traits lists the trait letters in canonical order. Ties are broken in this order.
var Traits = []Trait{TraitD, TraitI, TraitS, TraitC}

// Valid reports whether t is one of the four trait letters.
func (t Trait) Valid() bool {
	switch t {
	case TraitD, TraitI, TraitS, TraitC:
		return true
	}
	return false
}

// Option is one selectable answer. Archetype is empty on trait-only questions.
type Option struct {
	Label     string `yaml:"label" json:"label"`
	Trait     Trait  `yaml:"trait" json:"trait"`
	Archetype string `yaml:"archetype,omitempty" json:"archetype,omitempty"`
}

// Question is a situational prompt from the question bank.
type Question struct {
	ID      int      `yaml:"id" json:"id"`
	Text    string   `yaml:"text" json:"text"`
	Options []Option `yaml:"options" json:"options"`
}

// TraitCounts tallies selected options per trait letter.
type TraitCounts struct {
	D int `json:"D"`
	I int `json:"I"`
	S int `json:"S"`
	C int `json:"C"`
}

// Get returns the count stored for t.
func (c TraitCounts) Get(t Trait) int {
	switch t {
	case TraitD:
		return c.D
	case TraitI:
		return c.I
	case TraitS:
		return c.S
	case TraitC:
		return c.C
	}
	return 0
}

// Add increments the counter for t. Unknown letters are ignored.
func (c *TraitCounts) Add(t Trait) {
	switch t {
	case TraitD:
		c.D++
	case TraitI:
		c.I++
	case TraitS:
		c.S++
	case TraitC:
		c.C++
	}
}

// Total is the sum of all four counters.
func (c TraitCounts) Total() int { return c.D + c.I + c.S + c.C }

// Percentages converts the counts to rounded shares of the total.
// All values are zero when nothing was counted.
func (c TraitCounts) Percentages() TraitCounts {
	total := c.Total()
	if total == 0 {
		return TraitCounts{}
	}
	pct := func(n int) int { return int(math.Round(float64(n) / float64(total) * 100)) }
	return TraitCounts{D: pct(c.D), I: pct(c.I), S: pct(c.S), C: pct(c.C)}
}

// Participant carries the business-context fields used to enrich a narrative.
// Records are created by the ingestion pipeline; this module only reads them.
type Participant struct {
	ID             string    `json:"id"`
	FullName       string    `json:"fullName"`
	PhotoURL       string    `json:"photoUrl,omitempty"`
	RevenueBand    string    `json:"revenueBand,omitempty"`
	Niche          string    `json:"niche,omitempty"`
	EventGoal      string    `json:"eventGoal,omitempty"`
	MainDifficulty string    `json:"mainDifficulty,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Form is one issued questionnaire. A participant owns at most one form.
type Form struct {
	ID            string     `json:"id"`
	ParticipantID string     `json:"participantId"`
	Token         string     `json:"token"`
	ShortCode     string     `json:"shortCode,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
}

// ExpiredAt reports whether the form is past its expiry at now.
// Forms without an expiry never expire.
func (f *Form) ExpiredAt(now time.Time) bool {
	return f.ExpiresAt != nil && now.After(*f.ExpiresAt)
}

// OpenAnswers are the two optional free-text answers.
type OpenAnswers struct {
	BiggestChallenge string `json:"biggestChallenge,omitempty"`
	DesiredChange    string `json:"desiredChange,omitempty"`
}

// Empty reports whether neither answer was given.
func (o OpenAnswers) Empty() bool { return o.BiggestChallenge == "" && o.DesiredChange == "" }

// Narrative holds the generated sales-facing text for a response.
type Narrative struct {
	Description       string   `json:"description"`
	ProfileTitle      string   `json:"profileTitle"`
	ApproachTip       string   `json:"approachTip"`
	Alerts            []string `json:"alerts"`
	SalesInsights     string   `json:"salesInsights"`
	Objections        string   `json:"objections"`
	ObjectionHandling string   `json:"objectionHandling"`
	ClosingExamples   string   `json:"closingExamples"`
}

// EmptyNarrative is the value stored when narrative generation is unavailable.
func EmptyNarrative() Narrative { return Narrative{Alerts: []string{}} }

// IsEmpty reports whether no narrative field carries content.
func (n Narrative) IsEmpty() bool {
	return n.Description == "" && n.ProfileTitle == "" && n.ApproachTip == "" && len(n.Alerts) == 0 &&
		n.SalesInsights == "" && n.Objections == "" && n.ObjectionHandling == "" && n.ClosingExamples == ""
}

// Response is the single terminal record of a form. Answers and derived scores
// are written once; only the narrative and AnalyzedAt change afterwards.
type Response struct {
	ID                 string      `json:"id"`
	FormID             string      `json:"formId"`
	Answers            map[int]int `json:"answers"`
	TraitCounts        TraitCounts `json:"traitCounts"`
	TraitProfile       string      `json:"traitProfile"`
	PrimaryArchetype   string      `json:"primaryArchetype"`
	SecondaryArchetype string      `json:"secondaryArchetype"`
	CombinedInsight    string      `json:"combinedInsight"`
	OpenAnswers        OpenAnswers `json:"openAnswers"`
	Narrative          Narrative   `json:"narrative"`
	AnalyzedAt         time.Time   `json:"analyzedAt"`
	CreatedAt          time.Time   `json:"createdAt"`
}
