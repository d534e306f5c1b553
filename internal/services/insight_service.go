package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bethelevents/assessor/internal/models"
	"github.com/bethelevents/assessor/internal/telemetry"
	"github.com/bethelevents/assessor/internal/utils"
)

// TextGenerator is the outbound text-generation capability.
type TextGenerator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// ErrNoGenerator is reported when no text-generation backend is configured.
var ErrNoGenerator = errors.New("text generation not configured")

// NarrativeOutcome carries a narrative and, when it could not be produced,
// the degradation cause. Narrative is the empty value whenever Degraded is set.
type NarrativeOutcome struct {
	Narrative models.Narrative
	Degraded  error
}

// InsightSynthesizer produces the sales narrative. It never fails the caller:
// any problem downgrades to an empty narrative.
type InsightSynthesizer struct {
	gen     TextGenerator
	timeout time.Duration
	tracker EventTracker
}

func NewInsightSynthesizer(gen TextGenerator, timeout time.Duration, tracker EventTracker) *InsightSynthesizer {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &InsightSynthesizer{gen: gen, timeout: timeout, tracker: trackerOrNoop(tracker)}
}

// Narrate asks the generator for a narrative within the configured timeout.
func (s *InsightSynthesizer) Narrate(ctx context.Context, p *models.Participant, score ScoreResult, open models.OpenAnswers) NarrativeOutcome {
	n, err := s.narrate(ctx, p, score, open)
	if err == nil {
		return NarrativeOutcome{Narrative: n}
	}
	pid := ""
	if p != nil {
		pid = p.ID
	}
	slog.Warn("narrative degraded", "participant_id", pid, "error", err)
	s.tracker.Track(pid, telemetry.EventNarrativeDegraded, map[string]any{"reason": err.Error()})
	return NarrativeOutcome{Narrative: models.EmptyNarrative(), Degraded: NewUpstreamDegradedError(err)}
}

func (s *InsightSynthesizer) narrate(ctx context.Context, p *models.Participant, score ScoreResult, open models.OpenAnswers) (models.Narrative, error) {
	if s.gen == nil {
		return models.Narrative{}, ErrNoGenerator
	}
	prompt, err := BuildNarrativePrompt(p, score, open)
	if err != nil {
		return models.Narrative{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	raw, err := s.gen.Generate(ctx, narrativeSystemPrompt, prompt)
	if err != nil {
		return models.Narrative{}, fmt.Errorf("generate: %w", err)
	}
	n, err := ParseNarrative(raw)
	if err != nil {
		return models.Narrative{}, err
	}
	slog.Debug("narrative generated", "duration", time.Since(start), "profile_title", n.ProfileTitle)
	return n, nil
}

// narrativeKeys maps each narrative field to the keys models answer with.
// The Portuguese keys come from the older gateway prompt.
var narrativeKeys = struct {
	description, objections, objectionHandling, closingExamples []string
}{
	description:       []string{"description", "disc_description"},
	objections:        []string{"objections", "objecoes"},
	objectionHandling: []string{"objection_handling", "contorno_objecoes"},
	closingExamples:   []string{"closing_examples", "exemplos_fechamento"},
}

// ParseNarrative reads the first JSON object in raw model output. Fields are
// looked up by name; non-string values are kept as their JSON text and alerts
// may be a list or a single string. An object with no known field is rejected.
func ParseNarrative(raw string) (models.Narrative, error) {
	fields, err := utils.ExtractJSONObject(raw)
	if err != nil {
		return models.Narrative{}, fmt.Errorf("parse narrative: %w", err)
	}
	text := func(keys ...string) string {
		for _, k := range keys {
			if v := utils.JSONText(fields[k]); v != "" {
				return v
			}
		}
		return ""
	}
	n := models.Narrative{
		Description:       text(narrativeKeys.description...),
		ProfileTitle:      text("profile_title"),
		ApproachTip:       text("approach_tip"),
		Alerts:            utils.JSONStrings(fields["alerts"]),
		SalesInsights:     text("sales_insights"),
		Objections:        text(narrativeKeys.objections...),
		ObjectionHandling: text(narrativeKeys.objectionHandling...),
		ClosingExamples:   text(narrativeKeys.closingExamples...),
	}
	if n.IsEmpty() {
		return models.Narrative{}, fmt.Errorf("parse narrative: no known fields")
	}
	return n, nil
}
