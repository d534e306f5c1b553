package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bethelevents/assessor/internal/catalog"
	"github.com/bethelevents/assessor/internal/models"
	"github.com/bethelevents/assessor/internal/telemetry"
)

// ResponseStore abstracts persistence operations required by ResponseService.
type ResponseStore interface {
	FormStore
	// InsertResponse must fail with ErrDuplicateResponse when the form already
	// has a response, atomically with respect to concurrent inserts.
	InsertResponse(ctx context.Context, r *models.Response) error
	UpdateNarrative(ctx context.Context, formID string, n models.Narrative, analyzedAt time.Time) error
}

// QuestionView is a question as shown to the participant. Tags are withheld.
type QuestionView struct {
	ID      int      `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// FormView is the result of loading a form by identifier.
type FormView struct {
	FormID          string           `json:"formId"`
	ParticipantName string           `json:"participantName"`
	Questions       []QuestionView   `json:"questions,omitempty"`
	BlockSize       int              `json:"blockSize,omitempty"`
	AlreadyAnswered bool             `json:"alreadyAnswered"`
	Archetypes      *ParticipantView `json:"archetypes,omitempty"`
}

// SubmitRequest transports the sanitized handler input into the service layer.
type SubmitRequest struct {
	Identifier  string
	Answers     AnswerSet
	OpenAnswers models.OpenAnswers
}

// ReprocessResult reports a narrative regeneration. Degraded means the stored
// narrative was kept because a fresh one could not be produced.
type ReprocessResult struct {
	Success   bool             `json:"success"`
	Degraded  bool             `json:"degraded"`
	Narrative models.Narrative `json:"narrative"`
}

// ResponseService hosts the submission and reprocessing workflows.
type ResponseService struct {
	store       ResponseStore
	forms       *FormService
	catalog     *catalog.Catalog
	scorer      *Scorer
	insight     *InsightSynthesizer
	presenter   *Presenter
	tracker     EventTracker
	now         func() time.Time
	idGenerator func() string
}

func NewResponseService(store ResponseStore, forms *FormService, c *catalog.Catalog, insight *InsightSynthesizer, presenter *Presenter, tracker EventTracker) *ResponseService {
	return &ResponseService{
		store:       store,
		forms:       forms,
		catalog:     c,
		scorer:      NewScorer(c),
		insight:     insight,
		presenter:   presenter,
		tracker:     trackerOrNoop(tracker),
		now:         func() time.Time { return time.Now().UTC() },
		idGenerator: uuid.NewString,
	}
}

// Load returns the questionnaire for an open form or the participant view of
// a completed one.
func (s *ResponseService) Load(ctx context.Context, identifier string) (*FormView, error) {
	f, err := s.forms.Resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}
	existing, err := s.forms.CheckAvailability(ctx, f)
	if err != nil {
		return nil, err
	}
	view := &FormView{FormID: f.ID}
	if p, err := s.store.GetParticipant(ctx, f.ParticipantID); err != nil {
		return nil, fmt.Errorf("get participant: %w", err)
	} else if p != nil {
		view.ParticipantName = p.FullName
	}
	if existing != nil {
		pv := s.presenter.ForParticipant(existing)
		view.AlreadyAnswered = true
		view.Archetypes = &pv
		return view, nil
	}
	view.BlockSize = s.catalog.BlockSize()
	for _, q := range s.catalog.Questions() {
		qv := QuestionView{ID: q.ID, Text: q.Text, Options: make([]string, len(q.Options))}
		for i, o := range q.Options {
			qv.Options[i] = o.Label
		}
		view.Questions = append(view.Questions, qv)
	}
	return view, nil
}

// Submit scores, narrates and persists the single response of a form.
func (s *ResponseService) Submit(ctx context.Context, req SubmitRequest) (*ParticipantView, error) {
	if strings.TrimSpace(req.Identifier) == "" {
		return nil, NewInvalidError("error.token_required")
	}
	if len(req.Answers) == 0 {
		return nil, NewInvalidError("error.answers_required")
	}
	f, err := s.forms.Resolve(ctx, req.Identifier)
	if err != nil {
		return nil, err
	}
	existing, err := s.forms.CheckAvailability(ctx, f)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, NewAlreadyAnsweredError()
	}
	p, err := s.store.GetParticipant(ctx, f.ParticipantID)
	if err != nil {
		return nil, fmt.Errorf("get participant: %w", err)
	}

	score := s.scorer.Score(req.Answers)
	open := models.OpenAnswers{
		BiggestChallenge: strings.TrimSpace(req.OpenAnswers.BiggestChallenge),
		DesiredChange:    strings.TrimSpace(req.OpenAnswers.DesiredChange),
	}
	outcome := s.insight.Narrate(ctx, p, score, open)

	now := s.now()
	resp := &models.Response{
		ID:                 s.idGenerator(),
		FormID:             f.ID,
		Answers:            map[int]int(req.Answers),
		TraitCounts:        score.TraitCounts,
		TraitProfile:       score.TraitProfile,
		PrimaryArchetype:   score.PrimaryArchetype,
		SecondaryArchetype: score.SecondaryArchetype,
		CombinedInsight:    s.catalog.CombinedInsight(score.PrimaryArchetype, score.SecondaryArchetype),
		OpenAnswers:        open,
		Narrative:          outcome.Narrative,
		AnalyzedAt:         now,
		CreatedAt:          now,
	}
	if err := s.store.InsertResponse(ctx, resp); err != nil {
		if errors.Is(err, ErrDuplicateResponse) {
			return nil, NewAlreadyAnsweredError()
		}
		slog.Error("save response failed", "form_id", f.ID, "error", err)
		return nil, fmt.Errorf("insert response: %w", err)
	}

	slog.Info("assessment submitted", "form_id", f.ID, "participant_id", f.ParticipantID,
		"trait_profile", score.TraitProfile, "degraded", outcome.Degraded != nil)
	s.tracker.Track(f.ParticipantID, telemetry.EventAssessmentSubmitted, map[string]any{
		"form_id":       f.ID,
		"trait_profile": score.TraitProfile,
		"primary":       score.PrimaryArchetype,
		"secondary":     score.SecondaryArchetype,
		"degraded":      outcome.Degraded != nil,
	})
	view := s.presenter.ForParticipant(resp)
	return &view, nil
}

// Reprocess regenerates the narrative of an answered form from its stored
// results. Answers and scores are never recomputed.
func (s *ResponseService) Reprocess(ctx context.Context, identifier string) (*ReprocessResult, error) {
	f, err := s.forms.Resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}
	return s.reprocess(ctx, f)
}

// ReprocessParticipant is Reprocess addressed by participant id.
func (s *ResponseService) ReprocessParticipant(ctx context.Context, participantID string) (*ReprocessResult, error) {
	f, err := s.forms.FormFor(ctx, participantID)
	if err != nil {
		return nil, err
	}
	return s.reprocess(ctx, f)
}

func (s *ResponseService) reprocess(ctx context.Context, f *models.Form) (*ReprocessResult, error) {
	resp, err := s.store.GetResponseByForm(ctx, f.ID)
	if err != nil {
		return nil, fmt.Errorf("get response: %w", err)
	}
	if resp == nil {
		return nil, NewNotFoundError("error.response_not_found")
	}
	p, err := s.store.GetParticipant(ctx, f.ParticipantID)
	if err != nil {
		return nil, fmt.Errorf("get participant: %w", err)
	}
	stored := ScoreResult{
		TraitCounts:        resp.TraitCounts,
		TraitProfile:       resp.TraitProfile,
		PrimaryArchetype:   resp.PrimaryArchetype,
		SecondaryArchetype: resp.SecondaryArchetype,
	}
	outcome := s.insight.Narrate(ctx, p, stored, resp.OpenAnswers)
	if outcome.Degraded != nil {
		slog.Warn("reprocess kept previous narrative", "form_id", f.ID, "error", outcome.Degraded)
		return &ReprocessResult{Success: true, Degraded: true, Narrative: resp.Narrative}, nil
	}
	if err := s.store.UpdateNarrative(ctx, f.ID, outcome.Narrative, s.now()); err != nil {
		return nil, fmt.Errorf("update narrative: %w", err)
	}
	slog.Info("assessment reprocessed", "form_id", f.ID, "participant_id", f.ParticipantID)
	s.tracker.Track(f.ParticipantID, telemetry.EventAssessmentReprocessed, map[string]any{"form_id": f.ID})
	return &ReprocessResult{Success: true, Narrative: outcome.Narrative}, nil
}

// Assessment returns the stored response for a participant.
func (s *ResponseService) Assessment(ctx context.Context, participantID string) (*models.Response, error) {
	f, err := s.forms.FormFor(ctx, participantID)
	if err != nil {
		return nil, err
	}
	resp, err := s.store.GetResponseByForm(ctx, f.ID)
	if err != nil {
		return nil, fmt.Errorf("get response: %w", err)
	}
	if resp == nil {
		return nil, NewNotFoundError("error.response_not_found")
	}
	return resp, nil
}

// Present applies the visibility policy to a participant's stored response.
func (s *ResponseService) Present(ctx context.Context, role, participantID string) (any, bool, error) {
	resp, err := s.Assessment(ctx, participantID)
	if err != nil {
		return nil, false, err
	}
	view, internal := s.presenter.Present(ctx, role, resp)
	return view, internal, nil
}
