package services

import (
	"context"
	"sync"
	"time"

	"github.com/bethelevents/assessor/internal/models"
)

// stubStore is an in-memory ResponseStore enforcing the uniqueness rules.
type stubStore struct {
	mu           sync.Mutex
	participants map[string]*models.Participant
	forms        []*models.Form
	responses    map[string]*models.Response
	insertErr    error
}

func newStubStore(participants ...*models.Participant) *stubStore {
	s := &stubStore{participants: map[string]*models.Participant{}, responses: map[string]*models.Response{}}
	for _, p := range participants {
		s.participants[p.ID] = p
	}
	return s
}

func (s *stubStore) GetParticipant(_ context.Context, id string) (*models.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.participants[id], nil
}

func (s *stubStore) find(match func(*models.Form) bool) *models.Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.forms {
		if match(f) {
			cp := *f
			return &cp
		}
	}
	return nil
}

func (s *stubStore) GetFormByToken(_ context.Context, token string) (*models.Form, error) {
	return s.find(func(f *models.Form) bool { return f.Token == token }), nil
}

func (s *stubStore) GetFormByShortCode(_ context.Context, code string) (*models.Form, error) {
	return s.find(func(f *models.Form) bool { return f.ShortCode != "" && f.ShortCode == code }), nil
}

func (s *stubStore) GetFormByParticipant(_ context.Context, pid string) (*models.Form, error) {
	return s.find(func(f *models.Form) bool { return f.ParticipantID == pid }), nil
}

func (s *stubStore) InsertForm(_ context.Context, f *models.Form) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.forms {
		if existing.ParticipantID == f.ParticipantID {
			return ErrDuplicateForm
		}
		if existing.Token == f.Token || (f.ShortCode != "" && existing.ShortCode == f.ShortCode) {
			return ErrDuplicateIdentifier
		}
	}
	cp := *f
	s.forms = append(s.forms, &cp)
	return nil
}

func (s *stubStore) GetResponseByForm(_ context.Context, formID string) (*models.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.responses[formID]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

func (s *stubStore) InsertResponse(_ context.Context, r *models.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	if _, ok := s.responses[r.FormID]; ok {
		return ErrDuplicateResponse
	}
	cp := *r
	s.responses[r.FormID] = &cp
	return nil
}

func (s *stubStore) UpdateNarrative(_ context.Context, formID string, n models.Narrative, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.responses[formID]
	if !ok {
		return nil
	}
	r.Narrative = n
	r.AnalyzedAt = at
	return nil
}

// recordingTracker collects tracked event names.
type recordingTracker struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingTracker) Track(_, event string, _ map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingTracker) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}
