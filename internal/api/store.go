package api

import (
	"context"
	"sync"
	"time"

	"github.com/bethelevents/assessor/internal/models"
	"github.com/bethelevents/assessor/internal/services"
)

type memoryStore struct {
	mu           sync.RWMutex
	participants map[string]*models.Participant
	forms        map[string]*models.Form
	formsByToken map[string]string
	formsByCode  map[string]string
	formsByOwner map[string]string
	responses    map[string]*models.Response
}

// NewMemoryStore returns a process-local Store. Data is lost on restart.
func NewMemoryStore() Store { return newMemoryStore() }

func newMemoryStore() *memoryStore {
	return &memoryStore{
		participants: map[string]*models.Participant{},
		forms:        map[string]*models.Form{},
		formsByToken: map[string]string{},
		formsByCode:  map[string]string{},
		formsByOwner: map[string]string{},
		responses:    map[string]*models.Response{},
	}
}

func (s *memoryStore) AddParticipant(_ context.Context, p *models.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.participants[p.ID] = &cp
	return nil
}

func (s *memoryStore) GetParticipant(_ context.Context, id string) (*models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *memoryStore) formByID(id string) *models.Form {
	f, ok := s.forms[id]
	if !ok {
		return nil
	}
	cp := *f
	return &cp
}

func (s *memoryStore) GetFormByToken(_ context.Context, token string) (*models.Form, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.formByID(s.formsByToken[token]), nil
}

func (s *memoryStore) GetFormByShortCode(_ context.Context, code string) (*models.Form, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.formByID(s.formsByCode[code]), nil
}

func (s *memoryStore) GetFormByParticipant(_ context.Context, participantID string) (*models.Form, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.formByID(s.formsByOwner[participantID]), nil
}

func (s *memoryStore) InsertForm(_ context.Context, f *models.Form) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.formsByOwner[f.ParticipantID]; ok {
		return services.ErrDuplicateForm
	}
	if _, ok := s.formsByToken[f.Token]; ok {
		return services.ErrDuplicateIdentifier
	}
	if f.ShortCode != "" {
		if _, ok := s.formsByCode[f.ShortCode]; ok {
			return services.ErrDuplicateIdentifier
		}
		s.formsByCode[f.ShortCode] = f.ID
	}
	cp := *f
	s.forms[f.ID] = &cp
	s.formsByToken[f.Token] = f.ID
	s.formsByOwner[f.ParticipantID] = f.ID
	return nil
}

func (s *memoryStore) GetResponseByForm(_ context.Context, formID string) (*models.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.responses[formID]
	if !ok {
		return nil, nil
	}
	cp := cloneResponse(r)
	return &cp, nil
}

func (s *memoryStore) InsertResponse(_ context.Context, r *models.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.responses[r.FormID]; ok {
		return services.ErrDuplicateResponse
	}
	cp := cloneResponse(r)
	s.responses[r.FormID] = &cp
	return nil
}

func (s *memoryStore) UpdateNarrative(_ context.Context, formID string, n models.Narrative, analyzedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.responses[formID]
	if !ok {
		return nil
	}
	r.Narrative = n
	r.Narrative.Alerts = append([]string{}, n.Alerts...)
	r.AnalyzedAt = analyzedAt
	return nil
}

func cloneResponse(r *models.Response) models.Response {
	cp := *r
	cp.Answers = make(map[int]int, len(r.Answers))
	for k, v := range r.Answers {
		cp.Answers[k] = v
	}
	cp.Narrative.Alerts = append([]string{}, r.Narrative.Alerts...)
	return cp
}
