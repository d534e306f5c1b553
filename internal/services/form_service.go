package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bethelevents/assessor/internal/models"
	"github.com/bethelevents/assessor/internal/telemetry"
)

// FormStore abstracts persistence operations required by FormService.
type FormStore interface {
	FormLookup
	GetParticipant(ctx context.Context, id string) (*models.Participant, error)
	GetFormByParticipant(ctx context.Context, participantID string) (*models.Form, error)
	GetResponseByForm(ctx context.Context, formID string) (*models.Response, error)
	// InsertForm must reject a second form for the same participant with
	// ErrDuplicateForm and a reused token or short code with ErrDuplicateIdentifier.
	InsertForm(ctx context.Context, f *models.Form) error
}

// FormOptions tunes issuance. Zero TTL means forms never expire.
type FormOptions struct {
	TTL             time.Duration
	ShortCodeLength int
}

// FormLink is how operators share a form with a participant.
type FormLink struct {
	FormID    string     `json:"formId"`
	Token     string     `json:"token"`
	ShortCode string     `json:"shortCode,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	URL       string     `json:"url"`
	LegacyURL string     `json:"legacyUrl"`
	Answered  bool       `json:"answered"`
}

const issueAttempts = 5

// FormService issues forms and gates access to them.
type FormService struct {
	store    FormStore
	resolver *IdentifierResolver
	opts     FormOptions
	tracker  EventTracker
	now      func() time.Time
	newToken func() (string, error)
	newCode  func(n int) (string, error)
}

func NewFormService(store FormStore, opts FormOptions, tracker EventTracker) *FormService {
	if opts.ShortCodeLength <= 0 {
		opts.ShortCodeLength = 6
	}
	return &FormService{
		store:    store,
		resolver: NewIdentifierResolver(store),
		opts:     opts,
		tracker:  trackerOrNoop(tracker),
		now:      func() time.Time { return time.Now().UTC() },
		newToken: NewFormToken,
		newCode:  NewShortCode,
	}
}

// Issue creates the one form a participant may own.
func (s *FormService) Issue(ctx context.Context, participantID string) (*models.Form, error) {
	participantID = strings.TrimSpace(participantID)
	if participantID == "" {
		return nil, NewInvalidError("error.participant_needed")
	}
	p, err := s.store.GetParticipant(ctx, participantID)
	if err != nil {
		return nil, fmt.Errorf("get participant: %w", err)
	}
	if p == nil {
		return nil, NewNotFoundError("error.participant_absent")
	}

	for attempt := 1; attempt <= issueAttempts; attempt++ {
		f, err := s.newForm(participantID)
		if err != nil {
			return nil, err
		}
		err = s.store.InsertForm(ctx, f)
		switch {
		case err == nil:
			slog.Info("form issued", "form_id", f.ID, "participant_id", participantID, "short_code", f.ShortCode)
			s.tracker.Track(participantID, telemetry.EventFormIssued, map[string]any{"form_id": f.ID})
			return f, nil
		case errors.Is(err, ErrDuplicateForm):
			return nil, NewConflictError("error.form_exists")
		case errors.Is(err, ErrDuplicateIdentifier):
			slog.Debug("form identifier collision, retrying", "participant_id", participantID, "attempt", attempt)
			continue
		default:
			return nil, fmt.Errorf("insert form: %w", err)
		}
	}
	return nil, fmt.Errorf("issue form: identifier collisions after %d attempts", issueAttempts)
}

func (s *FormService) newForm(participantID string) (*models.Form, error) {
	token, err := s.newToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	code, err := s.newCode(s.opts.ShortCodeLength)
	if err != nil {
		return nil, fmt.Errorf("generate short code: %w", err)
	}
	now := s.now()
	f := &models.Form{
		ID:            uuid.NewString(),
		ParticipantID: participantID,
		Token:         token,
		ShortCode:     code,
		CreatedAt:     now,
	}
	if s.opts.TTL > 0 {
		exp := now.Add(s.opts.TTL)
		f.ExpiresAt = &exp
	}
	return f, nil
}

// Resolve accepts a long token or a short code.
func (s *FormService) Resolve(ctx context.Context, identifier string) (*models.Form, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, NewInvalidError("error.token_required")
	}
	return s.resolver.Resolve(ctx, identifier)
}

// CheckAvailability fails with an expired error past the expiry and otherwise
// returns the stored response, or nil when the form is still open.
func (s *FormService) CheckAvailability(ctx context.Context, f *models.Form) (*models.Response, error) {
	if f.ExpiredAt(s.now()) {
		return nil, NewExpiredError()
	}
	resp, err := s.store.GetResponseByForm(ctx, f.ID)
	if err != nil {
		return nil, fmt.Errorf("get response: %w", err)
	}
	return resp, nil
}

// FormFor returns the form owned by participantID.
func (s *FormService) FormFor(ctx context.Context, participantID string) (*models.Form, error) {
	participantID = strings.TrimSpace(participantID)
	if participantID == "" {
		return nil, NewInvalidError("error.participant_needed")
	}
	f, err := s.store.GetFormByParticipant(ctx, participantID)
	if err != nil {
		return nil, fmt.Errorf("get form: %w", err)
	}
	if f == nil {
		return nil, NewNotFoundError("error.form_not_found")
	}
	return f, nil
}

// Link builds the shareable paths for f. The short-code link is preferred.
func (s *FormService) Link(ctx context.Context, f *models.Form) (*FormLink, error) {
	resp, err := s.store.GetResponseByForm(ctx, f.ID)
	if err != nil {
		return nil, fmt.Errorf("get response: %w", err)
	}
	l := &FormLink{
		FormID:    f.ID,
		Token:     f.Token,
		ShortCode: f.ShortCode,
		ExpiresAt: f.ExpiresAt,
		LegacyURL: "/disc/" + f.Token,
		Answered:  resp != nil,
	}
	l.URL = l.LegacyURL
	if f.ShortCode != "" {
		l.URL = "/teste/" + f.ShortCode
	}
	return l, nil
}
