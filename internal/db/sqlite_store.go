package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/spf13/afero"

	"github.com/bethelevents/assessor/internal/api"
	"github.com/bethelevents/assessor/internal/models"
	"github.com/bethelevents/assessor/internal/services"
)

type SQLiteStore struct {
	db *sql.DB
}

// OpenDB opens (creating if needed) the database file at path without migrating it.
func OpenDB(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on&_txlock=immediate", filepath.ToSlash(path))
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return sqlDB, nil
}

// Open opens the database at path and applies pending migrations. Override
// files in migrationsDir are read from fsys.
func Open(ctx context.Context, path string, fsys afero.Fs, migrationsDir string) (*SQLiteStore, error) {
	sqlDB, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if _, err := RunMigrations(ctx, sqlDB, fsys, migrationsDir); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	s, err := NewSQLiteStore(sqlDB)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func NewStore(db *sql.DB) (api.Store, error) {
	return NewSQLiteStore(db)
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func toNullString(v string) sql.NullString {
	if strings.TrimSpace(v) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func toNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", v, err)
	}
	return t, nil
}

// uniqueViolation maps a UNIQUE constraint failure onto the service sentinels.
func uniqueViolation(err error) error {
	var se sqlite3.Error
	if !errors.As(err, &se) || se.ExtendedCode != sqlite3.ErrConstraintUnique {
		return err
	}
	msg := se.Error()
	switch {
	case strings.Contains(msg, "forms.participant_id"):
		return services.ErrDuplicateForm
	case strings.Contains(msg, "forms.token"), strings.Contains(msg, "forms.short_code"):
		return services.ErrDuplicateIdentifier
	case strings.Contains(msg, "responses.form_id"):
		return services.ErrDuplicateResponse
	}
	return err
}

func (s *SQLiteStore) AddParticipant(ctx context.Context, p *models.Participant) error {
	created := p.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO participants (id, full_name, photo_url, revenue_band, niche, event_goal, main_difficulty, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			full_name = excluded.full_name,
			photo_url = excluded.photo_url,
			revenue_band = excluded.revenue_band,
			niche = excluded.niche,
			event_goal = excluded.event_goal,
			main_difficulty = excluded.main_difficulty`,
		p.ID, p.FullName, toNullString(p.PhotoURL), toNullString(p.RevenueBand), toNullString(p.Niche),
		toNullString(p.EventGoal), toNullString(p.MainDifficulty), formatTime(created))
	if err != nil {
		return fmt.Errorf("upsert participant: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetParticipant(ctx context.Context, id string) (*models.Participant, error) {
	var (
		p                                       models.Participant
		photo, revenue, niche, goal, difficulty sql.NullString
		created                                 string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, full_name, photo_url, revenue_band, niche, event_goal, main_difficulty, created_at
		FROM participants WHERE id = ?`, id).
		Scan(&p.ID, &p.FullName, &photo, &revenue, &niche, &goal, &difficulty, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get participant: %w", err)
	}
	p.PhotoURL, p.RevenueBand, p.Niche = photo.String, revenue.String, niche.String
	p.EventGoal, p.MainDifficulty = goal.String, difficulty.String
	if p.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &p, nil
}

const formColumns = `id, participant_id, token, short_code, created_at, expires_at`

func (s *SQLiteStore) getForm(ctx context.Context, where string, arg any) (*models.Form, error) {
	var (
		f       models.Form
		code    sql.NullString
		created string
		expires sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `SELECT `+formColumns+` FROM forms WHERE `+where+` = ?`, arg).
		Scan(&f.ID, &f.ParticipantID, &f.Token, &code, &created, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get form by %s: %w", where, err)
	}
	f.ShortCode = code.String
	if f.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if expires.Valid {
		t, err := parseTime(expires.String)
		if err != nil {
			return nil, err
		}
		f.ExpiresAt = &t
	}
	return &f, nil
}

func (s *SQLiteStore) GetFormByToken(ctx context.Context, token string) (*models.Form, error) {
	return s.getForm(ctx, "token", token)
}

func (s *SQLiteStore) GetFormByShortCode(ctx context.Context, code string) (*models.Form, error) {
	return s.getForm(ctx, "short_code", code)
}

func (s *SQLiteStore) GetFormByParticipant(ctx context.Context, participantID string) (*models.Form, error) {
	return s.getForm(ctx, "participant_id", participantID)
}

func (s *SQLiteStore) InsertForm(ctx context.Context, f *models.Form) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO forms (`+formColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		f.ID, f.ParticipantID, f.Token, toNullString(f.ShortCode), formatTime(f.CreatedAt), toNullTime(f.ExpiresAt))
	if err != nil {
		return uniqueViolation(err)
	}
	return nil
}

func (s *SQLiteStore) GetResponseByForm(ctx context.Context, formID string) (*models.Response, error) {
	var (
		r                                       models.Response
		answers                                 string
		biggest, desired                        sql.NullString
		desc, title, tip, alerts                sql.NullString
		insights, objections, handling, closing sql.NullString
		analyzed, created                       string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, form_id, answers, count_d, count_i, count_s, count_c,
			trait_profile, primary_archetype, secondary_archetype, combined_insight,
			biggest_challenge, desired_change,
			description, profile_title, approach_tip, alerts,
			sales_insights, objections, objection_handling, closing_examples,
			analyzed_at, created_at
		FROM responses WHERE form_id = ?`, formID).Scan(
		&r.ID, &r.FormID, &answers, &r.TraitCounts.D, &r.TraitCounts.I, &r.TraitCounts.S, &r.TraitCounts.C,
		&r.TraitProfile, &r.PrimaryArchetype, &r.SecondaryArchetype, &r.CombinedInsight,
		&biggest, &desired,
		&desc, &title, &tip, &alerts,
		&insights, &objections, &handling, &closing,
		&analyzed, &created,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get response: %w", err)
	}
	if err := json.Unmarshal([]byte(answers), &r.Answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	r.OpenAnswers = models.OpenAnswers{BiggestChallenge: biggest.String, DesiredChange: desired.String}
	r.Narrative = models.Narrative{
		Description:       desc.String,
		ProfileTitle:      title.String,
		ApproachTip:       tip.String,
		Alerts:            []string{},
		SalesInsights:     insights.String,
		Objections:        objections.String,
		ObjectionHandling: handling.String,
		ClosingExamples:   closing.String,
	}
	if alerts.Valid {
		if err := json.Unmarshal([]byte(alerts.String), &r.Narrative.Alerts); err != nil {
			return nil, fmt.Errorf("decode alerts: %w", err)
		}
	}
	if r.AnalyzedAt, err = parseTime(analyzed); err != nil {
		return nil, err
	}
	if r.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &r, nil
}

func encodeAlerts(alerts []string) (sql.NullString, error) {
	if len(alerts) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(alerts)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode alerts: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// InsertResponse relies on the UNIQUE form_id column, so concurrent
// submissions for one form resolve to exactly one row.
func (s *SQLiteStore) InsertResponse(ctx context.Context, r *models.Response) error {
	answers, err := json.Marshal(r.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	alerts, err := encodeAlerts(r.Narrative.Alerts)
	if err != nil {
		return err
	}
	n := r.Narrative
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO responses (id, form_id, answers, count_d, count_i, count_s, count_c,
			trait_profile, primary_archetype, secondary_archetype, combined_insight,
			biggest_challenge, desired_change,
			description, profile_title, approach_tip, alerts,
			sales_insights, objections, objection_handling, closing_examples,
			analyzed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.FormID, string(answers), r.TraitCounts.D, r.TraitCounts.I, r.TraitCounts.S, r.TraitCounts.C,
		r.TraitProfile, r.PrimaryArchetype, r.SecondaryArchetype, r.CombinedInsight,
		toNullString(r.OpenAnswers.BiggestChallenge), toNullString(r.OpenAnswers.DesiredChange),
		toNullString(n.Description), toNullString(n.ProfileTitle), toNullString(n.ApproachTip), alerts,
		toNullString(n.SalesInsights), toNullString(n.Objections), toNullString(n.ObjectionHandling), toNullString(n.ClosingExamples),
		formatTime(r.AnalyzedAt), formatTime(r.CreatedAt),
	)
	if err != nil {
		return uniqueViolation(err)
	}
	return nil
}

// UpdateNarrative overwrites only the narrative columns and analyzed_at.
func (s *SQLiteStore) UpdateNarrative(ctx context.Context, formID string, n models.Narrative, analyzedAt time.Time) error {
	alerts, err := encodeAlerts(n.Alerts)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE responses SET
			description = ?, profile_title = ?, approach_tip = ?, alerts = ?,
			sales_insights = ?, objections = ?, objection_handling = ?, closing_examples = ?,
			analyzed_at = ?
		WHERE form_id = ?`,
		toNullString(n.Description), toNullString(n.ProfileTitle), toNullString(n.ApproachTip), alerts,
		toNullString(n.SalesInsights), toNullString(n.Objections), toNullString(n.ObjectionHandling), toNullString(n.ClosingExamples),
		formatTime(analyzedAt), formID,
	)
	if err != nil {
		return fmt.Errorf("update narrative: %w", err)
	}
	return nil
}
