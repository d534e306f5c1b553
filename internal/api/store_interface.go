package api

import (
	"context"

	"github.com/bethelevents/assessor/internal/models"
	"github.com/bethelevents/assessor/internal/services"
)

// Store is the persistence surface behind the router. Both the in-memory
// store and the SQLite store satisfy it.
type Store interface {
	services.ResponseStore

	// AddParticipant upserts a participant. Participants normally arrive from
	// the ingestion pipeline; this exists for seeding and tests.
	AddParticipant(ctx context.Context, p *models.Participant) error
}

var _ Store = (*memoryStore)(nil)
