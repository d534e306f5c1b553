package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/bethelevents/assessor/internal/catalog"
	"github.com/bethelevents/assessor/internal/models"
)

// VisibilityPolicy decides whether a caller role may see the internal view.
type VisibilityPolicy interface {
	AllowInternal(ctx context.Context, role string) (bool, error)
}

// ParticipantView is everything the assessed person may see. It deliberately
// has no trait or narrative fields.
type ParticipantView struct {
	PrimaryArchetype   catalog.Archetype `json:"primaryArchetype"`
	SecondaryArchetype catalog.Archetype `json:"secondaryArchetype"`
	CombinedInsight    string            `json:"combinedInsight"`
}

// InternalView is the sales-team view of a response.
type InternalView struct {
	ParticipantView
	TraitProfile      string             `json:"traitProfile"`
	TraitCounts       models.TraitCounts `json:"traitCounts"`
	TraitPercentages  models.TraitCounts `json:"traitPercentages"`
	PrimaryTraitName  string             `json:"primaryTraitName"`
	ProfileTitle      string             `json:"profileTitle"`
	Description       string             `json:"description"`
	ApproachTip       string             `json:"approachTip"`
	Alerts            []string           `json:"alerts"`
	SalesInsights     string             `json:"salesInsights"`
	Objections        string             `json:"objections"`
	ObjectionHandling string             `json:"objectionHandling"`
	ClosingExamples   string             `json:"closingExamples"`
	OpenAnswers       models.OpenAnswers `json:"openAnswers"`
	NarrativeReady    bool               `json:"narrativeReady"`
	AnalyzedAt        time.Time          `json:"analyzedAt"`
}

// Presenter shapes stored responses for their audience.
type Presenter struct {
	catalog *catalog.Catalog
	policy  VisibilityPolicy
}

func NewPresenter(c *catalog.Catalog, policy VisibilityPolicy) *Presenter {
	return &Presenter{catalog: c, policy: policy}
}

// ForParticipant returns the archetype-only view.
func (p *Presenter) ForParticipant(r *models.Response) ParticipantView {
	combined := r.CombinedInsight
	if combined == "" {
		combined = p.catalog.CombinedInsight(r.PrimaryArchetype, r.SecondaryArchetype)
	}
	return ParticipantView{
		PrimaryArchetype:   p.catalog.Archetype(r.PrimaryArchetype),
		SecondaryArchetype: p.catalog.Archetype(r.SecondaryArchetype),
		CombinedInsight:    combined,
	}
}

// ForInternal returns the full view. Empty narrative fields fall back to the
// trait reference table so the card is never blank.
func (p *Presenter) ForInternal(r *models.Response) InternalView {
	trait := p.catalog.Trait(PrimaryTrait(r.TraitProfile, r.TraitCounts))
	v := InternalView{
		ParticipantView:   p.ForParticipant(r),
		TraitProfile:      r.TraitProfile,
		TraitCounts:       r.TraitCounts,
		TraitPercentages:  r.TraitCounts.Percentages(),
		PrimaryTraitName:  trait.Name,
		ProfileTitle:      r.Narrative.ProfileTitle,
		Description:       r.Narrative.Description,
		ApproachTip:       r.Narrative.ApproachTip,
		Alerts:            r.Narrative.Alerts,
		SalesInsights:     r.Narrative.SalesInsights,
		Objections:        r.Narrative.Objections,
		ObjectionHandling: r.Narrative.ObjectionHandling,
		ClosingExamples:   r.Narrative.ClosingExamples,
		OpenAnswers:       r.OpenAnswers,
		NarrativeReady:    !r.Narrative.IsEmpty(),
		AnalyzedAt:        r.AnalyzedAt,
	}
	if v.ProfileTitle == "" && trait.Name != "" {
		v.ProfileTitle = "Perfil " + trait.Name
	}
	if v.ApproachTip == "" {
		v.ApproachTip = trait.Tip
	}
	if len(v.Alerts) == 0 {
		v.Alerts = append([]string(nil), trait.Alerts...)
	}
	return v
}

// Present picks the view for role. Policy failures fall back to the participant view.
func (p *Presenter) Present(ctx context.Context, role string, r *models.Response) (view any, internal bool) {
	if p.policy != nil {
		ok, err := p.policy.AllowInternal(ctx, role)
		if err != nil {
			slog.Error("visibility policy failed", "role", role, "error", err)
		} else if ok {
			return p.ForInternal(r), true
		}
	}
	return p.ForParticipant(r), false
}
