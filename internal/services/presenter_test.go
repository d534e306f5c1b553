package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bethelevents/assessor/internal/catalog"
	"github.com/bethelevents/assessor/internal/models"
)

type rolePolicy struct {
	internal map[string]bool
	err      error
}

func (p rolePolicy) AllowInternal(_ context.Context, role string) (bool, error) {
	return p.internal[role], p.err
}

func testPresenter(t *testing.T, policy VisibilityPolicy) *Presenter {
	t.Helper()
	c, err := catalog.Default()
	require.NoError(t, err)
	return NewPresenter(c, policy)
}

func sampleResponse() *models.Response {
	return &models.Response{
		FormID:             "f1",
		TraitCounts:        models.TraitCounts{D: 2, I: 9, S: 5, C: 4},
		TraitProfile:       "I",
		PrimaryArchetype:   "Mago",
		SecondaryArchetype: "Criador",
		CombinedInsight:    "stored phrase",
		Narrative:          models.Narrative{SalesInsights: "use histórias", Alerts: []string{}},
	}
}

func TestParticipantViewHidesScoring(t *testing.T) {
	p := testPresenter(t, nil)
	v := p.ForParticipant(sampleResponse())

	assert.Equal(t, "Mago", v.PrimaryArchetype.Name)
	assert.Equal(t, "✨", v.PrimaryArchetype.Emoji)
	assert.Equal(t, "stored phrase", v.CombinedInsight)

	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var keys map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &keys))
	assert.ElementsMatch(t, []string{"primaryArchetype", "secondaryArchetype", "combinedInsight"}, mapKeys(keys))
	assert.NotContains(t, string(raw), "use histórias")
}

func TestInternalViewFallsBackToTraitTable(t *testing.T) {
	v := testPresenter(t, nil).ForInternal(sampleResponse())

	assert.Equal(t, "I", v.TraitProfile)
	assert.Equal(t, models.TraitCounts{D: 10, I: 45, S: 25, C: 20}, v.TraitPercentages)
	assert.Equal(t, "Perfil Influência", v.ProfileTitle)
	assert.Contains(t, v.ApproachTip, "entusiasmo")
	assert.Len(t, v.Alerts, 3)
	assert.Equal(t, "use histórias", v.SalesInsights)
	assert.False(t, v.NarrativeReady)
}

func TestPresentFollowsPolicy(t *testing.T) {
	policy := rolePolicy{internal: map[string]bool{"admin": true, "closer": true}}
	p := testPresenter(t, policy)
	ctx := context.Background()

	for role, wantInternal := range map[string]bool{"admin": true, "closer": true, "viewer": false, "": false} {
		view, internal := p.Present(ctx, role, sampleResponse())
		assert.Equal(t, wantInternal, internal, role)
		if wantInternal {
			assert.IsType(t, InternalView{}, view, role)
		} else {
			assert.IsType(t, ParticipantView{}, view, role)
		}
	}
}

func TestPresentFailsClosed(t *testing.T) {
	p := testPresenter(t, rolePolicy{internal: map[string]bool{"admin": true}, err: errors.New("opa down")})
	_, internal := p.Present(context.Background(), "admin", sampleResponse())
	assert.False(t, internal)
}

func mapKeys(m map[string]json.RawMessage) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
