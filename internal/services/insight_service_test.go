package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bethelevents/assessor/internal/models"
	"github.com/bethelevents/assessor/internal/telemetry"
)

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	args := m.Called(ctx, system, prompt)
	return args.String(0), args.Error(1)
}

// blockingGenerator waits for the context to end.
type blockingGenerator struct{}

func (blockingGenerator) Generate(ctx context.Context, _, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

const fullNarrativeJSON = `Segue a análise:
{
  "description": "Pessoa orientada a resultados.",
  "profile_title": "O Conquistador",
  "approach_tip": "Vá direto ao ponto.",
  "alerts": ["Impaciente", "Competitivo"],
  "sales_insights": ["Mostre ROI", "Seja breve"],
  "objections": "Preço",
  "objection_handling": {"Preço": "Mostre retorno"},
  "closing_examples": "Vamos fechar hoje?"
}`

var sampleScore = ScoreResult{
	TraitCounts:        models.TraitCounts{D: 8, I: 6, S: 4, C: 2},
	TraitProfile:       "D",
	PrimaryArchetype:   "Herói",
	SecondaryArchetype: "Governante",
}

func TestNarrateSuccess(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, narrativeSystemPrompt, mock.AnythingOfType("string")).Return(fullNarrativeJSON, nil).Once()

	s := NewInsightSynthesizer(gen, time.Second, nil)
	out := s.Narrate(context.Background(), &models.Participant{ID: "p1", FullName: "Ana"}, sampleScore, models.OpenAnswers{})

	require.NoError(t, out.Degraded)
	assert.Equal(t, "O Conquistador", out.Narrative.ProfileTitle)
	assert.Equal(t, []string{"Impaciente", "Competitivo"}, out.Narrative.Alerts)
	assert.Equal(t, `["Mostre ROI", "Seja breve"]`, out.Narrative.SalesInsights)
	assert.Equal(t, `{"Preço": "Mostre retorno"}`, out.Narrative.ObjectionHandling)
	gen.AssertExpectations(t)
}

func TestNarrateDegradesOnGeneratorError(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("503")).Once()
	tracker := &recordingTracker{}

	out := NewInsightSynthesizer(gen, time.Second, tracker).Narrate(context.Background(), nil, sampleScore, models.OpenAnswers{})

	require.Error(t, out.Degraded)
	assert.True(t, IsCode(out.Degraded, ErrorUpstreamDegraded))
	assert.True(t, out.Narrative.IsEmpty())
	assert.NotNil(t, out.Narrative.Alerts)
	assert.Equal(t, []string{telemetry.EventNarrativeDegraded}, tracker.names())
}

func TestNarrateDegradesOnUnparseableOutput(t *testing.T) {
	for _, raw := range []string{"desculpe, não consigo", `{"unrelated": "x"}`, `{"description": `} {
		gen := &mockGenerator{}
		gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(raw, nil).Once()
		out := NewInsightSynthesizer(gen, time.Second, nil).Narrate(context.Background(), nil, sampleScore, models.OpenAnswers{})
		assert.Error(t, out.Degraded, raw)
		assert.True(t, out.Narrative.IsEmpty(), raw)
	}
}

func TestNarrateWithoutGenerator(t *testing.T) {
	out := NewInsightSynthesizer(nil, time.Second, nil).Narrate(context.Background(), nil, sampleScore, models.OpenAnswers{})
	require.Error(t, out.Degraded)
	assert.ErrorIs(t, out.Degraded, ErrNoGenerator)
}

func TestNarrateTimesOut(t *testing.T) {
	s := NewInsightSynthesizer(blockingGenerator{}, 20*time.Millisecond, nil)
	start := time.Now()
	out := s.Narrate(context.Background(), nil, sampleScore, models.OpenAnswers{})
	require.Error(t, out.Degraded)
	assert.ErrorIs(t, out.Degraded, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestParseNarrativeAlertsAsString(t *testing.T) {
	n, err := ParseNarrative(`{"alerts": "Evite pressão", "description": "x"}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Evite pressão"}, n.Alerts)
}

func TestParseNarrativePortugueseKeys(t *testing.T) {
	n, err := ParseNarrative(`{"disc_description": "Direto", "sales_insights": "Seja objetivo",
		"objecoes": "Preço", "contorno_objecoes": "Mostre retorno", "exemplos_fechamento": "Vamos fechar hoje?"}`)
	require.NoError(t, err)
	assert.Equal(t, "Direto", n.Description)
	assert.Equal(t, "Seja objetivo", n.SalesInsights)
	assert.Equal(t, "Preço", n.Objections)
	assert.Equal(t, "Mostre retorno", n.ObjectionHandling)
	assert.Equal(t, "Vamos fechar hoje?", n.ClosingExamples)
}

func TestParseNarrativePrefersEnglishKeys(t *testing.T) {
	n, err := ParseNarrative(`{"description": "novo", "disc_description": "antigo"}`)
	require.NoError(t, err)
	assert.Equal(t, "novo", n.Description)
}

func TestParseNarrativeStringWrapped(t *testing.T) {
	n, err := ParseNarrative(`"{\"description\": \"perfil\", \"alerts\": [\"a\"]}"`)
	require.NoError(t, err)
	assert.Equal(t, "perfil", n.Description)
	assert.Equal(t, []string{"a"}, n.Alerts)
}

func TestBuildNarrativePrompt(t *testing.T) {
	p := &models.Participant{FullName: "Bruno", Niche: "Estética"}
	prompt, err := BuildNarrativePrompt(p, sampleScore, models.OpenAnswers{BiggestChallenge: "Contratar"})
	require.NoError(t, err)

	assert.Contains(t, prompt, `"Bruno"`)
	assert.Contains(t, prompt, "Dominância (D): 40%")
	assert.Contains(t, prompt, "Influência (I): 30%")
	assert.Contains(t, prompt, "Arquétipo principal: Herói")
	assert.Contains(t, prompt, "Nicho: Estética")
	assert.Contains(t, prompt, "Faturamento: Não informado")
	assert.Contains(t, prompt, "Contratar")
	assert.NotContains(t, prompt, "O que deseja mudar")
	assert.True(t, strings.Contains(prompt, `"profile_title"`))
}
