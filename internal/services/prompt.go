package services

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/bethelevents/assessor/internal/models"
)

const narrativeSystemPrompt = "Você é um especialista em perfil comportamental DISC, arquétipos de marca pessoal e vendas consultivas. Responda sempre em português brasileiro."

const notInformed = "Não informado"

var narrativeTemplate = template.Must(template.New("narrative").Parse(`Analise o perfil do participante "{{.Name}}".

Perfil comportamental predominante: {{.Profile}}
Distribuição DISC:
- Dominância (D): {{.Pct.D}}%
- Influência (I): {{.Pct.I}}%
- Estabilidade (S): {{.Pct.S}}%
- Conformidade (C): {{.Pct.C}}%

Arquétipo principal: {{.Primary}}
Arquétipo secundário: {{.Secondary}}

Contexto do negócio:
- Faturamento: {{.Revenue}}
- Nicho: {{.Niche}}
- Objetivo no evento: {{.Goal}}
- Maior dificuldade: {{.Difficulty}}
{{- if .Challenge}}
Maior desafio hoje (nas palavras do participante): {{.Challenge}}
{{- end}}
{{- if .Change}}
O que deseja mudar (nas palavras do participante): {{.Change}}
{{- end}}

Responda APENAS com um objeto JSON, sem texto adicional, com os campos:
"description": descrição comportamental do perfil (2-3 parágrafos)
"profile_title": título curto e memorável para o perfil
"approach_tip": uma frase com a melhor forma de abordar esta pessoa
"alerts": lista com 3 alertas comportamentais curtos
"sales_insights": insights específicos para vender para esta pessoa (3-4 pontos)
"objections": principais objeções de compra previstas (3-4)
"objection_handling": como contornar cada objeção listada
"closing_examples": 2-3 exemplos práticos de frases para fechar a venda
`))

type narrativePromptData struct {
	Name       string
	Profile    string
	Pct        models.TraitCounts
	Primary    string
	Secondary  string
	Revenue    string
	Niche      string
	Goal       string
	Difficulty string
	Challenge  string
	Change     string
}

func orNotInformed(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return notInformed
	}
	return s
}

// BuildNarrativePrompt renders the user prompt for one scored response.
func BuildNarrativePrompt(p *models.Participant, score ScoreResult, open models.OpenAnswers) (string, error) {
	data := narrativePromptData{
		Profile:   orNotInformed(score.TraitProfile),
		Pct:       score.TraitCounts.Percentages(),
		Primary:   score.PrimaryArchetype,
		Secondary: score.SecondaryArchetype,
		Challenge: strings.TrimSpace(open.BiggestChallenge),
		Change:    strings.TrimSpace(open.DesiredChange),
	}
	if p != nil {
		data.Name = p.FullName
		data.Revenue = p.RevenueBand
		data.Niche = p.Niche
		data.Goal = p.EventGoal
		data.Difficulty = p.MainDifficulty
	}
	data.Name = orNotInformed(data.Name)
	data.Revenue = orNotInformed(data.Revenue)
	data.Niche = orNotInformed(data.Niche)
	data.Goal = orNotInformed(data.Goal)
	data.Difficulty = orNotInformed(data.Difficulty)

	var sb strings.Builder
	if err := narrativeTemplate.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return sb.String(), nil
}
