package api

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/bethelevents/assessor/internal/models"
	"github.com/bethelevents/assessor/internal/services"
)

const (
	actionReprocess = "reprocess"
	maxBodyBytes    = 1 << 20
)

var validate = validator.New()

// answerMap decodes question id -> option index leniently. Keys and values may
// be JSON numbers or numeric strings; anything else is dropped so that the
// scorer's own leniency decides what counts.
type answerMap map[int]int

func (m *answerMap) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(answerMap, len(raw))
	for k, v := range raw {
		qid, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			continue
		}
		if idx, ok := parseIndex(v); ok {
			out[qid] = idx
		}
	}
	*m = out
	return nil
}

func parseIndex(v json.RawMessage) (int, bool) {
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(v))
	dec.UseNumber()
	var anyv any
	if err := dec.Decode(&anyv); err != nil {
		return 0, false
	}
	switch x := anyv.(type) {
	case json.Number:
		n = x
	case string:
		n = json.Number(strings.TrimSpace(x))
	default:
		return 0, false
	}
	i, err := strconv.Atoi(n.String())
	if err != nil {
		return 0, false
	}
	return i, true
}

type openAnswersDTO struct {
	BiggestChallenge       string `json:"biggestChallenge"`
	DesiredChange          string `json:"desiredChange"`
	LegacyBiggestChallenge string `json:"biggest_challenge"`
	LegacyDesiredChange    string `json:"desired_change"`
}

func (o *openAnswersDTO) model() models.OpenAnswers {
	if o == nil {
		return models.OpenAnswers{}
	}
	return models.OpenAnswers{
		BiggestChallenge: firstNonEmpty(o.BiggestChallenge, o.LegacyBiggestChallenge),
		DesiredChange:    firstNonEmpty(o.DesiredChange, o.LegacyDesiredChange),
	}
}

// discFormRequest is the POST /api/disc-form body. It carries both the submit
// and the reprocess shapes plus the field names older clients send.
type discFormRequest struct {
	Action        string          `json:"action"`
	ParticipantID string          `json:"participantId"`
	Identifier    string          `json:"identifier"`
	Token         string          `json:"token"`
	Code          string          `json:"code"`
	Answers       answerMap       `json:"answers"`
	Responses     answerMap       `json:"responses"`
	OpenAnswers   *openAnswersDTO `json:"openAnswers"`
	LegacyOpen    *openAnswersDTO `json:"open_answers"`
}

func (r *discFormRequest) identifier() string {
	return strings.TrimSpace(firstNonEmpty(r.Identifier, r.Code, r.Token))
}

type submitDTO struct {
	Identifier       string `validate:"max=256"`
	BiggestChallenge string `validate:"max=4000"`
	DesiredChange    string `validate:"max=4000"`
}

func (r *discFormRequest) submitRequest() (services.SubmitRequest, error) {
	answers := r.Answers
	if len(answers) == 0 {
		answers = r.Responses
	}
	open := r.OpenAnswers
	if open == nil {
		open = r.LegacyOpen
	}
	req := services.SubmitRequest{
		Identifier:  r.identifier(),
		Answers:     services.AnswerSet(answers),
		OpenAnswers: open.model(),
	}
	dto := submitDTO{
		Identifier:       req.Identifier,
		BiggestChallenge: req.OpenAnswers.BiggestChallenge,
		DesiredChange:    req.OpenAnswers.DesiredChange,
	}
	if err := validate.Struct(dto); err != nil {
		return req, services.NewInvalidError("error.invalid_request")
	}
	return req, nil
}

type reprocessDTO struct {
	ParticipantID string `validate:"required_without=Identifier,max=128"`
	Identifier    string `validate:"required_without=ParticipantID,max=256"`
}

func (r *discFormRequest) reprocessTarget() (reprocessDTO, error) {
	dto := reprocessDTO{ParticipantID: strings.TrimSpace(r.ParticipantID), Identifier: r.identifier()}
	if err := validate.Struct(dto); err != nil {
		return dto, services.NewInvalidError("error.participant_needed")
	}
	return dto, nil
}

type issueRequest struct {
	ParticipantID string `json:"participantId" validate:"required,max=128"`
}

type formSummary struct {
	ID              string `json:"id"`
	ParticipantName string `json:"participantName"`
}

type loadFormResponse struct {
	Form            formSummary               `json:"form"`
	Questions       []services.QuestionView   `json:"questions,omitempty"`
	BlockSize       int                       `json:"blockSize,omitempty"`
	AlreadyAnswered bool                      `json:"alreadyAnswered"`
	Archetypes      *services.ParticipantView `json:"archetypes,omitempty"`
}

type submitResponse struct {
	Success    bool                      `json:"success"`
	Archetypes *services.ParticipantView `json:"archetypes"`
}

type assessmentResponse struct {
	ParticipantID string `json:"participantId"`
	Visibility    string `json:"visibility"`
	Result        any    `json:"result"`
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
