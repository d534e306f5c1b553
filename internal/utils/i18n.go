package utils

// Server-side messages for error responses. The console renders everything else.

// DefaultLocale is used whenever a key has no entry for the requested locale.
const DefaultLocale = "pt-BR"

// SupportedLocales lists the locales the API can answer in.
var SupportedLocales = []string{"pt-BR", "en"}

var translations = map[string]map[string]string{
	"pt-BR": {
		"health.ok":                "ok",
		"error.token_required":     "Token obrigatório",
		"error.form_not_found":     "Formulário não encontrado",
		"error.form_expired":       "Formulário expirado",
		"error.already_answered":   "Formulário já foi respondido",
		"error.answers_required":   "Respostas obrigatórias",
		"error.invalid_request":    "Requisição inválida",
		"error.participant_needed": "Participante obrigatório",
		"error.participant_absent": "Participante não encontrado",
		"error.form_exists":        "Participante já possui formulário",
		"error.response_not_found": "Resposta não encontrada",
		"error.unauthorized":       "Não autorizado",
		"error.forbidden":          "Acesso negado",
		"error.internal":           "Erro interno",
	},
	"en": {
		"health.ok":                "ok",
		"error.token_required":     "Token is required",
		"error.form_not_found":     "Form not found",
		"error.form_expired":       "Form expired",
		"error.already_answered":   "Form was already answered",
		"error.answers_required":   "Answers are required",
		"error.invalid_request":    "Invalid request",
		"error.participant_needed": "Participant is required",
		"error.participant_absent": "Participant not found",
		"error.form_exists":        "Participant already has a form",
		"error.response_not_found": "Response not found",
		"error.unauthorized":       "Unauthorized",
		"error.forbidden":          "Forbidden",
		"error.internal":           "Internal error",
	},
}

// T returns the translated string for key in locale; falls back to pt-BR, then the key.
func T(locale, key string) string {
	if m, ok := translations[locale]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if v, ok := translations[DefaultLocale][key]; ok {
		return v
	}
	return key
}
