package triage

import (
	"strings"

	"triage-assistant/internal/domain"
)

const (
	UrgentMessage = "Vos symptômes peuvent correspondre à une urgence vitale. " +
		"Appelez immédiatement le 15 (SAMU) ou le 112. " +
		"Ne prenez pas le volant et ne restez pas seul. " +
		"En attendant les secours, restez au calme et suivez les consignes de l'opérateur."

	ValidationMessage = "Décrivez vos symptômes en quelques mots, par exemple « mal de gorge depuis 2 jours », " +
		"afin que je puisse vous orienter."

	SafeFallbackMessage = "Je ne peux pas vous répondre précisément pour le moment. " +
		"Si vos symptômes persistent ou vous inquiètent, consultez un médecin ou un pharmacien. " +
		"En cas d'urgence, appelez le 15 ou le 112."

	ResetMessage = "La conversation a été réinitialisée. Décrivez vos symptômes pour recommencer."

	disclaimer = "Ces conseils ne remplacent pas l'avis d'un professionnel de santé."
)

func urgentResponse() domain.Response {
	return domain.Response{Message: UrgentMessage, Level: domain.LevelRed}
}

func validationResponse() domain.Response {
	return domain.Response{Message: ValidationMessage, Level: domain.LevelInfo}
}

func fallbackResponse() domain.Response {
	return domain.Response{Message: SafeFallbackMessage, Level: domain.LevelInfo}
}

// adviceResponse renders the top match of a confident result.
func adviceResponse(m domain.Match) domain.Response {
	e := m.Entry

	var b strings.Builder
	b.WriteString(e.DisplayName)
	b.WriteString("\n\n")
	b.WriteString(strings.TrimSpace(e.Advice))

	if len(e.FollowUpQuestions) > 0 {
		b.WriteString("\n\nPour affiner l'orientation :")
		for _, q := range e.FollowUpQuestions {
			b.WriteString("\n- ")
			b.WriteString(q)
		}
	}
	b.WriteString("\n\n")
	b.WriteString(disclaimer)

	return domain.Response{Message: b.String(), Level: e.Tier.Level()}
}

// withEnrichment appends personalised text after the advice; the level is
// left untouched.
func withEnrichment(resp domain.Response, text string) domain.Response {
	text = strings.TrimSpace(text)
	if text == "" {
		return resp
	}
	resp.Message += "\n\n" + text
	return resp
}

// finalize guarantees a non-empty message.
func finalize(resp domain.Response) domain.Response {
	if strings.TrimSpace(resp.Message) == "" {
		resp.Message = SafeFallbackMessage
	}
	if resp.Level == "" {
		resp.Level = domain.LevelInfo
	}
	return resp
}
