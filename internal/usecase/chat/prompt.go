package chat

import (
	"strings"

	"triage-assistant/internal/domain"
)

const systemPrompt = `Tu es un assistant d'orientation médicale pour une plateforme de santé francophone.
Règles impératives :
- Réponds en français, en quelques phrases simples et bienveillantes.
- Ne pose jamais de diagnostic et ne prescris aucun médicament sur ordonnance.
- Recommande toujours de consulter un professionnel de santé lorsque les symptômes persistent ou inquiètent.
- Si la description évoque une urgence vitale, demande d'appeler immédiatement le 15 ou le 112.
- Si la demande n'a pas de lien avec la santé, rappelle poliment ton rôle.`

// Hint carries what the rule engine already knows about the message.
type Hint struct {
	Tier      domain.Tier
	EntryName string
	Specialty string
	Questions []string
	Advice    string
	// Enrich asks for personalised wording around advice that is already
	// decided; the urgency level must not change.
	Enrich bool
}

func (h Hint) render() string {
	var b strings.Builder
	b.WriteString("Contexte de triage :\n")

	if h.Tier == "" || h.Tier == domain.TierUnclassified || h.EntryName == "" {
		b.WriteString("- Aucune correspondance dans la base de connaissances.\n")
		b.WriteString("- Pose une ou deux questions utiles pour préciser les symptômes.\n")
		return b.String()
	}

	b.WriteString("- Niveau d'urgence : " + string(h.Tier.Level()) + "\n")
	b.WriteString("- Orientation : " + h.EntryName)
	if h.Specialty != "" {
		b.WriteString(" (" + h.Specialty + ")")
	}
	b.WriteString("\n")
	for _, q := range h.Questions {
		b.WriteString("- Question utile : " + q + "\n")
	}
	if h.Enrich {
		b.WriteString("- Le conseil suivant a déjà été donné, complète-le de façon personnalisée en deux phrases au plus, sans le répéter ni changer le niveau d'urgence :\n")
		b.WriteString(h.Advice)
		b.WriteString("\n")
	}
	return b.String()
}

func (s *Service) buildMessages(userMessage string, history []domain.Turn, hint Hint) []Message {
	if limit := s.cfg.ContextLimit; limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}

	prompt := systemPrompt
	if extra := strings.TrimSpace(s.cfg.AssistantPrompt); extra != "" {
		prompt += "\n" + extra
	}

	messages := make([]Message, 0, len(history)+3)
	messages = append(messages,
		Message{Role: domain.RoleSystem, Text: prompt},
		Message{Role: domain.RoleSystem, Text: hint.render()},
	)
	for _, h := range history {
		if h.Role != domain.RoleUser && h.Role != domain.RoleAssistant {
			continue
		}
		messages = append(messages, Message{Role: h.Role, Text: h.Content})
	}
	messages = append(messages, Message{Role: domain.RoleUser, Text: userMessage})
	return messages
}
