// Package engine decide quais automações disparam para um evento de entrada
// e executa os fluxos associados.
package engine

import (
	"strings"

	"github.com/open-pageflow/pageflow/internal/storage/model"
)

// Match filtra as automações que disparam para um texto de entrada. Todas as
// que casarem disparam de forma independente: não há curto-circuito na
// primeira. Uma automação keyword casa por substring sem diferenciar
// maiúsculas; keyword vazia nunca casa. welcome_message dispara apenas no
// primeiro contato do assinante. comment_to_message pertence a outra fonte
// de eventos e nunca dispara pelo webhook de mensagens.
func Match(automations []model.Automation, text string, firstContact bool) []model.Automation {
	lowered := strings.ToLower(text)

	var matched []model.Automation
	for _, a := range automations {
		if !a.IsActive {
			continue
		}
		switch a.Kind {
		case model.AutomationKeyword:
			keyword := strings.ToLower(strings.TrimSpace(a.Keyword))
			if keyword == "" {
				continue
			}
			if strings.Contains(lowered, keyword) {
				matched = append(matched, a)
			}
		case model.AutomationWelcomeMessage:
			if firstContact {
				matched = append(matched, a)
			}
		case model.AutomationCommentToMessage:
			// Reservada para a fonte de eventos de comentários.
		}
	}
	return matched
}
