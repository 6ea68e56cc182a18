package messenger

import (
	"github.com/open-pageflow/pageflow/internal/storage/model"
)

// Limites estruturais da plataforma. Listas acima do limite são truncadas
// em silêncio, nunca rejeitadas.
const (
	MaxQuickReplies  = 11
	MaxCarouselCards = 10
	MaxCardButtons   = 3
)

// RenderStep converte um passo de fluxo no payload da send API. Retorna
// ok=false quando o passo não produz entrega (delay, condition ou conteúdo
// vazio). Função pura: mesma entrada, mesmo payload.
func RenderStep(step model.FlowStep) (Payload, bool) {
	switch step.Type {
	case model.StepMessage:
		text := stringField(step.Content, "text")
		if text == "" {
			return Payload{}, false
		}
		return Payload{Text: text, QuickReplies: quickReplies(step.Buttons)}, true

	case model.StepCard:
		card := model.Card{
			Title:    stringField(step.Content, "title"),
			Subtitle: stringField(step.Content, "subtitle"),
			ImageURL: stringField(step.Content, "image_url"),
			Buttons:  step.Buttons,
		}
		if card.Title == "" {
			return Payload{}, false
		}
		return carousel([]model.Card{card}, 1), true

	case model.StepDelay, model.StepCondition:
		// Sem renderização por enquanto; o walker apenas avança.
		return Payload{}, false
	}

	return Payload{}, false
}

// RenderBroadcast converte o corpo de um broadcast no payload principal.
// Cards têm precedência sobre texto.
func RenderBroadcast(msg model.BroadcastMessage) (Payload, bool) {
	if len(msg.Cards) > 0 {
		return carousel(msg.Cards, MaxCarouselCards), true
	}
	if msg.Text == "" {
		return Payload{}, false
	}
	return Payload{Text: msg.Text, QuickReplies: quickReplies(msg.Buttons)}, true
}

// RenderImageLink produz a mensagem extra do anexo de imagem clicável,
// entregue depois do payload principal. Só existe quando há URL de clique.
func RenderImageLink(msg model.BroadcastMessage) (Payload, bool) {
	if msg.ImageURL == "" || msg.ImageLink == "" {
		return Payload{}, false
	}
	return Payload{
		Attachment: &Attachment{
			Type: "template",
			Payload: Template{
				TemplateType: "button",
				Text:         msg.ImageURL,
				Buttons: []URLButton{
					{Type: "web_url", URL: msg.ImageLink, Title: "Abrir"},
				},
			},
		},
	}, true
}

func carousel(cards []model.Card, maxCards int) Payload {
	if len(cards) > maxCards {
		cards = cards[:maxCards]
	}

	elements := make([]Element, 0, len(cards))
	for _, card := range cards {
		buttons := card.Buttons
		if len(buttons) > MaxCardButtons {
			buttons = buttons[:MaxCardButtons]
		}
		element := Element{
			Title:    card.Title,
			Subtitle: card.Subtitle,
			ImageURL: card.ImageURL,
		}
		for _, b := range buttons {
			element.Buttons = append(element.Buttons, URLButton{
				Type:  "web_url",
				URL:   b.URL,
				Title: b.Title,
			})
		}
		elements = append(elements, element)
	}

	return Payload{
		Attachment: &Attachment{
			Type: "template",
			Payload: Template{
				TemplateType: "generic",
				Elements:     elements,
			},
		},
	}
}

func quickReplies(buttons []model.Button) []QuickReply {
	if len(buttons) == 0 {
		return nil
	}
	if len(buttons) > MaxQuickReplies {
		buttons = buttons[:MaxQuickReplies]
	}

	replies := make([]QuickReply, 0, len(buttons))
	for _, b := range buttons {
		replies = append(replies, QuickReply{
			ContentType: "text",
			Title:       b.Title,
			Payload:     b.URL,
		})
	}
	return replies
}

func stringField(content map[string]any, key string) string {
	if content == nil {
		return ""
	}
	v, _ := content[key].(string)
	return v
}
