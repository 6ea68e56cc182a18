// Package messenger cobre a borda com a plataforma Messenger: os formatos de
// payload da send API, a renderização de passos e broadcasts nesses formatos
// e o client HTTP de entrega.
package messenger

type Payload struct {
	Text         string       `json:"text,omitempty"`
	QuickReplies []QuickReply `json:"quick_replies,omitempty"`
	Attachment   *Attachment  `json:"attachment,omitempty"`
}

// IsEmpty indica que não há nada a entregar para este payload.
func (p Payload) IsEmpty() bool {
	return p.Text == "" && p.Attachment == nil
}

type QuickReply struct {
	ContentType string `json:"content_type"`
	Title       string `json:"title"`
	Payload     string `json:"payload"`
}

type Attachment struct {
	Type    string   `json:"type"`
	Payload Template `json:"payload"`
}

type Template struct {
	TemplateType string      `json:"template_type"`
	Text         string      `json:"text,omitempty"`
	Elements     []Element   `json:"elements,omitempty"`
	Buttons      []URLButton `json:"buttons,omitempty"`
}

type Element struct {
	Title    string      `json:"title"`
	Subtitle string      `json:"subtitle,omitempty"`
	ImageURL string      `json:"image_url,omitempty"`
	Buttons  []URLButton `json:"buttons,omitempty"`
}

type URLButton struct {
	Type  string `json:"type"`
	URL   string `json:"url"`
	Title string `json:"title"`
}
