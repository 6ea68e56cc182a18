package messenger

// Formatos do webhook de eventos da plataforma.

type WebhookEnvelope struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID        string           `json:"id"`
	Time      int64            `json:"time"`
	Messaging []MessagingEvent `json:"messaging"`
}

type MessagingEvent struct {
	Sender    Party        `json:"sender"`
	Recipient Party        `json:"recipient"`
	Timestamp int64        `json:"timestamp"`
	Message   *TextMessage `json:"message,omitempty"`
	Postback  *Postback    `json:"postback,omitempty"`
}

type Party struct {
	ID string `json:"id"`
}

type TextMessage struct {
	MID  string `json:"mid"`
	Text string `json:"text"`
}

type Postback struct {
	Title   string `json:"title"`
	Payload string `json:"payload"`
}
