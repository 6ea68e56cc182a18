package model

import "time"

type StepType string

const (
	StepMessage   StepType = "message"
	StepCard      StepType = "card"
	StepDelay     StepType = "delay"
	StepCondition StepType = "condition"
)

type AutomationKind string

const (
	AutomationKeyword          AutomationKind = "keyword"
	AutomationWelcomeMessage   AutomationKind = "welcome_message"
	AutomationCommentToMessage AutomationKind = "comment_to_message"
)

type BroadcastStatus string

const (
	BroadcastStatusDraft BroadcastStatus = "draft"
	BroadcastStatusSent  BroadcastStatus = "sent"
)

type Targeting string

const (
	TargetingAll  Targeting = "all"
	TargetingTags Targeting = "tags"
)

type SenderRole string

const (
	SenderSubscriber SenderRole = "subscriber"
	SenderPage       SenderRole = "page"
)

type MessageType string

const (
	MessageText        MessageType = "text"
	MessageCard        MessageType = "card"
	MessageButtonClick MessageType = "button_click"
)

type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	FacebookID   string    `json:"facebookId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Page struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"accountId"`
	PlatformID  string    `json:"pageId"`
	Name        string    `json:"pageName"`
	Avatar      string    `json:"pageAvatar,omitempty"`
	AccessToken string    `json:"-"`
	Connected   bool      `json:"isConnected"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Subscriber struct {
	ID              string    `json:"id"`
	AccountID       string    `json:"accountId"`
	PageID          string    `json:"pageId"`
	PSID            string    `json:"psid"`
	FirstName       string    `json:"firstName,omitempty"`
	LastName        string    `json:"lastName,omitempty"`
	ProfilePic      string    `json:"profilePic,omitempty"`
	Tags            []string  `json:"tags"`
	Subscribed      bool      `json:"subscribed"`
	LastInteraction time.Time `json:"lastInteraction"`
	CreatedAt       time.Time `json:"createdAt"`
}

type Button struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type Card struct {
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle,omitempty"`
	ImageURL string   `json:"imageUrl,omitempty"`
	Buttons  []Button `json:"buttons,omitempty"`
}

// FlowStep é um passo de um fluxo. Content é interpretado conforme o Type
// (message: "text"; card: "title"/"subtitle"/"image_url"; delay: "seconds").
// NextStepID e Position vêm do editor visual e são armazenados sem serem
// interpretados pelo motor, que percorre os passos na ordem salva.
type FlowStep struct {
	ID         string             `json:"id"`
	Type       StepType           `json:"type"`
	Content    map[string]any     `json:"content,omitempty"`
	Buttons    []Button           `json:"buttons,omitempty"`
	NextStepID string             `json:"nextStepId,omitempty"`
	Position   map[string]float64 `json:"position,omitempty"`
}

type Flow struct {
	ID          string     `json:"id"`
	AccountID   string     `json:"accountId"`
	PageID      string     `json:"pageId"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Steps       []FlowStep `json:"steps"`
	IsActive    bool       `json:"isActive"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type Automation struct {
	ID        string         `json:"id"`
	AccountID string         `json:"accountId"`
	PageID    string         `json:"pageId"`
	Name      string         `json:"name"`
	Kind      AutomationKind `json:"kind"`
	Keyword   string         `json:"keyword,omitempty"`
	FlowID    string         `json:"flowId,omitempty"`
	IsActive  bool           `json:"isActive"`
	CreatedAt time.Time      `json:"createdAt"`
}

// BroadcastMessage é o corpo da mensagem de um broadcast. Cards têm
// precedência sobre texto na renderização; ImageURL/ImageLink formam o
// anexo de imagem clicável, entregue como uma segunda mensagem.
type BroadcastMessage struct {
	Text      string   `json:"text,omitempty"`
	Buttons   []Button `json:"buttons,omitempty"`
	Cards     []Card   `json:"cards,omitempty"`
	ImageURL  string   `json:"imageUrl,omitempty"`
	ImageLink string   `json:"imageLink,omitempty"`
}

type Broadcast struct {
	ID              string           `json:"id"`
	AccountID       string           `json:"accountId"`
	PageID          string           `json:"pageId"`
	Name            string           `json:"name"`
	Message         BroadcastMessage `json:"message"`
	Targeting       Targeting        `json:"targetAudience"`
	TargetTags      []string         `json:"targetTags"`
	Status          BroadcastStatus  `json:"status"`
	SentAt          *time.Time       `json:"sentAt,omitempty"`
	TotalRecipients int              `json:"totalRecipients"`
	SentCount       int              `json:"sentCount"`
	DeliveredCount  int              `json:"deliveredCount"`
	CreatedAt       time.Time        `json:"createdAt"`
}

type Message struct {
	ID           string         `json:"id"`
	PageID       string         `json:"pageId"`
	SubscriberID string         `json:"subscriberId"`
	Sender       SenderRole     `json:"sender"`
	Type         MessageType    `json:"messageType"`
	Content      map[string]any `json:"content"`
	CreatedAt    time.Time      `json:"createdAt"`
}

type Stats struct {
	TotalSubscribers  int `json:"totalSubscribers"`
	ActiveSubscribers int `json:"activeSubscribers"`
	TotalMessages     int `json:"totalMessages"`
	TotalBroadcasts   int `json:"totalBroadcasts"`
	TotalFlows        int `json:"totalFlows"`
}
