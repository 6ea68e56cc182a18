package storage

import (
	"context"
	"time"

	"github.com/open-pageflow/pageflow/internal/storage/model"
)

var ErrNotFound = model.ErrNotFound

type AccountRepository interface {
	Create(ctx context.Context, account model.Account) (model.Account, error)
	GetByID(ctx context.Context, id string) (model.Account, error)
	GetByEmail(ctx context.Context, email string) (model.Account, error)
	GetByFacebookID(ctx context.Context, facebookID string) (model.Account, error)
}

type PageRepository interface {
	Create(ctx context.Context, page model.Page) (model.Page, error)
	GetByID(ctx context.Context, id string) (model.Page, error)
	GetByPlatformID(ctx context.Context, platformID string) (model.Page, error)
	ListByAccount(ctx context.Context, accountID string) ([]model.Page, error)
	Delete(ctx context.Context, id string) error
}

type SubscriberRepository interface {
	Create(ctx context.Context, sub model.Subscriber) (model.Subscriber, error)
	GetByID(ctx context.Context, id string) (model.Subscriber, error)
	GetByPSID(ctx context.Context, pageID, psid string) (model.Subscriber, error)
	ListByAccount(ctx context.Context, accountID, pageID string) ([]model.Subscriber, error)
	ListSubscribed(ctx context.Context, pageID string) ([]model.Subscriber, error)
	UpdateTags(ctx context.Context, id string, tags []string) error
	Touch(ctx context.Context, id string, at time.Time) error
	CountByAccount(ctx context.Context, accountID, pageID string, subscribedOnly bool) (int, error)
}

type FlowRepository interface {
	Create(ctx context.Context, flow model.Flow) (model.Flow, error)
	GetByID(ctx context.Context, id string) (model.Flow, error)
	ListByAccount(ctx context.Context, accountID, pageID string) ([]model.Flow, error)
	Update(ctx context.Context, flow model.Flow) (model.Flow, error)
	Delete(ctx context.Context, id string) error
	CountByAccount(ctx context.Context, accountID, pageID string) (int, error)
}

type AutomationRepository interface {
	Create(ctx context.Context, automation model.Automation) (model.Automation, error)
	GetByID(ctx context.Context, id string) (model.Automation, error)
	ListByAccount(ctx context.Context, accountID, pageID string) ([]model.Automation, error)
	ListActiveByPage(ctx context.Context, pageID string) ([]model.Automation, error)
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
}

type BroadcastRepository interface {
	Create(ctx context.Context, broadcast model.Broadcast) (model.Broadcast, error)
	GetByID(ctx context.Context, id string) (model.Broadcast, error)
	ListByAccount(ctx context.Context, accountID, pageID string) ([]model.Broadcast, error)
	MarkSent(ctx context.Context, id string, total, sent, delivered int, sentAt time.Time) error
	Delete(ctx context.Context, id string) error
	CountByAccount(ctx context.Context, accountID, pageID string) (int, error)
}

type MessageRepository interface {
	Create(ctx context.Context, message model.Message) (model.Message, error)
	ListBySubscriber(ctx context.Context, subscriberID string) ([]model.Message, error)
	CountByPage(ctx context.Context, pageID string) (int, error)
}
