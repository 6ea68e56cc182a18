// Package stats agrega os contadores exibidos no painel da conta.
package stats

import (
	"context"

	"go.uber.org/zap"

	"github.com/open-pageflow/pageflow/internal/storage"
	"github.com/open-pageflow/pageflow/internal/storage/model"
)

type Service struct {
	pages       storage.PageRepository
	subscribers storage.SubscriberRepository
	flows       storage.FlowRepository
	broadcasts  storage.BroadcastRepository
	messages    storage.MessageRepository
	log         *zap.Logger
}

func NewService(
	pages storage.PageRepository,
	subscribers storage.SubscriberRepository,
	flows storage.FlowRepository,
	broadcasts storage.BroadcastRepository,
	messages storage.MessageRepository,
	log *zap.Logger,
) *Service {
	return &Service{
		pages:       pages,
		subscribers: subscribers,
		flows:       flows,
		broadcasts:  broadcasts,
		messages:    messages,
		log:         log,
	}
}

// Overview calcula os contadores da conta, opcionalmente restritos a uma
// página.
func (s *Service) Overview(ctx context.Context, accountID, pageID string) (model.Stats, error) {
	var stats model.Stats
	var err error

	stats.TotalSubscribers, err = s.subscribers.CountByAccount(ctx, accountID, pageID, false)
	if err != nil {
		return model.Stats{}, err
	}
	stats.ActiveSubscribers, err = s.subscribers.CountByAccount(ctx, accountID, pageID, true)
	if err != nil {
		return model.Stats{}, err
	}
	stats.TotalFlows, err = s.flows.CountByAccount(ctx, accountID, pageID)
	if err != nil {
		return model.Stats{}, err
	}
	stats.TotalBroadcasts, err = s.broadcasts.CountByAccount(ctx, accountID, pageID)
	if err != nil {
		return model.Stats{}, err
	}

	stats.TotalMessages, err = s.countMessages(ctx, accountID, pageID)
	if err != nil {
		return model.Stats{}, err
	}

	return stats, nil
}

func (s *Service) countMessages(ctx context.Context, accountID, pageID string) (int, error) {
	if pageID != "" {
		return s.messages.CountByPage(ctx, pageID)
	}

	pages, err := s.pages.ListByAccount(ctx, accountID)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, page := range pages {
		count, err := s.messages.CountByPage(ctx, page.ID)
		if err != nil {
			return 0, err
		}
		total += count
	}
	return total, nil
}
