// Package message expõe o histórico de conversa de um inscrito.
package message

import (
	"context"

	"go.uber.org/zap"

	"github.com/open-pageflow/pageflow/internal/storage"
	"github.com/open-pageflow/pageflow/internal/storage/model"
)

type Service struct {
	messages    storage.MessageRepository
	subscribers storage.SubscriberRepository
	log         *zap.Logger
}

func NewService(messages storage.MessageRepository, subscribers storage.SubscriberRepository, log *zap.Logger) *Service {
	return &Service{messages: messages, subscribers: subscribers, log: log}
}

// History lista as mensagens trocadas com um inscrito, em ordem cronológica.
func (s *Service) History(ctx context.Context, accountID, subscriberID string) ([]model.Message, error) {
	sub, err := s.subscribers.GetByID(ctx, subscriberID)
	if err != nil {
		return nil, err
	}
	if sub.AccountID != accountID {
		return nil, storage.ErrNotFound
	}

	messages, err := s.messages.ListBySubscriber(ctx, subscriberID)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []model.Message{}
	}
	return messages, nil
}
