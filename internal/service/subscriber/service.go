// Package subscriber expõe a base de inscritos de uma conta e a gestão de
// tags usada na segmentação de broadcasts.
package subscriber

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/open-pageflow/pageflow/internal/storage"
	"github.com/open-pageflow/pageflow/internal/storage/model"
)

type Service struct {
	subscribers storage.SubscriberRepository
	log         *zap.Logger
}

func NewService(subscribers storage.SubscriberRepository, log *zap.Logger) *Service {
	return &Service{subscribers: subscribers, log: log}
}

func (s *Service) List(ctx context.Context, accountID, pageID string) ([]model.Subscriber, error) {
	return s.subscribers.ListByAccount(ctx, accountID, pageID)
}

func (s *Service) Get(ctx context.Context, accountID, id string) (model.Subscriber, error) {
	sub, err := s.subscribers.GetByID(ctx, id)
	if err != nil {
		return model.Subscriber{}, err
	}
	if sub.AccountID != accountID {
		return model.Subscriber{}, storage.ErrNotFound
	}
	return sub, nil
}

// UpdateTags substitui o conjunto de tags do inscrito. Tags vazias são
// descartadas e duplicatas removidas preservando a primeira ocorrência.
func (s *Service) UpdateTags(ctx context.Context, accountID, id string, tags []string) (model.Subscriber, error) {
	sub, err := s.Get(ctx, accountID, id)
	if err != nil {
		return model.Subscriber{}, err
	}

	normalized := normalizeTags(tags)
	if err := s.subscribers.UpdateTags(ctx, sub.ID, normalized); err != nil {
		return model.Subscriber{}, err
	}

	sub.Tags = normalized
	return sub, nil
}

func normalizeTags(tags []string) []string {
	normalized := []string{}
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		normalized = append(normalized, tag)
	}
	return normalized
}
