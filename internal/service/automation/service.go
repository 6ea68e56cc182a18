// Package automation gerencia os gatilhos que ligam eventos de entrada a
// fluxos: palavra-chave, mensagem de boas-vindas e comentário-para-mensagem.
package automation

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/open-pageflow/pageflow/internal/storage"
	"github.com/open-pageflow/pageflow/internal/storage/model"
)

var (
	ErrUnknownKind     = errors.New("tipo de automação desconhecido")
	ErrKeywordRequired = errors.New("automação por palavra-chave exige keyword")
)

type Service struct {
	automations storage.AutomationRepository
	flows       storage.FlowRepository
	log         *zap.Logger
}

func NewService(automations storage.AutomationRepository, flows storage.FlowRepository, log *zap.Logger) *Service {
	return &Service{automations: automations, flows: flows, log: log}
}

type Input struct {
	PageID   string
	Name     string
	Kind     model.AutomationKind
	Keyword  string
	FlowID   string
	IsActive bool
}

func (s *Service) Create(ctx context.Context, accountID string, input Input) (model.Automation, error) {
	switch input.Kind {
	case model.AutomationKeyword, model.AutomationWelcomeMessage, model.AutomationCommentToMessage:
	default:
		return model.Automation{}, ErrUnknownKind
	}

	keyword := strings.TrimSpace(input.Keyword)
	if input.Kind == model.AutomationKeyword && keyword == "" {
		return model.Automation{}, ErrKeywordRequired
	}

	// Fluxo referenciado precisa pertencer à mesma conta.
	if input.FlowID != "" {
		flow, err := s.flows.GetByID(ctx, input.FlowID)
		if err != nil {
			return model.Automation{}, err
		}
		if flow.AccountID != accountID {
			return model.Automation{}, storage.ErrNotFound
		}
	}

	automation, err := s.automations.Create(ctx, model.Automation{
		AccountID: accountID,
		PageID:    input.PageID,
		Name:      input.Name,
		Kind:      input.Kind,
		Keyword:   keyword,
		FlowID:    input.FlowID,
		IsActive:  input.IsActive,
	})
	if err != nil {
		return model.Automation{}, err
	}

	s.log.Info("automação criada",
		zap.String("automation_id", automation.ID),
		zap.String("kind", string(automation.Kind)),
	)
	return automation, nil
}

func (s *Service) List(ctx context.Context, accountID, pageID string) ([]model.Automation, error) {
	return s.automations.ListByAccount(ctx, accountID, pageID)
}

func (s *Service) Get(ctx context.Context, accountID, id string) (model.Automation, error) {
	automation, err := s.automations.GetByID(ctx, id)
	if err != nil {
		return model.Automation{}, err
	}
	if automation.AccountID != accountID {
		return model.Automation{}, storage.ErrNotFound
	}
	return automation, nil
}

// Toggle liga ou desliga a automação e retorna o estado atualizado.
func (s *Service) Toggle(ctx context.Context, accountID, id string) (model.Automation, error) {
	automation, err := s.Get(ctx, accountID, id)
	if err != nil {
		return model.Automation{}, err
	}

	automation.IsActive = !automation.IsActive
	if err := s.automations.SetActive(ctx, id, automation.IsActive); err != nil {
		return model.Automation{}, err
	}
	return automation, nil
}

func (s *Service) Delete(ctx context.Context, accountID, id string) error {
	if _, err := s.Get(ctx, accountID, id); err != nil {
		return err
	}
	return s.automations.Delete(ctx, id)
}
