// Package flow gerencia os fluxos de conversa criados no editor visual.
package flow

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/open-pageflow/pageflow/internal/storage"
	"github.com/open-pageflow/pageflow/internal/storage/model"
)

var (
	ErrNameRequired    = errors.New("nome do fluxo é obrigatório")
	ErrDuplicateStepID = errors.New("fluxo contém passos com id repetido")
	ErrUnknownStepType = errors.New("tipo de passo desconhecido")
)

type Service struct {
	flows storage.FlowRepository
	log   *zap.Logger
}

func NewService(flows storage.FlowRepository, log *zap.Logger) *Service {
	return &Service{flows: flows, log: log}
}

type Input struct {
	PageID      string
	Name        string
	Description string
	Steps       []model.FlowStep
	IsActive    bool
}

func (s *Service) Create(ctx context.Context, accountID string, input Input) (model.Flow, error) {
	steps, err := prepareSteps(input.Steps)
	if err != nil {
		return model.Flow{}, err
	}
	if input.Name == "" {
		return model.Flow{}, ErrNameRequired
	}

	flow, err := s.flows.Create(ctx, model.Flow{
		AccountID:   accountID,
		PageID:      input.PageID,
		Name:        input.Name,
		Description: input.Description,
		Steps:       steps,
		IsActive:    input.IsActive,
	})
	if err != nil {
		return model.Flow{}, err
	}

	s.log.Info("fluxo criado",
		zap.String("flow_id", flow.ID),
		zap.Int("steps", len(flow.Steps)),
	)
	return flow, nil
}

func (s *Service) List(ctx context.Context, accountID, pageID string) ([]model.Flow, error) {
	return s.flows.ListByAccount(ctx, accountID, pageID)
}

func (s *Service) Get(ctx context.Context, accountID, id string) (model.Flow, error) {
	flow, err := s.flows.GetByID(ctx, id)
	if err != nil {
		return model.Flow{}, err
	}
	if flow.AccountID != accountID {
		return model.Flow{}, storage.ErrNotFound
	}
	return flow, nil
}

func (s *Service) Update(ctx context.Context, accountID, id string, input Input) (model.Flow, error) {
	flow, err := s.Get(ctx, accountID, id)
	if err != nil {
		return model.Flow{}, err
	}

	steps, err := prepareSteps(input.Steps)
	if err != nil {
		return model.Flow{}, err
	}
	if input.Name != "" {
		flow.Name = input.Name
	}
	flow.Description = input.Description
	flow.Steps = steps
	flow.IsActive = input.IsActive

	return s.flows.Update(ctx, flow)
}

func (s *Service) Delete(ctx context.Context, accountID, id string) error {
	if _, err := s.Get(ctx, accountID, id); err != nil {
		return err
	}
	return s.flows.Delete(ctx, id)
}

// prepareSteps valida os passos e atribui id aos que vierem sem.
func prepareSteps(steps []model.FlowStep) ([]model.FlowStep, error) {
	if steps == nil {
		return []model.FlowStep{}, nil
	}

	seen := make(map[string]struct{}, len(steps))
	out := make([]model.FlowStep, len(steps))
	for i, step := range steps {
		switch step.Type {
		case model.StepMessage, model.StepCard, model.StepDelay, model.StepCondition:
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownStepType, step.Type)
		}

		if step.ID == "" {
			step.ID = uuid.NewString()
		}
		if _, ok := seen[step.ID]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateStepID, step.ID)
		}
		seen[step.ID] = struct{}{}
		out[i] = step
	}
	return out, nil
}
