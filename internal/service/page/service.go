// Package page gerencia a conexão de páginas da plataforma com uma conta.
package page

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/open-pageflow/pageflow/internal/storage"
	"github.com/open-pageflow/pageflow/internal/storage/model"
)

var ErrAlreadyConnected = errors.New("página já conectada")

type Service struct {
	pages storage.PageRepository
	log   *zap.Logger
}

func NewService(pages storage.PageRepository, log *zap.Logger) *Service {
	return &Service{pages: pages, log: log}
}

type ConnectInput struct {
	PlatformID  string
	Name        string
	Avatar      string
	AccessToken string
}

// Connect registra uma página e seu access token. Uma página só pode estar
// conectada a uma conta por vez.
func (s *Service) Connect(ctx context.Context, accountID string, input ConnectInput) (model.Page, error) {
	_, err := s.pages.GetByPlatformID(ctx, input.PlatformID)
	if err == nil {
		return model.Page{}, ErrAlreadyConnected
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return model.Page{}, err
	}

	page, err := s.pages.Create(ctx, model.Page{
		AccountID:   accountID,
		PlatformID:  input.PlatformID,
		Name:        input.Name,
		Avatar:      input.Avatar,
		AccessToken: input.AccessToken,
		Connected:   true,
	})
	if err != nil {
		return model.Page{}, err
	}

	s.log.Info("página conectada",
		zap.String("page_id", page.ID),
		zap.String("platform_id", page.PlatformID),
	)
	return page, nil
}

func (s *Service) List(ctx context.Context, accountID string) ([]model.Page, error) {
	return s.pages.ListByAccount(ctx, accountID)
}

func (s *Service) Get(ctx context.Context, accountID, id string) (model.Page, error) {
	page, err := s.pages.GetByID(ctx, id)
	if err != nil {
		return model.Page{}, err
	}
	if page.AccountID != accountID {
		return model.Page{}, storage.ErrNotFound
	}
	return page, nil
}

func (s *Service) Disconnect(ctx context.Context, accountID, id string) error {
	if _, err := s.Get(ctx, accountID, id); err != nil {
		return err
	}
	if err := s.pages.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("página desconectada", zap.String("page_id", id))
	return nil
}
