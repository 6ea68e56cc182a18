// Package broadcast cuida do ciclo de vida dos broadcasts e do envio em
// fan-out para o segmento de assinantes resolvido.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/open-pageflow/pageflow/internal/messenger"
	"github.com/open-pageflow/pageflow/internal/pkg/lock"
	"github.com/open-pageflow/pageflow/internal/storage"
	"github.com/open-pageflow/pageflow/internal/storage/model"
)

var (
	ErrPageWithoutToken = errors.New("página sem credencial de envio")
	ErrSendInProgress   = errors.New("envio já em andamento para este broadcast")
	ErrInvalidTargeting = errors.New("segmentação inválida")
)

type Service struct {
	broadcasts  storage.BroadcastRepository
	pages       storage.PageRepository
	subscribers storage.SubscriberRepository
	messages    storage.MessageRepository
	sender      messenger.Sender
	locks       lock.Provider
	workers     int
	deadline    time.Duration
	lockTTL     time.Duration
	log         *zap.Logger
}

func NewService(
	broadcasts storage.BroadcastRepository,
	pages storage.PageRepository,
	subscribers storage.SubscriberRepository,
	messages storage.MessageRepository,
	sender messenger.Sender,
	locks lock.Provider,
	workers int,
	deadline time.Duration,
	lockTTL time.Duration,
	log *zap.Logger,
) *Service {
	if workers <= 0 {
		workers = 8
	}
	if deadline <= 0 {
		deadline = 5 * time.Minute
	}
	if lockTTL <= 0 {
		lockTTL = 10 * time.Minute
	}
	return &Service{
		broadcasts:  broadcasts,
		pages:       pages,
		subscribers: subscribers,
		messages:    messages,
		sender:      sender,
		locks:       locks,
		workers:     workers,
		deadline:    deadline,
		lockTTL:     lockTTL,
		log:         log,
	}
}

type CreateInput struct {
	AccountID  string
	PageID     string
	Name       string
	Message    model.BroadcastMessage
	Targeting  model.Targeting
	TargetTags []string
}

func (s *Service) Create(ctx context.Context, input CreateInput) (model.Broadcast, error) {
	switch input.Targeting {
	case model.TargetingAll, model.TargetingTags:
	case "":
		input.Targeting = model.TargetingAll
	default:
		return model.Broadcast{}, ErrInvalidTargeting
	}

	if input.TargetTags == nil {
		input.TargetTags = []string{}
	}

	return s.broadcasts.Create(ctx, model.Broadcast{
		ID:         uuid.NewString(),
		AccountID:  input.AccountID,
		PageID:     input.PageID,
		Name:       input.Name,
		Message:    input.Message,
		Targeting:  input.Targeting,
		TargetTags: input.TargetTags,
		Status:     model.BroadcastStatusDraft,
	})
}

func (s *Service) List(ctx context.Context, accountID, pageID string) ([]model.Broadcast, error) {
	return s.broadcasts.ListByAccount(ctx, accountID, pageID)
}

func (s *Service) Get(ctx context.Context, accountID, id string) (model.Broadcast, error) {
	b, err := s.broadcasts.GetByID(ctx, id)
	if err != nil {
		return model.Broadcast{}, err
	}
	if b.AccountID != accountID {
		return model.Broadcast{}, storage.ErrNotFound
	}
	return b, nil
}

func (s *Service) Delete(ctx context.Context, accountID, id string) error {
	if _, err := s.Get(ctx, accountID, id); err != nil {
		return err
	}
	return s.broadcasts.Delete(ctx, id)
}

type SendResult struct {
	TotalRecipients int `json:"totalRecipients"`
	SentCount       int `json:"sentCount"`
}

// Send resolve o segmento alvo e entrega o corpo do broadcast a cada
// assinante, com fan-out de concorrência limitada e prazo global. Falha por
// destinatário é contada, nunca aborta o lote; a ausência de credencial da
// página é pré-condição e falha antes de qualquer entrega. Um lock por
// broadcast garante no máximo um envio concorrente. Ao final os contadores
// são gravados de uma vez e o status transita draft → sent.
func (s *Service) Send(ctx context.Context, accountID, broadcastID string) (SendResult, error) {
	b, err := s.Get(ctx, accountID, broadcastID)
	if err != nil {
		return SendResult{}, err
	}

	page, err := s.pages.GetByID(ctx, b.PageID)
	if err != nil {
		return SendResult{}, fmt.Errorf("broadcast: página do broadcast: %w", err)
	}
	if page.AccessToken == "" {
		return SendResult{}, ErrPageWithoutToken
	}

	sendLock := s.locks.NewLock("broadcast:send:"+b.ID, s.lockTTL)
	acquired, err := sendLock.Acquire(ctx)
	if err != nil {
		return SendResult{}, fmt.Errorf("broadcast: lock de envio: %w", err)
	}
	if !acquired {
		return SendResult{}, ErrSendInProgress
	}
	defer func() {
		if err := sendLock.Release(context.Background()); err != nil {
			s.log.Warn("broadcast: falha ao liberar lock", zap.String("broadcastId", b.ID), zap.Error(err))
		}
	}()

	subs, err := s.subscribers.ListSubscribed(ctx, b.PageID)
	if err != nil {
		return SendResult{}, fmt.Errorf("broadcast: resolver assinantes: %w", err)
	}
	targets := resolveTargets(subs, b.Targeting, b.TargetTags)

	primary, hasPrimary := messenger.RenderBroadcast(b.Message)
	imageLink, hasImageLink := messenger.RenderImageLink(b.Message)

	historyType, historyContent := historyRecord(b.Message)

	sendCtx, cancel := context.WithTimeout(ctx, s.deadline)
	defer cancel()

	var sent atomic.Int64
	var g errgroup.Group
	g.SetLimit(s.workers)

	for _, sub := range targets {
		sub := sub
		g.Go(func() error {
			// Prazo global estourado: os destinatários restantes contam
			// como falha (sucesso parcial, não perda silenciosa).
			if sendCtx.Err() != nil {
				return nil
			}

			if hasPrimary {
				if err := s.sender.Send(sendCtx, sub.PSID, page.AccessToken, primary); err != nil {
					s.log.Warn("broadcast: falha de entrega",
						zap.String("broadcastId", b.ID),
						zap.String("psid", sub.PSID),
						zap.Error(err),
					)
				} else {
					sent.Add(1)
					s.recordDelivery(sendCtx, b.PageID, sub.ID, historyType, historyContent)
				}
			}

			// A imagem clicável é uma segunda mensagem, independente do
			// resultado do payload principal.
			if hasImageLink {
				if err := s.sender.Send(sendCtx, sub.PSID, page.AccessToken, imageLink); err != nil {
					s.log.Warn("broadcast: falha na entrega da imagem",
						zap.String("broadcastId", b.ID),
						zap.String("psid", sub.PSID),
						zap.Error(err),
					)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	total := len(targets)
	sentCount := int(sent.Load())

	// As entregas já aconteceram; a gravação dos contadores não pode se
	// perder porque o cliente desistiu da requisição.
	if err := s.broadcasts.MarkSent(context.WithoutCancel(ctx), b.ID, total, sentCount, sentCount, time.Now()); err != nil {
		return SendResult{}, fmt.Errorf("broadcast: gravar contadores: %w", err)
	}

	s.log.Info("broadcast: envio concluído",
		zap.String("broadcastId", b.ID),
		zap.Int("totalRecipients", total),
		zap.Int("sentCount", sentCount),
	)

	return SendResult{TotalRecipients: total, SentCount: sentCount}, nil
}

func (s *Service) recordDelivery(ctx context.Context, pageID, subscriberID string, msgType model.MessageType, content map[string]any) {
	_, err := s.messages.Create(ctx, model.Message{
		PageID:       pageID,
		SubscriberID: subscriberID,
		Sender:       model.SenderPage,
		Type:         msgType,
		Content:      content,
	})
	if err != nil {
		s.log.Warn("broadcast: falha ao registrar mensagem enviada",
			zap.String("subscriberId", subscriberID),
			zap.Error(err),
		)
	}
}

// historyRecord resume o corpo do broadcast para o histórico de conversa.
func historyRecord(msg model.BroadcastMessage) (model.MessageType, map[string]any) {
	if len(msg.Cards) > 0 {
		titles := make([]string, 0, len(msg.Cards))
		for _, card := range msg.Cards {
			titles = append(titles, card.Title)
		}
		return model.MessageCard, map[string]any{"cards": titles}
	}
	return model.MessageText, map[string]any{"text": msg.Text}
}

// resolveTargets aplica a regra de segmentação sobre o conjunto vivo de
// assinantes. Sob "tags", vale a interseção: conjunto alvo vazio resolve
// zero destinatários, o que é um envio válido e não um erro.
func resolveTargets(subs []model.Subscriber, targeting model.Targeting, tags []string) []model.Subscriber {
	var targets []model.Subscriber
	tagSet := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		tagSet[t] = struct{}{}
	}

	for _, sub := range subs {
		if !sub.Subscribed {
			continue
		}
		if targeting == model.TargetingTags {
			if !hasAnyTag(sub.Tags, tagSet) {
				continue
			}
		}
		targets = append(targets, sub)
	}
	return targets
}

func hasAnyTag(tags []string, set map[string]struct{}) bool {
	for _, t := range tags {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}
