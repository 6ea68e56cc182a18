// Package webhook processa os eventos de entrada do Messenger: uma pool de
// workers consome a fila alimentada pelo handler HTTP e cada evento passa
// pelo pipeline resolver página → upsert de assinante → registro da mensagem
// → disparo de automações.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/open-pageflow/pageflow/internal/engine"
	"github.com/open-pageflow/pageflow/internal/messenger"
	"github.com/open-pageflow/pageflow/internal/pkg/dedupe"
	"github.com/open-pageflow/pageflow/internal/pkg/queue"
	"github.com/open-pageflow/pageflow/internal/storage"
	"github.com/open-pageflow/pageflow/internal/storage/model"
)

type Processor struct {
	pages       storage.PageRepository
	subscribers storage.SubscriberRepository
	messages    storage.MessageRepository
	automations storage.AutomationRepository
	flows       storage.FlowRepository
	walker      *engine.Walker
	dedup       dedupe.Deduper
	dedupTTL    time.Duration
	log         *zap.Logger
}

func NewProcessor(
	pages storage.PageRepository,
	subscribers storage.SubscriberRepository,
	messages storage.MessageRepository,
	automations storage.AutomationRepository,
	flows storage.FlowRepository,
	walker *engine.Walker,
	dedup dedupe.Deduper,
	dedupTTL time.Duration,
	log *zap.Logger,
) *Processor {
	if dedupTTL <= 0 {
		dedupTTL = time.Hour
	}
	return &Processor{
		pages:       pages,
		subscribers: subscribers,
		messages:    messages,
		automations: automations,
		flows:       flows,
		walker:      walker,
		dedup:       dedup,
		dedupTTL:    dedupTTL,
		log:         log,
	}
}

// Process trata um evento de entrada de ponta a ponta. Nunca devolve erro:
// a plataforma já recebeu o ack e qualquer falha daqui em diante é apenas
// registrada, nunca propagada.
func (p *Processor) Process(ctx context.Context, event *queue.Event) {
	var msg messenger.MessagingEvent
	if err := json.Unmarshal(event.Payload, &msg); err != nil {
		p.log.Error("webhook: payload de evento inválido", zap.String("eventId", event.ID), zap.Error(err))
		return
	}

	seen, err := p.dedup.Seen(ctx, event.ID, p.dedupTTL)
	if err != nil {
		p.log.Warn("webhook: dedup indisponível, seguindo sem", zap.Error(err))
	} else if seen {
		p.log.Debug("webhook: evento repetido descartado", zap.String("eventId", event.ID))
		return
	}

	page, err := p.pages.GetByPlatformID(ctx, event.PageID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Página de outro tenant ou desconectada; não é erro.
			p.log.Debug("webhook: página desconhecida, evento ignorado", zap.String("pageId", event.PageID))
		} else {
			p.log.Error("webhook: falha ao resolver página", zap.String("pageId", event.PageID), zap.Error(err))
		}
		return
	}

	sub, firstContact := p.upsertSubscriber(ctx, page, msg.Sender.ID)
	if sub.ID == "" {
		return
	}

	p.recordInbound(ctx, page, sub, msg)

	if msg.Postback != nil {
		// Postbacks são apenas observados; nenhuma automação é disparada.
		p.log.Info("webhook: postback recebido",
			zap.String("subscriberId", sub.ID),
			zap.String("payload", msg.Postback.Payload),
		)
		return
	}

	text := ""
	if msg.Message != nil {
		text = msg.Message.Text
	}
	p.dispatch(ctx, page, sub, text, firstContact)
}

func (p *Processor) upsertSubscriber(ctx context.Context, page model.Page, psid string) (model.Subscriber, bool) {
	sub, err := p.subscribers.GetByPSID(ctx, page.ID, psid)
	if err == nil {
		if err := p.subscribers.Touch(ctx, sub.ID, time.Now()); err != nil {
			p.log.Warn("webhook: falha ao atualizar last_interaction", zap.String("subscriberId", sub.ID), zap.Error(err))
		}
		return sub, false
	}
	if !errors.Is(err, storage.ErrNotFound) {
		p.log.Error("webhook: falha ao buscar assinante", zap.String("psid", psid), zap.Error(err))
		return model.Subscriber{}, false
	}

	created, err := p.subscribers.Create(ctx, model.Subscriber{
		AccountID:       page.AccountID,
		PageID:          page.ID,
		PSID:            psid,
		Tags:            []string{},
		Subscribed:      true,
		LastInteraction: time.Now(),
	})
	if err != nil {
		p.log.Error("webhook: falha ao criar assinante", zap.String("psid", psid), zap.Error(err))
		return model.Subscriber{}, false
	}

	p.log.Info("webhook: novo assinante",
		zap.String("subscriberId", created.ID),
		zap.String("pageId", page.ID),
	)
	return created, true
}

func (p *Processor) recordInbound(ctx context.Context, page model.Page, sub model.Subscriber, msg messenger.MessagingEvent) {
	record := model.Message{
		PageID:       page.ID,
		SubscriberID: sub.ID,
		Sender:       model.SenderSubscriber,
	}

	switch {
	case msg.Postback != nil:
		record.Type = model.MessageButtonClick
		record.Content = map[string]any{"title": msg.Postback.Title, "payload": msg.Postback.Payload}
	case msg.Message != nil:
		record.Type = model.MessageText
		record.Content = map[string]any{"text": msg.Message.Text}
	default:
		return
	}

	if _, err := p.messages.Create(ctx, record); err != nil {
		p.log.Warn("webhook: falha ao registrar mensagem", zap.String("subscriberId", sub.ID), zap.Error(err))
	}
}

func (p *Processor) dispatch(ctx context.Context, page model.Page, sub model.Subscriber, text string, firstContact bool) {
	automations, err := p.automations.ListActiveByPage(ctx, page.ID)
	if err != nil {
		p.log.Error("webhook: falha ao listar automações", zap.String("pageId", page.ID), zap.Error(err))
		return
	}

	matched := engine.Match(automations, text, firstContact)
	if len(matched) == 0 {
		return
	}

	if page.AccessToken == "" {
		p.log.Warn("webhook: página sem access token, automações não executadas", zap.String("pageId", page.ID))
		return
	}

	for _, automation := range matched {
		if automation.FlowID == "" {
			// Automação informativa, sem fluxo associado.
			p.log.Debug("webhook: automação sem fluxo", zap.String("automationId", automation.ID))
			continue
		}

		flow, err := p.flows.GetByID(ctx, automation.FlowID)
		if err != nil {
			p.log.Warn("webhook: fluxo da automação não encontrado",
				zap.String("automationId", automation.ID),
				zap.String("flowId", automation.FlowID),
				zap.Error(err),
			)
			continue
		}
		if !flow.IsActive {
			continue
		}

		steps := p.walker.Walk(ctx, flow, sub, page.AccessToken)
		p.log.Info("webhook: automação executada",
			zap.String("automationId", automation.ID),
			zap.String("flowId", flow.ID),
			zap.String("subscriberId", sub.ID),
			zap.Int("steps", steps),
		)
	}
}
