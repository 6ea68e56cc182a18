package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/open-pageflow/pageflow/internal/messenger"
	"github.com/open-pageflow/pageflow/internal/storage"
	"github.com/open-pageflow/pageflow/internal/storage/model"
)

type Walker struct {
	sender   messenger.Sender
	messages storage.MessageRepository
	log      *zap.Logger
}

func NewWalker(sender messenger.Sender, messages storage.MessageRepository, log *zap.Logger) *Walker {
	return &Walker{sender: sender, messages: messages, log: log}
}

// Walk executa um fluxo para um assinante, percorrendo os passos na ordem
// salva. Passos sem renderização (delay, condition, conteúdo vazio) apenas
// avançam; falha de entrega em um passo não interrompe os seguintes. Cada
// entrega bem-sucedida entra no histórico como mensagem da página. Retorna
// o total de passos percorridos. A execução sempre recomeça do primeiro
// passo: não há estado de progresso persistido.
func (w *Walker) Walk(ctx context.Context, flow model.Flow, sub model.Subscriber, pageToken string) int {
	attempted := 0
	for _, step := range flow.Steps {
		attempted++

		payload, ok := messenger.RenderStep(step)
		if !ok {
			continue
		}

		if err := w.sender.Send(ctx, sub.PSID, pageToken, payload); err != nil {
			w.log.Warn("engine: falha ao entregar passo do fluxo",
				zap.String("flowId", flow.ID),
				zap.String("stepId", step.ID),
				zap.Error(err),
			)
			continue
		}

		w.recordOutbound(ctx, sub, step)
	}
	return attempted
}

func (w *Walker) recordOutbound(ctx context.Context, sub model.Subscriber, step model.FlowStep) {
	msgType := model.MessageText
	if step.Type == model.StepCard {
		msgType = model.MessageCard
	}

	_, err := w.messages.Create(ctx, model.Message{
		PageID:       sub.PageID,
		SubscriberID: sub.ID,
		Sender:       model.SenderPage,
		Type:         msgType,
		Content:      step.Content,
	})
	if err != nil {
		w.log.Warn("engine: falha ao registrar mensagem enviada",
			zap.String("subscriberId", sub.ID),
			zap.Error(err),
		)
	}
}
