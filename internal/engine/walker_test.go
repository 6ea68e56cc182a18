package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/open-pageflow/pageflow/internal/messenger"
	"github.com/open-pageflow/pageflow/internal/storage"
	"github.com/open-pageflow/pageflow/internal/storage/model"
)

// fakeSender registra as entregas e pode falhar em passos escolhidos.
type fakeSender struct {
	sent    []messenger.Payload
	failOn  map[int]bool
	callNum int
}

func (f *fakeSender) Send(_ context.Context, _, _ string, payload messenger.Payload) error {
	f.callNum++
	if f.failOn[f.callNum] {
		return errors.New("entrega recusada")
	}
	f.sent = append(f.sent, payload)
	return nil
}

type fakeMessageRepo struct {
	records []model.Message
}

func (r *fakeMessageRepo) Create(_ context.Context, m model.Message) (model.Message, error) {
	m.ID = fmt.Sprintf("msg-%d", len(r.records)+1)
	r.records = append(r.records, m)
	return m, nil
}

func (r *fakeMessageRepo) ListBySubscriber(_ context.Context, subscriberID string) ([]model.Message, error) {
	return nil, nil
}

func (r *fakeMessageRepo) CountByPage(_ context.Context, pageID string) (int, error) {
	return len(r.records), nil
}

var _ storage.MessageRepository = (*fakeMessageRepo)(nil)

func testSubscriber() model.Subscriber {
	return model.Subscriber{ID: "sub-1", AccountID: "acc-1", PageID: "page-1", PSID: "psid-1", Subscribed: true}
}

func TestWalkDeliversRenderableStepsInOrder(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	messages := &fakeMessageRepo{}
	walker := NewWalker(sender, messages, zap.NewNop())

	flow := model.Flow{
		ID: "f1",
		Steps: []model.FlowStep{
			{ID: "s1", Type: model.StepMessage, Content: map[string]any{"text": "primeiro"}},
			{ID: "s2", Type: model.StepDelay, Content: map[string]any{"seconds": float64(5)}},
			{ID: "s3", Type: model.StepMessage, Content: map[string]any{"text": "segundo"}},
		},
	}

	attempted := walker.Walk(context.Background(), flow, testSubscriber(), "token")
	require.Equal(t, 3, attempted)
	require.Len(t, sender.sent, 2)
	require.Equal(t, "primeiro", sender.sent[0].Text)
	require.Equal(t, "segundo", sender.sent[1].Text)
}

func TestWalkRecordsDeliveredStepsAsPageMessages(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	messages := &fakeMessageRepo{}
	walker := NewWalker(sender, messages, zap.NewNop())

	flow := model.Flow{
		ID: "f1",
		Steps: []model.FlowStep{
			{ID: "s1", Type: model.StepMessage, Content: map[string]any{"text": "oi"}},
			{ID: "s2", Type: model.StepCard, Content: map[string]any{"title": "Produto"}},
		},
	}

	walker.Walk(context.Background(), flow, testSubscriber(), "token")

	require.Len(t, messages.records, 2)
	for _, record := range messages.records {
		require.Equal(t, model.SenderPage, record.Sender)
		require.Equal(t, "page-1", record.PageID)
		require.Equal(t, "sub-1", record.SubscriberID)
	}
	require.Equal(t, model.MessageText, messages.records[0].Type)
	require.Equal(t, "oi", messages.records[0].Content["text"])
	require.Equal(t, model.MessageCard, messages.records[1].Type)
	require.Equal(t, "Produto", messages.records[1].Content["title"])
}

func TestWalkContinuesAfterSendFailure(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{failOn: map[int]bool{1: true}}
	messages := &fakeMessageRepo{}
	walker := NewWalker(sender, messages, zap.NewNop())

	flow := model.Flow{
		ID: "f1",
		Steps: []model.FlowStep{
			{ID: "s1", Type: model.StepMessage, Content: map[string]any{"text": "falha"}},
			{ID: "s2", Type: model.StepMessage, Content: map[string]any{"text": "passa"}},
		},
	}

	attempted := walker.Walk(context.Background(), flow, testSubscriber(), "token")
	require.Equal(t, 2, attempted)
	require.Len(t, sender.sent, 1)
	require.Equal(t, "passa", sender.sent[0].Text)

	// Só a entrega bem-sucedida entra no histórico.
	require.Len(t, messages.records, 1)
	require.Equal(t, "passa", messages.records[0].Content["text"])
}

func TestWalkSkipsUnrenderableContent(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	messages := &fakeMessageRepo{}
	walker := NewWalker(sender, messages, zap.NewNop())

	flow := model.Flow{
		ID: "f1",
		Steps: []model.FlowStep{
			{ID: "s1", Type: model.StepMessage},
			{ID: "s2", Type: model.StepCondition},
		},
	}

	attempted := walker.Walk(context.Background(), flow, testSubscriber(), "token")
	require.Equal(t, 2, attempted)
	require.Empty(t, sender.sent)
	require.Empty(t, messages.records)
}

func TestWalkEmptyFlow(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	walker := NewWalker(sender, &fakeMessageRepo{}, zap.NewNop())

	attempted := walker.Walk(context.Background(), model.Flow{ID: "f1"}, testSubscriber(), "token")
	require.Zero(t, attempted)
	require.Empty(t, sender.sent)
}
