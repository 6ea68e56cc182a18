package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/open-pageflow/pageflow/internal/engine"
	"github.com/open-pageflow/pageflow/internal/messenger"
	dedupe_memory "github.com/open-pageflow/pageflow/internal/pkg/dedupe/memory"
	"github.com/open-pageflow/pageflow/internal/pkg/queue"
	"github.com/open-pageflow/pageflow/internal/storage"
	"github.com/open-pageflow/pageflow/internal/storage/model"
)

type fakePageRepo struct {
	pages map[string]model.Page
}

func (r *fakePageRepo) Create(_ context.Context, p model.Page) (model.Page, error) { return p, nil }

func (r *fakePageRepo) GetByID(_ context.Context, id string) (model.Page, error) {
	p, ok := r.pages[id]
	if !ok {
		return model.Page{}, storage.ErrNotFound
	}
	return p, nil
}

func (r *fakePageRepo) GetByPlatformID(_ context.Context, platformID string) (model.Page, error) {
	for _, p := range r.pages {
		if p.PlatformID == platformID {
			return p, nil
		}
	}
	return model.Page{}, storage.ErrNotFound
}

func (r *fakePageRepo) ListByAccount(_ context.Context, accountID string) ([]model.Page, error) {
	return nil, nil
}

func (r *fakePageRepo) Delete(_ context.Context, id string) error { return nil }

type fakeSubscriberRepo struct {
	mu      sync.Mutex
	subs    []model.Subscriber
	nextID  int
	touched []string
}

func (r *fakeSubscriberRepo) Create(_ context.Context, s model.Subscriber) (model.Subscriber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	s.ID = fmt.Sprintf("sub-%d", r.nextID)
	r.subs = append(r.subs, s)
	return s, nil
}

func (r *fakeSubscriberRepo) GetByID(_ context.Context, id string) (model.Subscriber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subs {
		if s.ID == id {
			return s, nil
		}
	}
	return model.Subscriber{}, storage.ErrNotFound
}

func (r *fakeSubscriberRepo) GetByPSID(_ context.Context, pageID, psid string) (model.Subscriber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subs {
		if s.PageID == pageID && s.PSID == psid {
			return s, nil
		}
	}
	return model.Subscriber{}, storage.ErrNotFound
}

func (r *fakeSubscriberRepo) ListByAccount(_ context.Context, accountID, pageID string) ([]model.Subscriber, error) {
	return nil, nil
}

func (r *fakeSubscriberRepo) ListSubscribed(_ context.Context, pageID string) ([]model.Subscriber, error) {
	return nil, nil
}

func (r *fakeSubscriberRepo) UpdateTags(_ context.Context, id string, tags []string) error {
	return nil
}

func (r *fakeSubscriberRepo) Touch(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touched = append(r.touched, id)
	return nil
}

func (r *fakeSubscriberRepo) CountByAccount(_ context.Context, accountID, pageID string, subscribedOnly bool) (int, error) {
	return len(r.subs), nil
}

type fakeMessageRepo struct {
	mu      sync.Mutex
	records []model.Message
}

func (r *fakeMessageRepo) Create(_ context.Context, m model.Message) (model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
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

type fakeAutomationRepo struct {
	automations []model.Automation
}

func (r *fakeAutomationRepo) Create(_ context.Context, a model.Automation) (model.Automation, error) {
	return a, nil
}

func (r *fakeAutomationRepo) GetByID(_ context.Context, id string) (model.Automation, error) {
	return model.Automation{}, storage.ErrNotFound
}

func (r *fakeAutomationRepo) ListByAccount(_ context.Context, accountID, pageID string) ([]model.Automation, error) {
	return nil, nil
}

func (r *fakeAutomationRepo) ListActiveByPage(_ context.Context, pageID string) ([]model.Automation, error) {
	var out []model.Automation
	for _, a := range r.automations {
		if a.PageID == pageID && a.IsActive {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAutomationRepo) SetActive(_ context.Context, id string, active bool) error { return nil }

func (r *fakeAutomationRepo) Delete(_ context.Context, id string) error { return nil }

type fakeFlowRepo struct {
	flows map[string]model.Flow
}

func (r *fakeFlowRepo) Create(_ context.Context, f model.Flow) (model.Flow, error) { return f, nil }

func (r *fakeFlowRepo) GetByID(_ context.Context, id string) (model.Flow, error) {
	f, ok := r.flows[id]
	if !ok {
		return model.Flow{}, storage.ErrNotFound
	}
	return f, nil
}

func (r *fakeFlowRepo) ListByAccount(_ context.Context, accountID, pageID string) ([]model.Flow, error) {
	return nil, nil
}

func (r *fakeFlowRepo) Update(_ context.Context, f model.Flow) (model.Flow, error) { return f, nil }

func (r *fakeFlowRepo) Delete(_ context.Context, id string) error { return nil }

func (r *fakeFlowRepo) CountByAccount(_ context.Context, accountID, pageID string) (int, error) {
	return len(r.flows), nil
}

type recordingSender struct {
	mu    sync.Mutex
	sends []messenger.Payload
}

func (s *recordingSender) Send(_ context.Context, _, _ string, payload messenger.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sends = append(s.sends, payload)
	return nil
}

type fixture struct {
	processor   *Processor
	pages       *fakePageRepo
	subscribers *fakeSubscriberRepo
	messages    *fakeMessageRepo
	automations *fakeAutomationRepo
	flows       *fakeFlowRepo
	sender      *recordingSender
}

func newFixture(automations []model.Automation, flows map[string]model.Flow) *fixture {
	if flows == nil {
		flows = map[string]model.Flow{}
	}
	f := &fixture{
		pages: &fakePageRepo{pages: map[string]model.Page{
			"page-1": {ID: "page-1", AccountID: "acc-1", PlatformID: "fb-123", AccessToken: "token", Connected: true},
		}},
		subscribers: &fakeSubscriberRepo{},
		messages:    &fakeMessageRepo{},
		automations: &fakeAutomationRepo{automations: automations},
		flows:       &fakeFlowRepo{flows: flows},
		sender:      &recordingSender{},
	}
	walker := engine.NewWalker(f.sender, f.messages, zap.NewNop())
	f.processor = NewProcessor(
		f.pages, f.subscribers, f.messages, f.automations, f.flows,
		walker, dedupe_memory.NewDeduper(), time.Hour, zap.NewNop(),
	)
	return f
}

func textEvent(id, platformPageID, psid, text string) *queue.Event {
	payload, _ := json.Marshal(map[string]any{
		"sender":    map[string]string{"id": psid},
		"recipient": map[string]string{"id": platformPageID},
		"timestamp": 1700000000000,
		"message":   map[string]string{"mid": id, "text": text},
	})
	return &queue.Event{ID: id, PageID: platformPageID, Type: "messaging", Payload: payload, CreatedAt: time.Now()}
}

func TestProcessCreatesSubscriberAndRecordsMessage(t *testing.T) {
	t.Parallel()

	f := newFixture(nil, nil)
	f.processor.Process(context.Background(), textEvent("m1", "fb-123", "psid-1", "olá"))

	require.Len(t, f.subscribers.subs, 1)
	sub := f.subscribers.subs[0]
	require.Equal(t, "acc-1", sub.AccountID)
	require.Equal(t, "page-1", sub.PageID)
	require.Equal(t, "psid-1", sub.PSID)
	require.True(t, sub.Subscribed)

	require.Len(t, f.messages.records, 1)
	require.Equal(t, model.MessageText, f.messages.records[0].Type)
	require.Equal(t, "olá", f.messages.records[0].Content["text"])
	require.Equal(t, model.SenderSubscriber, f.messages.records[0].Sender)
}

func TestProcessTouchesExistingSubscriber(t *testing.T) {
	t.Parallel()

	f := newFixture(nil, nil)
	f.subscribers.subs = append(f.subscribers.subs, model.Subscriber{
		ID: "sub-1", AccountID: "acc-1", PageID: "page-1", PSID: "psid-1", Subscribed: true,
	})

	f.processor.Process(context.Background(), textEvent("m1", "fb-123", "psid-1", "de novo"))

	require.Len(t, f.subscribers.subs, 1, "assinante existente não deve ser recriado")
	require.Equal(t, []string{"sub-1"}, f.subscribers.touched)
}

func TestProcessDeduplicatesEvents(t *testing.T) {
	t.Parallel()

	f := newFixture(nil, nil)
	event := textEvent("m1", "fb-123", "psid-1", "olá")

	f.processor.Process(context.Background(), event)
	f.processor.Process(context.Background(), event)

	require.Len(t, f.messages.records, 1, "evento repetido não deve ser reprocessado")
}

func TestProcessIgnoresUnknownPage(t *testing.T) {
	t.Parallel()

	f := newFixture(nil, nil)
	f.processor.Process(context.Background(), textEvent("m1", "fb-desconhecida", "psid-1", "olá"))

	require.Empty(t, f.subscribers.subs)
	require.Empty(t, f.messages.records)
}

func TestProcessWelcomeAutomationFiresOnFirstContact(t *testing.T) {
	t.Parallel()

	automations := []model.Automation{
		{ID: "a1", PageID: "page-1", Kind: model.AutomationWelcomeMessage, FlowID: "f1", IsActive: true},
	}
	flows := map[string]model.Flow{
		"f1": {ID: "f1", IsActive: true, Steps: []model.FlowStep{
			{ID: "s1", Type: model.StepMessage, Content: map[string]any{"text": "bem-vindo"}},
		}},
	}
	f := newFixture(automations, flows)

	f.processor.Process(context.Background(), textEvent("m1", "fb-123", "psid-1", "oi"))
	require.Len(t, f.sender.sends, 1)
	require.Equal(t, "bem-vindo", f.sender.sends[0].Text)

	// Segundo contato do mesmo assinante: welcome não dispara de novo.
	f.processor.Process(context.Background(), textEvent("m2", "fb-123", "psid-1", "oi de novo"))
	require.Len(t, f.sender.sends, 1)
}

func TestProcessKeywordAutomationWalksFlow(t *testing.T) {
	t.Parallel()

	automations := []model.Automation{
		{ID: "a1", PageID: "page-1", Kind: model.AutomationKeyword, Keyword: "preço", FlowID: "f1", IsActive: true},
	}
	flows := map[string]model.Flow{
		"f1": {ID: "f1", IsActive: true, Steps: []model.FlowStep{
			{ID: "s1", Type: model.StepMessage, Content: map[string]any{"text": "tabela de preços"}},
			{ID: "s2", Type: model.StepMessage, Content: map[string]any{"text": "posso ajudar?"}},
		}},
	}
	f := newFixture(automations, flows)

	f.processor.Process(context.Background(), textEvent("m1", "fb-123", "psid-1", "qual o PREÇO?"))
	require.Len(t, f.sender.sends, 2)

	// O histórico guarda a mensagem do assinante e as respostas da página.
	require.Len(t, f.messages.records, 3)
	require.Equal(t, model.SenderSubscriber, f.messages.records[0].Sender)
	require.Equal(t, model.SenderPage, f.messages.records[1].Sender)
	require.Equal(t, model.SenderPage, f.messages.records[2].Sender)
}

func TestProcessSkipsInactiveFlow(t *testing.T) {
	t.Parallel()

	automations := []model.Automation{
		{ID: "a1", PageID: "page-1", Kind: model.AutomationKeyword, Keyword: "oi", FlowID: "f1", IsActive: true},
	}
	flows := map[string]model.Flow{
		"f1": {ID: "f1", IsActive: false, Steps: []model.FlowStep{
			{ID: "s1", Type: model.StepMessage, Content: map[string]any{"text": "nunca"}},
		}},
	}
	f := newFixture(automations, flows)

	f.processor.Process(context.Background(), textEvent("m1", "fb-123", "psid-1", "oi"))
	require.Empty(t, f.sender.sends)
}

func TestProcessPostbackRecordsButtonClickWithoutDispatch(t *testing.T) {
	t.Parallel()

	automations := []model.Automation{
		{ID: "a1", PageID: "page-1", Kind: model.AutomationKeyword, Keyword: "comprar", FlowID: "f1", IsActive: true},
	}
	flows := map[string]model.Flow{
		"f1": {ID: "f1", IsActive: true, Steps: []model.FlowStep{
			{ID: "s1", Type: model.StepMessage, Content: map[string]any{"text": "fluxo"}},
		}},
	}
	f := newFixture(automations, flows)

	payload, _ := json.Marshal(map[string]any{
		"sender":    map[string]string{"id": "psid-1"},
		"recipient": map[string]string{"id": "fb-123"},
		"timestamp": 1700000000000,
		"postback":  map[string]string{"title": "Comprar", "payload": "comprar"},
	})
	f.processor.Process(context.Background(), &queue.Event{
		ID: "pb1", PageID: "fb-123", Type: "messaging", Payload: payload, CreatedAt: time.Now(),
	})

	require.Len(t, f.messages.records, 1)
	require.Equal(t, model.MessageButtonClick, f.messages.records[0].Type)
	require.Equal(t, "Comprar", f.messages.records[0].Content["title"])
	require.Empty(t, f.sender.sends, "postback não dispara automações")
}

func TestProcessPageWithoutTokenSkipsDispatch(t *testing.T) {
	t.Parallel()

	automations := []model.Automation{
		{ID: "a1", PageID: "page-1", Kind: model.AutomationKeyword, Keyword: "oi", FlowID: "f1", IsActive: true},
	}
	flows := map[string]model.Flow{
		"f1": {ID: "f1", IsActive: true, Steps: []model.FlowStep{
			{ID: "s1", Type: model.StepMessage, Content: map[string]any{"text": "nunca"}},
		}},
	}
	f := newFixture(automations, flows)
	page := f.pages.pages["page-1"]
	page.AccessToken = ""
	f.pages.pages["page-1"] = page

	f.processor.Process(context.Background(), textEvent("m1", "fb-123", "psid-1", "oi"))

	require.Empty(t, f.sender.sends)
	require.Len(t, f.messages.records, 1, "a mensagem de entrada ainda é registrada")
}
