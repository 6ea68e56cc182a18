package broadcast

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/open-pageflow/pageflow/internal/messenger"
	lock_memory "github.com/open-pageflow/pageflow/internal/pkg/lock/memory"
	"github.com/open-pageflow/pageflow/internal/storage"
	"github.com/open-pageflow/pageflow/internal/storage/model"
)

type fakeBroadcastRepo struct {
	mu    sync.Mutex
	items map[string]model.Broadcast
}

func newFakeBroadcastRepo(items ...model.Broadcast) *fakeBroadcastRepo {
	repo := &fakeBroadcastRepo{items: make(map[string]model.Broadcast)}
	for _, b := range items {
		repo.items[b.ID] = b
	}
	return repo
}

func (r *fakeBroadcastRepo) Create(_ context.Context, b model.Broadcast) (model.Broadcast, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b.CreatedAt = time.Now()
	r.items[b.ID] = b
	return b, nil
}

func (r *fakeBroadcastRepo) GetByID(_ context.Context, id string) (model.Broadcast, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.items[id]
	if !ok {
		return model.Broadcast{}, storage.ErrNotFound
	}
	return b, nil
}

func (r *fakeBroadcastRepo) ListByAccount(_ context.Context, accountID, pageID string) ([]model.Broadcast, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Broadcast{}
	for _, b := range r.items {
		if b.AccountID != accountID {
			continue
		}
		if pageID != "" && b.PageID != pageID {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (r *fakeBroadcastRepo) MarkSent(ctx context.Context, id string, total, sent, delivered int, sentAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.items[id]
	if !ok {
		return storage.ErrNotFound
	}
	b.Status = model.BroadcastStatusSent
	b.TotalRecipients = total
	b.SentCount = sent
	b.DeliveredCount = delivered
	b.SentAt = &sentAt
	r.items[id] = b
	return nil
}

func (r *fakeBroadcastRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return storage.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *fakeBroadcastRepo) CountByAccount(_ context.Context, accountID, pageID string) (int, error) {
	list, _ := r.ListByAccount(context.Background(), accountID, pageID)
	return len(list), nil
}

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
	out := []model.Page{}
	for _, p := range r.pages {
		if p.AccountID == accountID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePageRepo) Delete(_ context.Context, id string) error {
	delete(r.pages, id)
	return nil
}

type fakeSubscriberRepo struct {
	subs []model.Subscriber
}

func (r *fakeSubscriberRepo) Create(_ context.Context, s model.Subscriber) (model.Subscriber, error) {
	r.subs = append(r.subs, s)
	return s, nil
}

func (r *fakeSubscriberRepo) GetByID(_ context.Context, id string) (model.Subscriber, error) {
	for _, s := range r.subs {
		if s.ID == id {
			return s, nil
		}
	}
	return model.Subscriber{}, storage.ErrNotFound
}

func (r *fakeSubscriberRepo) GetByPSID(_ context.Context, pageID, psid string) (model.Subscriber, error) {
	for _, s := range r.subs {
		if s.PageID == pageID && s.PSID == psid {
			return s, nil
		}
	}
	return model.Subscriber{}, storage.ErrNotFound
}

func (r *fakeSubscriberRepo) ListByAccount(_ context.Context, accountID, pageID string) ([]model.Subscriber, error) {
	out := []model.Subscriber{}
	for _, s := range r.subs {
		if s.AccountID == accountID && (pageID == "" || s.PageID == pageID) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSubscriberRepo) ListSubscribed(_ context.Context, pageID string) ([]model.Subscriber, error) {
	out := []model.Subscriber{}
	for _, s := range r.subs {
		if s.PageID == pageID && s.Subscribed {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSubscriberRepo) UpdateTags(_ context.Context, id string, tags []string) error {
	for i, s := range r.subs {
		if s.ID == id {
			r.subs[i].Tags = tags
			return nil
		}
	}
	return storage.ErrNotFound
}

func (r *fakeSubscriberRepo) Touch(_ context.Context, id string, at time.Time) error {
	for i, s := range r.subs {
		if s.ID == id {
			r.subs[i].LastInteraction = at
			return nil
		}
	}
	return storage.ErrNotFound
}

func (r *fakeSubscriberRepo) CountByAccount(_ context.Context, accountID, pageID string, subscribedOnly bool) (int, error) {
	count := 0
	for _, s := range r.subs {
		if s.AccountID != accountID {
			continue
		}
		if pageID != "" && s.PageID != pageID {
			continue
		}
		if subscribedOnly && !s.Subscribed {
			continue
		}
		count++
	}
	return count, nil
}

type fakeMessageRepo struct {
	mu      sync.Mutex
	records []model.Message
}

func (r *fakeMessageRepo) Create(_ context.Context, m model.Message) (model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, m)
	return m, nil
}

func (r *fakeMessageRepo) ListBySubscriber(_ context.Context, subscriberID string) ([]model.Message, error) {
	return nil, nil
}

func (r *fakeMessageRepo) CountByPage(_ context.Context, pageID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records), nil
}

// recordingSender acumula os envios feitos durante o fan-out.
type recordingSender struct {
	mu        sync.Mutex
	sends     map[string][]messenger.Payload
	failAll   bool
	failPSIDs map[string]bool
}

func newRecordingSender() *recordingSender {
	return &recordingSender{sends: make(map[string][]messenger.Payload)}
}

func (s *recordingSender) Send(_ context.Context, psid, _ string, payload messenger.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll || s.failPSIDs[psid] {
		return errors.New("entrega recusada")
	}
	s.sends[psid] = append(s.sends[psid], payload)
	return nil
}

func (s *recordingSender) totalSends() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, payloads := range s.sends {
		total += len(payloads)
	}
	return total
}

func newTestService(broadcasts *fakeBroadcastRepo, pages *fakePageRepo, subs *fakeSubscriberRepo, messages *fakeMessageRepo, sender messenger.Sender) *Service {
	return NewService(broadcasts, pages, subs, messages, sender, lock_memory.NewProvider(), 4, time.Minute, time.Minute, zap.NewNop())
}

func subscriber(id, psid string, subscribed bool, tags ...string) model.Subscriber {
	if tags == nil {
		tags = []string{}
	}
	return model.Subscriber{
		ID:         id,
		AccountID:  "acc-1",
		PageID:     "page-1",
		PSID:       psid,
		Tags:       tags,
		Subscribed: subscribed,
	}
}

func draft(targeting model.Targeting, tags ...string) model.Broadcast {
	if tags == nil {
		tags = []string{}
	}
	return model.Broadcast{
		ID:         "bc-1",
		AccountID:  "acc-1",
		PageID:     "page-1",
		Name:       "campanha",
		Message:    model.BroadcastMessage{Text: "promoção"},
		Targeting:  targeting,
		TargetTags: tags,
		Status:     model.BroadcastStatusDraft,
	}
}

func testPage() *fakePageRepo {
	return &fakePageRepo{pages: map[string]model.Page{
		"page-1": {ID: "page-1", AccountID: "acc-1", PlatformID: "fb-1", AccessToken: "token", Connected: true},
	}}
}

func TestCreateDefaultsTargetingToAll(t *testing.T) {
	t.Parallel()

	svc := newTestService(newFakeBroadcastRepo(), testPage(), &fakeSubscriberRepo{}, &fakeMessageRepo{}, newRecordingSender())

	b, err := svc.Create(context.Background(), CreateInput{
		AccountID: "acc-1",
		PageID:    "page-1",
		Name:      "campanha",
		Message:   model.BroadcastMessage{Text: "oi"},
	})
	require.NoError(t, err)
	require.Equal(t, model.TargetingAll, b.Targeting)
	require.NotNil(t, b.TargetTags)
	require.Equal(t, model.BroadcastStatusDraft, b.Status)
	require.NotEmpty(t, b.ID)
}

func TestCreateRejectsUnknownTargeting(t *testing.T) {
	t.Parallel()

	svc := newTestService(newFakeBroadcastRepo(), testPage(), &fakeSubscriberRepo{}, &fakeMessageRepo{}, newRecordingSender())

	_, err := svc.Create(context.Background(), CreateInput{
		AccountID: "acc-1",
		PageID:    "page-1",
		Targeting: "segment",
	})
	require.ErrorIs(t, err, ErrInvalidTargeting)
}

func TestSendTargetingAll(t *testing.T) {
	t.Parallel()

	broadcasts := newFakeBroadcastRepo(draft(model.TargetingAll))
	subs := &fakeSubscriberRepo{subs: []model.Subscriber{
		subscriber("s1", "psid-1", true),
		subscriber("s2", "psid-2", true),
		subscriber("s3", "psid-3", false),
	}}
	sender := newRecordingSender()
	svc := newTestService(broadcasts, testPage(), subs, &fakeMessageRepo{}, sender)

	result, err := svc.Send(context.Background(), "acc-1", "bc-1")
	require.NoError(t, err)
	require.Equal(t, 2, result.TotalRecipients)
	require.Equal(t, 2, result.SentCount)
	require.Equal(t, 2, sender.totalSends())
	require.Empty(t, sender.sends["psid-3"], "não assinante não deve receber")

	stored, err := broadcasts.GetByID(context.Background(), "bc-1")
	require.NoError(t, err)
	require.Equal(t, model.BroadcastStatusSent, stored.Status)
	require.Equal(t, 2, stored.TotalRecipients)
	require.Equal(t, 2, stored.SentCount)
	require.Equal(t, 2, stored.DeliveredCount)
	require.NotNil(t, stored.SentAt)
}

func TestSendTargetingTagsIntersection(t *testing.T) {
	t.Parallel()

	broadcasts := newFakeBroadcastRepo(draft(model.TargetingTags, "vip"))
	subs := &fakeSubscriberRepo{subs: []model.Subscriber{
		subscriber("s1", "psid-1", true, "vip"),
		subscriber("s2", "psid-2", true, "novato"),
		subscriber("s3", "psid-3", true, "vip", "novato"),
	}}
	sender := newRecordingSender()
	svc := newTestService(broadcasts, testPage(), subs, &fakeMessageRepo{}, sender)

	result, err := svc.Send(context.Background(), "acc-1", "bc-1")
	require.NoError(t, err)
	require.Equal(t, 2, result.TotalRecipients)
	require.Len(t, sender.sends["psid-1"], 1)
	require.Empty(t, sender.sends["psid-2"])
	require.Len(t, sender.sends["psid-3"], 1)
}

func TestSendTargetingTagsEmptySetResolvesZero(t *testing.T) {
	t.Parallel()

	broadcasts := newFakeBroadcastRepo(draft(model.TargetingTags))
	subs := &fakeSubscriberRepo{subs: []model.Subscriber{
		subscriber("s1", "psid-1", true, "vip"),
	}}
	sender := newRecordingSender()
	svc := newTestService(broadcasts, testPage(), subs, &fakeMessageRepo{}, sender)

	result, err := svc.Send(context.Background(), "acc-1", "bc-1")
	require.NoError(t, err)
	require.Zero(t, result.TotalRecipients)
	require.Zero(t, result.SentCount)
	require.Zero(t, sender.totalSends())

	stored, err := broadcasts.GetByID(context.Background(), "bc-1")
	require.NoError(t, err)
	require.Equal(t, model.BroadcastStatusSent, stored.Status)
}

func TestSendPageWithoutToken(t *testing.T) {
	t.Parallel()

	broadcasts := newFakeBroadcastRepo(draft(model.TargetingAll))
	pages := &fakePageRepo{pages: map[string]model.Page{
		"page-1": {ID: "page-1", AccountID: "acc-1", PlatformID: "fb-1"},
	}}
	sender := newRecordingSender()
	svc := newTestService(broadcasts, pages, &fakeSubscriberRepo{}, &fakeMessageRepo{}, sender)

	_, err := svc.Send(context.Background(), "acc-1", "bc-1")
	require.ErrorIs(t, err, ErrPageWithoutToken)
	require.Zero(t, sender.totalSends())
}

func TestSendSingleFlight(t *testing.T) {
	t.Parallel()

	broadcasts := newFakeBroadcastRepo(draft(model.TargetingAll))
	svc := newTestService(broadcasts, testPage(), &fakeSubscriberRepo{}, &fakeMessageRepo{}, newRecordingSender())

	locks := svc.locks.NewLock("broadcast:send:bc-1", time.Minute)
	acquired, err := locks.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, acquired)

	_, err = svc.Send(context.Background(), "acc-1", "bc-1")
	require.ErrorIs(t, err, ErrSendInProgress)

	require.NoError(t, locks.Release(context.Background()))

	// Com o lock liberado, o envio segue normalmente.
	_, err = svc.Send(context.Background(), "acc-1", "bc-1")
	require.NoError(t, err)
}

func TestSendImageLinkSecondMessage(t *testing.T) {
	t.Parallel()

	b := draft(model.TargetingAll)
	b.Message = model.BroadcastMessage{
		Text:      "confira",
		ImageURL:  "https://example.com/banner.png",
		ImageLink: "https://example.com/loja",
	}
	broadcasts := newFakeBroadcastRepo(b)
	subs := &fakeSubscriberRepo{subs: []model.Subscriber{subscriber("s1", "psid-1", true)}}
	sender := newRecordingSender()
	svc := newTestService(broadcasts, testPage(), subs, &fakeMessageRepo{}, sender)

	result, err := svc.Send(context.Background(), "acc-1", "bc-1")
	require.NoError(t, err)
	require.Equal(t, 1, result.SentCount)

	payloads := sender.sends["psid-1"]
	require.Len(t, payloads, 2)
	require.Equal(t, "confira", payloads[0].Text)
	require.NotNil(t, payloads[1].Attachment)
	require.Equal(t, "button", payloads[1].Attachment.Payload.TemplateType)
}

func TestSendCountsFailuresWithoutAborting(t *testing.T) {
	t.Parallel()

	broadcasts := newFakeBroadcastRepo(draft(model.TargetingAll))
	subs := &fakeSubscriberRepo{subs: []model.Subscriber{
		subscriber("s1", "psid-1", true),
		subscriber("s2", "psid-2", true),
	}}
	sender := newRecordingSender()
	sender.failAll = true
	svc := newTestService(broadcasts, testPage(), subs, &fakeMessageRepo{}, sender)

	result, err := svc.Send(context.Background(), "acc-1", "bc-1")
	require.NoError(t, err)
	require.Equal(t, 2, result.TotalRecipients)
	require.Zero(t, result.SentCount)
}

func TestSendPartialFailureCounters(t *testing.T) {
	t.Parallel()

	broadcasts := newFakeBroadcastRepo(draft(model.TargetingAll))
	subs := &fakeSubscriberRepo{subs: []model.Subscriber{
		subscriber("s1", "psid-1", true),
		subscriber("s2", "psid-2", true),
		subscriber("s3", "psid-3", true),
		subscriber("s4", "psid-4", true),
		subscriber("s5", "psid-5", true),
	}}
	sender := newRecordingSender()
	sender.failPSIDs = map[string]bool{"psid-2": true, "psid-4": true}
	svc := newTestService(broadcasts, testPage(), subs, &fakeMessageRepo{}, sender)

	result, err := svc.Send(context.Background(), "acc-1", "bc-1")
	require.NoError(t, err)
	require.Equal(t, 5, result.TotalRecipients)
	require.Equal(t, 3, result.SentCount)

	stored, err := broadcasts.GetByID(context.Background(), "bc-1")
	require.NoError(t, err)
	require.Equal(t, model.BroadcastStatusSent, stored.Status)
	require.Equal(t, 5, stored.TotalRecipients)
	require.Equal(t, 3, stored.SentCount)
	require.Equal(t, 3, stored.DeliveredCount)
}

func TestSendRecordsDeliveriesAsPageMessages(t *testing.T) {
	t.Parallel()

	broadcasts := newFakeBroadcastRepo(draft(model.TargetingAll))
	subs := &fakeSubscriberRepo{subs: []model.Subscriber{
		subscriber("s1", "psid-1", true),
		subscriber("s2", "psid-2", true),
	}}
	sender := newRecordingSender()
	sender.failPSIDs = map[string]bool{"psid-2": true}
	messages := &fakeMessageRepo{}
	svc := newTestService(broadcasts, testPage(), subs, messages, sender)

	_, err := svc.Send(context.Background(), "acc-1", "bc-1")
	require.NoError(t, err)

	// Só a entrega bem-sucedida entra no histórico, como mensagem da página.
	require.Len(t, messages.records, 1)
	record := messages.records[0]
	require.Equal(t, model.SenderPage, record.Sender)
	require.Equal(t, model.MessageText, record.Type)
	require.Equal(t, "page-1", record.PageID)
	require.Equal(t, "s1", record.SubscriberID)
	require.Equal(t, "promoção", record.Content["text"])
}

func TestSendStampsCountersAfterClientGone(t *testing.T) {
	t.Parallel()

	broadcasts := newFakeBroadcastRepo(draft(model.TargetingAll))
	subs := &fakeSubscriberRepo{subs: []model.Subscriber{subscriber("s1", "psid-1", true)}}
	svc := newTestService(broadcasts, testPage(), subs, &fakeMessageRepo{}, newRecordingSender())

	// Cliente desiste antes do fim do fan-out: os contadores são gravados
	// mesmo assim.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := svc.Send(ctx, "acc-1", "bc-1")
	require.NoError(t, err)
	require.Equal(t, 1, result.TotalRecipients)
	require.Zero(t, result.SentCount)

	stored, err := broadcasts.GetByID(context.Background(), "bc-1")
	require.NoError(t, err)
	require.Equal(t, model.BroadcastStatusSent, stored.Status)
	require.Equal(t, 1, stored.TotalRecipients)
}

func TestGetScopedToAccount(t *testing.T) {
	t.Parallel()

	broadcasts := newFakeBroadcastRepo(draft(model.TargetingAll))
	svc := newTestService(broadcasts, testPage(), &fakeSubscriberRepo{}, &fakeMessageRepo{}, newRecordingSender())

	_, err := svc.Get(context.Background(), "outra-conta", "bc-1")
	require.ErrorIs(t, err, storage.ErrNotFound)

	b, err := svc.Get(context.Background(), "acc-1", "bc-1")
	require.NoError(t, err)
	require.Equal(t, "bc-1", b.ID)
}
