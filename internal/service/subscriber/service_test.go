package subscriber

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/open-pageflow/pageflow/internal/storage"
	"github.com/open-pageflow/pageflow/internal/storage/model"
)

type fakeSubscriberRepo struct {
	subs map[string]model.Subscriber
}

func newFakeSubscriberRepo(subs ...model.Subscriber) *fakeSubscriberRepo {
	repo := &fakeSubscriberRepo{subs: make(map[string]model.Subscriber)}
	for _, s := range subs {
		repo.subs[s.ID] = s
	}
	return repo
}

func (r *fakeSubscriberRepo) Create(_ context.Context, s model.Subscriber) (model.Subscriber, error) {
	r.subs[s.ID] = s
	return s, nil
}

func (r *fakeSubscriberRepo) GetByID(_ context.Context, id string) (model.Subscriber, error) {
	s, ok := r.subs[id]
	if !ok {
		return model.Subscriber{}, storage.ErrNotFound
	}
	return s, nil
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
	return nil, nil
}

func (r *fakeSubscriberRepo) UpdateTags(_ context.Context, id string, tags []string) error {
	s, ok := r.subs[id]
	if !ok {
		return storage.ErrNotFound
	}
	s.Tags = tags
	r.subs[id] = s
	return nil
}

func (r *fakeSubscriberRepo) Touch(_ context.Context, id string, at time.Time) error { return nil }

func (r *fakeSubscriberRepo) CountByAccount(_ context.Context, accountID, pageID string, subscribedOnly bool) (int, error) {
	return len(r.subs), nil
}

func TestUpdateTagsNormalizes(t *testing.T) {
	t.Parallel()

	repo := newFakeSubscriberRepo(model.Subscriber{ID: "s1", AccountID: "acc-1", PageID: "page-1"})
	svc := NewService(repo, zap.NewNop())

	sub, err := svc.UpdateTags(context.Background(), "acc-1", "s1",
		[]string{" vip ", "", "novato", "vip", "  "})
	require.NoError(t, err)
	require.Equal(t, []string{"vip", "novato"}, sub.Tags)

	stored, err := repo.GetByID(context.Background(), "s1")
	require.NoError(t, err)
	require.Equal(t, []string{"vip", "novato"}, stored.Tags)
}

func TestUpdateTagsEmptyListClears(t *testing.T) {
	t.Parallel()

	repo := newFakeSubscriberRepo(model.Subscriber{
		ID: "s1", AccountID: "acc-1", PageID: "page-1", Tags: []string{"vip"},
	})
	svc := NewService(repo, zap.NewNop())

	sub, err := svc.UpdateTags(context.Background(), "acc-1", "s1", nil)
	require.NoError(t, err)
	require.NotNil(t, sub.Tags)
	require.Empty(t, sub.Tags)
}

func TestGetScopedToAccount(t *testing.T) {
	t.Parallel()

	repo := newFakeSubscriberRepo(model.Subscriber{ID: "s1", AccountID: "acc-1", PageID: "page-1"})
	svc := NewService(repo, zap.NewNop())

	_, err := svc.Get(context.Background(), "outra-conta", "s1")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = svc.UpdateTags(context.Background(), "outra-conta", "s1", []string{"vip"})
	require.ErrorIs(t, err, storage.ErrNotFound)
}
