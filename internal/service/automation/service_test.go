package automation

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/open-pageflow/pageflow/internal/storage"
	"github.com/open-pageflow/pageflow/internal/storage/model"
)

type fakeAutomationRepo struct {
	automations map[string]model.Automation
}

func newFakeAutomationRepo(automations ...model.Automation) *fakeAutomationRepo {
	repo := &fakeAutomationRepo{automations: make(map[string]model.Automation)}
	for _, a := range automations {
		repo.automations[a.ID] = a
	}
	return repo
}

func (r *fakeAutomationRepo) Create(_ context.Context, a model.Automation) (model.Automation, error) {
	a.ID = uuid.NewString()
	r.automations[a.ID] = a
	return a, nil
}

func (r *fakeAutomationRepo) GetByID(_ context.Context, id string) (model.Automation, error) {
	a, ok := r.automations[id]
	if !ok {
		return model.Automation{}, storage.ErrNotFound
	}
	return a, nil
}

func (r *fakeAutomationRepo) ListByAccount(_ context.Context, accountID, pageID string) ([]model.Automation, error) {
	out := []model.Automation{}
	for _, a := range r.automations {
		if a.AccountID == accountID && (pageID == "" || a.PageID == pageID) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAutomationRepo) ListActiveByPage(_ context.Context, pageID string) ([]model.Automation, error) {
	out := []model.Automation{}
	for _, a := range r.automations {
		if a.PageID == pageID && a.IsActive {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAutomationRepo) SetActive(_ context.Context, id string, active bool) error {
	a, ok := r.automations[id]
	if !ok {
		return storage.ErrNotFound
	}
	a.IsActive = active
	r.automations[id] = a
	return nil
}

func (r *fakeAutomationRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.automations[id]; !ok {
		return storage.ErrNotFound
	}
	delete(r.automations, id)
	return nil
}

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

func newTestService(automations *fakeAutomationRepo, flows map[string]model.Flow) *Service {
	if flows == nil {
		flows = map[string]model.Flow{}
	}
	return NewService(automations, &fakeFlowRepo{flows: flows}, zap.NewNop())
}

func TestCreateKeywordAutomation(t *testing.T) {
	t.Parallel()

	svc := newTestService(newFakeAutomationRepo(), map[string]model.Flow{
		"f1": {ID: "f1", AccountID: "acc-1"},
	})

	a, err := svc.Create(context.Background(), "acc-1", Input{
		PageID:   "page-1",
		Name:     "responder preço",
		Kind:     model.AutomationKeyword,
		Keyword:  "  Preço  ",
		FlowID:   "f1",
		IsActive: true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, a.ID)
	require.Equal(t, "Preço", a.Keyword, "a keyword é guardada sem espaços nas pontas")
}

func TestCreateRejectsUnknownKind(t *testing.T) {
	t.Parallel()

	svc := newTestService(newFakeAutomationRepo(), nil)

	_, err := svc.Create(context.Background(), "acc-1", Input{Kind: "story_reply"})
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestCreateKeywordRequiresKeyword(t *testing.T) {
	t.Parallel()

	svc := newTestService(newFakeAutomationRepo(), nil)

	_, err := svc.Create(context.Background(), "acc-1", Input{
		Kind:    model.AutomationKeyword,
		Keyword: "   ",
	})
	require.ErrorIs(t, err, ErrKeywordRequired)
}

func TestCreateWelcomeWithoutKeyword(t *testing.T) {
	t.Parallel()

	svc := newTestService(newFakeAutomationRepo(), nil)

	a, err := svc.Create(context.Background(), "acc-1", Input{
		Kind: model.AutomationWelcomeMessage,
		Name: "boas-vindas",
	})
	require.NoError(t, err)
	require.Empty(t, a.Keyword)
}

func TestCreateRejectsFlowFromOtherAccount(t *testing.T) {
	t.Parallel()

	svc := newTestService(newFakeAutomationRepo(), map[string]model.Flow{
		"f1": {ID: "f1", AccountID: "outra-conta"},
	})

	_, err := svc.Create(context.Background(), "acc-1", Input{
		Kind:    model.AutomationKeyword,
		Keyword: "oi",
		FlowID:  "f1",
	})
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestToggleFlipsActive(t *testing.T) {
	t.Parallel()

	repo := newFakeAutomationRepo(model.Automation{
		ID: "a1", AccountID: "acc-1", PageID: "page-1", Kind: model.AutomationKeyword, Keyword: "oi", IsActive: true,
	})
	svc := newTestService(repo, nil)

	a, err := svc.Toggle(context.Background(), "acc-1", "a1")
	require.NoError(t, err)
	require.False(t, a.IsActive)

	a, err = svc.Toggle(context.Background(), "acc-1", "a1")
	require.NoError(t, err)
	require.True(t, a.IsActive)
}

func TestToggleScopedToAccount(t *testing.T) {
	t.Parallel()

	repo := newFakeAutomationRepo(model.Automation{ID: "a1", AccountID: "acc-1", Kind: model.AutomationKeyword, Keyword: "oi"})
	svc := newTestService(repo, nil)

	_, err := svc.Toggle(context.Background(), "outra-conta", "a1")
	require.ErrorIs(t, err, storage.ErrNotFound)
}
