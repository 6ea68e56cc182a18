package flow

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/open-pageflow/pageflow/internal/storage"
	"github.com/open-pageflow/pageflow/internal/storage/model"
)

type fakeFlowRepo struct {
	flows  map[string]model.Flow
	nextID int
}

func newFakeFlowRepo(flows ...model.Flow) *fakeFlowRepo {
	repo := &fakeFlowRepo{flows: make(map[string]model.Flow)}
	for _, f := range flows {
		repo.flows[f.ID] = f
	}
	return repo
}

func (r *fakeFlowRepo) Create(_ context.Context, f model.Flow) (model.Flow, error) {
	r.nextID++
	f.ID = uuid.NewString()
	r.flows[f.ID] = f
	return f, nil
}

func (r *fakeFlowRepo) GetByID(_ context.Context, id string) (model.Flow, error) {
	f, ok := r.flows[id]
	if !ok {
		return model.Flow{}, storage.ErrNotFound
	}
	return f, nil
}

func (r *fakeFlowRepo) ListByAccount(_ context.Context, accountID, pageID string) ([]model.Flow, error) {
	out := []model.Flow{}
	for _, f := range r.flows {
		if f.AccountID == accountID && (pageID == "" || f.PageID == pageID) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *fakeFlowRepo) Update(_ context.Context, f model.Flow) (model.Flow, error) {
	if _, ok := r.flows[f.ID]; !ok {
		return model.Flow{}, storage.ErrNotFound
	}
	r.flows[f.ID] = f
	return f, nil
}

func (r *fakeFlowRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.flows[id]; !ok {
		return storage.ErrNotFound
	}
	delete(r.flows, id)
	return nil
}

func (r *fakeFlowRepo) CountByAccount(_ context.Context, accountID, pageID string) (int, error) {
	list, _ := r.ListByAccount(context.Background(), accountID, pageID)
	return len(list), nil
}

func TestCreateAssignsStepIDs(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeFlowRepo(), zap.NewNop())

	flow, err := svc.Create(context.Background(), "acc-1", Input{
		PageID: "page-1",
		Name:   "boas-vindas",
		Steps: []model.FlowStep{
			{Type: model.StepMessage, Content: map[string]any{"text": "oi"}},
			{ID: "s2", Type: model.StepDelay, Content: map[string]any{"seconds": float64(3)}},
		},
		IsActive: true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, flow.ID)
	require.Len(t, flow.Steps, 2)
	require.NotEmpty(t, flow.Steps[0].ID, "passo sem id deve receber um")
	require.Equal(t, "s2", flow.Steps[1].ID, "passo com id deve mantê-lo")
}

func TestCreateRejectsMissingName(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeFlowRepo(), zap.NewNop())

	_, err := svc.Create(context.Background(), "acc-1", Input{PageID: "page-1"})
	require.ErrorIs(t, err, ErrNameRequired)
}

func TestCreateRejectsDuplicateStepIDs(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeFlowRepo(), zap.NewNop())

	_, err := svc.Create(context.Background(), "acc-1", Input{
		Name: "fluxo",
		Steps: []model.FlowStep{
			{ID: "s1", Type: model.StepMessage, Content: map[string]any{"text": "a"}},
			{ID: "s1", Type: model.StepMessage, Content: map[string]any{"text": "b"}},
		},
	})
	require.ErrorIs(t, err, ErrDuplicateStepID)
}

func TestCreateRejectsUnknownStepType(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeFlowRepo(), zap.NewNop())

	_, err := svc.Create(context.Background(), "acc-1", Input{
		Name:  "fluxo",
		Steps: []model.FlowStep{{Type: "video"}},
	})
	require.ErrorIs(t, err, ErrUnknownStepType)
}

func TestGetScopedToAccount(t *testing.T) {
	t.Parallel()

	repo := newFakeFlowRepo(model.Flow{ID: "f1", AccountID: "acc-1", Name: "fluxo"})
	svc := NewService(repo, zap.NewNop())

	_, err := svc.Get(context.Background(), "outra-conta", "f1")
	require.ErrorIs(t, err, storage.ErrNotFound)

	flow, err := svc.Get(context.Background(), "acc-1", "f1")
	require.NoError(t, err)
	require.Equal(t, "f1", flow.ID)
}

func TestUpdateReplacesStepsAndKeepsNameWhenOmitted(t *testing.T) {
	t.Parallel()

	repo := newFakeFlowRepo(model.Flow{
		ID: "f1", AccountID: "acc-1", Name: "original",
		Steps: []model.FlowStep{{ID: "s1", Type: model.StepMessage, Content: map[string]any{"text": "velho"}}},
	})
	svc := NewService(repo, zap.NewNop())

	updated, err := svc.Update(context.Background(), "acc-1", "f1", Input{
		Steps: []model.FlowStep{
			{ID: "n1", Type: model.StepMessage, Content: map[string]any{"text": "novo"}},
		},
		IsActive: true,
	})
	require.NoError(t, err)
	require.Equal(t, "original", updated.Name)
	require.True(t, updated.IsActive)
	require.Len(t, updated.Steps, 1)
	require.Equal(t, "n1", updated.Steps[0].ID)
}

func TestDeleteScopedToAccount(t *testing.T) {
	t.Parallel()

	repo := newFakeFlowRepo(model.Flow{ID: "f1", AccountID: "acc-1", Name: "fluxo"})
	svc := NewService(repo, zap.NewNop())

	require.ErrorIs(t, svc.Delete(context.Background(), "outra-conta", "f1"), storage.ErrNotFound)
	require.NoError(t, svc.Delete(context.Background(), "acc-1", "f1"))

	_, err := repo.GetByID(context.Background(), "f1")
	require.ErrorIs(t, err, storage.ErrNotFound)
}
