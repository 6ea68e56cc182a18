package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/open-pageflow/pageflow/internal/storage/model"
)

type flowRepo struct {
	db *DB
}

func NewFlowRepository(db *DB) *flowRepo {
	return &flowRepo{db: db}
}

const flowColumns = `id, account_id, page_id, name, COALESCE(description, ''), COALESCE(steps, '[]'::jsonb), is_active, created_at, updated_at`

func (r *flowRepo) Create(ctx context.Context, flow model.Flow) (model.Flow, error) {
	if flow.ID == "" {
		flow.ID = uuid.New().String()
	}
	now := time.Now()
	flow.CreatedAt = now
	flow.UpdatedAt = now
	if flow.Steps == nil {
		flow.Steps = []model.FlowStep{}
	}

	steps, err := jsonEncode(flow.Steps)
	if err != nil {
		return model.Flow{}, err
	}

	query := `
		INSERT INTO flows (id, account_id, page_id, name, description, steps, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.db.Pool.Exec(ctx, query,
		flow.ID, flow.AccountID, flow.PageID, flow.Name,
		nullIfEmpty(flow.Description), steps, flow.IsActive,
		flow.CreatedAt, flow.UpdatedAt,
	)

	if err != nil {
		return model.Flow{}, err
	}

	return flow, nil
}

func (r *flowRepo) GetByID(ctx context.Context, id string) (model.Flow, error) {
	query := `SELECT ` + flowColumns + ` FROM flows WHERE id = $1`
	return scanFlow(r.db.Pool.QueryRow(ctx, query, id))
}

func scanFlow(row pgx.Row) (model.Flow, error) {
	var flow model.Flow
	var steps []byte

	err := row.Scan(
		&flow.ID, &flow.AccountID, &flow.PageID, &flow.Name,
		&flow.Description, &steps, &flow.IsActive, &flow.CreatedAt, &flow.UpdatedAt,
	)
	if err != nil {
		return model.Flow{}, mapError(err)
	}

	flow.Steps = []model.FlowStep{}
	if err := jsonDecode(steps, &flow.Steps); err != nil {
		return model.Flow{}, err
	}
	return flow, nil
}

func (r *flowRepo) ListByAccount(ctx context.Context, accountID, pageID string) ([]model.Flow, error) {
	query := `SELECT ` + flowColumns + ` FROM flows WHERE account_id = $1`
	args := []any{accountID}
	if pageID != "" {
		query += ` AND page_id = $2`
		args = append(args, pageID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flows []model.Flow
	for rows.Next() {
		flow, err := scanFlow(rows)
		if err != nil {
			return nil, err
		}
		flows = append(flows, flow)
	}

	return flows, rows.Err()
}

func (r *flowRepo) Update(ctx context.Context, flow model.Flow) (model.Flow, error) {
	flow.UpdatedAt = time.Now()
	if flow.Steps == nil {
		flow.Steps = []model.FlowStep{}
	}

	steps, err := jsonEncode(flow.Steps)
	if err != nil {
		return model.Flow{}, err
	}

	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE flows
		SET name = $1, description = $2, steps = $3, is_active = $4, updated_at = $5
		WHERE id = $6
	`, flow.Name, nullIfEmpty(flow.Description), steps, flow.IsActive, flow.UpdatedAt, flow.ID)
	if err != nil {
		return model.Flow{}, err
	}
	if tag.RowsAffected() == 0 {
		return model.Flow{}, model.ErrNotFound
	}
	return flow, nil
}

func (r *flowRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `
		DELETE FROM flows
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *flowRepo) CountByAccount(ctx context.Context, accountID, pageID string) (int, error) {
	query := `SELECT COUNT(*) FROM flows WHERE account_id = $1`
	args := []any{accountID}
	if pageID != "" {
		query += ` AND page_id = $2`
		args = append(args, pageID)
	}

	var count int
	if err := r.db.Pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
