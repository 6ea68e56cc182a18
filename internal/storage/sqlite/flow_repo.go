package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/open-pageflow/pageflow/internal/storage/model"
)

type flowRepo struct {
	db *DB
}

func NewFlowRepository(db *DB) *flowRepo {
	return &flowRepo{db: db}
}

const flowColumns = `id, account_id, page_id, name, COALESCE(description, ''), COALESCE(steps, '[]'), is_active, created_at, updated_at`

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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Conn.ExecContext(ctx, query,
		flow.ID, flow.AccountID, flow.PageID, flow.Name,
		nullIfEmpty(flow.Description), steps, flow.IsActive,
		flow.CreatedAt.Format(time.RFC3339), flow.UpdatedAt.Format(time.RFC3339),
	)

	if err != nil {
		return model.Flow{}, err
	}

	return flow, nil
}

func (r *flowRepo) GetByID(ctx context.Context, id string) (model.Flow, error) {
	query := `SELECT ` + flowColumns + ` FROM flows WHERE id = ?`

	var flow model.Flow
	var steps, createdAt, updatedAt string

	err := r.db.Conn.QueryRowContext(ctx, query, id).Scan(
		&flow.ID, &flow.AccountID, &flow.PageID, &flow.Name,
		&flow.Description, &steps, &flow.IsActive, &createdAt, &updatedAt,
	)
	if err != nil {
		return model.Flow{}, mapError(err)
	}

	flow.Steps = []model.FlowStep{}
	if err := jsonDecode(steps, &flow.Steps); err != nil {
		return model.Flow{}, err
	}
	flow.CreatedAt = parseTime(createdAt)
	flow.UpdatedAt = parseTime(updatedAt)
	return flow, nil
}

func (r *flowRepo) ListByAccount(ctx context.Context, accountID, pageID string) ([]model.Flow, error) {
	query := `SELECT ` + flowColumns + ` FROM flows WHERE account_id = ?`
	args := []any{accountID}
	if pageID != "" {
		query += ` AND page_id = ?`
		args = append(args, pageID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flows []model.Flow
	for rows.Next() {
		var flow model.Flow
		var steps, createdAt, updatedAt string

		if err := rows.Scan(
			&flow.ID, &flow.AccountID, &flow.PageID, &flow.Name,
			&flow.Description, &steps, &flow.IsActive, &createdAt, &updatedAt,
		); err != nil {
			return nil, err
		}

		flow.Steps = []model.FlowStep{}
		if err := jsonDecode(steps, &flow.Steps); err != nil {
			return nil, err
		}
		flow.CreatedAt = parseTime(createdAt)
		flow.UpdatedAt = parseTime(updatedAt)
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

	result, err := r.db.Conn.ExecContext(ctx, `
		UPDATE flows
		SET name = ?, description = ?, steps = ?, is_active = ?, updated_at = ?
		WHERE id = ?
	`, flow.Name, nullIfEmpty(flow.Description), steps, flow.IsActive, flow.UpdatedAt.Format(time.RFC3339), flow.ID)
	if err != nil {
		return model.Flow{}, err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return model.Flow{}, mapError(sql.ErrNoRows)
	}
	return flow, nil
}

func (r *flowRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.Conn.ExecContext(ctx, `
		DELETE FROM flows
		WHERE id = ?
	`, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return mapError(sql.ErrNoRows)
	}
	return nil
}

func (r *flowRepo) CountByAccount(ctx context.Context, accountID, pageID string) (int, error) {
	query := `SELECT COUNT(*) FROM flows WHERE account_id = ?`
	args := []any{accountID}
	if pageID != "" {
		query += ` AND page_id = ?`
		args = append(args, pageID)
	}

	var count int
	if err := r.db.Conn.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
