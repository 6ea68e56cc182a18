package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/open-pageflow/pageflow/internal/storage/model"
)

type automationRepo struct {
	db *DB
}

func NewAutomationRepository(db *DB) *automationRepo {
	return &automationRepo{db: db}
}

const automationColumns = `id, account_id, page_id, name, kind, COALESCE(keyword, ''), COALESCE(flow_id, ''), is_active, created_at`

func (r *automationRepo) Create(ctx context.Context, automation model.Automation) (model.Automation, error) {
	if automation.ID == "" {
		automation.ID = uuid.New().String()
	}
	automation.CreatedAt = time.Now()

	query := `
		INSERT INTO automations (id, account_id, page_id, name, kind, keyword, flow_id, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		automation.ID, automation.AccountID, automation.PageID, automation.Name,
		string(automation.Kind), nullIfEmpty(automation.Keyword), nullIfEmpty(automation.FlowID),
		automation.IsActive, automation.CreatedAt,
	)

	if err != nil {
		return model.Automation{}, err
	}

	return automation, nil
}

func (r *automationRepo) GetByID(ctx context.Context, id string) (model.Automation, error) {
	query := `SELECT ` + automationColumns + ` FROM automations WHERE id = $1`

	var automation model.Automation
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&automation.ID, &automation.AccountID, &automation.PageID, &automation.Name,
		&automation.Kind, &automation.Keyword, &automation.FlowID,
		&automation.IsActive, &automation.CreatedAt,
	)
	if err != nil {
		return model.Automation{}, mapError(err)
	}

	return automation, nil
}

func (r *automationRepo) ListByAccount(ctx context.Context, accountID, pageID string) ([]model.Automation, error) {
	query := `SELECT ` + automationColumns + ` FROM automations WHERE account_id = $1`
	args := []any{accountID}
	if pageID != "" {
		query += ` AND page_id = $2`
		args = append(args, pageID)
	}
	query += ` ORDER BY created_at DESC`

	return r.list(ctx, query, args...)
}

func (r *automationRepo) ListActiveByPage(ctx context.Context, pageID string) ([]model.Automation, error) {
	query := `SELECT ` + automationColumns + ` FROM automations WHERE page_id = $1 AND is_active ORDER BY created_at`
	return r.list(ctx, query, pageID)
}

func (r *automationRepo) list(ctx context.Context, query string, args ...any) ([]model.Automation, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var automations []model.Automation
	for rows.Next() {
		var automation model.Automation
		if err := rows.Scan(
			&automation.ID, &automation.AccountID, &automation.PageID, &automation.Name,
			&automation.Kind, &automation.Keyword, &automation.FlowID,
			&automation.IsActive, &automation.CreatedAt,
		); err != nil {
			return nil, err
		}
		automations = append(automations, automation)
	}

	return automations, rows.Err()
}

func (r *automationRepo) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE automations
		SET is_active = $1
		WHERE id = $2
	`, active, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *automationRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `
		DELETE FROM automations
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
