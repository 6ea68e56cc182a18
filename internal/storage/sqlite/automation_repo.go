package sqlite

import (
	"context"
	"database/sql"
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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Conn.ExecContext(ctx, query,
		automation.ID, automation.AccountID, automation.PageID, automation.Name,
		string(automation.Kind), nullIfEmpty(automation.Keyword), nullIfEmpty(automation.FlowID),
		automation.IsActive, automation.CreatedAt.Format(time.RFC3339),
	)

	if err != nil {
		return model.Automation{}, err
	}

	return automation, nil
}

func (r *automationRepo) GetByID(ctx context.Context, id string) (model.Automation, error) {
	query := `SELECT ` + automationColumns + ` FROM automations WHERE id = ?`

	var automation model.Automation
	var createdAt string

	err := r.db.Conn.QueryRowContext(ctx, query, id).Scan(
		&automation.ID, &automation.AccountID, &automation.PageID, &automation.Name,
		&automation.Kind, &automation.Keyword, &automation.FlowID,
		&automation.IsActive, &createdAt,
	)
	if err != nil {
		return model.Automation{}, mapError(err)
	}

	automation.CreatedAt = parseTime(createdAt)
	return automation, nil
}

func (r *automationRepo) ListByAccount(ctx context.Context, accountID, pageID string) ([]model.Automation, error) {
	query := `SELECT ` + automationColumns + ` FROM automations WHERE account_id = ?`
	args := []any{accountID}
	if pageID != "" {
		query += ` AND page_id = ?`
		args = append(args, pageID)
	}
	query += ` ORDER BY created_at DESC`

	return r.list(ctx, query, args...)
}

func (r *automationRepo) ListActiveByPage(ctx context.Context, pageID string) ([]model.Automation, error) {
	query := `SELECT ` + automationColumns + ` FROM automations WHERE page_id = ? AND is_active = 1 ORDER BY created_at`
	return r.list(ctx, query, pageID)
}

func (r *automationRepo) list(ctx context.Context, query string, args ...any) ([]model.Automation, error) {
	rows, err := r.db.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var automations []model.Automation
	for rows.Next() {
		var automation model.Automation
		var createdAt string

		if err := rows.Scan(
			&automation.ID, &automation.AccountID, &automation.PageID, &automation.Name,
			&automation.Kind, &automation.Keyword, &automation.FlowID,
			&automation.IsActive, &createdAt,
		); err != nil {
			return nil, err
		}

		automation.CreatedAt = parseTime(createdAt)
		automations = append(automations, automation)
	}

	return automations, rows.Err()
}

func (r *automationRepo) SetActive(ctx context.Context, id string, active bool) error {
	result, err := r.db.Conn.ExecContext(ctx, `
		UPDATE automations
		SET is_active = ?
		WHERE id = ?
	`, active, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return mapError(sql.ErrNoRows)
	}
	return nil
}

func (r *automationRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.Conn.ExecContext(ctx, `
		DELETE FROM automations
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
