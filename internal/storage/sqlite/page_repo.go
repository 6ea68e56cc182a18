package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/open-pageflow/pageflow/internal/storage/model"
)

type pageRepo struct {
	db *DB
}

func NewPageRepository(db *DB) *pageRepo {
	return &pageRepo{db: db}
}

const pageColumns = `id, account_id, platform_id, name, COALESCE(avatar, ''), COALESCE(access_token, ''), connected, created_at`

func (r *pageRepo) Create(ctx context.Context, page model.Page) (model.Page, error) {
	if page.ID == "" {
		page.ID = uuid.New().String()
	}
	page.CreatedAt = time.Now()

	query := `
		INSERT INTO pages (id, account_id, platform_id, name, avatar, access_token, connected, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Conn.ExecContext(ctx, query,
		page.ID, page.AccountID, page.PlatformID, page.Name,
		nullIfEmpty(page.Avatar), nullIfEmpty(page.AccessToken),
		page.Connected, page.CreatedAt.Format(time.RFC3339),
	)

	if err != nil {
		return model.Page{}, err
	}

	return page, nil
}

func (r *pageRepo) GetByID(ctx context.Context, id string) (model.Page, error) {
	return r.getBy(ctx, "id = ?", id)
}

func (r *pageRepo) GetByPlatformID(ctx context.Context, platformID string) (model.Page, error) {
	return r.getBy(ctx, "platform_id = ?", platformID)
}

func (r *pageRepo) getBy(ctx context.Context, where string, arg any) (model.Page, error) {
	query := `SELECT ` + pageColumns + ` FROM pages WHERE ` + where

	var page model.Page
	var createdAt string

	err := r.db.Conn.QueryRowContext(ctx, query, arg).Scan(
		&page.ID, &page.AccountID, &page.PlatformID, &page.Name,
		&page.Avatar, &page.AccessToken, &page.Connected, &createdAt,
	)
	if err != nil {
		return model.Page{}, mapError(err)
	}

	page.CreatedAt = parseTime(createdAt)
	return page, nil
}

func (r *pageRepo) ListByAccount(ctx context.Context, accountID string) ([]model.Page, error) {
	query := `
		SELECT ` + pageColumns + `
		FROM pages
		WHERE account_id = ?
		ORDER BY created_at DESC
	`

	rows, err := r.db.Conn.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []model.Page
	for rows.Next() {
		var page model.Page
		var createdAt string

		if err := rows.Scan(
			&page.ID, &page.AccountID, &page.PlatformID, &page.Name,
			&page.Avatar, &page.AccessToken, &page.Connected, &createdAt,
		); err != nil {
			return nil, err
		}

		page.CreatedAt = parseTime(createdAt)
		pages = append(pages, page)
	}

	return pages, rows.Err()
}

func (r *pageRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.Conn.ExecContext(ctx, `
		DELETE FROM pages
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
