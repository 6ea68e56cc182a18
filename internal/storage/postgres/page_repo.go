package postgres

import (
	"context"
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
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		page.ID, page.AccountID, page.PlatformID, page.Name,
		nullIfEmpty(page.Avatar), nullIfEmpty(page.AccessToken),
		page.Connected, page.CreatedAt,
	)

	if err != nil {
		return model.Page{}, err
	}

	return page, nil
}

func (r *pageRepo) GetByID(ctx context.Context, id string) (model.Page, error) {
	return r.getBy(ctx, "id = $1", id)
}

func (r *pageRepo) GetByPlatformID(ctx context.Context, platformID string) (model.Page, error) {
	return r.getBy(ctx, "platform_id = $1", platformID)
}

func (r *pageRepo) getBy(ctx context.Context, where string, arg any) (model.Page, error) {
	query := `SELECT ` + pageColumns + ` FROM pages WHERE ` + where

	var page model.Page
	err := r.db.Pool.QueryRow(ctx, query, arg).Scan(
		&page.ID, &page.AccountID, &page.PlatformID, &page.Name,
		&page.Avatar, &page.AccessToken, &page.Connected, &page.CreatedAt,
	)
	if err != nil {
		return model.Page{}, mapError(err)
	}

	return page, nil
}

func (r *pageRepo) ListByAccount(ctx context.Context, accountID string) ([]model.Page, error) {
	query := `
		SELECT ` + pageColumns + `
		FROM pages
		WHERE account_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []model.Page
	for rows.Next() {
		var page model.Page
		if err := rows.Scan(
			&page.ID, &page.AccountID, &page.PlatformID, &page.Name,
			&page.Avatar, &page.AccessToken, &page.Connected, &page.CreatedAt,
		); err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}

	return pages, rows.Err()
}

func (r *pageRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `
		DELETE FROM pages
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
