package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/open-pageflow/pageflow/internal/storage/model"
)

type broadcastRepo struct {
	db *DB
}

func NewBroadcastRepository(db *DB) *broadcastRepo {
	return &broadcastRepo{db: db}
}

const broadcastColumns = `id, account_id, page_id, name, COALESCE(message, '{}'::jsonb), targeting, COALESCE(target_tags, '[]'::jsonb), status, sent_at, total_recipients, sent_count, delivered_count, created_at`

func (r *broadcastRepo) Create(ctx context.Context, broadcast model.Broadcast) (model.Broadcast, error) {
	if broadcast.ID == "" {
		broadcast.ID = uuid.New().String()
	}
	broadcast.CreatedAt = time.Now()
	if broadcast.TargetTags == nil {
		broadcast.TargetTags = []string{}
	}

	message, err := jsonEncode(broadcast.Message)
	if err != nil {
		return model.Broadcast{}, err
	}
	targetTags, err := jsonEncode(broadcast.TargetTags)
	if err != nil {
		return model.Broadcast{}, err
	}

	query := `
		INSERT INTO broadcasts (id, account_id, page_id, name, message, targeting, target_tags, status, sent_at, total_recipients, sent_count, delivered_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULL, $9, $10, $11, $12)
	`

	_, err = r.db.Pool.Exec(ctx, query,
		broadcast.ID, broadcast.AccountID, broadcast.PageID, broadcast.Name,
		message, string(broadcast.Targeting), targetTags, string(broadcast.Status),
		broadcast.TotalRecipients, broadcast.SentCount, broadcast.DeliveredCount,
		broadcast.CreatedAt,
	)

	if err != nil {
		return model.Broadcast{}, err
	}

	return broadcast, nil
}

func (r *broadcastRepo) GetByID(ctx context.Context, id string) (model.Broadcast, error) {
	query := `SELECT ` + broadcastColumns + ` FROM broadcasts WHERE id = $1`
	return scanBroadcast(r.db.Pool.QueryRow(ctx, query, id))
}

func scanBroadcast(row pgx.Row) (model.Broadcast, error) {
	var broadcast model.Broadcast
	var message, targetTags []byte

	err := row.Scan(
		&broadcast.ID, &broadcast.AccountID, &broadcast.PageID, &broadcast.Name,
		&message, &broadcast.Targeting, &targetTags, &broadcast.Status, &broadcast.SentAt,
		&broadcast.TotalRecipients, &broadcast.SentCount, &broadcast.DeliveredCount, &broadcast.CreatedAt,
	)
	if err != nil {
		return model.Broadcast{}, mapError(err)
	}

	if err := jsonDecode(message, &broadcast.Message); err != nil {
		return model.Broadcast{}, err
	}
	broadcast.TargetTags = []string{}
	if err := jsonDecode(targetTags, &broadcast.TargetTags); err != nil {
		return model.Broadcast{}, err
	}
	return broadcast, nil
}

func (r *broadcastRepo) ListByAccount(ctx context.Context, accountID, pageID string) ([]model.Broadcast, error) {
	query := `SELECT ` + broadcastColumns + ` FROM broadcasts WHERE account_id = $1`
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

	var broadcasts []model.Broadcast
	for rows.Next() {
		broadcast, err := scanBroadcast(rows)
		if err != nil {
			return nil, err
		}
		broadcasts = append(broadcasts, broadcast)
	}

	return broadcasts, rows.Err()
}

func (r *broadcastRepo) MarkSent(ctx context.Context, id string, total, sent, delivered int, sentAt time.Time) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE broadcasts
		SET status = $1, sent_at = $2, total_recipients = $3, sent_count = $4, delivered_count = $5
		WHERE id = $6
	`, string(model.BroadcastStatusSent), sentAt, total, sent, delivered, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *broadcastRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `
		DELETE FROM broadcasts
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

func (r *broadcastRepo) CountByAccount(ctx context.Context, accountID, pageID string) (int, error) {
	query := `SELECT COUNT(*) FROM broadcasts WHERE account_id = $1`
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
