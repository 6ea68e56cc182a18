package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/open-pageflow/pageflow/internal/storage/model"
)

type broadcastRepo struct {
	db *DB
}

func NewBroadcastRepository(db *DB) *broadcastRepo {
	return &broadcastRepo{db: db}
}

const broadcastColumns = `id, account_id, page_id, name, COALESCE(message, '{}'), targeting, COALESCE(target_tags, '[]'), status, sent_at, total_recipients, sent_count, delivered_count, created_at`

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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL, ?, ?, ?, ?)
	`

	_, err = r.db.Conn.ExecContext(ctx, query,
		broadcast.ID, broadcast.AccountID, broadcast.PageID, broadcast.Name,
		message, string(broadcast.Targeting), targetTags, string(broadcast.Status),
		broadcast.TotalRecipients, broadcast.SentCount, broadcast.DeliveredCount,
		broadcast.CreatedAt.Format(time.RFC3339),
	)

	if err != nil {
		return model.Broadcast{}, err
	}

	return broadcast, nil
}

func (r *broadcastRepo) GetByID(ctx context.Context, id string) (model.Broadcast, error) {
	query := `SELECT ` + broadcastColumns + ` FROM broadcasts WHERE id = ?`

	row := r.db.Conn.QueryRowContext(ctx, query, id)
	broadcast, err := scanBroadcast(row.Scan)
	if err != nil {
		return model.Broadcast{}, mapError(err)
	}
	return broadcast, nil
}

func (r *broadcastRepo) ListByAccount(ctx context.Context, accountID, pageID string) ([]model.Broadcast, error) {
	query := `SELECT ` + broadcastColumns + ` FROM broadcasts WHERE account_id = ?`
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

	var broadcasts []model.Broadcast
	for rows.Next() {
		broadcast, err := scanBroadcast(rows.Scan)
		if err != nil {
			return nil, err
		}
		broadcasts = append(broadcasts, broadcast)
	}

	return broadcasts, rows.Err()
}

func scanBroadcast(scan func(dest ...any) error) (model.Broadcast, error) {
	var broadcast model.Broadcast
	var message, targetTags, createdAt string
	var sentAt sql.NullString

	if err := scan(
		&broadcast.ID, &broadcast.AccountID, &broadcast.PageID, &broadcast.Name,
		&message, &broadcast.Targeting, &targetTags, &broadcast.Status, &sentAt,
		&broadcast.TotalRecipients, &broadcast.SentCount, &broadcast.DeliveredCount, &createdAt,
	); err != nil {
		return model.Broadcast{}, err
	}

	if err := jsonDecode(message, &broadcast.Message); err != nil {
		return model.Broadcast{}, err
	}
	broadcast.TargetTags = []string{}
	if err := jsonDecode(targetTags, &broadcast.TargetTags); err != nil {
		return model.Broadcast{}, err
	}
	if sentAt.Valid {
		broadcast.SentAt = parseTimePtr(sentAt.String)
	}
	broadcast.CreatedAt = parseTime(createdAt)
	return broadcast, nil
}

func (r *broadcastRepo) MarkSent(ctx context.Context, id string, total, sent, delivered int, sentAt time.Time) error {
	result, err := r.db.Conn.ExecContext(ctx, `
		UPDATE broadcasts
		SET status = ?, sent_at = ?, total_recipients = ?, sent_count = ?, delivered_count = ?
		WHERE id = ?
	`, string(model.BroadcastStatusSent), sentAt.Format(time.RFC3339), total, sent, delivered, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return mapError(sql.ErrNoRows)
	}
	return nil
}

func (r *broadcastRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.Conn.ExecContext(ctx, `
		DELETE FROM broadcasts
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

func (r *broadcastRepo) CountByAccount(ctx context.Context, accountID, pageID string) (int, error) {
	query := `SELECT COUNT(*) FROM broadcasts WHERE account_id = ?`
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
