package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/open-pageflow/pageflow/internal/storage/model"
)

type subscriberRepo struct {
	db *DB
}

func NewSubscriberRepository(db *DB) *subscriberRepo {
	return &subscriberRepo{db: db}
}

const subscriberColumns = `id, account_id, page_id, psid, COALESCE(first_name, ''), COALESCE(last_name, ''), COALESCE(profile_pic, ''), COALESCE(tags, '[]'), subscribed, last_interaction, created_at`

func (r *subscriberRepo) Create(ctx context.Context, sub model.Subscriber) (model.Subscriber, error) {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	now := time.Now()
	sub.CreatedAt = now
	if sub.LastInteraction.IsZero() {
		sub.LastInteraction = now
	}
	if sub.Tags == nil {
		sub.Tags = []string{}
	}

	tags, err := jsonEncode(sub.Tags)
	if err != nil {
		return model.Subscriber{}, err
	}

	query := `
		INSERT INTO subscribers (id, account_id, page_id, psid, first_name, last_name, profile_pic, tags, subscribed, last_interaction, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Conn.ExecContext(ctx, query,
		sub.ID, sub.AccountID, sub.PageID, sub.PSID,
		nullIfEmpty(sub.FirstName), nullIfEmpty(sub.LastName), nullIfEmpty(sub.ProfilePic),
		tags, sub.Subscribed,
		sub.LastInteraction.Format(time.RFC3339), sub.CreatedAt.Format(time.RFC3339),
	)

	if err != nil {
		return model.Subscriber{}, err
	}

	return sub, nil
}

func (r *subscriberRepo) GetByID(ctx context.Context, id string) (model.Subscriber, error) {
	query := `SELECT ` + subscriberColumns + ` FROM subscribers WHERE id = ?`
	return r.scanOne(r.db.Conn.QueryRowContext(ctx, query, id))
}

func (r *subscriberRepo) GetByPSID(ctx context.Context, pageID, psid string) (model.Subscriber, error) {
	query := `SELECT ` + subscriberColumns + ` FROM subscribers WHERE page_id = ? AND psid = ?`
	return r.scanOne(r.db.Conn.QueryRowContext(ctx, query, pageID, psid))
}

func (r *subscriberRepo) scanOne(row *sql.Row) (model.Subscriber, error) {
	var sub model.Subscriber
	var tags, lastInteraction, createdAt string

	err := row.Scan(
		&sub.ID, &sub.AccountID, &sub.PageID, &sub.PSID,
		&sub.FirstName, &sub.LastName, &sub.ProfilePic,
		&tags, &sub.Subscribed, &lastInteraction, &createdAt,
	)
	if err != nil {
		return model.Subscriber{}, mapError(err)
	}

	sub.Tags = []string{}
	if err := jsonDecode(tags, &sub.Tags); err != nil {
		return model.Subscriber{}, err
	}
	sub.LastInteraction = parseTime(lastInteraction)
	sub.CreatedAt = parseTime(createdAt)
	return sub, nil
}

func (r *subscriberRepo) ListByAccount(ctx context.Context, accountID, pageID string) ([]model.Subscriber, error) {
	query := `SELECT ` + subscriberColumns + ` FROM subscribers WHERE account_id = ?`
	args := []any{accountID}
	if pageID != "" {
		query += ` AND page_id = ?`
		args = append(args, pageID)
	}
	query += ` ORDER BY created_at DESC`

	return r.list(ctx, query, args...)
}

func (r *subscriberRepo) ListSubscribed(ctx context.Context, pageID string) ([]model.Subscriber, error) {
	query := `SELECT ` + subscriberColumns + ` FROM subscribers WHERE page_id = ? AND subscribed = 1 ORDER BY created_at`
	return r.list(ctx, query, pageID)
}

func (r *subscriberRepo) list(ctx context.Context, query string, args ...any) ([]model.Subscriber, error) {
	rows, err := r.db.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []model.Subscriber
	for rows.Next() {
		var sub model.Subscriber
		var tags, lastInteraction, createdAt string

		if err := rows.Scan(
			&sub.ID, &sub.AccountID, &sub.PageID, &sub.PSID,
			&sub.FirstName, &sub.LastName, &sub.ProfilePic,
			&tags, &sub.Subscribed, &lastInteraction, &createdAt,
		); err != nil {
			return nil, err
		}

		sub.Tags = []string{}
		if err := jsonDecode(tags, &sub.Tags); err != nil {
			return nil, err
		}
		sub.LastInteraction = parseTime(lastInteraction)
		sub.CreatedAt = parseTime(createdAt)
		subs = append(subs, sub)
	}

	return subs, rows.Err()
}

func (r *subscriberRepo) UpdateTags(ctx context.Context, id string, tags []string) error {
	if tags == nil {
		tags = []string{}
	}
	encoded, err := jsonEncode(tags)
	if err != nil {
		return err
	}

	result, err := r.db.Conn.ExecContext(ctx, `
		UPDATE subscribers
		SET tags = ?
		WHERE id = ?
	`, encoded, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return mapError(sql.ErrNoRows)
	}
	return nil
}

func (r *subscriberRepo) Touch(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.Conn.ExecContext(ctx, `
		UPDATE subscribers
		SET last_interaction = ?
		WHERE id = ?
	`, at.Format(time.RFC3339), id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return mapError(sql.ErrNoRows)
	}
	return nil
}

func (r *subscriberRepo) CountByAccount(ctx context.Context, accountID, pageID string, subscribedOnly bool) (int, error) {
	query := `SELECT COUNT(*) FROM subscribers WHERE account_id = ?`
	args := []any{accountID}
	if pageID != "" {
		query += ` AND page_id = ?`
		args = append(args, pageID)
	}
	if subscribedOnly {
		query += ` AND subscribed = 1`
	}

	var count int
	if err := r.db.Conn.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
