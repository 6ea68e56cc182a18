package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/open-pageflow/pageflow/internal/storage/model"
)

type subscriberRepo struct {
	db *DB
}

func NewSubscriberRepository(db *DB) *subscriberRepo {
	return &subscriberRepo{db: db}
}

const subscriberColumns = `id, account_id, page_id, psid, COALESCE(first_name, ''), COALESCE(last_name, ''), COALESCE(profile_pic, ''), COALESCE(tags, '[]'::jsonb), subscribed, last_interaction, created_at`

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
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = r.db.Pool.Exec(ctx, query,
		sub.ID, sub.AccountID, sub.PageID, sub.PSID,
		nullIfEmpty(sub.FirstName), nullIfEmpty(sub.LastName), nullIfEmpty(sub.ProfilePic),
		tags, sub.Subscribed, sub.LastInteraction, sub.CreatedAt,
	)

	if err != nil {
		return model.Subscriber{}, err
	}

	return sub, nil
}

func (r *subscriberRepo) GetByID(ctx context.Context, id string) (model.Subscriber, error) {
	query := `SELECT ` + subscriberColumns + ` FROM subscribers WHERE id = $1`
	return scanSubscriber(r.db.Pool.QueryRow(ctx, query, id))
}

func (r *subscriberRepo) GetByPSID(ctx context.Context, pageID, psid string) (model.Subscriber, error) {
	query := `SELECT ` + subscriberColumns + ` FROM subscribers WHERE page_id = $1 AND psid = $2`
	return scanSubscriber(r.db.Pool.QueryRow(ctx, query, pageID, psid))
}

func scanSubscriber(row pgx.Row) (model.Subscriber, error) {
	var sub model.Subscriber
	var tags []byte

	err := row.Scan(
		&sub.ID, &sub.AccountID, &sub.PageID, &sub.PSID,
		&sub.FirstName, &sub.LastName, &sub.ProfilePic,
		&tags, &sub.Subscribed, &sub.LastInteraction, &sub.CreatedAt,
	)
	if err != nil {
		return model.Subscriber{}, mapError(err)
	}

	sub.Tags = []string{}
	if err := jsonDecode(tags, &sub.Tags); err != nil {
		return model.Subscriber{}, err
	}
	return sub, nil
}

func (r *subscriberRepo) ListByAccount(ctx context.Context, accountID, pageID string) ([]model.Subscriber, error) {
	query := `SELECT ` + subscriberColumns + ` FROM subscribers WHERE account_id = $1`
	args := []any{accountID}
	if pageID != "" {
		query += ` AND page_id = $2`
		args = append(args, pageID)
	}
	query += ` ORDER BY created_at DESC`

	return r.list(ctx, query, args...)
}

func (r *subscriberRepo) ListSubscribed(ctx context.Context, pageID string) ([]model.Subscriber, error) {
	query := `SELECT ` + subscriberColumns + ` FROM subscribers WHERE page_id = $1 AND subscribed ORDER BY created_at`
	return r.list(ctx, query, pageID)
}

func (r *subscriberRepo) list(ctx context.Context, query string, args ...any) ([]model.Subscriber, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []model.Subscriber
	for rows.Next() {
		sub, err := scanSubscriber(rows)
		if err != nil {
			return nil, err
		}
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

	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE subscribers
		SET tags = $1
		WHERE id = $2
	`, encoded, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *subscriberRepo) Touch(ctx context.Context, id string, at time.Time) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE subscribers
		SET last_interaction = $1
		WHERE id = $2
	`, at, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *subscriberRepo) CountByAccount(ctx context.Context, accountID, pageID string, subscribedOnly bool) (int, error) {
	query := `SELECT COUNT(*) FROM subscribers WHERE account_id = $1`
	args := []any{accountID}
	if pageID != "" {
		query += ` AND page_id = $2`
		args = append(args, pageID)
	}
	if subscribedOnly {
		query += ` AND subscribed`
	}

	var count int
	if err := r.db.Pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
