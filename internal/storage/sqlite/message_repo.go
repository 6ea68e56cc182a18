package sqlite

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/open-pageflow/pageflow/internal/storage/model"
)

type messageRepo struct {
	db *DB
}

func NewMessageRepository(db *DB) *messageRepo {
	return &messageRepo{db: db}
}

func (r *messageRepo) Create(ctx context.Context, message model.Message) (model.Message, error) {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	message.CreatedAt = time.Now()
	if message.Content == nil {
		message.Content = map[string]any{}
	}

	content, err := jsonEncode(message.Content)
	if err != nil {
		return model.Message{}, err
	}

	query := `
		INSERT INTO messages (id, page_id, subscriber_id, sender, message_type, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Conn.ExecContext(ctx, query,
		message.ID, message.PageID, message.SubscriberID,
		string(message.Sender), string(message.Type), content,
		message.CreatedAt.Format(time.RFC3339),
	)

	if err != nil {
		return model.Message{}, err
	}

	return message, nil
}

func (r *messageRepo) ListBySubscriber(ctx context.Context, subscriberID string) ([]model.Message, error) {
	query := `
		SELECT id, page_id, subscriber_id, sender, message_type, COALESCE(content, '{}'), created_at
		FROM messages
		WHERE subscriber_id = ?
		ORDER BY created_at
	`

	rows, err := r.db.Conn.QueryContext(ctx, query, subscriberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		var message model.Message
		var content, createdAt string

		if err := rows.Scan(
			&message.ID, &message.PageID, &message.SubscriberID,
			&message.Sender, &message.Type, &content, &createdAt,
		); err != nil {
			return nil, err
		}

		message.Content = map[string]any{}
		if err := jsonDecode(content, &message.Content); err != nil {
			return nil, err
		}
		message.CreatedAt = parseTime(createdAt)
		messages = append(messages, message)
	}

	return messages, rows.Err()
}

func (r *messageRepo) CountByPage(ctx context.Context, pageID string) (int, error) {
	var count int
	err := r.db.Conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE page_id = ?`, pageID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
