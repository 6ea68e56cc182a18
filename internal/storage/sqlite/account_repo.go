package sqlite

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/open-pageflow/pageflow/internal/storage/model"
)

type accountRepo struct {
	db *DB
}

// NewAccountRepository cria um novo repositório de contas.
func NewAccountRepository(db *DB) *accountRepo {
	return &accountRepo{db: db}
}

func (r *accountRepo) Create(ctx context.Context, account model.Account) (model.Account, error) {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	account.CreatedAt = time.Now()

	query := `
		INSERT INTO accounts (id, email, name, password_hash, facebook_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Conn.ExecContext(ctx, query,
		account.ID, account.Email, account.Name, account.PasswordHash,
		nullIfEmpty(account.FacebookID), account.CreatedAt.Format(time.RFC3339),
	)

	if err != nil {
		return model.Account{}, err
	}

	return account, nil
}

func (r *accountRepo) GetByID(ctx context.Context, id string) (model.Account, error) {
	return r.getBy(ctx, "id = ?", id)
}

func (r *accountRepo) GetByEmail(ctx context.Context, email string) (model.Account, error) {
	return r.getBy(ctx, "email = ?", email)
}

func (r *accountRepo) GetByFacebookID(ctx context.Context, facebookID string) (model.Account, error) {
	return r.getBy(ctx, "facebook_id = ?", facebookID)
}

func (r *accountRepo) getBy(ctx context.Context, where string, arg any) (model.Account, error) {
	query := `
		SELECT id, email, name, password_hash, COALESCE(facebook_id, ''), created_at
		FROM accounts
		WHERE ` + where

	var account model.Account
	var createdAt string

	err := r.db.Conn.QueryRowContext(ctx, query, arg).Scan(
		&account.ID, &account.Email, &account.Name, &account.PasswordHash, &account.FacebookID, &createdAt,
	)
	if err != nil {
		return model.Account{}, mapError(err)
	}

	account.CreatedAt = parseTime(createdAt)
	return account, nil
}
