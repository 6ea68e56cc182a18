package postgres

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
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		account.ID, account.Email, account.Name, account.PasswordHash,
		nullIfEmpty(account.FacebookID), account.CreatedAt,
	)

	if err != nil {
		return model.Account{}, err
	}

	return account, nil
}

func (r *accountRepo) GetByID(ctx context.Context, id string) (model.Account, error) {
	return r.getBy(ctx, "id = $1", id)
}

func (r *accountRepo) GetByEmail(ctx context.Context, email string) (model.Account, error) {
	return r.getBy(ctx, "email = $1", email)
}

func (r *accountRepo) GetByFacebookID(ctx context.Context, facebookID string) (model.Account, error) {
	return r.getBy(ctx, "facebook_id = $1", facebookID)
}

func (r *accountRepo) getBy(ctx context.Context, where string, arg any) (model.Account, error) {
	query := `
		SELECT id, email, name, password_hash, COALESCE(facebook_id, ''), created_at
		FROM accounts
		WHERE ` + where

	var account model.Account
	err := r.db.Pool.QueryRow(ctx, query, arg).Scan(
		&account.ID, &account.Email, &account.Name, &account.PasswordHash,
		&account.FacebookID, &account.CreatedAt,
	)
	if err != nil {
		return model.Account{}, mapError(err)
	}

	return account, nil
}
