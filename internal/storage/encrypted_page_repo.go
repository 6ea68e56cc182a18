package storage

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/open-pageflow/pageflow/internal/pkg/crypto"
	"github.com/open-pageflow/pageflow/internal/storage/model"
)

// encryptedPageRepo cifra o access token de página em repouso. O restante da
// aplicação continua lendo e gravando tokens em claro.
type encryptedPageRepo struct {
	inner PageRepository
	key   string
}

func NewEncryptedPageRepository(inner PageRepository, key string) PageRepository {
	return &encryptedPageRepo{inner: inner, key: key}
}

func (r *encryptedPageRepo) Create(ctx context.Context, page model.Page) (model.Page, error) {
	plain := page.AccessToken
	if plain != "" {
		sealed, err := crypto.Encrypt([]byte(plain), r.key)
		if err != nil {
			return model.Page{}, fmt.Errorf("storage: cifrar token: %w", err)
		}
		page.AccessToken = base64.StdEncoding.EncodeToString(sealed)
	}

	created, err := r.inner.Create(ctx, page)
	if err != nil {
		return model.Page{}, err
	}
	created.AccessToken = plain
	return created, nil
}

func (r *encryptedPageRepo) GetByID(ctx context.Context, id string) (model.Page, error) {
	page, err := r.inner.GetByID(ctx, id)
	if err != nil {
		return model.Page{}, err
	}
	return r.open(page)
}

func (r *encryptedPageRepo) GetByPlatformID(ctx context.Context, platformID string) (model.Page, error) {
	page, err := r.inner.GetByPlatformID(ctx, platformID)
	if err != nil {
		return model.Page{}, err
	}
	return r.open(page)
}

func (r *encryptedPageRepo) ListByAccount(ctx context.Context, accountID string) ([]model.Page, error) {
	pages, err := r.inner.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	for i := range pages {
		pages[i], err = r.open(pages[i])
		if err != nil {
			return nil, err
		}
	}
	return pages, nil
}

func (r *encryptedPageRepo) Delete(ctx context.Context, id string) error {
	return r.inner.Delete(ctx, id)
}

func (r *encryptedPageRepo) open(page model.Page) (model.Page, error) {
	if page.AccessToken == "" {
		return page, nil
	}
	sealed, err := base64.StdEncoding.DecodeString(page.AccessToken)
	if err != nil {
		return model.Page{}, fmt.Errorf("storage: decodificar token: %w", err)
	}
	plain, err := crypto.Decrypt(sealed, r.key)
	if err != nil {
		return model.Page{}, fmt.Errorf("storage: decifrar token: %w", err)
	}
	page.AccessToken = string(plain)
	return page, nil
}
