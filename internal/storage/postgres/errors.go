package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/open-pageflow/pageflow/internal/storage/model"
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ErrNotFound
	}
	return err
}
