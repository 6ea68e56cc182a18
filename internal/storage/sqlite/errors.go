package sqlite

import (
	"database/sql"
	"errors"

	"github.com/open-pageflow/pageflow/internal/storage/model"
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	return err
}
