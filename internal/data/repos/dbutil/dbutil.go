package dbutil

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/yungbote/paperlens-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/paperlens-backend/internal/pkg/errors"
)

const pgUniqueViolation = "23505"

// Conn returns the transaction carried by dbc, or fallback.
func Conn(dbc dbctx.Context, fallback *gorm.DB) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = fallback
	}
	if dbc.Ctx != nil {
		transaction = transaction.WithContext(dbc.Ctx)
	}
	return transaction
}

// MapError translates driver errors into package sentinels.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.Join(pkgerrors.ErrConflict, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return errors.Join(pkgerrors.ErrConflict, err)
	}
	return err
}
