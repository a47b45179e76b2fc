package dbutil

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	pkgerrors "github.com/yungbote/paperlens-backend/internal/pkg/errors"
)

func TestMapError(t *testing.T) {
	assert.NoError(t, MapError(nil))
	assert.ErrorIs(t, MapError(gorm.ErrRecordNotFound), pkgerrors.ErrNotFound)
	assert.ErrorIs(t, MapError(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})), pkgerrors.ErrConflict)
	assert.ErrorIs(t, MapError(gorm.ErrDuplicatedKey), pkgerrors.ErrConflict)
	plain := errors.New("connection reset")
	assert.Equal(t, plain, MapError(plain))
}
