package profile

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/profile-engine/internal/db"
)

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "document not found: abc", (&ErrNotFound{Resource: "document", ID: "abc"}).Error())
	assert.Equal(t, "profile not found", (&ErrNotFound{Resource: "profile"}).Error())
	assert.Equal(t, "validation error: file - file is empty", (&ErrValidation{Field: "file", Message: "file is empty"}).Error())

	cause := errors.New("dial tcp: refused")
	su := &ErrStorageUnavailable{Op: "store artifact", Cause: cause}
	assert.Equal(t, "storage unavailable during store artifact: dial tcp: refused", su.Error())
	assert.ErrorIs(t, su, cause)

	tc := &ErrTransactionConflict{Op: "upload resume", Cause: db.ErrConflict}
	assert.ErrorIs(t, tc, db.ErrConflict)
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate("op", nil))

	var conflict *ErrTransactionConflict
	assert.ErrorAs(t, translate("op", fmt.Errorf("x: %w", db.ErrConflict)), &conflict)

	var unavailable *ErrStorageUnavailable
	assert.ErrorAs(t, translate("op", fmt.Errorf("x: %w", db.ErrUnavailable)), &unavailable)

	var notFound *ErrNotFound
	assert.ErrorAs(t, translate("op", db.ErrNotFound), &notFound)

	typed := &ErrValidation{Field: "f", Message: "m"}
	assert.Same(t, typed, translate("op", typed))

	assert.ErrorIs(t, translate("op", context.Canceled), context.Canceled)

	err := translate("list documents", errors.New("boom"))
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "list documents", unavailable.Op)
	assert.EqualError(t, err, "storage unavailable during list documents: boom")
}

func TestTranslate_DatabaseRejections(t *testing.T) {
	tests := []struct {
		name      string
		pgErr     *pgconn.PgError
		wantField string
	}{
		{
			name:      "invalid byte sequence",
			pgErr:     &pgconn.PgError{Code: "22021", Message: `invalid byte sequence for encoding "UTF8": 0x00`},
			wantField: "request",
		},
		{
			name:      "value too long names the column",
			pgErr:     &pgconn.PgError{Code: "22001", Message: "value too long", ColumnName: "original_name"},
			wantField: "original_name",
		},
		{
			name:      "check violation",
			pgErr:     &pgconn.PgError{Code: "23514", Message: "new row violates check constraint"},
			wantField: "request",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := translate("update profile", fmt.Errorf("failed to update profile: %w", tt.pgErr))
			var verr *ErrValidation
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
			assert.Equal(t, tt.pgErr.Message, verr.Message)
		})
	}

	var unavailable *ErrStorageUnavailable
	err := translate("upload resume", fmt.Errorf("x: %w", &pgconn.PgError{Code: "42P01", Message: "relation does not exist"}))
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "upload resume", unavailable.Op)

	// An unclassified exclusion violation is never reported as bad input.
	err = translate("upload resume", &pgconn.PgError{Code: "23P01"})
	assert.ErrorAs(t, err, &unavailable)
}
