package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jonathan/profile-engine/internal/db"
)

// ErrNotFound indicates the profile or document does not exist or is not
// owned by the caller.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrValidation indicates a malformed field or a disallowed upload
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrStorageUnavailable indicates the artifact store or the database could not be reached
type ErrStorageUnavailable struct {
	Op    string
	Cause error
}

func (e *ErrStorageUnavailable) Error() string {
	return fmt.Sprintf("storage unavailable during %s: %v", e.Op, e.Cause)
}

func (e *ErrStorageUnavailable) Unwrap() error { return e.Cause }

// ErrTransactionConflict indicates a concurrent modification won every retry
type ErrTransactionConflict struct {
	Op    string
	Cause error
}

func (e *ErrTransactionConflict) Error() string {
	return fmt.Sprintf("conflicting concurrent update during %s: %v", e.Op, e.Cause)
}

func (e *ErrTransactionConflict) Unwrap() error { return e.Cause }

// translate maps store and registry failures onto the typed errors above.
// Errors that are already typed pass through unchanged, as do context
// cancellations. Rows the database rejects as bad data become ErrValidation;
// anything else is reported as ErrStorageUnavailable.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}

	var (
		notFound    *ErrNotFound
		validation  *ErrValidation
		unavailable *ErrStorageUnavailable
		conflict    *ErrTransactionConflict
	)
	switch {
	case errors.As(err, &notFound), errors.As(err, &validation),
		errors.As(err, &unavailable), errors.As(err, &conflict):
		return err
	case errors.Is(err, db.ErrConflict):
		return &ErrTransactionConflict{Op: op, Cause: err}
	case errors.Is(err, db.ErrUnavailable):
		return &ErrStorageUnavailable{Op: op, Cause: err}
	case errors.Is(err, db.ErrNotFound):
		return &ErrNotFound{Resource: "record"}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	if invalid := rejectedInput(err); invalid != nil {
		return invalid
	}
	return &ErrStorageUnavailable{Op: op, Cause: err}
}

// rejectedInput returns ErrValidation for data exceptions (SQLSTATE class 22)
// and integrity violations (class 23) other than the exclusion violation,
// which the transaction coordinator already treats as a conflict.
func rejectedInput(err error) *ErrValidation {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code == "23P01" {
		return nil
	}
	if !strings.HasPrefix(pgErr.Code, "22") && !strings.HasPrefix(pgErr.Code, "23") {
		return nil
	}
	field := pgErr.ColumnName
	if field == "" {
		field = "request"
	}
	return &ErrValidation{Field: field, Message: pgErr.Message}
}

func isNotFound(err error) bool {
	return errors.Is(err, db.ErrNotFound)
}
