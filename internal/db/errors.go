package db

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound indicates the row does not exist or is not owned by the caller.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a transaction lost to a concurrent modification.
	ErrConflict = errors.New("transaction conflict")
	// ErrUnavailable indicates the database could not be reached or a transaction could not be started or committed.
	ErrUnavailable = errors.New("database unavailable")
	// ErrNestedTransaction is returned when InTx is called from inside another InTx.
	ErrNestedTransaction = errors.New("nested transactions are not allowed")
	// ErrCommitUnknown marks a commit that failed in a way that leaves its
	// outcome unknown (for example the connection dropped mid-commit).
	ErrCommitUnknown = errors.New("commit outcome unknown")
)

// SQLSTATE codes that mean "another transaction got there first".
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeExclusionViolation   = "23P01"
)

// classify tags err with ErrConflict or ErrUnavailable when it is a conflict
// or connectivity failure. Other errors are returned unchanged.
func classify(err error) error {
	if err == nil || errors.Is(err, ErrConflict) || errors.Is(err, ErrUnavailable) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == codeSerializationFailure,
			pgErr.Code == codeDeadlockDetected,
			pgErr.Code == codeExclusionViolation:
			return fmt.Errorf("%w: %w", ErrConflict, err)
		case strings.HasPrefix(pgErr.Code, "08"), // connection exception
			strings.HasPrefix(pgErr.Code, "57P"): // operator intervention / shutdown
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return err
	}

	var connErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connErr) || errors.As(err, &netErr) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}

// unavailable classifies err and falls back to ErrUnavailable for anything
// that is not a conflict. Used for begin/commit failures.
func unavailable(op string, err error) error {
	err = classify(err)
	if errors.Is(err, ErrConflict) || errors.Is(err, ErrUnavailable) {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	return fmt.Errorf("failed to %s: %w: %w", op, ErrUnavailable, err)
}
