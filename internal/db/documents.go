package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// -----------------------------------------------------------------------------
// Document Registry Methods
// -----------------------------------------------------------------------------

const documentColumns = `id, user_id, doc_type, original_name, locator, size_bytes,
	content_type, is_default, uploaded_at`

func scanDocument(row pgx.Row) (*Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.UserID, &d.Type, &d.OriginalName, &d.Locator,
		&d.SizeBytes, &d.ContentType, &d.IsDefault, &d.UploadedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func insertDocument(ctx context.Context, t *Tx, userID uuid.UUID, in DocumentInput, isDefault bool) (*Document, error) {
	if !in.Type.Valid() {
		return nil, fmt.Errorf("invalid document type %q", in.Type)
	}
	d, err := scanDocument(t.tx.QueryRow(ctx,
		`INSERT INTO documents (user_id, doc_type, original_name, locator, size_bytes, content_type, is_default)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+documentColumns,
		userID, in.Type, in.OriginalName, in.Locator, in.SizeBytes, in.ContentType, isDefault,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to insert document: %w", err)
	}
	return d, nil
}

// clearOtherDefaults demotes every default resume of the user except keepID.
func (t *Tx) clearOtherDefaults(ctx context.Context, userID, keepID uuid.UUID) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE documents SET is_default = FALSE
		 WHERE user_id = $1 AND doc_type = 'resume' AND is_default AND id <> $2`,
		userID, keepID,
	)
	if err != nil {
		return fmt.Errorf("failed to clear default resumes: %w", err)
	}
	return nil
}

// RegisterResume inserts a resume row as the user's default, then clears the
// flag on every other resume of that user. The new row is written before the
// old default is cleared.
func (t *Tx) RegisterResume(ctx context.Context, userID uuid.UUID, in DocumentInput) (*Document, error) {
	in.Type = DocTypeResume
	d, err := insertDocument(ctx, t, userID, in, true)
	if err != nil {
		return nil, err
	}
	if err := t.clearOtherDefaults(ctx, userID, d.ID); err != nil {
		return nil, err
	}
	return d, nil
}

// InsertDocument registers a non-resume document. Its default flag is always false.
func (t *Tx) InsertDocument(ctx context.Context, userID uuid.UUID, in DocumentInput) (*Document, error) {
	if in.Type == DocTypeResume {
		return nil, fmt.Errorf("resumes must be registered with RegisterResume")
	}
	return insertDocument(ctx, t, userID, in, false)
}

// DeleteDocument removes a document owned by userID and returns the deleted
// row. Returns ErrNotFound when no such row exists. No other resume is
// promoted when the default is deleted.
func (t *Tx) DeleteDocument(ctx context.Context, userID, documentID uuid.UUID) (*Document, error) {
	d, err := scanDocument(t.tx.QueryRow(ctx,
		`DELETE FROM documents WHERE id = $1 AND user_id = $2 RETURNING `+documentColumns,
		documentID, userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to delete document: %w", err)
	}
	return d, nil
}

// SetDefaultResume makes documentID the user's default resume. Returns
// ErrNotFound when it is not one of the user's resumes.
func (t *Tx) SetDefaultResume(ctx context.Context, userID, documentID uuid.UUID) error {
	if err := t.execOne(ctx, "set default resume",
		`UPDATE documents SET is_default = TRUE
		 WHERE id = $1 AND user_id = $2 AND doc_type = 'resume'`,
		documentID, userID,
	); err != nil {
		return err
	}
	return t.clearOtherDefaults(ctx, userID, documentID)
}

// GetDocument retrieves a document owned by userID. Returns nil, nil when absent.
func (db *DB) GetDocument(ctx context.Context, userID, documentID uuid.UUID) (*Document, error) {
	d, err := scanDocument(db.pool.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1 AND user_id = $2`,
		documentID, userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return d, nil
}

// ListDocuments returns the user's documents, newest first.
func (db *DB) ListDocuments(ctx context.Context, userID uuid.UUID) ([]Document, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE user_id = $1
		 ORDER BY uploaded_at DESC, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

// GetDefaultResume returns the user's default resume, or nil, nil when the
// user has none.
func (db *DB) GetDefaultResume(ctx context.Context, userID uuid.UUID) (*Document, error) {
	d, err := scanDocument(db.pool.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents
		 WHERE user_id = $1 AND doc_type = 'resume' AND is_default
		 ORDER BY uploaded_at DESC
		 LIMIT 1`,
		userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get default resume: %w", err)
	}
	return d, nil
}

// ReferencedLocators returns every artifact locator referenced by a document
// row or a profile image.
func (db *DB) ReferencedLocators(ctx context.Context) (map[string]struct{}, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT locator FROM documents
		 UNION
		 SELECT image_locator FROM profiles WHERE image_locator IS NOT NULL`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list referenced locators: %w", err)
	}
	locators, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan locators: %w", err)
	}
	set := make(map[string]struct{}, len(locators))
	for _, l := range locators {
		set[l] = struct{}{}
	}
	return set, nil
}
