package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// -----------------------------------------------------------------------------
// Profile Methods
// -----------------------------------------------------------------------------

const profileColumns = `user_id, job_title, location, short_summary, professional_summary,
	years_experience, experience_level, industry, website_url, linkedin_url, github_url,
	image_locator, completion_score, created_at, updated_at`

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	var level *string
	err := row.Scan(
		&p.UserID, &p.JobTitle, &p.Location, &p.ShortSummary, &p.ProfessionalSummary,
		&p.YearsExperience, &level, &p.Industry, &p.WebsiteURL, &p.LinkedInURL, &p.GitHubURL,
		&p.ImageLocator, &p.CompletionScore, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.ExperienceLevel = derefString(level)
	return &p, nil
}

func getProfile(ctx context.Context, q querier, userID uuid.UUID, forUpdate bool) (*Profile, error) {
	sql := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	p, err := scanProfile(q.QueryRow(ctx, sql, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// GetProfile retrieves a user's profile. Returns nil, nil when none exists.
func (db *DB) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	return getProfile(ctx, db.pool, userID, false)
}

// ListUserIDs returns the ids of all users that have a profile.
func (db *DB) ListUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := db.pool.Query(ctx, `SELECT user_id FROM profiles ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("failed to scan profile ids: %w", err)
	}
	return ids, nil
}

// CreateProfile creates the user row if needed and an empty profile with a
// score of zero. Creating an existing profile is a no-op.
func (t *Tx) CreateProfile(ctx context.Context, userID uuid.UUID) error {
	if _, err := t.tx.Exec(ctx,
		`INSERT INTO users (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`,
		userID,
	); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	if _, err := t.tx.Exec(ctx,
		`INSERT INTO profiles (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`,
		userID,
	); err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// GetProfile reads the profile and locks its row until the transaction ends.
// Returns nil, nil when none exists.
func (t *Tx) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	return getProfile(ctx, t.tx, userID, true)
}

// UpdateProfile overwrites every client-editable column.
func (t *Tx) UpdateProfile(ctx context.Context, userID uuid.UUID, f ProfileFields) error {
	return t.execOne(ctx, "update profile",
		`UPDATE profiles SET
			job_title = $2, location = $3, short_summary = $4, professional_summary = $5,
			years_experience = $6, experience_level = $7, industry = $8,
			website_url = $9, linkedin_url = $10, github_url = $11, updated_at = NOW()
		 WHERE user_id = $1`,
		userID, f.JobTitle, f.Location, f.ShortSummary, f.ProfessionalSummary,
		f.YearsExperience, nullIfEmpty(f.ExperienceLevel), f.Industry,
		f.WebsiteURL, f.LinkedInURL, f.GitHubURL,
	)
}

// SetProfileImage points the profile at a new image locator.
func (t *Tx) SetProfileImage(ctx context.Context, userID uuid.UUID, locator string) error {
	return t.execOne(ctx, "set profile image",
		`UPDATE profiles SET image_locator = $2, updated_at = NOW() WHERE user_id = $1`,
		userID, nullIfEmpty(locator),
	)
}

// SetCompletionScore persists a recomputed completion score.
func (t *Tx) SetCompletionScore(ctx context.Context, userID uuid.UUID, score int) error {
	return t.execOne(ctx, "set completion score",
		`UPDATE profiles SET completion_score = $2 WHERE user_id = $1`,
		userID, score,
	)
}
