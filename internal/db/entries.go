package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// -----------------------------------------------------------------------------
// Experience, Education and Skill Methods
// -----------------------------------------------------------------------------

// ScoreCounts reads the related-entity counts for the completion score using
// the transaction's snapshot.
func (t *Tx) ScoreCounts(ctx context.Context, userID uuid.UUID) (ScoreCounts, error) {
	var c ScoreCounts
	err := t.tx.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM experiences WHERE user_id = $1),
			(SELECT COUNT(*) FROM education WHERE user_id = $1),
			(SELECT COUNT(*) FROM user_skills WHERE user_id = $1),
			(SELECT COUNT(*) FROM documents WHERE user_id = $1 AND doc_type = 'resume')`,
		userID,
	).Scan(&c.Experiences, &c.Education, &c.Skills, &c.Resumes)
	if err != nil {
		return ScoreCounts{}, fmt.Errorf("failed to count profile entries: %w", err)
	}
	return c, nil
}

// AddExperience inserts an employment history entry.
func (t *Tx) AddExperience(ctx context.Context, userID uuid.UUID, in ExperienceInput) (*Experience, error) {
	var e Experience
	err := t.tx.QueryRow(ctx,
		`INSERT INTO experiences (user_id, company, role_title, start_date, end_date)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, user_id, company, role_title, start_date, end_date, created_at`,
		userID, in.Company, in.RoleTitle, in.StartDate, in.EndDate,
	).Scan(&e.ID, &e.UserID, &e.Company, &e.RoleTitle, &e.StartDate, &e.EndDate, &e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to add experience: %w", err)
	}
	return &e, nil
}

// DeleteExperience removes an experience owned by userID.
func (t *Tx) DeleteExperience(ctx context.Context, userID, id uuid.UUID) error {
	return t.execOne(ctx, "delete experience",
		`DELETE FROM experiences WHERE id = $1 AND user_id = $2`, id, userID)
}

// AddEducation inserts an education entry.
func (t *Tx) AddEducation(ctx context.Context, userID uuid.UUID, in EducationInput) (*Education, error) {
	var e Education
	var degree, field *string
	err := t.tx.QueryRow(ctx,
		`INSERT INTO education (user_id, school, degree_type, field, start_date, end_date)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, user_id, school, degree_type, field, start_date, end_date, created_at`,
		userID, in.School, nullIfEmpty(in.DegreeType), nullIfEmpty(in.Field), in.StartDate, in.EndDate,
	).Scan(&e.ID, &e.UserID, &e.School, &degree, &field, &e.StartDate, &e.EndDate, &e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to add education: %w", err)
	}
	e.DegreeType = derefString(degree)
	e.Field = derefString(field)
	return &e, nil
}

// DeleteEducation removes an education entry owned by userID.
func (t *Tx) DeleteEducation(ctx context.Context, userID, id uuid.UUID) error {
	return t.execOne(ctx, "delete education",
		`DELETE FROM education WHERE id = $1 AND user_id = $2`, id, userID)
}

// AssignSkill finds or creates the catalog skill and assigns it to the user.
// Assigning an already assigned skill is a no-op.
func (t *Tx) AssignSkill(ctx context.Context, userID uuid.UUID, skillName string) (*Skill, error) {
	normalized := NormalizeSkillName(skillName)
	if normalized == "" {
		return nil, fmt.Errorf("skill name cannot be empty")
	}

	var s Skill
	err := t.tx.QueryRow(ctx,
		`INSERT INTO skills (name, name_normalized)
		 VALUES ($1, $2)
		 ON CONFLICT (name_normalized) DO UPDATE SET name = skills.name
		 RETURNING id, name, name_normalized`,
		skillName, normalized,
	).Scan(&s.ID, &s.Name, &s.NameNormalized)
	if err != nil {
		return nil, fmt.Errorf("failed to find or create skill: %w", err)
	}

	if _, err := t.tx.Exec(ctx,
		`INSERT INTO user_skills (user_id, skill_id) VALUES ($1, $2)
		 ON CONFLICT (user_id, skill_id) DO NOTHING`,
		userID, s.ID,
	); err != nil {
		return nil, fmt.Errorf("failed to assign skill: %w", err)
	}
	return &s, nil
}

// UnassignSkill removes a skill from the user. The catalog entry is kept.
func (t *Tx) UnassignSkill(ctx context.Context, userID, skillID uuid.UUID) error {
	return t.execOne(ctx, "unassign skill",
		`DELETE FROM user_skills WHERE user_id = $1 AND skill_id = $2`, userID, skillID)
}

// ListSkills returns the skills assigned to the user.
func (db *DB) ListSkills(ctx context.Context, userID uuid.UUID) ([]Skill, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT s.id, s.name, s.name_normalized
		 FROM user_skills us JOIN skills s ON s.id = us.skill_id
		 WHERE us.user_id = $1
		 ORDER BY s.name_normalized`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list skills: %w", err)
	}
	skills, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Skill, error) {
		var s Skill
		err := row.Scan(&s.ID, &s.Name, &s.NameNormalized)
		return s, err
	})
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to scan skills: %w", err)
	}
	return skills, nil
}
