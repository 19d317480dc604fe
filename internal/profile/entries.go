package profile

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/profile-engine/internal/db"
	"github.com/jonathan/profile-engine/internal/types"
)

// mutate runs fn and a score recomputation in one transaction for an
// existing profile. span names the trace span; op is the phrase used in
// error messages.
func (s *Service) mutate(ctx context.Context, span, op string, userID uuid.UUID, fn func(ctx context.Context, tx RegistryTx) error) (err error) {
	ctx, sp := s.startSpan(ctx, span, userID)
	defer func() { endSpan(sp, err) }()

	err = s.reg.InTx(ctx, func(ctx context.Context, tx RegistryTx) error {
		if _, err := lockProfile(ctx, tx, userID); err != nil {
			return err
		}
		if err := fn(ctx, tx); err != nil {
			return err
		}
		_, err := s.rescore(ctx, tx, userID)
		return err
	})
	return translate(op, err)
}

func parseDate(field, value string) (*db.Date, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, &ErrValidation{Field: field, Message: "must be a date in YYYY-MM-DD format"}
	}
	return &db.Date{Time: t}, nil
}

func parseRange(start, end string) (*db.Date, *db.Date, error) {
	from, err := parseDate("start_date", start)
	if err != nil {
		return nil, nil, err
	}
	to, err := parseDate("end_date", end)
	if err != nil {
		return nil, nil, err
	}
	if from != nil && to != nil && to.Before(from.Time) {
		return nil, nil, &ErrValidation{Field: "end_date", Message: "must not be before start_date"}
	}
	return from, to, nil
}

// AddExperience records an employment entry and recomputes the score.
func (s *Service) AddExperience(ctx context.Context, userID uuid.UUID, req types.ExperienceRequest) (*db.Experience, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	start, end, err := parseRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	var exp *db.Experience
	err = s.mutate(ctx, "AddExperience", "add experience", userID, func(ctx context.Context, tx RegistryTx) error {
		var err error
		exp, err = tx.AddExperience(ctx, userID, db.ExperienceInput{
			Company:   strings.TrimSpace(req.Company),
			RoleTitle: strings.TrimSpace(req.RoleTitle),
			StartDate: start,
			EndDate:   end,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return exp, nil
}

// RemoveExperience deletes an employment entry and recomputes the score.
func (s *Service) RemoveExperience(ctx context.Context, userID, id uuid.UUID) error {
	return s.mutate(ctx, "RemoveExperience", "remove experience", userID, func(ctx context.Context, tx RegistryTx) error {
		if err := tx.DeleteExperience(ctx, userID, id); err != nil {
			if isNotFound(err) {
				return &ErrNotFound{Resource: "experience", ID: id.String()}
			}
			return err
		}
		return nil
	})
}

// AddEducation records an education entry and recomputes the score.
func (s *Service) AddEducation(ctx context.Context, userID uuid.UUID, req types.EducationRequest) (*db.Education, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	start, end, err := parseRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	var edu *db.Education
	err = s.mutate(ctx, "AddEducation", "add education", userID, func(ctx context.Context, tx RegistryTx) error {
		var err error
		edu, err = tx.AddEducation(ctx, userID, db.EducationInput{
			School:     strings.TrimSpace(req.School),
			DegreeType: strings.TrimSpace(req.DegreeType),
			Field:      strings.TrimSpace(req.Field),
			StartDate:  start,
			EndDate:    end,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return edu, nil
}

// RemoveEducation deletes an education entry and recomputes the score.
func (s *Service) RemoveEducation(ctx context.Context, userID, id uuid.UUID) error {
	return s.mutate(ctx, "RemoveEducation", "remove education", userID, func(ctx context.Context, tx RegistryTx) error {
		if err := tx.DeleteEducation(ctx, userID, id); err != nil {
			if isNotFound(err) {
				return &ErrNotFound{Resource: "education", ID: id.String()}
			}
			return err
		}
		return nil
	})
}

// AssignSkill assigns a catalog skill by name and recomputes the score.
func (s *Service) AssignSkill(ctx context.Context, userID uuid.UUID, req types.SkillRequest) (*db.Skill, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	if db.NormalizeSkillName(req.Name) == "" {
		return nil, &ErrValidation{Field: "name", Message: "is required"}
	}

	var skill *db.Skill
	err := s.mutate(ctx, "AssignSkill", "assign skill", userID, func(ctx context.Context, tx RegistryTx) error {
		var err error
		skill, err = tx.AssignSkill(ctx, userID, strings.TrimSpace(req.Name))
		return err
	})
	if err != nil {
		return nil, err
	}
	return skill, nil
}

// UnassignSkill removes a skill from the user and recomputes the score.
func (s *Service) UnassignSkill(ctx context.Context, userID, skillID uuid.UUID) error {
	return s.mutate(ctx, "UnassignSkill", "unassign skill", userID, func(ctx context.Context, tx RegistryTx) error {
		if err := tx.UnassignSkill(ctx, userID, skillID); err != nil {
			if isNotFound(err) {
				return &ErrNotFound{Resource: "skill", ID: skillID.String()}
			}
			return err
		}
		return nil
	})
}

// ListSkills returns the skills assigned to the user.
func (s *Service) ListSkills(ctx context.Context, userID uuid.UUID) ([]db.Skill, error) {
	skills, err := s.reg.ListSkills(ctx, userID)
	if err != nil {
		return nil, translate("list skills", err)
	}
	return skills, nil
}
