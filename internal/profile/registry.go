package profile

import (
	"context"

	"github.com/google/uuid"

	"github.com/jonathan/profile-engine/internal/db"
)

// RegistryTx is the set of writes available inside one registry transaction.
// *db.Tx implements it.
type RegistryTx interface {
	CreateProfile(ctx context.Context, userID uuid.UUID) error
	GetProfile(ctx context.Context, userID uuid.UUID) (*db.Profile, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, f db.ProfileFields) error
	SetProfileImage(ctx context.Context, userID uuid.UUID, locator string) error
	SetCompletionScore(ctx context.Context, userID uuid.UUID, score int) error
	ScoreCounts(ctx context.Context, userID uuid.UUID) (db.ScoreCounts, error)

	RegisterResume(ctx context.Context, userID uuid.UUID, in db.DocumentInput) (*db.Document, error)
	InsertDocument(ctx context.Context, userID uuid.UUID, in db.DocumentInput) (*db.Document, error)
	DeleteDocument(ctx context.Context, userID, documentID uuid.UUID) (*db.Document, error)
	SetDefaultResume(ctx context.Context, userID, documentID uuid.UUID) error

	AddExperience(ctx context.Context, userID uuid.UUID, in db.ExperienceInput) (*db.Experience, error)
	DeleteExperience(ctx context.Context, userID, id uuid.UUID) error
	AddEducation(ctx context.Context, userID uuid.UUID, in db.EducationInput) (*db.Education, error)
	DeleteEducation(ctx context.Context, userID, id uuid.UUID) error
	AssignSkill(ctx context.Context, userID uuid.UUID, skillName string) (*db.Skill, error)
	UnassignSkill(ctx context.Context, userID, skillID uuid.UUID) error
}

// Registry is the relational store as seen by the service: one transaction
// entry point plus committed-state reads.
type Registry interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx RegistryTx) error) error

	GetProfile(ctx context.Context, userID uuid.UUID) (*db.Profile, error)
	GetDocument(ctx context.Context, userID, documentID uuid.UUID) (*db.Document, error)
	ListDocuments(ctx context.Context, userID uuid.UUID) ([]db.Document, error)
	GetDefaultResume(ctx context.Context, userID uuid.UUID) (*db.Document, error)
	ListSkills(ctx context.Context, userID uuid.UUID) ([]db.Skill, error)
}

type dbRegistry struct {
	*db.DB
}

// FromDB adapts a database handle to the Registry interface.
func FromDB(d *db.DB) Registry {
	return dbRegistry{DB: d}
}

func (r dbRegistry) InTx(ctx context.Context, fn func(ctx context.Context, tx RegistryTx) error) error {
	return r.DB.InTx(ctx, func(ctx context.Context, tx *db.Tx) error {
		return fn(ctx, tx)
	})
}

var _ RegistryTx = (*db.Tx)(nil)
