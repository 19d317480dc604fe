// Package profile keeps a user's profile record, their stored document
// artifacts and the derived completion score consistent with each other.
//
// Every mutating operation follows the same shape: validate, write any new
// artifact outside the transaction, apply registry and profile changes plus
// the score recomputation in one transaction, then settle artifacts once the
// outcome is known.
package profile

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/jonathan/profile-engine/internal/artifact"
	"github.com/jonathan/profile-engine/internal/db"
	"github.com/jonathan/profile-engine/internal/scoring"
	"github.com/jonathan/profile-engine/internal/types"
)

const tracerName = "github.com/jonathan/profile-engine/internal/profile"

// Config tunes the service.
type Config struct {
	Limits  Limits
	Weights scoring.Weights
}

// DefaultConfig returns the default limits and score weights.
func DefaultConfig() Config {
	return Config{Limits: DefaultLimits(), Weights: scoring.DefaultWeights()}
}

// Service exposes the profile and document operations.
type Service struct {
	reg     Registry
	store   artifact.Store
	limits  Limits
	weights scoring.Weights
	comp    *compensator
	log     *zap.Logger
	tracer  trace.Tracer
}

// NewService creates a profile service.
func NewService(reg Registry, store artifact.Store, cfg Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("profile")
	if cfg.Limits == (Limits{}) {
		cfg.Limits = DefaultLimits()
	}
	if cfg.Weights == (scoring.Weights{}) {
		cfg.Weights = scoring.DefaultWeights()
	}
	return &Service{
		reg:     reg,
		store:   store,
		limits:  cfg.Limits,
		weights: cfg.Weights,
		comp:    newCompensator(store, log),
		log:     log,
		tracer:  otel.Tracer(tracerName),
	}
}

// CleanupFailures returns how many best-effort artifact deletions have failed.
func (s *Service) CleanupFailures() int64 {
	return s.comp.failures.Load()
}

func (s *Service) startSpan(ctx context.Context, op string, userID uuid.UUID) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "profile."+op, trace.WithAttributes(attribute.String("user.id", userID.String())))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// put stores an artifact outside any transaction.
func (s *Service) put(ctx context.Context, data []byte, name string) (string, error) {
	locator, err := s.store.Put(ctx, data, name)
	if err != nil {
		return "", &ErrStorageUnavailable{Op: "store artifact", Cause: err}
	}
	return locator, nil
}

// lockProfile reads the profile inside tx, mapping a missing row to ErrNotFound.
func lockProfile(ctx context.Context, tx RegistryTx, userID uuid.UUID) (*db.Profile, error) {
	p, err := tx.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, &ErrNotFound{Resource: "profile", ID: userID.String()}
	}
	return p, nil
}

// rescore recomputes the completion score from the transaction's view of the
// profile and its related counts and persists it when it changed.
func (s *Service) rescore(ctx context.Context, tx RegistryTx, userID uuid.UUID) (*db.Profile, error) {
	p, err := lockProfile(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	counts, err := tx.ScoreCounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	score := scoring.Score(s.weights, scoreInput(p), scoreCounts(counts))
	if score != p.CompletionScore {
		if err := tx.SetCompletionScore(ctx, userID, score); err != nil {
			return nil, err
		}
		p.CompletionScore = score
	}
	return p, nil
}

func scoreInput(p *db.Profile) scoring.Input {
	return scoring.Input{
		JobTitle:            p.JobTitle,
		Location:            p.Location,
		YearsExperience:     p.YearsExperience,
		ExperienceLevel:     p.ExperienceLevel,
		Industry:            p.Industry,
		ShortSummary:        p.ShortSummary,
		ProfessionalSummary: p.ProfessionalSummary,
		WebsiteURL:          p.WebsiteURL,
		LinkedInURL:         p.LinkedInURL,
		GitHubURL:           p.GitHubURL,
		HasImage:            p.ImageLocator != nil && *p.ImageLocator != "",
	}
}

func scoreCounts(c db.ScoreCounts) scoring.Counts {
	return scoring.Counts{Experiences: c.Experiences, Education: c.Education, Skills: c.Skills, Resumes: c.Resumes}
}

// applyUpdate overlays the non-nil fields of upd onto f.
func applyUpdate(f db.ProfileFields, upd types.ProfileUpdate) db.ProfileFields {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&f.JobTitle, upd.JobTitle)
	set(&f.Location, upd.Location)
	set(&f.ShortSummary, upd.ShortSummary)
	set(&f.ProfessionalSummary, upd.ProfessionalSummary)
	set(&f.ExperienceLevel, upd.ExperienceLevel)
	set(&f.Industry, upd.Industry)
	set(&f.WebsiteURL, upd.WebsiteURL)
	set(&f.LinkedInURL, upd.LinkedInURL)
	set(&f.GitHubURL, upd.GitHubURL)
	switch {
	case upd.ClearYearsExperience:
		f.YearsExperience = nil
	case upd.YearsExperience != nil:
		years := *upd.YearsExperience
		f.YearsExperience = &years
	}
	return f
}

// validateRequest runs a request's Validate and converts the failure to ErrValidation.
func validateRequest(v interface{ Validate() error }) error {
	err := v.Validate()
	if err == nil {
		return nil
	}
	if field, msg, ok := types.FieldError(err); ok {
		return &ErrValidation{Field: field, Message: msg}
	}
	return &ErrValidation{Field: "request", Message: err.Error()}
}

// CreateProfile creates the empty profile for a new account. The score
// starts at zero. Creating an existing profile returns it unchanged.
func (s *Service) CreateProfile(ctx context.Context, userID uuid.UUID) (p *db.Profile, err error) {
	ctx, span := s.startSpan(ctx, "CreateProfile", userID)
	defer func() { endSpan(span, err) }()

	err = s.reg.InTx(ctx, func(ctx context.Context, tx RegistryTx) error {
		if err := tx.CreateProfile(ctx, userID); err != nil {
			return err
		}
		var err error
		p, err = s.rescore(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, translate("create profile", err)
	}
	s.log.Info("profile created", zap.String("user_id", userID.String()))
	return p, nil
}

// GetProfile returns the committed profile.
func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*db.Profile, error) {
	p, err := s.reg.GetProfile(ctx, userID)
	if err != nil {
		return nil, translate("get profile", err)
	}
	if p == nil {
		return nil, &ErrNotFound{Resource: "profile", ID: userID.String()}
	}
	return p, nil
}

// UpdateProfile applies field changes and an optional new profile image, and
// recomputes the score, in one transaction. A replaced image is deleted after
// commit; a newly written image is deleted if the transaction fails.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, upd types.ProfileUpdate, image *Upload) (p *db.Profile, err error) {
	ctx, span := s.startSpan(ctx, "UpdateProfile", userID)
	defer func() { endSpan(span, err) }()

	if err := validateRequest(&upd); err != nil {
		return nil, err
	}
	var imageName string
	if image != nil {
		if imageName, err = s.limits.check(kindImage, "image", *image); err != nil {
			return nil, err
		}
	}

	var written string
	if image != nil {
		if written, err = s.put(ctx, image.Data, imageName); err != nil {
			return nil, err
		}
	}

	var superseded string
	err = s.reg.InTx(ctx, func(ctx context.Context, tx RegistryTx) error {
		superseded = ""
		current, err := lockProfile(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !upd.Empty() {
			if err := tx.UpdateProfile(ctx, userID, applyUpdate(current.Fields(), upd)); err != nil {
				return err
			}
		}
		if written != "" {
			if err := tx.SetProfileImage(ctx, userID, written); err != nil {
				return err
			}
			if current.ImageLocator != nil {
				superseded = *current.ImageLocator
			}
		}
		p, err = s.rescore(ctx, tx, userID)
		return err
	})
	s.comp.settle(ctx, outcomeOf(err), written, superseded)
	if err != nil {
		return nil, translate("update profile", err)
	}

	s.log.Info("profile updated",
		zap.String("user_id", userID.String()),
		zap.Bool("image_replaced", written != ""),
		zap.Int("completion_score", p.CompletionScore))
	return p, nil
}

// UploadResume stores a resume, registers it as the user's default resume
// and recomputes the score. Earlier resumes stay registered with their
// artifacts; only their default flag is cleared.
func (s *Service) UploadResume(ctx context.Context, userID uuid.UUID, up Upload) (doc *db.Document, err error) {
	ctx, span := s.startSpan(ctx, "UploadResume", userID)
	defer func() { endSpan(span, err) }()

	name, err := s.limits.check(kindResume, "file", up)
	if err != nil {
		return nil, err
	}
	written, err := s.put(ctx, up.Data, name)
	if err != nil {
		return nil, err
	}

	err = s.reg.InTx(ctx, func(ctx context.Context, tx RegistryTx) error {
		if _, err := lockProfile(ctx, tx, userID); err != nil {
			return err
		}
		var err error
		doc, err = tx.RegisterResume(ctx, userID, db.DocumentInput{
			Type:         db.DocTypeResume,
			OriginalName: name,
			Locator:      written,
			SizeBytes:    up.Size,
			ContentType:  artifact.ContentType(name),
		})
		if err != nil {
			return err
		}
		_, err = s.rescore(ctx, tx, userID)
		return err
	})
	s.comp.settle(ctx, outcomeOf(err), written, "")
	if err != nil {
		return nil, translate("upload resume", err)
	}

	s.log.Info("resume uploaded",
		zap.String("user_id", userID.String()),
		zap.String("document_id", doc.ID.String()),
		zap.Int64("size_bytes", doc.SizeBytes))
	return doc, nil
}

// UploadDocument stores and registers a document of the given type. Resumes
// are delegated to UploadResume.
func (s *Service) UploadDocument(ctx context.Context, userID uuid.UUID, docType db.DocType, up Upload) (doc *db.Document, err error) {
	if docType == db.DocTypeResume {
		return s.UploadResume(ctx, userID, up)
	}

	ctx, span := s.startSpan(ctx, "UploadDocument", userID)
	defer func() { endSpan(span, err) }()

	if !docType.Valid() {
		return nil, &ErrValidation{Field: "type", Message: "unknown document type"}
	}
	name, err := s.limits.check(kindDocument, "file", up)
	if err != nil {
		return nil, err
	}
	written, err := s.put(ctx, up.Data, name)
	if err != nil {
		return nil, err
	}

	err = s.reg.InTx(ctx, func(ctx context.Context, tx RegistryTx) error {
		if _, err := lockProfile(ctx, tx, userID); err != nil {
			return err
		}
		var err error
		doc, err = tx.InsertDocument(ctx, userID, db.DocumentInput{
			Type:         docType,
			OriginalName: name,
			Locator:      written,
			SizeBytes:    up.Size,
			ContentType:  artifact.ContentType(name),
		})
		if err != nil {
			return err
		}
		_, err = s.rescore(ctx, tx, userID)
		return err
	})
	s.comp.settle(ctx, outcomeOf(err), written, "")
	if err != nil {
		return nil, translate("upload document", err)
	}

	s.log.Info("document uploaded",
		zap.String("user_id", userID.String()),
		zap.String("document_id", doc.ID.String()),
		zap.String("type", string(doc.Type)))
	return doc, nil
}

// DeleteDocument removes a document owned by the user, recomputes the score,
// and deletes the artifact after commit. Deleting the default resume leaves
// the user with no default.
func (s *Service) DeleteDocument(ctx context.Context, userID, documentID uuid.UUID) (err error) {
	ctx, span := s.startSpan(ctx, "DeleteDocument", userID)
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("document.id", documentID.String()))

	var deleted *db.Document
	err = s.reg.InTx(ctx, func(ctx context.Context, tx RegistryTx) error {
		deleted = nil
		if _, err := lockProfile(ctx, tx, userID); err != nil {
			return err
		}
		d, err := tx.DeleteDocument(ctx, userID, documentID)
		if err != nil {
			if isNotFound(err) {
				return &ErrNotFound{Resource: "document", ID: documentID.String()}
			}
			return err
		}
		deleted = d
		_, err = s.rescore(ctx, tx, userID)
		return err
	})
	var superseded string
	if deleted != nil {
		superseded = deleted.Locator
	}
	s.comp.settle(ctx, outcomeOf(err), "", superseded)
	if err != nil {
		return translate("delete document", err)
	}

	s.log.Info("document deleted",
		zap.String("user_id", userID.String()),
		zap.String("document_id", documentID.String()),
		zap.Bool("was_default", deleted.IsDefault))
	return nil
}

// SetDefaultResume makes one of the user's resumes the default.
func (s *Service) SetDefaultResume(ctx context.Context, userID, documentID uuid.UUID) (err error) {
	ctx, span := s.startSpan(ctx, "SetDefaultResume", userID)
	defer func() { endSpan(span, err) }()

	err = s.reg.InTx(ctx, func(ctx context.Context, tx RegistryTx) error {
		if _, err := lockProfile(ctx, tx, userID); err != nil {
			return err
		}
		if err := tx.SetDefaultResume(ctx, userID, documentID); err != nil {
			if isNotFound(err) {
				return &ErrNotFound{Resource: "resume", ID: documentID.String()}
			}
			return err
		}
		_, err := s.rescore(ctx, tx, userID)
		return err
	})
	return translate("set default resume", err)
}

// ListDocuments returns the user's registered documents.
func (s *Service) ListDocuments(ctx context.Context, userID uuid.UUID) ([]db.Document, error) {
	docs, err := s.reg.ListDocuments(ctx, userID)
	if err != nil {
		return nil, translate("list documents", err)
	}
	return docs, nil
}

// GetDocument returns one of the user's documents.
func (s *Service) GetDocument(ctx context.Context, userID, documentID uuid.UUID) (*db.Document, error) {
	d, err := s.reg.GetDocument(ctx, userID, documentID)
	if err != nil {
		return nil, translate("get document", err)
	}
	if d == nil {
		return nil, &ErrNotFound{Resource: "document", ID: documentID.String()}
	}
	return d, nil
}

// GetDefaultResume returns the user's default resume, or nil when there is none.
func (s *Service) GetDefaultResume(ctx context.Context, userID uuid.UUID) (*db.Document, error) {
	d, err := s.reg.GetDefaultResume(ctx, userID)
	if err != nil {
		return nil, translate("get default resume", err)
	}
	return d, nil
}

// RecomputeScore re-derives and persists the completion score.
func (s *Service) RecomputeScore(ctx context.Context, userID uuid.UUID) (score int, err error) {
	ctx, span := s.startSpan(ctx, "RecomputeScore", userID)
	defer func() { endSpan(span, err) }()

	err = s.reg.InTx(ctx, func(ctx context.Context, tx RegistryTx) error {
		p, err := s.rescore(ctx, tx, userID)
		if err != nil {
			return err
		}
		score = p.CompletionScore
		return nil
	})
	if err != nil {
		return 0, translate("recompute score", err)
	}
	return score, nil
}

// ScoreBreakdown returns the per-category points behind the current score.
func (s *Service) ScoreBreakdown(ctx context.Context, userID uuid.UUID) (scoring.Breakdown, error) {
	var b scoring.Breakdown
	err := s.reg.InTx(ctx, func(ctx context.Context, tx RegistryTx) error {
		p, err := lockProfile(ctx, tx, userID)
		if err != nil {
			return err
		}
		counts, err := tx.ScoreCounts(ctx, userID)
		if err != nil {
			return err
		}
		b = scoring.Explain(s.weights, scoreInput(p), scoreCounts(counts))
		return nil
	})
	if err != nil {
		return scoring.Breakdown{}, translate("explain score", err)
	}
	return b, nil
}
