package db

import (
	"time"

	"github.com/google/uuid"
)

// DocType is the kind of a registered document
type DocType string

// Document types
const (
	DocTypeResume        DocType = "resume"
	DocTypeCoverLetter   DocType = "cover_letter"
	DocTypeCertificate   DocType = "certificate"
	DocTypePortfolioLink DocType = "portfolio_link"
	DocTypeOther         DocType = "other"
)

// Valid reports whether t is a known document type.
func (t DocType) Valid() bool {
	switch t {
	case DocTypeResume, DocTypeCoverLetter, DocTypeCertificate, DocTypePortfolioLink, DocTypeOther:
		return true
	default:
		return false
	}
}

// Document is a registry row describing an artifact owned by a user.
// IsDefault is only ever true for resumes.
type Document struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	Type         DocType   `json:"type"`
	OriginalName string    `json:"original_name"`
	Locator      string    `json:"locator"`
	SizeBytes    int64     `json:"size_bytes"`
	ContentType  string    `json:"content_type"`
	IsDefault    bool      `json:"is_default"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// DocumentInput holds the metadata for a new registry row
type DocumentInput struct {
	Type         DocType
	OriginalName string
	Locator      string
	SizeBytes    int64
	ContentType  string
}
