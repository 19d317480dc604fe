package db

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Experience represents an employment history entry
type Experience struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Company   string    `json:"company"`
	RoleTitle string    `json:"role_title"`
	StartDate *Date     `json:"start_date,omitempty"`
	EndDate   *Date     `json:"end_date,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ExperienceInput holds the fields for a new experience entry
type ExperienceInput struct {
	Company   string
	RoleTitle string
	StartDate *Date
	EndDate   *Date
}

// Education represents an education entry
type Education struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	School     string    `json:"school"`
	DegreeType string    `json:"degree_type,omitempty"`
	Field      string    `json:"field,omitempty"`
	StartDate  *Date     `json:"start_date,omitempty"`
	EndDate    *Date     `json:"end_date,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// EducationInput holds the fields for a new education entry
type EducationInput struct {
	School     string
	DegreeType string
	Field      string
	StartDate  *Date
	EndDate    *Date
}

// Skill represents a catalog skill assigned to a user
type Skill struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	NameNormalized string    `json:"name_normalized"`
}

var skillSynonyms = map[string]string{
	"golang":                "go",
	"postgresql":            "postgres",
	"javascript":            "js",
	"typescript":            "ts",
	"kubernetes":            "k8s",
	"amazon web services":   "aws",
	"google cloud platform": "gcp",
}

// NormalizeSkillName normalizes a skill name for matching
func NormalizeSkillName(name string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(name), " "))
	if canonical, ok := skillSynonyms[normalized]; ok {
		return canonical
	}
	return normalized
}

// Date is a custom type for handling SQL DATE (YYYY-MM-DD)
type Date struct {
	time.Time
}

// Scan implements the Scanner interface
func (d *Date) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	t, ok := value.(time.Time)
	if !ok {
		return errors.New("failed to scan Date")
	}
	d.Time = t
	return nil
}

// Value implements the Valuer interface
func (d *Date) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	return d.Time, nil
}

// MarshalJSON implements json.Marshaler
func (d *Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format("2006-01-02"))
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Date) UnmarshalJSON(data []byte) error {
	str := string(data)
	if str == "null" || str == `""` {
		return nil
	}
	// Trim quotes
	if len(str) > 2 && str[0] == '"' && str[len(str)-1] == '"' {
		str = str[1 : len(str)-1]
	}
	var err error
	d.Time, err = time.Parse("2006-01-02", str)
	return err
}
