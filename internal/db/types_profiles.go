package db

import (
	"time"

	"github.com/google/uuid"
)

// Experience levels accepted by profiles.experience_level.
const (
	LevelEntry     = "entry"
	LevelJunior    = "junior"
	LevelMid       = "mid"
	LevelSenior    = "senior"
	LevelLead      = "lead"
	LevelExecutive = "executive"
)

// ExperienceLevels lists the valid experience levels in ascending order.
var ExperienceLevels = []string{LevelEntry, LevelJunior, LevelMid, LevelSenior, LevelLead, LevelExecutive}

// Profile is the one-per-user profile record. CompletionScore is derived and
// only written by score recomputation.
type Profile struct {
	UserID              uuid.UUID `json:"user_id"`
	JobTitle            string    `json:"job_title"`
	Location            string    `json:"location"`
	ShortSummary        string    `json:"short_summary"`
	ProfessionalSummary string    `json:"professional_summary"`
	YearsExperience     *int      `json:"years_experience,omitempty"`
	ExperienceLevel     string    `json:"experience_level,omitempty"`
	Industry            string    `json:"industry"`
	WebsiteURL          string    `json:"website_url"`
	LinkedInURL         string    `json:"linkedin_url"`
	GitHubURL           string    `json:"github_url"`
	ImageLocator        *string   `json:"image_locator,omitempty"`
	CompletionScore     int       `json:"completion_score"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Fields returns the client-editable fields of the profile.
func (p *Profile) Fields() ProfileFields {
	return ProfileFields{
		JobTitle:            p.JobTitle,
		Location:            p.Location,
		ShortSummary:        p.ShortSummary,
		ProfessionalSummary: p.ProfessionalSummary,
		YearsExperience:     p.YearsExperience,
		ExperienceLevel:     p.ExperienceLevel,
		Industry:            p.Industry,
		WebsiteURL:          p.WebsiteURL,
		LinkedInURL:         p.LinkedInURL,
		GitHubURL:           p.GitHubURL,
	}
}

// ProfileFields is the full set of client-editable profile columns.
// The image locator and completion score are written separately.
type ProfileFields struct {
	JobTitle            string
	Location            string
	ShortSummary        string
	ProfessionalSummary string
	YearsExperience     *int
	ExperienceLevel     string
	Industry            string
	WebsiteURL          string
	LinkedInURL         string
	GitHubURL           string
}

// ScoreCounts are the related-entity counts that feed the completion score.
type ScoreCounts struct {
	Experiences int
	Education   int
	Skills      int
	Resumes     int
}
