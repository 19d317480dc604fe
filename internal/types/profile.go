// Package types provides request types for the profile API and their validation rules.
package types

import (
	"net/url"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// ExperienceLevels accepted by ProfileUpdate.ExperienceLevel.
var ExperienceLevels = []string{"entry", "junior", "mid", "senior", "lead", "executive"}

// ProfileUpdate is a partial profile change. Nil fields are left unchanged;
// a pointer to "" clears a text field.
type ProfileUpdate struct {
	JobTitle            *string `json:"job_title,omitempty" validate:"omitempty,text,max=200"`
	Location            *string `json:"location,omitempty" validate:"omitempty,text,max=200"`
	ShortSummary        *string `json:"short_summary,omitempty" validate:"omitempty,text,max=500"`
	ProfessionalSummary *string `json:"professional_summary,omitempty" validate:"omitempty,text,max=5000"`
	YearsExperience     *int    `json:"years_experience,omitempty" validate:"omitempty,min=0,max=80"`
	// ClearYearsExperience unsets years of experience. It wins over YearsExperience.
	ClearYearsExperience bool    `json:"clear_years_experience,omitempty"`
	ExperienceLevel      *string `json:"experience_level,omitempty" validate:"omitempty,text,experience_level"`
	Industry             *string `json:"industry,omitempty" validate:"omitempty,text,max=200"`
	WebsiteURL           *string `json:"website_url,omitempty" validate:"omitempty,text,max=500,web_url"`
	LinkedInURL          *string `json:"linkedin_url,omitempty" validate:"omitempty,text,max=500,web_url"`
	GitHubURL            *string `json:"github_url,omitempty" validate:"omitempty,text,max=500,web_url"`
}

// Empty reports whether the update changes nothing.
func (r *ProfileUpdate) Empty() bool {
	return *r == ProfileUpdate{}
}

// Validate validates the ProfileUpdate using the validator.
func (r *ProfileUpdate) Validate() error {
	return newValidator().Struct(r)
}

// ExperienceRequest adds an employment history entry.
type ExperienceRequest struct {
	Company   string `json:"company" validate:"required,text,max=200"`
	RoleTitle string `json:"role_title" validate:"required,text,max=200"`
	StartDate string `json:"start_date,omitempty" validate:"omitempty,text,datetime=2006-01-02"`
	EndDate   string `json:"end_date,omitempty" validate:"omitempty,text,datetime=2006-01-02"`
}

// Validate validates the ExperienceRequest using the validator.
func (r *ExperienceRequest) Validate() error {
	return newValidator().Struct(r)
}

// EducationRequest adds an education entry.
type EducationRequest struct {
	School     string `json:"school" validate:"required,text,max=200"`
	DegreeType string `json:"degree_type,omitempty" validate:"omitempty,text,max=100"`
	Field      string `json:"field,omitempty" validate:"omitempty,text,max=200"`
	StartDate  string `json:"start_date,omitempty" validate:"omitempty,text,datetime=2006-01-02"`
	EndDate    string `json:"end_date,omitempty" validate:"omitempty,text,datetime=2006-01-02"`
}

// Validate validates the EducationRequest using the validator.
func (r *EducationRequest) Validate() error {
	return newValidator().Struct(r)
}

// SkillRequest assigns a skill by name.
type SkillRequest struct {
	Name string `json:"name" validate:"required,text,max=100"`
}

// Validate validates the SkillRequest using the validator.
func (r *SkillRequest) Validate() error {
	return newValidator().Struct(r)
}

func newValidator() *validator.Validate {
	validate := validator.New()
	// Report json names so errors match the request body.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = validate.RegisterValidation("experience_level", validateExperienceLevel)
	_ = validate.RegisterValidation("web_url", validateWebURL)
	_ = validate.RegisterValidation("text", func(fl validator.FieldLevel) bool {
		return ValidText(fl.Field().String())
	})
	return validate
}

// ValidText reports whether s is valid UTF-8 without NUL characters, which
// PostgreSQL text columns cannot store.
func ValidText(s string) bool {
	return utf8.ValidString(s) && !strings.ContainsRune(s, 0)
}

// validateExperienceLevel accepts "" (clear) or one of ExperienceLevels.
func validateExperienceLevel(fl validator.FieldLevel) bool {
	v := fl.Field().String()
	if v == "" {
		return true
	}
	for _, level := range ExperienceLevels {
		if v == level {
			return true
		}
	}
	return false
}

// validateWebURL accepts "" (clear) or an absolute http(s) URL with a host.
func validateWebURL(fl validator.FieldLevel) bool {
	v := strings.TrimSpace(fl.Field().String())
	if v == "" {
		return true
	}
	u, err := url.Parse(v)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// FieldError returns the json field name and a short message for the first
// failed validation in err, or false when err is not a validation error.
func FieldError(err error) (field, message string, ok bool) {
	errs, isValidation := err.(validator.ValidationErrors)
	if !isValidation || len(errs) == 0 {
		return "", "", false
	}
	fe := errs[0]
	switch fe.Tag() {
	case "required":
		message = "is required"
	case "max":
		message = "must be at most " + fe.Param() + " characters"
		if fe.Kind() == reflect.Int {
			message = "must be at most " + fe.Param()
		}
	case "min":
		message = "must be at least " + fe.Param()
	case "experience_level":
		message = "must be one of " + strings.Join(ExperienceLevels, ", ")
	case "web_url":
		message = "must be an http or https URL"
	case "text":
		message = "must be valid UTF-8 text without NUL characters"
	case "datetime":
		message = "must be a date in YYYY-MM-DD format"
	default:
		message = "failed " + fe.Tag() + " validation"
	}
	return fe.Field(), message, true
}
