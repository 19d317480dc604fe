// Package scoring computes the profile completion score.
//
// Score is a pure function of a weight table, the profile's fields and the
// counts of related entities. The weight table is an explicit value so
// alternative tables can be tested without touching package state.
package scoring

import (
	"math"
	"strings"
)

// Weights is the immutable weight table used by Score. Copy it to modify.
type Weights struct {
	// BasicField is awarded per non-empty basic field
	// (job title, location, years of experience, experience level, industry).
	BasicField float64
	// LongText is awarded per non-empty summary (short and professional).
	LongText float64

	// Link weights are summed, then capped at LinksCap.
	Website             float64
	ProfessionalNetwork float64
	CodeRepository      float64
	LinksCap            float64

	Image float64

	// Related-entity categories score min(Cap, Base + Per*count) when count > 0.
	Experience Tier
	Education  Tier
	Skills     Tier

	// Resume is awarded when at least one resume document exists.
	Resume float64

	// Max is the upper clamp of the final score.
	Max float64
}

// Tier describes a count-based category.
type Tier struct {
	Base float64
	Per  float64
	Cap  float64
}

func (t Tier) points(count int) float64 {
	if count <= 0 {
		return 0
	}
	return math.Min(t.Cap, t.Base+t.Per*float64(count))
}

// DefaultWeights returns the production weight table. Category maxima sum to 110,
// so a fully populated profile clamps to 100.
func DefaultWeights() Weights {
	return Weights{
		BasicField:          5,
		LongText:            10,
		Website:             3,
		ProfessionalNetwork: 4,
		CodeRepository:      3,
		LinksCap:            10,
		Image:               5,
		Experience:          Tier{Base: 5, Per: 2, Cap: 15},
		Education:           Tier{Base: 5, Per: 2.5, Cap: 10},
		Skills:              Tier{Base: 3, Per: 1, Cap: 15},
		Resume:              10,
		Max:                 100,
	}
}

// Input holds the profile fields that contribute to the score.
type Input struct {
	JobTitle            string
	Location            string
	YearsExperience     *int
	ExperienceLevel     string
	Industry            string
	ShortSummary        string
	ProfessionalSummary string
	WebsiteURL          string
	LinkedInURL         string
	GitHubURL           string
	HasImage            bool
}

// Counts holds related-entity counts read in the same transaction as the mutation.
type Counts struct {
	Experiences int
	Education   int
	Skills      int
	Resumes     int
}

// Breakdown is the per-category contribution before clamping.
type Breakdown struct {
	Basic      float64 `json:"basic"`
	LongText   float64 `json:"long_text"`
	Links      float64 `json:"links"`
	Image      float64 `json:"image"`
	Experience float64 `json:"experience"`
	Education  float64 `json:"education"`
	Skills     float64 `json:"skills"`
	Resume     float64 `json:"resume"`
}

// Sum returns the unclamped total.
func (b Breakdown) Sum() float64 {
	return b.Basic + b.LongText + b.Links + b.Image + b.Experience + b.Education + b.Skills + b.Resume
}

// Explain computes the per-category contributions.
func Explain(w Weights, in Input, c Counts) Breakdown {
	var b Breakdown

	for _, s := range []string{in.JobTitle, in.Location, in.ExperienceLevel, in.Industry} {
		if present(s) {
			b.Basic += w.BasicField
		}
	}
	if in.YearsExperience != nil {
		b.Basic += w.BasicField
	}

	for _, s := range []string{in.ShortSummary, in.ProfessionalSummary} {
		if present(s) {
			b.LongText += w.LongText
		}
	}

	if present(in.WebsiteURL) {
		b.Links += w.Website
	}
	if present(in.LinkedInURL) {
		b.Links += w.ProfessionalNetwork
	}
	if present(in.GitHubURL) {
		b.Links += w.CodeRepository
	}
	b.Links = math.Min(b.Links, w.LinksCap)

	if in.HasImage {
		b.Image = w.Image
	}

	b.Experience = w.Experience.points(c.Experiences)
	b.Education = w.Education.points(c.Education)
	b.Skills = w.Skills.points(c.Skills)

	if c.Resumes > 0 {
		b.Resume = w.Resume
	}
	return b
}

// Score returns clamp(round(sum), 0, w.Max). Halves round away from zero.
func Score(w Weights, in Input, c Counts) int {
	total := math.Round(Explain(w, in, c).Sum())
	return int(math.Max(0, math.Min(w.Max, total)))
}

func present(s string) bool {
	return strings.TrimSpace(s) != ""
}
