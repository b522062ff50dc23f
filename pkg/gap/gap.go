// Package gap compares passport field coverage against a destination's
// requirements checklist. Analyze is a pure function: it is used once at
// graph-build time and again whenever the quality task re-runs after intake or
// document updates.
package gap

import "github.com/credentio/credentio/pkg/models"

// Status of one analyzed category.
type Status string

const (
	StatusSatisfied Status = "satisfied"
	StatusGap       Status = "gap"
)

// Finding is the coverage verdict for one requirement category.
type Finding struct {
	Category string `json:"category"`
	Status   Status `json:"status"`
}

// Analyze returns one finding per distinct required category in the checklist,
// in checklist order. Categories the passport does not cover are gaps.
func Analyze(passport *models.Passport, checklist *models.RequirementsChecklist) []Finding {
	findings := make([]Finding, 0, len(checklist.Requirements))
	seen := make(map[string]bool)

	for _, req := range checklist.Requirements {
		if !req.Required || seen[req.Category] {
			continue
		}

		seen[req.Category] = true

		status := StatusGap
		if CategorySatisfied(passport, req.Category) {
			status = StatusSatisfied
		}

		findings = append(findings, Finding{Category: req.Category, Status: status})
	}

	return findings
}

// Gaps filters findings down to the unsatisfied categories.
func Gaps(findings []Finding) []string {
	var gaps []string

	for _, f := range findings {
		if f.Status == StatusGap {
			gaps = append(gaps, f.Category)
		}
	}

	return gaps
}

// CategorySatisfied reports whether the passport covers one requirement
// category. Unknown categories are never satisfied, which surfaces checklist
// typos as gaps instead of silently passing them.
func CategorySatisfied(passport *models.Passport, category string) bool {
	switch category {
	case models.CategoryIdentity:
		return passport.Identity.LegalName != ""
	case models.CategoryEducation:
		return len(passport.Education) > 0
	case models.CategoryTraining:
		return hasResidency(passport)
	case models.CategoryLicensing:
		return len(passport.Licenses.StateLicenses) > 0
	case models.CategoryCertification:
		return len(passport.BoardCertifications) > 0
	case models.CategoryMalpractice:
		return passport.Malpractice != nil
	case models.CategoryReferences:
		return len(passport.References) >= 2
	case models.CategoryWorkHistory:
		return len(passport.WorkHistory) > 0
	case models.CategoryDisclosures:
		return len(passport.Disclosures) > 0
	case models.CategoryEnrollment:
		return passport.FirstNPI() != "" && passport.Enrollment.W9OnFile
	case models.CategoryDocuments:
		return len(passport.Documents) > 0
	default:
		return false
	}
}

func hasResidency(passport *models.Passport) bool {
	for _, t := range passport.Training {
		if t.ProgramType == "residency" {
			return true
		}
	}

	return false
}
