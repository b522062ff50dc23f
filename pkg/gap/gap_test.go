package gap_test

import (
	"testing"

	"github.com/credentio/credentio/pkg/gap"
	"github.com/credentio/credentio/pkg/models"
	"github.com/credentio/credentio/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze_CompletePassport(t *testing.T) {
	t.Parallel()

	passport := testutil.Passport()
	checklist := testutil.Checklist(models.DestinationHospital)

	findings := gap.Analyze(passport, checklist)

	require.Len(t, findings, len(checklist.Categories()))

	for _, finding := range findings {
		assert.Equal(t, gap.StatusSatisfied, finding.Status, "category %s", finding.Category)
	}

	assert.Empty(t, gap.Gaps(findings))
}

func TestAnalyze_MissingSections(t *testing.T) {
	t.Parallel()

	passport := testutil.Passport(func(p *models.Passport) {
		p.Malpractice = nil
		p.References = p.References[:1]
	})
	checklist := testutil.Checklist(models.DestinationHospital)

	findings := gap.Analyze(passport, checklist)
	gaps := gap.Gaps(findings)

	assert.ElementsMatch(t, []string{models.CategoryMalpractice, models.CategoryReferences}, gaps)
}

func TestAnalyze_DeduplicatesCategories(t *testing.T) {
	t.Parallel()

	passport := testutil.Passport()
	checklist := testutil.Checklist(models.DestinationGroup)

	findings := gap.Analyze(passport, checklist)

	seen := make(map[string]int)
	for _, finding := range findings {
		seen[finding.Category]++
	}

	// The group checklist carries two Enrollment requirements but the analysis
	// reports the category once.
	assert.Equal(t, 1, seen[models.CategoryEnrollment])
}

func TestAnalyze_SkipsOptionalRequirements(t *testing.T) {
	t.Parallel()

	passport := testutil.Passport(func(p *models.Passport) {
		p.Malpractice = nil
	})
	checklist := testutil.Checklist(models.DestinationHospital, func(c *models.RequirementsChecklist) {
		for i := range c.Requirements {
			if c.Requirements[i].Category == models.CategoryMalpractice {
				c.Requirements[i].Required = false
			}
		}
	})

	findings := gap.Analyze(passport, checklist)

	for _, finding := range findings {
		assert.NotEqual(t, models.CategoryMalpractice, finding.Category)
	}
}

func TestCategorySatisfied(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		category  string
		override  func(*models.Passport)
		satisfied bool
	}{
		{"identity present", models.CategoryIdentity, nil, true},
		{"identity missing legal name", models.CategoryIdentity, func(p *models.Passport) { p.Identity.LegalName = "" }, false},
		{"training requires residency", models.CategoryTraining, func(p *models.Passport) { p.Training[0].ProgramType = "fellowship" }, false},
		{"references need two", models.CategoryReferences, func(p *models.Passport) { p.References = p.References[:1] }, false},
		{"enrollment needs npi", models.CategoryEnrollment, func(p *models.Passport) { p.Enrollment.PracticeLocations[0].NPI = "" }, false},
		{"enrollment needs w9", models.CategoryEnrollment, func(p *models.Passport) { p.Enrollment.W9OnFile = false }, false},
		{"documents present", models.CategoryDocuments, nil, true},
		{"unknown category never satisfied", "Telepathy", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			overrides := []func(*models.Passport){}
			if tt.override != nil {
				overrides = append(overrides, tt.override)
			}

			passport := testutil.Passport(overrides...)
			assert.Equal(t, tt.satisfied, gap.CategorySatisfied(passport, tt.category))
		})
	}
}
