// Package quality implements the data quality agent: completeness and
// consistency checks over the passport, producing a prioritized issue list.
// Critical issues fail the task so a reviewer sees them before any submission.
package quality

import (
	"context"
	"fmt"
	"time"

	"github.com/credentio/credentio/pkg/evidence"
	"github.com/credentio/credentio/pkg/models"
	"github.com/credentio/credentio/pkg/protocol"
)

// Source names the data source consulted by this agent.
const Source = "quality_engine"

// Issue severities, highest first.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
)

// Issue is one detected data quality problem.
type Issue struct {
	FieldName    string `json:"field_name"`
	IssueType    string `json:"issue_type"`
	Severity     string `json:"severity"`
	Description  string `json:"description"`
	SuggestedFix string `json:"suggested_fix,omitempty"`
}

// Agent runs the completeness and consistency checks.
type Agent struct{}

func NewAgent() *Agent {
	return &Agent{}
}

func (a *Agent) Execute(ctx context.Context, run models.TaskRun, ectx protocol.ExecutionContext) (map[string]any, error) {
	logger := ectx.Logger.With("module", "quality_agent")

	if ectx.Passport == nil {
		return nil, protocol.NewExecutionError(protocol.FailureInconsistent,
			"passport is required to run quality checks", nil)
	}

	now := time.Now().UTC()
	issues := Check(ectx.Passport, now)
	score := CompletenessScore(ectx.Passport)

	var critical int

	for _, issue := range issues {
		if issue.Severity == SeverityCritical {
			critical++
		}
	}

	logger.InfoContext(ctx, "Ran quality checks",
		"workflow_id", run.WorkflowID,
		"issues", len(issues),
		"critical", critical,
		"completeness_score", score)

	if critical > 0 {
		first := ""

		for _, issue := range issues {
			if issue.Severity == SeverityCritical {
				first = issue.Description

				break
			}
		}

		return nil, protocol.NewExecutionError(protocol.FailureInconsistent,
			fmt.Sprintf("%d critical data quality issues, first: %s", critical, first), nil)
	}

	return map[string]any{
		"status":                "ok",
		"issues":                issues,
		"completeness_score":    score,
		evidence.ResultSourceKey: Source,
	}, nil
}

// Check runs every quality rule against the passport at the given instant.
func Check(passport *models.Passport, now time.Time) []Issue {
	var issues []Issue

	if passport.Identity.LegalName == "" {
		issues = append(issues, Issue{
			FieldName:   "identity.legal_name",
			IssueType:   "missing",
			Severity:    SeverityCritical,
			Description: "Legal name is required",
		})
	}

	for _, license := range passport.Licenses.StateLicenses {
		if license.ExpirationDate.Before(now) {
			issues = append(issues, Issue{
				FieldName:    fmt.Sprintf("licenses.state_licenses.%s", license.State),
				IssueType:    "expired",
				Severity:     SeverityCritical,
				Description:  fmt.Sprintf("License in %s expired on %s", license.State, license.ExpirationDate.Format("2006-01-02")),
				SuggestedFix: "Renew license or update expiration date",
			})
		}
	}

	if passport.Licenses.DEAExpiration != nil && passport.Licenses.DEAExpiration.Before(now) {
		issues = append(issues, Issue{
			FieldName:    "licenses.dea_expiration",
			IssueType:    "expired",
			Severity:     SeverityCritical,
			Description:  fmt.Sprintf("DEA registration expired on %s", passport.Licenses.DEAExpiration.Format("2006-01-02")),
			SuggestedFix: "Renew DEA registration",
		})
	}

	for _, cert := range passport.BoardCertifications {
		if cert.ExpirationDate != nil && cert.ExpirationDate.Before(now) {
			issues = append(issues, Issue{
				FieldName:    fmt.Sprintf("board_certifications.%s", cert.BoardName),
				IssueType:    "expired",
				Severity:     SeverityHigh,
				Description:  fmt.Sprintf("Board certification %s expired on %s", cert.Specialty, cert.ExpirationDate.Format("2006-01-02")),
				SuggestedFix: "Renew board certification or update status",
			})
		}
	}

	if passport.Malpractice != nil && passport.Malpractice.ExpirationDate.Before(now) {
		issues = append(issues, Issue{
			FieldName:    "malpractice.expiration_date",
			IssueType:    "expired",
			Severity:     SeverityCritical,
			Description:  fmt.Sprintf("Malpractice insurance expired on %s", passport.Malpractice.ExpirationDate.Format("2006-01-02")),
			SuggestedFix: "Renew malpractice insurance",
		})
	}

	for i, work := range passport.WorkHistory {
		if work.EndDate != nil && work.StartDate.After(*work.EndDate) {
			issues = append(issues, Issue{
				FieldName:    fmt.Sprintf("work_history[%d]", i),
				IssueType:    "inconsistent",
				Severity:     SeverityHigh,
				Description:  fmt.Sprintf("Start date %s is after end date %s", work.StartDate.Format("2006-01-02"), work.EndDate.Format("2006-01-02")),
				SuggestedFix: "Correct the date range",
			})
		}
	}

	history := passport.Identity.AddressHistory
	for i := 0; i+1 < len(history); i++ {
		current, next := history[i], history[i+1]
		if current.EndDate != nil && current.EndDate.After(next.StartDate) {
			issues = append(issues, Issue{
				FieldName:    fmt.Sprintf("identity.address_history[%d]", i),
				IssueType:    "inconsistent",
				Severity:     SeverityMedium,
				Description:  "Address date ranges overlap",
				SuggestedFix: "Correct address date ranges",
			})
		}
	}

	if len(passport.References) < 2 {
		issues = append(issues, Issue{
			FieldName:    "references",
			IssueType:    "missing",
			Severity:     SeverityHigh,
			Description:  "At least 2 peer references required",
			SuggestedFix: "Add additional peer references",
		})
	}

	return issues
}

// CompletenessScore is the fraction of major passport sections populated.
func CompletenessScore(passport *models.Passport) float64 {
	sections := []bool{
		passport.Identity.LegalName != "",
		len(passport.Education) > 0,
		len(passport.Training) > 0,
		len(passport.WorkHistory) > 0,
		len(passport.Licenses.StateLicenses) > 0,
		len(passport.BoardCertifications) > 0,
		passport.Malpractice != nil,
		len(passport.References) > 0,
		len(passport.Enrollment.PracticeLocations) > 0,
		len(passport.Disclosures) > 0,
	}

	var completed int

	for _, ok := range sections {
		if ok {
			completed++
		}
	}

	return float64(completed) / float64(len(sections))
}
