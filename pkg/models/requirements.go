package models

import "time"

// DestinationType is the kind of organization a clinician is credentialing with.
type DestinationType string

const (
	DestinationHospital     DestinationType = "hospital"
	DestinationGroup        DestinationType = "group"
	DestinationStaffingFirm DestinationType = "staffing_firm"
	DestinationTelehealth   DestinationType = "telehealth"
)

// Valid reports whether the destination type is one of the known values.
func (d DestinationType) Valid() bool {
	switch d {
	case DestinationHospital, DestinationGroup, DestinationStaffingFirm, DestinationTelehealth:
		return true
	default:
		return false
	}
}

// Requirement categories used by checklists and gap analysis.
const (
	CategoryIdentity      = "Identity"
	CategoryEducation     = "Education"
	CategoryTraining      = "Training"
	CategoryLicensing     = "Licensing"
	CategoryCertification = "Certification"
	CategoryMalpractice   = "Malpractice"
	CategoryReferences    = "References"
	CategoryWorkHistory   = "Work History"
	CategoryDisclosures   = "Disclosures"
	CategoryEnrollment    = "Enrollment"
	CategoryDocuments     = "Documents"
)

// RequirementStatus is the completion state of one checklist requirement.
type RequirementStatus string

const (
	RequirementPending   RequirementStatus = "pending"
	RequirementComplete  RequirementStatus = "complete"
	RequirementException RequirementStatus = "exception"
)

// Requirement is one item on a destination's credentialing checklist.
type Requirement struct {
	ID          string            `json:"id"`
	Category    string            `json:"category"    validate:"required"`
	Description string            `json:"description"`
	Required    bool              `json:"required"`
	Status      RequirementStatus `json:"status"`
}

// RequirementsChecklist is the set of requirements one destination imposes.
type RequirementsChecklist struct {
	DestinationID   string          `json:"destination_id"   validate:"required"`
	DestinationType DestinationType `json:"destination_type" validate:"required"`
	Requirements    []Requirement   `json:"requirements"`
	GeneratedAt     time.Time       `json:"generated_at"`
}

// Categories returns the distinct requirement categories in checklist order.
func (c *RequirementsChecklist) Categories() []string {
	seen := make(map[string]bool)

	var categories []string

	for _, req := range c.Requirements {
		if !seen[req.Category] {
			seen[req.Category] = true

			categories = append(categories, req.Category)
		}
	}

	return categories
}

// PriorVerification records a verification carried over from an earlier
// workflow run, considered by the freshness policy at graph-build time.
type PriorVerification struct {
	Kind       TaskKind  `json:"kind"`
	Category   string    `json:"category"`
	TaskRunID  string    `json:"task_run_id"`
	VerifiedAt time.Time `json:"verified_at"`
}
