// Package testutil provides domain fixtures shared across test packages. The
// defaults describe a clinician whose passport passes every check; tests break
// the specific piece they care about through the override functions.
package testutil

import (
	"fmt"
	"time"

	"github.com/credentio/credentio/pkg/models"
)

// Passport returns a complete, internally consistent passport. Overrides are
// applied in order.
func Passport(overrides ...func(*models.Passport)) *models.Passport {
	now := time.Now().UTC()
	nextYear := now.AddDate(1, 0, 0)
	graduated := now.AddDate(-12, 0, 0)

	passport := &models.Passport{
		ClinicianID: "clin-001",
		Identity: models.Identity{
			LegalName:   "Dana Reyes",
			DateOfBirth: time.Date(1982, 4, 17, 0, 0, 0, 0, time.UTC),
			Email:       "dana.reyes@example.com",
			Phone:       "555-0134",
			AddressHistory: []models.Address{
				{
					Street:    "12 Main St",
					City:      "Springfield",
					State:     "IL",
					ZipCode:   "62701",
					Country:   "US",
					StartDate: now.AddDate(-6, 0, 0),
				},
			},
		},
		Education: []models.Education{
			{
				Institution:    "State Medical University",
				Degree:         "MD",
				FieldOfStudy:   "Medicine",
				GraduationDate: &graduated,
				Verified:       true,
			},
		},
		Training: []models.Training{
			{
				ProgramName: "Internal Medicine Residency",
				Institution: "County General Hospital",
				Specialty:   "Internal Medicine",
				ProgramType: "residency",
			},
		},
		WorkHistory: []models.WorkHistory{
			{
				Employer:  "County General Hospital",
				Position:  "Attending Physician",
				StartDate: now.AddDate(-5, 0, 0),
				Location:  "Springfield, IL",
				Verified:  true,
			},
		},
		Licenses: models.Licenses{
			StateLicenses: []models.StateLicense{
				{
					State:          "IL",
					LicenseNumber:  "IL-443211",
					LicenseType:    "MD",
					IssueDate:      now.AddDate(-4, 0, 0),
					ExpirationDate: nextYear,
					Status:         models.LicenseActive,
					Verified:       true,
				},
			},
			DEANumber:     "BR1234563",
			DEAExpiration: &nextYear,
		},
		BoardCertifications: []models.BoardCertification{
			{
				BoardName:           "ABIM",
				Specialty:           "Internal Medicine",
				CertificationNumber: "123456",
				ExpirationDate:      &nextYear,
				Status:              "active",
				Verified:            true,
			},
		},
		Malpractice: &models.Malpractice{
			Carrier:        "MedShield",
			PolicyNumber:   "MS-99021",
			CoverageAmount: 1000000,
			EffectiveDate:  now.AddDate(-1, 0, 0),
			ExpirationDate: nextYear,
		},
		Disclosures: []models.Disclosure{
			{
				Type:         "disciplinary_action",
				Description:  "Documentation lapse, remediated",
				Date:         now.AddDate(-8, 0, 0),
				Jurisdiction: "IL",
				Resolved:     true,
			},
		},
		References: []models.Reference{
			{Name: "Dr. Ana Ortiz", Title: "Chief of Medicine", Organization: "County General", Relationship: "supervisor", Verified: true},
			{Name: "Dr. Ben Liu", Title: "Attending", Organization: "County General", Relationship: "peer", Verified: true},
		},
		Enrollment: models.Enrollment{
			PracticeLocations: []models.PracticeLocation{
				{
					Name: "Springfield Clinic",
					NPI:  "1234567893",
					Address: models.Address{
						Street: "44 Oak Ave", City: "Springfield", State: "IL",
						ZipCode: "62702", Country: "US", StartDate: now.AddDate(-3, 0, 0),
					},
				},
			},
			EIN:      "12-3456789",
			W9OnFile: true,
		},
		Documents: []models.Document{
			{ID: "doc-1", DocumentType: "medical_license", FileName: "license.pdf", UploadedAt: now.AddDate(0, -1, 0)},
		},
		UpdatedAt: now,
	}

	for _, override := range overrides {
		override(passport)
	}

	return passport
}

// Checklist returns the requirements checklist a destination of the given type
// imposes, every item required.
func Checklist(destinationType models.DestinationType, overrides ...func(*models.RequirementsChecklist)) *models.RequirementsChecklist {
	requirements := []models.Requirement{
		{ID: "identity-legal-name", Category: models.CategoryIdentity, Description: "Legal name verification", Required: true},
		{ID: "license-state-active", Category: models.CategoryLicensing, Description: "Active state license", Required: true},
		{ID: "malpractice-coverage", Category: models.CategoryMalpractice, Description: "Current malpractice insurance", Required: true},
		{ID: "references-peer", Category: models.CategoryReferences, Description: "2-3 peer references", Required: true},
		{ID: "work-history-5-years", Category: models.CategoryWorkHistory, Description: "5-10 years work history", Required: true},
		{ID: "disclosures-complete", Category: models.CategoryDisclosures, Description: "Sanctions, discipline, criminal disclosures", Required: true},
	}

	if destinationType == models.DestinationHospital || destinationType == models.DestinationGroup {
		requirements = append(requirements,
			models.Requirement{ID: "education-medical-school", Category: models.CategoryEducation, Description: "Medical school diploma", Required: true},
			models.Requirement{ID: "training-residency", Category: models.CategoryTraining, Description: "Residency completion certificate", Required: true},
			models.Requirement{ID: "board-certification", Category: models.CategoryCertification, Description: "Board certification in specialty", Required: true},
		)
	}

	if destinationType == models.DestinationTelehealth || destinationType == models.DestinationGroup {
		requirements = append(requirements,
			models.Requirement{ID: "enrollment-npi", Category: models.CategoryEnrollment, Description: "NPI number", Required: true},
			models.Requirement{ID: "enrollment-w9", Category: models.CategoryEnrollment, Description: "W9 form", Required: true},
		)
	}

	checklist := &models.RequirementsChecklist{
		DestinationID:   "dest-001",
		DestinationType: destinationType,
		Requirements:    requirements,
		GeneratedAt:     time.Now().UTC(),
	}

	for _, override := range overrides {
		override(checklist)
	}

	return checklist
}

// Workflow returns a minimal workflow aggregate with the given task runs.
func Workflow(status models.WorkflowStatus, runs ...*models.TaskRun) *models.Workflow {
	now := time.Now().UTC()

	return &models.Workflow{
		ID:              "wf-test-0001",
		ClinicianID:     "clin-001",
		DestinationID:   "dest-001",
		DestinationType: models.DestinationHospital,
		Status:          status,
		TaskRuns:        runs,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Task returns a task run of the given kind and status for the test workflow.
func Task(kind models.TaskKind, status models.TaskStatus, dependsOn ...models.TaskKind) *models.TaskRun {
	return &models.TaskRun{
		ID:         fmt.Sprintf("task-%s-test", kind),
		WorkflowID: "wf-test-0001",
		Kind:       kind,
		DependsOn:  dependsOn,
		Status:     status,
		CreatedAt:  time.Now().UTC(),
	}
}
