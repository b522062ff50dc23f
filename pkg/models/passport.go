package models

import "time"

// LicenseStatus is the operational state of a state medical license.
type LicenseStatus string

const (
	LicenseActive    LicenseStatus = "active"
	LicenseInactive  LicenseStatus = "inactive"
	LicenseExpired   LicenseStatus = "expired"
	LicenseSuspended LicenseStatus = "suspended"
	LicenseRevoked   LicenseStatus = "revoked"
)

type Address struct {
	Street    string     `json:"street"`
	City      string     `json:"city"`
	State     string     `json:"state"`
	ZipCode   string     `json:"zip_code"`
	Country   string     `json:"country"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

type Identity struct {
	LegalName      string    `json:"legal_name" validate:"required"`
	Aliases        []string  `json:"aliases,omitempty"`
	DateOfBirth    time.Time `json:"date_of_birth"`
	AddressHistory []Address `json:"address_history,omitempty"`
	Email          string    `json:"email"      validate:"omitempty,email"`
	Phone          string    `json:"phone"`
}

type Education struct {
	Institution    string     `json:"institution"`
	Degree         string     `json:"degree"`
	FieldOfStudy   string     `json:"field_of_study"`
	GraduationDate *time.Time `json:"graduation_date,omitempty"`
	Verified       bool       `json:"verified"`
}

type Training struct {
	ProgramName string `json:"program_name"`
	Institution string `json:"institution"`
	Specialty   string `json:"specialty"`
	ProgramType string `json:"program_type" validate:"omitempty,oneof=residency fellowship internship"`
}

type WorkHistory struct {
	Employer  string     `json:"employer"`
	Position  string     `json:"position"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Location  string     `json:"location"`
	Verified  bool       `json:"verified"`
}

type StateLicense struct {
	State          string        `json:"state"`
	LicenseNumber  string        `json:"license_number"`
	LicenseType    string        `json:"license_type"`
	IssueDate      time.Time     `json:"issue_date"`
	ExpirationDate time.Time     `json:"expiration_date"`
	Status         LicenseStatus `json:"status"`
	Verified       bool          `json:"verified"`
	VerifiedAt     *time.Time    `json:"verified_at,omitempty"`
}

type Licenses struct {
	StateLicenses []StateLicense `json:"state_licenses,omitempty"`
	DEANumber     string         `json:"dea_number,omitempty"`
	DEAExpiration *time.Time     `json:"dea_expiration,omitempty"`
}

type BoardCertification struct {
	BoardName           string     `json:"board_name"`
	Specialty           string     `json:"specialty"`
	CertificationNumber string     `json:"certification_number"`
	ExpirationDate      *time.Time `json:"expiration_date,omitempty"`
	Status              string     `json:"status" validate:"omitempty,oneof=active expired lapsed"`
	Verified            bool       `json:"verified"`
}

type Malpractice struct {
	Carrier        string    `json:"carrier"`
	PolicyNumber   string    `json:"policy_number"`
	CoverageAmount float64   `json:"coverage_amount"`
	EffectiveDate  time.Time `json:"effective_date"`
	ExpirationDate time.Time `json:"expiration_date"`
}

type Disclosure struct {
	Type         string    `json:"type" validate:"omitempty,oneof=sanction disciplinary_action criminal dea_action"`
	Description  string    `json:"description"`
	Date         time.Time `json:"date"`
	Jurisdiction string    `json:"jurisdiction"`
	Resolved     bool      `json:"resolved"`
}

type Reference struct {
	Name         string `json:"name"`
	Title        string `json:"title"`
	Organization string `json:"organization"`
	Email        string `json:"email" validate:"omitempty,email"`
	Relationship string `json:"relationship"`
	Verified     bool   `json:"verified"`
}

type PracticeLocation struct {
	Name          string   `json:"name"`
	Address       Address  `json:"address"`
	NPI           string   `json:"npi,omitempty"`
	TaxonomyCodes []string `json:"taxonomy_codes,omitempty"`
}

type Enrollment struct {
	PracticeLocations []PracticeLocation `json:"practice_locations,omitempty"`
	EIN               string             `json:"ein,omitempty"`
	W9OnFile          bool               `json:"w9_on_file"`
	Specialties       []string           `json:"specialties,omitempty"`
}

type Document struct {
	ID           string    `json:"id"`
	DocumentType string    `json:"document_type"`
	FileName     string    `json:"file_name"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// Passport is the read-only snapshot of a clinician's credentialing data record
// as seen by gap analysis and the agents. The orchestrator never mutates it.
type Passport struct {
	ClinicianID         string               `json:"clinician_id" validate:"required"`
	Identity            Identity             `json:"identity"`
	Education           []Education          `json:"education,omitempty"`
	Training            []Training           `json:"training,omitempty"`
	WorkHistory         []WorkHistory        `json:"work_history,omitempty"`
	Licenses            Licenses             `json:"licenses"`
	BoardCertifications []BoardCertification `json:"board_certifications,omitempty"`
	Malpractice         *Malpractice         `json:"malpractice,omitempty"`
	Disclosures         []Disclosure         `json:"disclosures,omitempty"`
	References          []Reference          `json:"references,omitempty"`
	Enrollment          Enrollment           `json:"enrollment"`
	Documents           []Document           `json:"documents,omitempty"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

// FirstNPI returns the first NPI found on any practice location, or empty.
func (p *Passport) FirstNPI() string {
	for _, loc := range p.Enrollment.PracticeLocations {
		if loc.NPI != "" {
			return loc.NPI
		}
	}

	return ""
}
