package patient

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medrec/medrec-api/pkg/pagination"
)

// insuranceValidWindow is how far back the last insurance payment may lie
// for the patient to count as insured.
const insuranceValidWindow = 6 * 30 * 24 * time.Hour

type Patient struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index"`

	FirstName string `gorm:"column:first_name;type:varchar(100);not null"`
	LastName  string `gorm:"column:last_name;type:varchar(100);not null"`

	// National identifier, unique among non-deleted rows, checksum-validated.
	EGN string `gorm:"column:egn;type:varchar(10);not null"`

	// Assigned general practitioner; must reference a doctor flagged as GP.
	GeneralPractitionerID *uuid.UUID `gorm:"column:general_practitioner_id;type:uuid;index"`

	LastInsurancePayment *time.Time `gorm:"column:last_insurance_payment;type:date"`

	// Auth subject binding for patient self-service.
	UserID *uuid.UUID `gorm:"column:user_id;type:uuid;index"`

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid"`
}

func (Patient) TableName() string {
	return "clinical.patients"
}

func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Insured reports whether the patient's last insurance payment falls within
// the validity window.
func (p *Patient) Insured() bool {
	return p.LastInsurancePayment != nil &&
		time.Since(*p.LastInsurancePayment) <= insuranceValidWindow
}

type CreatePatientCommand struct {
	FirstName             string
	LastName              string
	EGN                   string
	GeneralPractitionerID *uuid.UUID
	LastInsurancePayment  *time.Time
	UserID                *uuid.UUID
	CreatedBy             uuid.UUID
}

// UpdatePatientCommand applies only the fields that are present. Pointer
// fields distinguish "absent" from "set to empty": a non-nil pointer to the
// zero value clears the stored value (e.g. unassigning a GP).
type UpdatePatientCommand struct {
	FirstName             *string
	LastName              *string
	EGN                   *string
	GeneralPractitionerID **uuid.UUID
	LastInsurancePayment  **time.Time
	UpdatedBy             uuid.UUID
}

type ListQuery struct {
	Page pagination.Request
	// Restrict to patients assigned to this GP (doctor's own patient list).
	GeneralPractitionerID *uuid.UUID
}
