package doctor

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medrec/medrec-api/pkg/pagination"
)

type Doctor struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index"`

	FirstName string `gorm:"column:first_name;type:varchar(100);not null"`
	LastName  string `gorm:"column:last_name;type:varchar(100);not null"`

	// License / practitioner identifier, unique among non-deleted rows.
	IdNumber string `gorm:"column:id_number;type:varchar(50);not null"`

	// General practitioners may be assigned to patients as their default
	// care provider.
	IsGP bool `gorm:"column:is_gp;not null;default:false;index"`

	// Unapproved doctors are invisible to non-admin callers.
	Approved bool `gorm:"column:approved;not null;default:false;index"`

	ImageURL string `gorm:"column:image_url;type:text"`

	Specialties []Specialty `gorm:"many2many:clinical.doctor_specialties"`

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid"`
}

func (Doctor) TableName() string {
	return "clinical.doctors"
}

func (d *Doctor) FullName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

type Specialty struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index"`

	Name        string `gorm:"column:name;type:varchar(100);not null"`
	Description string `gorm:"column:description;type:text"`

	Doctors []Doctor `gorm:"many2many:clinical.doctor_specialties"`
}

func (Specialty) TableName() string {
	return "clinical.specialties"
}

type CreateDoctorCommand struct {
	FirstName    string
	LastName     string
	IdNumber     string
	IsGP         bool
	Approved     bool
	ImageURL     string
	SpecialtyIDs []uuid.UUID
	CreatedBy    uuid.UUID
}

// UpdateDoctorCommand applies only the fields that are present; nil pointers
// leave the stored value untouched.
type UpdateDoctorCommand struct {
	FirstName    *string
	LastName     *string
	IdNumber     *string
	IsGP         *bool
	Approved     *bool
	ImageURL     *string
	SpecialtyIDs *[]uuid.UUID
	UpdatedBy    uuid.UUID
}

type CreateSpecialtyCommand struct {
	Name        string
	Description string
}

type UpdateSpecialtyCommand struct {
	Name        *string
	Description *string
}

// ListQuery narrows a doctor listing beyond the shared page contract.
// ApprovedOnly hides unapproved doctors from non-admin callers.
type ListQuery struct {
	Page         pagination.Request
	ApprovedOnly bool
	GPOnly       bool
}
