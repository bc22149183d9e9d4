package visit

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medrec/medrec-api/pkg/pagination"
)

// State transitions possibilities:
//
//	scheduled → completed
//	scheduled → cancelled
//
// completed and cancelled are terminal.
type VisitStatus string

const (
	StatusScheduled VisitStatus = "scheduled"
	StatusCompleted VisitStatus = "completed"
	StatusCancelled VisitStatus = "cancelled"
)

func (s VisitStatus) IsValid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type Visit struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index"`

	PatientID uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index"`
	DoctorID  uuid.UUID `gorm:"column:doctor_id;type:uuid;not null;index"`

	// Nullable: a patient-initiated booking has no diagnosis until the
	// consultation happens.
	DiagnosisID *uuid.UUID `gorm:"column:diagnosis_id;type:uuid;index"`

	VisitDate time.Time `gorm:"column:visit_date;type:date;not null;index"`
	// Slot time of day, "HH:MM".
	VisitTime string `gorm:"column:visit_time;type:varchar(5);not null"`

	Status VisitStatus `gorm:"column:status;type:varchar(20);not null;default:'scheduled';index"`

	SickLeave *SickLeave `gorm:"foreignKey:VisitID"`
	Treatment *Treatment `gorm:"foreignKey:VisitID"`

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid"`
}

func (Visit) TableName() string {
	return "clinical.visits"
}

// SickLeaveIssued is always derived from SickLeave presence, never stored.
func (v *Visit) SickLeaveIssued() bool {
	return v.SickLeave != nil
}

func (v *Visit) CanTransitionTo(newStatus VisitStatus) bool {
	allowed := map[VisitStatus][]VisitStatus{
		StatusScheduled: {StatusCompleted, StatusCancelled},
		StatusCompleted: {},
		StatusCancelled: {},
	}
	for _, s := range allowed[v.Status] {
		if s == newStatus {
			return true
		}
	}
	return false
}

func (v *Visit) Cancel() error {
	if !v.CanTransitionTo(StatusCancelled) {
		return ErrInvalidStatusTransition
	}
	v.Status = StatusCancelled
	return nil
}

func (v *Visit) Complete() error {
	if !v.CanTransitionTo(StatusCompleted) {
		return ErrInvalidStatusTransition
	}
	v.Status = StatusCompleted
	return nil
}

// ValidateTime checks the "HH:MM" slot time format.
func ValidateTime(t string) error {
	if _, err := time.Parse("15:04", t); err != nil {
		return ErrInvalidVisitTime
	}
	return nil
}

type SickLeave struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index"`

	VisitID uuid.UUID `gorm:"column:visit_id;type:uuid;not null;uniqueIndex"`

	StartDate    time.Time `gorm:"column:start_date;type:date;not null;index"`
	DurationDays int       `gorm:"column:duration_days;not null"`
}

func (SickLeave) TableName() string {
	return "clinical.sick_leaves"
}

type Treatment struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index"`

	VisitID uuid.UUID `gorm:"column:visit_id;type:uuid;not null;uniqueIndex"`

	Description string `gorm:"column:description;type:text"`

	Medicines []Medicine `gorm:"foreignKey:TreatmentID"`
}

func (Treatment) TableName() string {
	return "clinical.treatments"
}

type Medicine struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TreatmentID uuid.UUID `gorm:"column:treatment_id;type:uuid;not null;index"`

	Name      string `gorm:"column:name;type:varchar(150);not null"`
	Dosage    string `gorm:"column:dosage;type:varchar(100)"`
	Frequency string `gorm:"column:frequency;type:varchar(100)"`

	// Preserves the prescribed ordering within the treatment.
	Position int `gorm:"column:position;not null;default:0"`
}

func (Medicine) TableName() string {
	return "clinical.medicines"
}

type SickLeaveCommand struct {
	StartDate    time.Time
	DurationDays int
}

type MedicineCommand struct {
	Name      string
	Dosage    string
	Frequency string
}

type TreatmentCommand struct {
	Description string
	Medicines   []MedicineCommand
}

type CreateVisitCommand struct {
	PatientID   uuid.UUID
	DoctorID    uuid.UUID
	DiagnosisID *uuid.UUID
	VisitDate   time.Time
	VisitTime   string
	// Optional explicit status; when absent the lifecycle rules pick one.
	Status    *VisitStatus
	SickLeave *SickLeaveCommand
	Treatment *TreatmentCommand
	CreatedBy uuid.UUID
}

// ScheduleVisitCommand is the patient self-scheduling request: the patient
// is resolved from the caller's auth subject, the diagnosis stays absent and
// the status is always scheduled.
type ScheduleVisitCommand struct {
	DoctorID  uuid.UUID
	VisitDate time.Time
	VisitTime string
}

// UpdateVisitCommand applies only the fields that are present. DiagnosisID
// uses a double pointer so that "absent" and "clear the diagnosis" stay
// distinguishable.
type UpdateVisitCommand struct {
	PatientID   *uuid.UUID
	DoctorID    *uuid.UUID
	DiagnosisID **uuid.UUID
	VisitDate   *time.Time
	VisitTime   *string
	Status      *VisitStatus
	SickLeave   *SickLeaveCommand
	Treatment   *TreatmentCommand
	UpdatedBy   uuid.UUID
}

type ListQuery struct {
	Page      pagination.Request
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Status    *VisitStatus
	// Inclusive date-range bounds.
	DateFrom *time.Time
	DateTo   *time.Time
}
