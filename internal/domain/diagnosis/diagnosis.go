package diagnosis

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Diagnosis struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index"`

	Name        string `gorm:"column:name;type:varchar(150);not null"`
	Description string `gorm:"column:description;type:text"`
}

func (Diagnosis) TableName() string {
	return "clinical.diagnoses"
}

type CreateDiagnosisCommand struct {
	Name        string
	Description string
}

type UpdateDiagnosisCommand struct {
	Name        *string
	Description *string
}
