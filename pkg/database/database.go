package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/medrec/medrec-api/internal/config"
	"github.com/medrec/medrec-api/internal/domain"
	"github.com/medrec/medrec-api/internal/domain/diagnosis"
	"github.com/medrec/medrec-api/internal/domain/doctor"
	"github.com/medrec/medrec-api/internal/domain/patient"
	"github.com/medrec/medrec-api/internal/domain/visit"
)

func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:      gormlogger.Default.LogMode(gormlogger.Silent),
		PrepareStmt: true,
		// Surface unique-constraint violations as gorm.ErrDuplicatedKey so
		// repositories can map them to domain conflicts.
		TranslateError: true,
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: false,
	}), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

func Migrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("running database migrations")
	start := time.Now()

	schemas := []string{"clinical", "auth", "audit"} // logical namespaces
	for _, schema := range schemas {
		if err := db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)).Error; err != nil {
			return fmt.Errorf("creating schema %s: %w", schema, err)
		}
	}

	models := []any{
		&domain.User{},
		&domain.AuditLog{},
		&doctor.Doctor{},
		&doctor.Specialty{},
		&patient.Patient{},
		&diagnosis.Diagnosis{},
		&visit.Visit{},
		&visit.SickLeave{},
		&visit.Treatment{},
		&visit.Medicine{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto-migrating models: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("creating indexes: %w", err)
	}

	log.Info("migrations completed", zap.Duration("duration", time.Since(start)))
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []struct {
		name  string
		query string
	}{
		// Authoritative guard for the one-visit-per-slot invariant. The
		// application-level conflict check is only the fast, user-friendly
		// path; under concurrent bookings this index decides the winner.
		{
			name:  "uq_visits_doctor_slot",
			query: `CREATE UNIQUE INDEX IF NOT EXISTS uq_visits_doctor_slot ON clinical.visits (doctor_id, visit_date, visit_time) WHERE deleted_at IS NULL AND status <> 'cancelled'`,
		},
		{
			name:  "uq_users_email",
			query: `CREATE UNIQUE INDEX IF NOT EXISTS uq_users_email ON auth.users (lower(email)) WHERE deleted_at IS NULL`,
		},
		{
			name:  "uq_patients_egn",
			query: `CREATE UNIQUE INDEX IF NOT EXISTS uq_patients_egn ON clinical.patients (egn) WHERE deleted_at IS NULL`,
		},
		{
			name:  "uq_doctors_id_number",
			query: `CREATE UNIQUE INDEX IF NOT EXISTS uq_doctors_id_number ON clinical.doctors (id_number) WHERE deleted_at IS NULL`,
		},
		{
			name:  "uq_diagnoses_name",
			query: `CREATE UNIQUE INDEX IF NOT EXISTS uq_diagnoses_name ON clinical.diagnoses (lower(name)) WHERE deleted_at IS NULL`,
		},
		{
			name:  "uq_specialties_name",
			query: `CREATE UNIQUE INDEX IF NOT EXISTS uq_specialties_name ON clinical.specialties (lower(name)) WHERE deleted_at IS NULL`,
		},
		{
			name:  "idx_visits_date_range",
			query: `CREATE INDEX IF NOT EXISTS idx_visits_date_range ON clinical.visits (visit_date, status) WHERE deleted_at IS NULL`,
		},
		{
			name:  "idx_sick_leaves_start",
			query: `CREATE INDEX IF NOT EXISTS idx_sick_leaves_start ON clinical.sick_leaves (start_date) WHERE deleted_at IS NULL`,
		},
	}

	for _, idx := range indexes {
		if err := db.Exec(idx.query).Error; err != nil {
			return fmt.Errorf("creating index %s: %w", idx.name, err)
		}
	}

	return nil
}
