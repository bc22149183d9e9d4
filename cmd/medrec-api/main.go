package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/medrec/medrec-api/internal/config"
	v1 "github.com/medrec/medrec-api/internal/handler/v1"
	"github.com/medrec/medrec-api/internal/repository/postgres"
	"github.com/medrec/medrec-api/internal/service"
	"github.com/medrec/medrec-api/pkg/auth"
	"github.com/medrec/medrec-api/pkg/database"
	"github.com/medrec/medrec-api/pkg/logger"
	"github.com/medrec/medrec-api/pkg/metrics"
	"github.com/medrec/medrec-api/pkg/tracer"
)

func main() {
	// Local development convenience; in deployment the environment is the
	// source of truth.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	if cfg.Tracing.Enabled {
		tp, err := tracer.Init(cfg.Tracing)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				log.Warn("tracer shutdown failed", zap.Error(err))
			}
		}()
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	if err := database.Migrate(db, log); err != nil {
		return err
	}

	collector := metrics.NewCollector("medrec")
	jwtManager := auth.NewJWTManager(cfg.JWT)

	userRepo := postgres.NewUserRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	doctorRepo := postgres.NewDoctorRepository(db)
	specialtyRepo := postgres.NewSpecialtyRepository(db)
	diagnosisRepo := postgres.NewDiagnosisRepository(db)
	visitRepo := postgres.NewVisitRepository(db)
	reportRepo := postgres.NewReportRepository(db)
	auditRepo := postgres.NewAuditRepository(db)

	auditSvc := service.NewAuditService(auditRepo, log)
	defer auditSvc.Shutdown()

	deps := &v1.Dependencies{
		Config:     cfg,
		JWTManager: jwtManager,
		Collector:  collector,

		AuthSvc:      service.NewAuthService(userRepo, patientRepo, doctorRepo, jwtManager, auditSvc, log),
		PatientSvc:   service.NewPatientService(patientRepo, doctorRepo, auditSvc, log),
		DoctorSvc:    service.NewDoctorService(doctorRepo, specialtyRepo, auditSvc, log),
		DiagnosisSvc: service.NewDiagnosisService(diagnosisRepo, auditSvc, log),
		VisitSvc:     service.NewVisitService(visitRepo, patientRepo, doctorRepo, diagnosisRepo, auditSvc, log),
		ReportSvc:    service.NewReportService(reportRepo, visitRepo, log),
		CatalogSvc:   service.NewCatalogService(diagnosisRepo, doctorRepo, specialtyRepo, patientRepo, visitRepo, log),
		DashboardSvc: service.NewDashboardService(doctorRepo, patientRepo, visitRepo, log),

		HealthCheck: func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			collector.DBConnections.Set(float64(sqlDB.Stats().OpenConnections))
			return sqlDB.Ping()
		},
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      v1.NewRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.App.Environment),
			zap.String("version", cfg.App.Version),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}

	log.Info("server stopped")
	return nil
}
