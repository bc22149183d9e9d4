package v1

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/medrec/medrec-api/internal/config"
	"github.com/medrec/medrec-api/internal/domain"
	"github.com/medrec/medrec-api/internal/domain/patient"
	"github.com/medrec/medrec-api/internal/service"
	"github.com/medrec/medrec-api/pkg/auth"
	"github.com/medrec/medrec-api/pkg/metrics"
)

// Dependencies carries everything the HTTP surface needs; main assembles it
// once at startup.
type Dependencies struct {
	Config     *config.Config
	JWTManager *auth.JWTManager
	Collector  *metrics.Collector

	AuthSvc      *service.AuthService
	PatientSvc   *service.PatientService
	DoctorSvc    *service.DoctorService
	DiagnosisSvc *service.DiagnosisService
	VisitSvc     *service.VisitService
	ReportSvc    *service.ReportService
	CatalogSvc   *service.CatalogService
	DashboardSvc *service.DashboardService

	HealthCheck func() error
}

func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("egn", func(fl validator.FieldLevel) bool {
			return patient.ValidateEGN(fl.Field().String()) == nil
		})
	}
}

// NewRouter wires the full /api/v1 surface.
func NewRouter(deps *Dependencies) *gin.Engine {
	if deps.Config.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	registerValidators()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins: deps.Config.CORS.AllowedOrigins,
		AllowMethods: deps.Config.CORS.AllowedMethods,
		AllowHeaders: deps.Config.CORS.AllowedHeaders,
		MaxAge:       deps.Config.CORS.MaxAge,
	}))
	if deps.Config.Tracing.Enabled {
		r.Use(TracingMiddleware(deps.Config.App.Name))
	}
	r.Use(MetricsMiddleware(deps.Collector))
	r.Use(RateLimitMiddleware(deps.Config.RateLimit.RequestsPerSecond, deps.Config.RateLimit.BurstSize))

	r.GET("/healthz", func(c *gin.Context) {
		if deps.HealthCheck != nil {
			if err := deps.HealthCheck(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": deps.Config.App.Version})
	})
	r.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	authHandler := NewAuthHandler(deps.AuthSvc)
	patientHandler := NewPatientHandler(deps.PatientSvc)
	doctorHandler := NewDoctorHandler(deps.DoctorSvc)
	diagnosisHandler := NewDiagnosisHandler(deps.DiagnosisSvc)
	visitHandler := NewVisitHandler(deps.VisitSvc, deps.Collector)
	reportHandler := NewReportHandler(deps.ReportSvc, deps.Collector)
	catalogHandler := NewCatalogHandler(deps.CatalogSvc, deps.DashboardSvc)

	authed := AuthMiddleware(deps.JWTManager)
	adminOnly := RequireRoles(domain.RoleAdmin)
	staff := RequireRoles(domain.RoleAdmin, domain.RoleDoctor)
	patientOnly := RequireRoles(domain.RolePatient)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/password", authed, authHandler.ChangePassword)
	}

	patients := api.Group("/patients", authed)
	{
		patients.POST("", staff, patientHandler.Create)
		patients.GET("", staff, patientHandler.List)
		patients.GET("/:id", patientHandler.Get)
		patients.PATCH("/:id", staff, patientHandler.Update)
		patients.DELETE("/:id", adminOnly, patientHandler.Delete)
	}

	doctors := api.Group("/doctors", authed)
	{
		doctors.POST("", adminOnly, doctorHandler.Create)
		doctors.GET("", doctorHandler.List)
		doctors.GET("/:id", doctorHandler.Get)
		doctors.PATCH("/:id", adminOnly, doctorHandler.Update)
		doctors.DELETE("/:id", adminOnly, doctorHandler.Delete)
	}

	diagnoses := api.Group("/diagnoses", authed)
	{
		diagnoses.POST("", adminOnly, diagnosisHandler.Create)
		diagnoses.GET("", diagnosisHandler.List)
		diagnoses.GET("/:id", diagnosisHandler.Get)
		diagnoses.PATCH("/:id", adminOnly, diagnosisHandler.Update)
		diagnoses.DELETE("/:id", adminOnly, diagnosisHandler.Delete)
	}

	specialties := api.Group("/specialties", authed)
	{
		specialties.POST("", adminOnly, doctorHandler.CreateSpecialty)
		specialties.GET("", doctorHandler.ListSpecialties)
		specialties.GET("/:id", doctorHandler.GetSpecialty)
		specialties.PATCH("/:id", adminOnly, doctorHandler.UpdateSpecialty)
		specialties.DELETE("/:id", adminOnly, doctorHandler.DeleteSpecialty)
	}

	visits := api.Group("/visits", authed)
	{
		visits.POST("", staff, visitHandler.Create)
		visits.POST("/schedule", patientOnly, visitHandler.Schedule)
		visits.GET("", visitHandler.List)
		visits.GET("/:id", visitHandler.Get)
		visits.PATCH("/:id", staff, visitHandler.Update)
		visits.POST("/:id/cancel", patientOnly, visitHandler.Cancel)
		visits.DELETE("/:id", adminOnly, visitHandler.Delete)
	}

	reports := api.Group("/reports", authed, adminOnly)
	{
		reports.GET("/diagnoses/frequency", reportHandler.MostFrequentDiagnoses)
		reports.GET("/doctors/visits", reportHandler.VisitCountByDoctor)
		reports.GET("/doctors/patients", reportHandler.PatientCountByGP)
		reports.GET("/doctors/sick-leaves", reportHandler.DoctorsWithMostSickLeaves)
		reports.GET("/sick-leaves/month", reportHandler.MostFrequentSickLeaveMonth)
		reports.GET("/visits", reportHandler.VisitsByPeriod)
	}

	api.GET("/catalog/:entity", authed, staff, catalogHandler.List)
	api.GET("/dashboard", authed, catalogHandler.Dashboard)

	return r
}
