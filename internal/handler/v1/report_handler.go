package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/medrec/medrec-api/internal/service"
	"github.com/medrec/medrec-api/pkg/metrics"
)

type ReportHandler struct {
	reportSvc *service.ReportService
	collector *metrics.Collector
}

func NewReportHandler(reportSvc *service.ReportService, collector *metrics.Collector) *ReportHandler {
	return &ReportHandler{reportSvc: reportSvc, collector: collector}
}

func (h *ReportHandler) MostFrequentDiagnoses(c *gin.Context) {
	rows, err := h.reportSvc.MostFrequentDiagnoses(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	h.collector.ReportsServedTotal.WithLabelValues("diagnosis_frequency").Inc()
	respondOK(c, rows)
}

func (h *ReportHandler) VisitCountByDoctor(c *gin.Context) {
	rows, err := h.reportSvc.VisitCountByDoctor(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	h.collector.ReportsServedTotal.WithLabelValues("visits_by_doctor").Inc()
	respondOK(c, rows)
}

func (h *ReportHandler) PatientCountByGP(c *gin.Context) {
	rows, err := h.reportSvc.PatientCountByGeneralPractitioner(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	h.collector.ReportsServedTotal.WithLabelValues("patients_by_gp").Inc()
	respondOK(c, rows)
}

func (h *ReportHandler) DoctorsWithMostSickLeaves(c *gin.Context) {
	rows, err := h.reportSvc.DoctorsWithMostSickLeaves(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	h.collector.ReportsServedTotal.WithLabelValues("sick_leaves_by_doctor").Inc()
	respondOK(c, rows)
}

func (h *ReportHandler) MostFrequentSickLeaveMonth(c *gin.Context) {
	rows, err := h.reportSvc.MostFrequentSickLeaveMonth(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	h.collector.ReportsServedTotal.WithLabelValues("sick_leave_month").Inc()
	respondOK(c, rows)
}

// VisitsByPeriod pages visits inside an inclusive date range, optionally
// narrowed to one doctor: ?from=&to=&doctorId=.
func (h *ReportHandler) VisitsByPeriod(c *gin.Context) {
	from, err := time.Parse(dateLayout, c.Query("from"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "from must be YYYY-MM-DD")
		return
	}
	to, err := time.Parse(dateLayout, c.Query("to"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "to must be YYYY-MM-DD")
		return
	}
	if to.Before(from) {
		respondError(c, http.StatusBadRequest, "to must not precede from")
		return
	}

	doctorID, ok := parseOptionalUUID(c, "doctorId")
	if !ok {
		return
	}

	req := pageRequest(c)
	if doctorID != nil {
		page, err := h.reportSvc.VisitsByDoctorAndDateRange(c.Request.Context(), *doctorID, from, to, req)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		h.collector.ReportsServedTotal.WithLabelValues("visits_by_period").Inc()
		respondOK(c, page)
		return
	}

	page, err := h.reportSvc.VisitsByDateRange(c.Request.Context(), from, to, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	h.collector.ReportsServedTotal.WithLabelValues("visits_by_period").Inc()
	respondOK(c, page)
}
