package v1

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medrec/medrec-api/internal/domain"
	"github.com/medrec/medrec-api/internal/domain/visit"
	"github.com/medrec/medrec-api/internal/service"
	"github.com/medrec/medrec-api/pkg/metrics"
)

type VisitHandler struct {
	visitSvc  *service.VisitService
	collector *metrics.Collector
}

func NewVisitHandler(visitSvc *service.VisitService, collector *metrics.Collector) *VisitHandler {
	return &VisitHandler{visitSvc: visitSvc, collector: collector}
}

type sickLeaveRequest struct {
	StartDate    string `json:"startDate" binding:"required,datetime=2006-01-02"`
	DurationDays int    `json:"durationDays" binding:"required,min=1,max=180"`
}

type medicineRequest struct {
	Name      string `json:"name" binding:"required,max=150"`
	Dosage    string `json:"dosage" binding:"max=100"`
	Frequency string `json:"frequency" binding:"max=100"`
}

type treatmentRequest struct {
	Description string            `json:"description"`
	Medicines   []medicineRequest `json:"medicines" binding:"dive"`
}

type createVisitRequest struct {
	PatientID   uuid.UUID         `json:"patientId" binding:"required"`
	DoctorID    uuid.UUID         `json:"doctorId" binding:"required"`
	DiagnosisID *uuid.UUID        `json:"diagnosisId" binding:"required"`
	VisitDate   string            `json:"visitDate" binding:"required,datetime=2006-01-02"`
	VisitTime   string            `json:"visitTime" binding:"required"`
	Status      *string           `json:"status"`
	SickLeave   *sickLeaveRequest `json:"sickLeave"`
	Treatment   *treatmentRequest `json:"treatment"`
}

type scheduleVisitRequest struct {
	DoctorID  uuid.UUID `json:"doctorId" binding:"required"`
	VisitDate string    `json:"visitDate" binding:"required,datetime=2006-01-02"`
	VisitTime string    `json:"visitTime" binding:"required"`
}

type updateVisitRequest struct {
	PatientID *uuid.UUID `json:"patientId"`
	DoctorID  *uuid.UUID `json:"doctorId"`
	// Explicit null clears the diagnosis; absent leaves it untouched.
	DiagnosisID optionalField[uuid.UUID] `json:"diagnosisId"`
	VisitDate   *string                  `json:"visitDate" binding:"omitempty,datetime=2006-01-02"`
	VisitTime   *string                  `json:"visitTime"`
	Status      *string                  `json:"status"`
	SickLeave   *sickLeaveRequest        `json:"sickLeave"`
	Treatment   *treatmentRequest        `json:"treatment"`
}

func toSickLeaveCommand(req *sickLeaveRequest) (*visit.SickLeaveCommand, error) {
	if req == nil {
		return nil, nil
	}
	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return nil, err
	}
	return &visit.SickLeaveCommand{StartDate: start, DurationDays: req.DurationDays}, nil
}

func toTreatmentCommand(req *treatmentRequest) *visit.TreatmentCommand {
	if req == nil {
		return nil
	}
	cmd := &visit.TreatmentCommand{Description: req.Description}
	for _, m := range req.Medicines {
		cmd.Medicines = append(cmd.Medicines, visit.MedicineCommand{
			Name:      m.Name,
			Dosage:    m.Dosage,
			Frequency: m.Frequency,
		})
	}
	return cmd
}

// Create records a visit on behalf of staff, optionally with its sick leave
// and treatment in the same request.
func (h *VisitHandler) Create(c *gin.Context) {
	var req createVisitRequest
	if !bindJSON(c, &req) {
		return
	}
	claims := claimsFrom(c)

	visitDate, err := time.Parse(dateLayout, req.VisitDate)
	if err != nil {
		respondError(c, http.StatusBadRequest, "visitDate must be YYYY-MM-DD")
		return
	}

	cmd := &visit.CreateVisitCommand{
		PatientID:   req.PatientID,
		DoctorID:    req.DoctorID,
		DiagnosisID: req.DiagnosisID,
		VisitDate:   visitDate,
		VisitTime:   req.VisitTime,
		CreatedBy:   claims.UserID,
	}
	if req.Status != nil {
		status := visit.VisitStatus(*req.Status)
		cmd.Status = &status
	}
	if cmd.SickLeave, err = toSickLeaveCommand(req.SickLeave); err != nil {
		respondError(c, http.StatusBadRequest, "sickLeave.startDate must be YYYY-MM-DD")
		return
	}
	cmd.Treatment = toTreatmentCommand(req.Treatment)

	v, err := h.visitSvc.Create(c.Request.Context(), cmd, claims.UserID, string(claims.Role), c.ClientIP())
	if err != nil {
		if errors.Is(err, visit.ErrSlotConflict) {
			h.collector.SlotConflictsTotal.Inc()
		}
		respondServiceError(c, err)
		return
	}

	h.collector.VisitsTotal.WithLabelValues(string(v.Status)).Inc()
	if v.SickLeaveIssued() {
		h.collector.SickLeavesIssued.Inc()
	}
	respondCreated(c, v)
}

// Schedule books a future slot for the calling patient.
func (h *VisitHandler) Schedule(c *gin.Context) {
	var req scheduleVisitRequest
	if !bindJSON(c, &req) {
		return
	}
	claims := claimsFrom(c)

	visitDate, err := time.Parse(dateLayout, req.VisitDate)
	if err != nil {
		respondError(c, http.StatusBadRequest, "visitDate must be YYYY-MM-DD")
		return
	}

	v, err := h.visitSvc.ScheduleForPatient(c.Request.Context(), claims.UserID, &visit.ScheduleVisitCommand{
		DoctorID:  req.DoctorID,
		VisitDate: visitDate,
		VisitTime: req.VisitTime,
	}, c.ClientIP())
	if err != nil {
		if errors.Is(err, visit.ErrSlotConflict) {
			h.collector.SlotConflictsTotal.Inc()
		}
		respondServiceError(c, err)
		return
	}

	h.collector.VisitsTotal.WithLabelValues(string(v.Status)).Inc()
	respondCreated(c, v)
}

func (h *VisitHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	claims := claimsFrom(c)

	v, err := h.visitSvc.GetByID(c.Request.Context(), id, string(claims.Role), claims.PatientID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, v)
}

func (h *VisitHandler) Update(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req updateVisitRequest
	if !bindJSON(c, &req) {
		return
	}
	claims := claimsFrom(c)

	cmd := &visit.UpdateVisitCommand{
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
		VisitTime: req.VisitTime,
		UpdatedBy: claims.UserID,
	}
	if req.DiagnosisID.Present {
		cmd.DiagnosisID = &req.DiagnosisID.Value
	}
	if req.VisitDate != nil {
		visitDate, err := time.Parse(dateLayout, *req.VisitDate)
		if err != nil {
			respondError(c, http.StatusBadRequest, "visitDate must be YYYY-MM-DD")
			return
		}
		cmd.VisitDate = &visitDate
	}
	if req.Status != nil {
		status := visit.VisitStatus(*req.Status)
		if !status.IsValid() {
			respondError(c, http.StatusBadRequest, "status must be scheduled, completed or cancelled")
			return
		}
		cmd.Status = &status
	}
	var err error
	if cmd.SickLeave, err = toSickLeaveCommand(req.SickLeave); err != nil {
		respondError(c, http.StatusBadRequest, "sickLeave.startDate must be YYYY-MM-DD")
		return
	}
	cmd.Treatment = toTreatmentCommand(req.Treatment)

	hadSickLeave := cmd.SickLeave != nil
	v, err := h.visitSvc.Update(c.Request.Context(), id, cmd, claims.UserID, string(claims.Role), c.ClientIP())
	if err != nil {
		if errors.Is(err, visit.ErrSlotConflict) {
			h.collector.SlotConflictsTotal.Inc()
		}
		respondServiceError(c, err)
		return
	}

	if hadSickLeave {
		h.collector.SickLeavesIssued.Inc()
	}
	respondOK(c, v)
}

// Cancel lets the owning patient withdraw a scheduled booking.
func (h *VisitHandler) Cancel(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	claims := claimsFrom(c)

	v, err := h.visitSvc.Cancel(c.Request.Context(), id, claims.UserID, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.collector.VisitsTotal.WithLabelValues(string(visit.StatusCancelled)).Inc()
	respondOK(c, v)
}

func (h *VisitHandler) Delete(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	claims := claimsFrom(c)

	if err := h.visitSvc.Delete(c.Request.Context(), id, claims.UserID, c.ClientIP()); err != nil {
		respondServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *VisitHandler) List(c *gin.Context) {
	claims := claimsFrom(c)

	q := &visit.ListQuery{Page: pageRequest(c)}

	patientID, ok := parseOptionalUUID(c, "patientId")
	if !ok {
		return
	}
	q.PatientID = patientID

	doctorID, ok := parseOptionalUUID(c, "doctorId")
	if !ok {
		return
	}
	q.DoctorID = doctorID

	if raw := c.Query("status"); raw != "" {
		status := visit.VisitStatus(raw)
		if !status.IsValid() {
			respondError(c, http.StatusBadRequest, "status must be scheduled, completed or cancelled")
			return
		}
		q.Status = &status
	}
	for key, dst := range map[string]**time.Time{"from": &q.DateFrom, "to": &q.DateTo} {
		if raw := c.Query(key); raw != "" {
			t, err := time.Parse(dateLayout, raw)
			if err != nil {
				respondError(c, http.StatusBadRequest, key+" must be YYYY-MM-DD")
				return
			}
			*dst = &t
		}
	}

	// Doctors browsing without an explicit filter see their own schedule.
	if claims.Role == domain.RoleDoctor && q.DoctorID == nil && claims.DoctorID != nil {
		q.DoctorID = claims.DoctorID
	}

	page, err := h.visitSvc.List(c.Request.Context(), q, string(claims.Role), claims.PatientID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, page)
}
