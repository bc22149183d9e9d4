package v1

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medrec/medrec-api/internal/domain"
	"github.com/medrec/medrec-api/internal/domain/patient"
	"github.com/medrec/medrec-api/internal/service"
)

const dateLayout = "2006-01-02"

type PatientHandler struct {
	patientSvc *service.PatientService
}

func NewPatientHandler(patientSvc *service.PatientService) *PatientHandler {
	return &PatientHandler{patientSvc: patientSvc}
}

type createPatientRequest struct {
	FirstName             string     `json:"firstName" binding:"required,max=100"`
	LastName              string     `json:"lastName" binding:"required,max=100"`
	EGN                   string     `json:"egn" binding:"required,egn"`
	GeneralPractitionerID *uuid.UUID `json:"generalPractitionerId"`
	LastInsurancePayment  *string    `json:"lastInsurancePayment" binding:"omitempty,datetime=2006-01-02"`
}

type updatePatientRequest struct {
	FirstName *string `json:"firstName" binding:"omitempty,max=100"`
	LastName  *string `json:"lastName" binding:"omitempty,max=100"`
	EGN       *string `json:"egn" binding:"omitempty,egn"`
	// Explicit null clears the assignment; absent leaves it untouched.
	GeneralPractitionerID optionalField[uuid.UUID] `json:"generalPractitionerId"`
	LastInsurancePayment  optionalField[string]    `json:"lastInsurancePayment"`
}

func (h *PatientHandler) Create(c *gin.Context) {
	var req createPatientRequest
	if !bindJSON(c, &req) {
		return
	}
	claims := claimsFrom(c)

	cmd := &patient.CreatePatientCommand{
		FirstName:             req.FirstName,
		LastName:              req.LastName,
		EGN:                   req.EGN,
		GeneralPractitionerID: req.GeneralPractitionerID,
		CreatedBy:             claims.UserID,
	}
	if req.LastInsurancePayment != nil {
		paid, err := time.Parse(dateLayout, *req.LastInsurancePayment)
		if err != nil {
			respondError(c, http.StatusBadRequest, "lastInsurancePayment must be YYYY-MM-DD")
			return
		}
		cmd.LastInsurancePayment = &paid
	}

	p, err := h.patientSvc.Create(c.Request.Context(), cmd, claims.UserID, string(claims.Role), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, p)
}

func (h *PatientHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	claims := claimsFrom(c)

	includeDeleted := false
	if raw := c.Query("includeDeleted"); raw != "" {
		includeDeleted, _ = strconv.ParseBool(raw)
	}

	p, err := h.patientSvc.Get(c.Request.Context(), id, string(claims.Role), claims.PatientID, includeDeleted)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, p)
}

func (h *PatientHandler) Update(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req updatePatientRequest
	if !bindJSON(c, &req) {
		return
	}
	claims := claimsFrom(c)

	cmd := &patient.UpdatePatientCommand{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		EGN:       req.EGN,
		UpdatedBy: claims.UserID,
	}
	if req.GeneralPractitionerID.Present {
		cmd.GeneralPractitionerID = &req.GeneralPractitionerID.Value
	}
	if req.LastInsurancePayment.Present {
		if req.LastInsurancePayment.Value == nil {
			var cleared *time.Time
			cmd.LastInsurancePayment = &cleared
		} else {
			paid, err := time.Parse(dateLayout, *req.LastInsurancePayment.Value)
			if err != nil {
				respondError(c, http.StatusBadRequest, "lastInsurancePayment must be YYYY-MM-DD")
				return
			}
			ptr := &paid
			cmd.LastInsurancePayment = &ptr
		}
	}

	p, err := h.patientSvc.Update(c.Request.Context(), id, cmd, claims.UserID, string(claims.Role), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, p)
}

func (h *PatientHandler) Delete(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	claims := claimsFrom(c)

	if err := h.patientSvc.Delete(c.Request.Context(), id, claims.UserID, c.ClientIP()); err != nil {
		respondServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *PatientHandler) List(c *gin.Context) {
	q := &patient.ListQuery{Page: pageRequest(c)}

	gpID, ok := parseOptionalUUID(c, "generalPractitionerId")
	if !ok {
		return
	}
	q.GeneralPractitionerID = gpID

	// Doctors browsing without an explicit filter see their own patient
	// panel rather than the full registry.
	claims := claimsFrom(c)
	if claims.Role == domain.RoleDoctor && q.GeneralPractitionerID == nil && claims.DoctorID != nil {
		q.GeneralPractitionerID = claims.DoctorID
	}

	page, err := h.patientSvc.List(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, page)
}
