package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medrec/medrec-api/internal/domain/doctor"
	"github.com/medrec/medrec-api/internal/service"
)

type DoctorHandler struct {
	doctorSvc *service.DoctorService
}

func NewDoctorHandler(doctorSvc *service.DoctorService) *DoctorHandler {
	return &DoctorHandler{doctorSvc: doctorSvc}
}

type createDoctorRequest struct {
	FirstName    string      `json:"firstName" binding:"required,max=100"`
	LastName     string      `json:"lastName" binding:"required,max=100"`
	IdNumber     string      `json:"idNumber" binding:"required,max=50"`
	IsGP         bool        `json:"isGp"`
	Approved     bool        `json:"approved"`
	ImageURL     string      `json:"imageUrl" binding:"omitempty,url"`
	SpecialtyIDs []uuid.UUID `json:"specialtyIds"`
}

type updateDoctorRequest struct {
	FirstName    *string      `json:"firstName" binding:"omitempty,max=100"`
	LastName     *string      `json:"lastName" binding:"omitempty,max=100"`
	IdNumber     *string      `json:"idNumber" binding:"omitempty,max=50"`
	IsGP         *bool        `json:"isGp"`
	Approved     *bool        `json:"approved"`
	ImageURL     *string      `json:"imageUrl" binding:"omitempty,url"`
	SpecialtyIDs *[]uuid.UUID `json:"specialtyIds"`
}

type specialtyRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
}

type updateSpecialtyRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=100"`
	Description *string `json:"description"`
}

func (h *DoctorHandler) Create(c *gin.Context) {
	var req createDoctorRequest
	if !bindJSON(c, &req) {
		return
	}
	claims := claimsFrom(c)

	d, err := h.doctorSvc.Create(c.Request.Context(), &doctor.CreateDoctorCommand{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		IdNumber:     req.IdNumber,
		IsGP:         req.IsGP,
		Approved:     req.Approved,
		ImageURL:     req.ImageURL,
		SpecialtyIDs: req.SpecialtyIDs,
		CreatedBy:    claims.UserID,
	}, claims.UserID, string(claims.Role), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, d)
}

func (h *DoctorHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	claims := claimsFrom(c)

	includeDeleted := false
	if raw := c.Query("includeDeleted"); raw != "" {
		includeDeleted, _ = strconv.ParseBool(raw)
	}

	d, err := h.doctorSvc.Get(c.Request.Context(), id, string(claims.Role), includeDeleted)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, d)
}

func (h *DoctorHandler) Update(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req updateDoctorRequest
	if !bindJSON(c, &req) {
		return
	}
	claims := claimsFrom(c)

	d, err := h.doctorSvc.Update(c.Request.Context(), id, &doctor.UpdateDoctorCommand{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		IdNumber:     req.IdNumber,
		IsGP:         req.IsGP,
		Approved:     req.Approved,
		ImageURL:     req.ImageURL,
		SpecialtyIDs: req.SpecialtyIDs,
		UpdatedBy:    claims.UserID,
	}, claims.UserID, string(claims.Role), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, d)
}

func (h *DoctorHandler) Delete(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	claims := claimsFrom(c)

	if err := h.doctorSvc.Delete(c.Request.Context(), id, claims.UserID, c.ClientIP()); err != nil {
		respondServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *DoctorHandler) List(c *gin.Context) {
	claims := claimsFrom(c)

	q := &doctor.ListQuery{Page: pageRequest(c)}
	if raw := c.Query("gpOnly"); raw != "" {
		q.GPOnly, _ = strconv.ParseBool(raw)
	}

	page, err := h.doctorSvc.List(c.Request.Context(), q, string(claims.Role))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, page)
}

func (h *DoctorHandler) CreateSpecialty(c *gin.Context) {
	var req specialtyRequest
	if !bindJSON(c, &req) {
		return
	}
	claims := claimsFrom(c)

	s, err := h.doctorSvc.CreateSpecialty(c.Request.Context(), &doctor.CreateSpecialtyCommand{
		Name:        req.Name,
		Description: req.Description,
	}, claims.UserID, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, s)
}

func (h *DoctorHandler) GetSpecialty(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	s, err := h.doctorSvc.GetSpecialty(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, s)
}

func (h *DoctorHandler) UpdateSpecialty(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req updateSpecialtyRequest
	if !bindJSON(c, &req) {
		return
	}
	claims := claimsFrom(c)

	s, err := h.doctorSvc.UpdateSpecialty(c.Request.Context(), id, &doctor.UpdateSpecialtyCommand{
		Name:        req.Name,
		Description: req.Description,
	}, claims.UserID, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, s)
}

func (h *DoctorHandler) DeleteSpecialty(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	claims := claimsFrom(c)

	if err := h.doctorSvc.DeleteSpecialty(c.Request.Context(), id, claims.UserID, c.ClientIP()); err != nil {
		respondServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *DoctorHandler) ListSpecialties(c *gin.Context) {
	page, err := h.doctorSvc.ListSpecialties(c.Request.Context(), pageRequest(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, page)
}
