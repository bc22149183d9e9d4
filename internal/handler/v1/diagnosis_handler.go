package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medrec/medrec-api/internal/domain/diagnosis"
	"github.com/medrec/medrec-api/internal/service"
)

type DiagnosisHandler struct {
	diagnosisSvc *service.DiagnosisService
}

func NewDiagnosisHandler(diagnosisSvc *service.DiagnosisService) *DiagnosisHandler {
	return &DiagnosisHandler{diagnosisSvc: diagnosisSvc}
}

type diagnosisRequest struct {
	Name        string `json:"name" binding:"required,max=150"`
	Description string `json:"description"`
}

type updateDiagnosisRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=150"`
	Description *string `json:"description"`
}

func (h *DiagnosisHandler) Create(c *gin.Context) {
	var req diagnosisRequest
	if !bindJSON(c, &req) {
		return
	}
	claims := claimsFrom(c)

	d, err := h.diagnosisSvc.Create(c.Request.Context(), &diagnosis.CreateDiagnosisCommand{
		Name:        req.Name,
		Description: req.Description,
	}, claims.UserID, string(claims.Role), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, d)
}

func (h *DiagnosisHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	d, err := h.diagnosisSvc.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, d)
}

func (h *DiagnosisHandler) Update(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req updateDiagnosisRequest
	if !bindJSON(c, &req) {
		return
	}
	claims := claimsFrom(c)

	d, err := h.diagnosisSvc.Update(c.Request.Context(), id, &diagnosis.UpdateDiagnosisCommand{
		Name:        req.Name,
		Description: req.Description,
	}, claims.UserID, string(claims.Role), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, d)
}

func (h *DiagnosisHandler) Delete(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	claims := claimsFrom(c)

	if err := h.diagnosisSvc.Delete(c.Request.Context(), id, claims.UserID, c.ClientIP()); err != nil {
		respondServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *DiagnosisHandler) List(c *gin.Context) {
	page, err := h.diagnosisSvc.List(c.Request.Context(), pageRequest(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, page)
}
