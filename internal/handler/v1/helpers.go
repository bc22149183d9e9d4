package v1

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medrec/medrec-api/internal/domain"
	"github.com/medrec/medrec-api/internal/domain/diagnosis"
	"github.com/medrec/medrec-api/internal/domain/doctor"
	"github.com/medrec/medrec-api/internal/domain/patient"
	"github.com/medrec/medrec-api/internal/domain/visit"
	"github.com/medrec/medrec-api/internal/service"
	"github.com/medrec/medrec-api/pkg/pagination"
)

// optionalField distinguishes an absent JSON key from an explicit null:
// absent leaves the stored value untouched, null clears it.
type optionalField[T any] struct {
	Present bool
	Value   *T
}

func (f *optionalField[T]) UnmarshalJSON(data []byte) error {
	f.Present = true
	if string(data) == "null" {
		f.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	f.Value = &v
	return nil
}

type APIResponse[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type ValidationErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse[any]{Data: data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, APIResponse[any]{Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

func respondServiceError(c *gin.Context, err error) {
	var validErr *service.ValidationError
	if errors.As(err, &validErr) {
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{
			Error:  "validation failed",
			Fields: validErr.Fields,
		})
		return
	}

	switch {
	case errors.Is(err, patient.ErrPatientNotFound),
		errors.Is(err, doctor.ErrDoctorNotFound),
		errors.Is(err, doctor.ErrSpecialtyNotFound),
		errors.Is(err, diagnosis.ErrDiagnosisNotFound),
		errors.Is(err, visit.ErrVisitNotFound),
		errors.Is(err, visit.ErrSickLeaveNotFound),
		errors.Is(err, visit.ErrTreatmentNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})

	case errors.Is(err, visit.ErrSlotConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "SLOT_TAKEN"})

	case errors.Is(err, patient.ErrPatientAlreadyExists),
		errors.Is(err, doctor.ErrDoctorAlreadyExists),
		errors.Is(err, doctor.ErrSpecialtyAlreadyExists),
		errors.Is(err, diagnosis.ErrDiagnosisAlreadyExists),
		errors.Is(err, doctor.ErrSpecialtyInUse),
		errors.Is(err, domain.ErrEmailTaken):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})

	case errors.Is(err, patient.ErrInvalidEGN),
		errors.Is(err, doctor.ErrNotGeneralPractitioner),
		errors.Is(err, visit.ErrScheduledInPast),
		errors.Is(err, visit.ErrInvalidVisitTime),
		errors.Is(err, visit.ErrInvalidStatusTransition),
		errors.Is(err, pagination.ErrInvalidSortField),
		errors.Is(err, service.ErrUnknownEntityType):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})

	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "access denied"})

	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})

	case errors.Is(err, service.ErrAccountInactive):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "account is inactive"})

	case errors.Is(err, service.ErrAccountLocked):
		c.JSON(http.StatusTooManyRequests, ErrorResponse{
			Error: "account temporarily locked",
			Code:  "ACCOUNT_LOCKED",
		})

	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return false
	}
	return true
}

func parseUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	raw := c.Param(param)
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + param + ": must be a valid UUID"})
		return uuid.Nil, false
	}
	return id, true
}

func parseOptionalUUID(c *gin.Context, key string) (*uuid.UUID, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + key + ": must be a valid UUID"})
		return nil, false
	}
	return &id, true
}

func parseQueryInt(c *gin.Context, key string, defaultVal int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return defaultVal
}

// pageRequest reads the shared paging contract from the query string:
// ?page=&size=&orderBy=&asc=&filter=. Out-of-range values are clamped, not
// rejected.
func pageRequest(c *gin.Context) pagination.Request {
	req := pagination.Request{
		Page:    parseQueryInt(c, "page", 0),
		Size:    parseQueryInt(c, "size", pagination.DefaultSize),
		OrderBy: c.Query("orderBy"),
		Filter:  c.Query("filter"),
	}
	req.Ascending = true
	if raw := c.Query("asc"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			req.Ascending = v
		}
	}
	return req
}

// claimsFrom returns the authenticated caller's claims placed by the auth
// middleware. Routes behind the middleware can rely on them being present.
func claimsFrom(c *gin.Context) *domain.Claims {
	v, ok := c.Get(contextKeyClaims)
	if !ok {
		return nil
	}
	claims, ok := v.(*domain.Claims)
	if !ok {
		return nil
	}
	return claims
}
