package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medrec/medrec-api/internal/service"
)

type AuthHandler struct {
	authSvc *service.AuthService
}

func NewAuthHandler(authSvc *service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

type registerRequest struct {
	Email                 string     `json:"email" binding:"required,email"`
	Password              string     `json:"password" binding:"required,min=12"`
	FirstName             string     `json:"firstName" binding:"required,max=100"`
	LastName              string     `json:"lastName" binding:"required,max=100"`
	EGN                   string     `json:"egn" binding:"required,egn"`
	GeneralPractitionerID *uuid.UUID `json:"generalPractitionerId"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=12"`
}

// Register is the patient self-registration endpoint: it creates the auth
// account and the bound patient record in one step and signs the caller in.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}

	pair, err := h.authSvc.RegisterPatient(c.Request.Context(), &service.RegisterPatientCommand{
		Email:                 req.Email,
		Password:              req.Password,
		FirstName:             req.FirstName,
		LastName:              req.LastName,
		EGN:                   req.EGN,
		GeneralPractitionerID: req.GeneralPractitionerID,
	}, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, pair)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	pair, err := h.authSvc.Login(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, pair)
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req) {
		return
	}

	pair, err := h.authSvc.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, pair)
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	claims := claimsFrom(c)
	if claims == nil {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := h.authSvc.ChangePassword(c.Request.Context(), claims.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, APIResponse[any]{Message: "password changed"})
}
