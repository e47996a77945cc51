package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tvet-apply/applicants-api/internal/models"
	"github.com/tvet-apply/applicants-api/internal/services"
	apperrors "github.com/tvet-apply/applicants-api/pkg/errors"
)

// AdminAuthHandler handles admin account and authentication endpoints.
type AdminAuthHandler struct {
	service services.AdminAuthServiceInterface
}

func NewAdminAuthHandler(service services.AdminAuthServiceInterface) *AdminAuthHandler {
	return &AdminAuthHandler{service: service}
}

func (h *AdminAuthHandler) Register(c *gin.Context) {
	var req models.RegisterAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	admin, err := h.service.Register(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAdminExists):
			respondError(c, http.StatusBadRequest, "Admin already exists", err)
		case errors.Is(err, services.ErrAdminPasswordTooLong):
			respondErrorWithDetails(c, http.StatusBadRequest, "Validation failed",
				[]ValidationError{{Field: "password", Message: "password must not exceed 72 bytes"}}, err)
		default:
			respondError(c, http.StatusInternalServerError, "Failed to register admin", err)
		}
		return
	}

	c.JSON(http.StatusCreated, models.RegisterAdminResponse{
		Message: "Admin registered successfully",
		Admin:   admin,
	})
}

func (h *AdminAuthHandler) Login(c *gin.Context) {
	var req models.LoginAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	token, err := h.service.Login(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, services.ErrAdminInvalidCredentials) {
			respondError(c, http.StatusBadRequest, "Invalid username or password", err)
			return
		}
		respondError(c, http.StatusInternalServerError, "Failed to log in", err)
		return
	}

	c.JSON(http.StatusOK, models.LoginAdminResponse{
		Message: "Login successful",
		Token:   token,
	})
}

// Logout is stateless: the client discards its token
func (h *AdminAuthHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, models.MessageResponse{Message: "Logout successful"})
}

func (h *AdminAuthHandler) Get(c *gin.Context) {
	id, ok := adminID(c)
	if !ok {
		return
	}

	admin, err := h.service.GetAdmin(c.Request.Context(), id)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Admin not found", err)
			return
		}
		respondError(c, http.StatusInternalServerError, "Failed to fetch admin", err)
		return
	}

	c.JSON(http.StatusOK, admin)
}

func (h *AdminAuthHandler) Delete(c *gin.Context) {
	id, ok := adminID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteAdmin(c.Request.Context(), id); err != nil {
		switch {
		case apperrors.Is(err, apperrors.ErrNotFound):
			respondError(c, http.StatusNotFound, "Admin not found", err)
		case errors.Is(err, services.ErrAdminHasDependencies):
			respondError(c, http.StatusBadRequest, "Cannot delete admin with existing dependencies", err)
		default:
			respondError(c, http.StatusInternalServerError, "Failed to delete admin", err)
		}
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{Message: "Admin deleted successfully"})
}

func adminID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "Invalid admin ID", fmt.Errorf("admin id %q", c.Param("id")))
		return 0, false
	}
	return id, true
}
