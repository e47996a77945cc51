package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tvet-apply/applicants-api/internal/models"
	"github.com/tvet-apply/applicants-api/internal/services"
)

var errMissingParams = errors.New("missing catalog query parameters")

// CatalogHandler serves the reference catalog used by the application form.
// Each endpoint answers a JSON array of names sorted ascending.
type CatalogHandler struct {
	service services.CatalogServiceInterface
}

func NewCatalogHandler(service services.CatalogServiceInterface) *CatalogHandler {
	return &CatalogHandler{service: service}
}

func (h *CatalogHandler) Regions(c *gin.Context) {
	regions, err := h.service.ListRegions(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to fetch regions", err)
		return
	}
	respondNames(c, regions)
}

func (h *CatalogHandler) Areas(c *gin.Context) {
	region := strings.TrimSpace(c.Query("region"))
	if region == "" {
		respondError(c, http.StatusBadRequest, "Region parameter is required", errMissingParams)
		return
	}

	areas, err := h.service.ListAreas(c.Request.Context(), region)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to fetch areas", err)
		return
	}
	respondNames(c, areas)
}

func (h *CatalogHandler) Institutes(c *gin.Context) {
	region := strings.TrimSpace(c.Query("region"))
	area := strings.TrimSpace(c.Query("area"))
	if region == "" || area == "" {
		respondError(c, http.StatusBadRequest, "Region and area parameters are required", errMissingParams)
		return
	}

	institutes, err := h.service.ListInstitutes(c.Request.Context(), region, area)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to fetch institutes", err)
		return
	}
	respondNames(c, institutes)
}

func (h *CatalogHandler) Professions(c *gin.Context) {
	region := strings.TrimSpace(c.Query("region"))
	area := strings.TrimSpace(c.Query("area"))
	institute := strings.TrimSpace(c.Query("institute"))
	gender := strings.ToUpper(strings.TrimSpace(c.Query("gender")))
	if region == "" || area == "" || institute == "" || gender == "" {
		respondError(c, http.StatusBadRequest, "Region, area, institute, and gender parameters are required", errMissingParams)
		return
	}

	professions, err := h.service.ListProfessions(c.Request.Context(), region, area, institute, models.Gender(gender))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to fetch professions", err)
		return
	}
	respondNames(c, professions)
}

// Refresh handles POST /admin/catalog/refresh
func (h *CatalogHandler) Refresh(c *gin.Context) {
	if err := h.service.Refresh(c.Request.Context()); err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to refresh catalog", err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: "Catalog refreshed"})
}

func respondNames(c *gin.Context, names []string) {
	if names == nil {
		names = []string{}
	}
	c.JSON(http.StatusOK, names)
}
