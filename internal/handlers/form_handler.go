package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tvet-apply/applicants-api/internal/middleware"
	"github.com/tvet-apply/applicants-api/internal/models"
	"github.com/tvet-apply/applicants-api/internal/services"
	"github.com/tvet-apply/applicants-api/pkg/storage"
)

var errEmptyBody = errors.New("empty request body")

// FormHandler serves the applicant form endpoints
type FormHandler struct {
	forms     services.FormServiceInterface
	imports   services.ImportServiceInterface
	exports   services.ExportServiceInterface
	maxUpload int64
}

func NewFormHandler(
	forms services.FormServiceInterface,
	imports services.ImportServiceInterface,
	exports services.ExportServiceInterface,
	maxUpload int64,
) *FormHandler {
	return &FormHandler{
		forms:     forms,
		imports:   imports,
		exports:   exports,
		maxUpload: maxUpload,
	}
}

// Submit handles the public POST /forms
func (h *FormHandler) Submit(c *gin.Context) {
	var req models.SubmitFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	form, err := h.forms.Submit(c.Request.Context(), req.ToInput())
	if err != nil {
		respondFormError(c, err, "Failed to submit form")
		return
	}

	c.JSON(http.StatusCreated, form)
}

func (h *FormHandler) List(c *gin.Context) {
	filter, ok := formFilter(c)
	if !ok {
		return
	}

	forms, err := h.forms.List(c.Request.Context(), filter)
	if err != nil {
		respondFormError(c, err, "Failed to fetch forms")
		return
	}
	if forms == nil {
		forms = []*models.ApplicationForm{}
	}

	c.JSON(http.StatusOK, forms)
}

func (h *FormHandler) Get(c *gin.Context) {
	id, ok := formID(c)
	if !ok {
		return
	}

	form, err := h.forms.Get(c.Request.Context(), id)
	if err != nil {
		respondFormError(c, err, "Failed to fetch form")
		return
	}

	c.JSON(http.StatusOK, form)
}

func (h *FormHandler) Update(c *gin.Context) {
	id, ok := formID(c)
	if !ok {
		return
	}

	var req models.UpdateFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	form, err := h.forms.Update(c.Request.Context(), id, &req)
	if err != nil {
		respondFormError(c, err, "Failed to update form")
		return
	}

	c.JSON(http.StatusOK, form)
}

func (h *FormHandler) Delete(c *gin.Context) {
	id, ok := formID(c)
	if !ok {
		return
	}

	if err := h.forms.Delete(c.Request.Context(), id); err != nil {
		respondFormError(c, err, "Failed to delete form")
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{Message: "Form deleted successfully"})
}

// Import handles POST /forms/import. The body is either a JSON array of rows
// or an object with a rows field.
func (h *FormHandler) Import(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondBindError(c, err)
		return
	}

	rows, err := decodeImportRows(raw)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid import payload", err)
		return
	}

	result, err := h.imports.ImportRows(c.Request.Context(), rows)
	if err != nil {
		respondFormError(c, err, "Failed to import forms")
		return
	}

	c.JSON(http.StatusOK, importResponse(result, ""))
}

// ImportFile handles POST /forms/import/file, a multipart xlsx upload in the "file" field
func (h *FormHandler) ImportFile(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		if middleware.IsBodyTooLarge(err) {
			respondError(c, http.StatusRequestEntityTooLarge, "Request body too large", err)
			return
		}
		respondError(c, http.StatusBadRequest, "A spreadsheet file is required", err)
		return
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
		respondError(c, http.StatusBadRequest, "Only .xlsx files are supported", fmt.Errorf("upload %q", header.Filename))
		return
	}
	if h.maxUpload > 0 && header.Size > h.maxUpload {
		respondError(c, http.StatusRequestEntityTooLarge, "Spreadsheet is too large",
			fmt.Errorf("upload of %d bytes exceeds %d", header.Size, h.maxUpload))
		return
	}

	file, err := header.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "Unable to read uploaded file", err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Unable to read uploaded file", err)
		return
	}

	result, archiveKey, err := h.imports.ImportWorkbook(c.Request.Context(), header.Filename, data)
	if err != nil {
		respondFormError(c, err, "Failed to import forms")
		return
	}

	c.JSON(http.StatusOK, importResponse(result, archiveKey))
}

// Export handles GET /forms/export and accepts the same filters as List
func (h *FormHandler) Export(c *gin.Context) {
	filter, ok := formFilter(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if _, err := h.exports.Export(c.Request.Context(), filter, &buf); err != nil {
		respondFormError(c, err, "Failed to export forms")
		return
	}

	filename := fmt.Sprintf("forms-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, storage.XLSXContentType, buf.Bytes())
}

func formID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "Invalid form ID", fmt.Errorf("form id %q", c.Param("id")))
		return 0, false
	}
	return id, true
}

// formFilter reads the status, region and gender query filters
func formFilter(c *gin.Context) (models.FormFilter, bool) {
	filter := models.FormFilter{
		Status: models.FormStatus(strings.ToUpper(strings.TrimSpace(c.Query("status")))),
		Region: strings.ToUpper(strings.TrimSpace(c.Query("region"))),
		Gender: models.Gender(strings.ToUpper(strings.TrimSpace(c.Query("gender")))),
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		respondError(c, http.StatusBadRequest, "Invalid status filter", fmt.Errorf("status %q", filter.Status))
		return filter, false
	}
	if filter.Gender != "" && !filter.Gender.IsValid() {
		respondError(c, http.StatusBadRequest, "Invalid gender filter", fmt.Errorf("gender %q", filter.Gender))
		return filter, false
	}
	return filter, true
}

func decodeImportRows(raw []byte) ([]models.RawRow, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errEmptyBody
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	if trimmed[0] == '[' {
		var rows []models.RawRow
		if err := dec.Decode(&rows); err != nil {
			return nil, err
		}
		return rows, nil
	}

	var req models.ImportRequest
	if err := dec.Decode(&req); err != nil {
		return nil, err
	}
	return req.Rows, nil
}

func importResponse(result *models.ImportResult, archiveKey string) models.ImportResponse {
	errs := result.Errors
	if errs == nil {
		errs = []models.ImportRowError{}
	}
	return models.ImportResponse{
		Success:   true,
		Count:     len(result.Committed),
		Errors:    errs,
		BatchID:   result.BatchID,
		ArchiveID: archiveKey,
	}
}
