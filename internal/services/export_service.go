package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/tvet-apply/applicants-api/internal/models"
	"github.com/tvet-apply/applicants-api/internal/repository"
	"github.com/tvet-apply/applicants-api/pkg/logger"
	"github.com/tvet-apply/applicants-api/pkg/metrics"
	"github.com/tvet-apply/applicants-api/pkg/profiling"
	"github.com/tvet-apply/applicants-api/pkg/spreadsheet"
	"github.com/tvet-apply/applicants-api/pkg/storage"
	"go.uber.org/zap"
)

// ExportSheetName names the single sheet of an export workbook
const ExportSheetName = "Forms"

// ExportHeaders is the dashboard column order. The same headers are accepted by import.
var ExportHeaders = []string{
	"National ID",
	"Gender",
	"Last Name",
	"Grandfather Name",
	"Father Name",
	"First Name",
	"Phone Number",
	"Education Level",
	"Date of Birth",
	"Region",
	"Area",
	"Institute",
	"Residence",
	"Profession",
	"Status",
	"Marks",
	"Required Documents",
	"How did he hear about us?",
}

// national ID and phone number keep their leading zeros
var exportTextColumns = map[int]bool{0: true, 6: true}

// ExportService renders stored forms as an .xlsx workbook
type ExportService struct {
	store    repository.FormStore
	archiver Archiver
	now      func() time.Time
}

// NewExportService creates an export service. archiver may be nil.
func NewExportService(store repository.FormStore, archiver Archiver) *ExportService {
	return &ExportService{store: store, archiver: archiver, now: time.Now}
}

// Export writes the forms matching filter to w and returns how many were written
func (s *ExportService) Export(ctx context.Context, filter models.FormFilter, w io.Writer) (count int, err error) {
	defer func() {
		metrics.Exports.WithLabelValues(metrics.Outcome(err)).Inc()
	}()

	forms, err := s.store.List(ctx, filter)
	if err != nil {
		return 0, err
	}

	rows := make([][]any, len(forms))
	for i, f := range forms {
		rows[i] = exportRow(f)
	}

	var buf bytes.Buffer
	profiling.Do(ctx, "export_render", func(context.Context) {
		err = spreadsheet.WriteSheet(&buf, ExportSheetName, ExportHeaders, rows, exportTextColumns)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to render export: %w", err)
	}

	s.archive(ctx, buf.Bytes())

	if _, err = w.Write(buf.Bytes()); err != nil {
		return 0, fmt.Errorf("failed to write export: %w", err)
	}

	logger.Info("Forms exported", zap.Int("count", len(forms)))
	return len(forms), nil
}

func (s *ExportService) archive(ctx context.Context, data []byte) {
	if s.archiver == nil {
		return
	}
	name := fmt.Sprintf("forms-%s.xlsx", s.now().UTC().Format("20060102-150405"))
	if _, err := s.archiver.Put(ctx, storage.ObjectKey("exports", name, s.now()), data, storage.XLSXContentType); err != nil {
		logger.Warn("Failed to archive export workbook", zap.Error(err))
	}
}

func exportRow(f *models.ApplicationForm) []any {
	var mark any
	if f.Mark != nil {
		mark = *f.Mark
	}
	return []any{
		f.NationalID,
		string(f.Gender),
		f.LastName,
		f.GrandFatherName,
		f.FatherName,
		f.FirstName,
		f.PhoneNumber,
		string(f.EducationLevel),
		f.DateOfBirth,
		f.Region,
		f.Area,
		f.Institute,
		f.Residence,
		f.Profession,
		string(f.Status),
		mark,
		string(f.RequiredDocuments),
		string(f.HowDidYouHearAboutUs),
	}
}
