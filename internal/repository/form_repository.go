package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tvet-apply/applicants-api/internal/models"
	apperrors "github.com/tvet-apply/applicants-api/pkg/errors"
)

const formResource = "form"

// FormRepository handles application form data access
type FormRepository struct {
	pool *pgxpool.Pool
}

// NewFormRepository creates a new form repository
func NewFormRepository(pool *pgxpool.Pool) *FormRepository {
	return &FormRepository{pool: pool}
}

// List returns forms matching filter, newest first
func (r *FormRepository) List(ctx context.Context, filter models.FormFilter) (forms []*models.ApplicationForm, err error) {
	start := time.Now()
	defer func() { observe("listForms", start, err) }()

	var (
		conditions []string
		args       []any
	)
	add := func(column string, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("status", string(filter.Status))
	add("region", filter.Region)
	add("gender", string(filter.Gender))

	query := "SELECT " + models.FormColumns + " FROM application_forms"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, formResource, "list forms")
	}

	forms, err = models.ScanApplicationForms(rows)
	if err != nil {
		return nil, mapError(err, formResource, "scan forms")
	}
	return forms, nil
}

// GetByID returns a single form
func (r *FormRepository) GetByID(ctx context.Context, id int) (form *models.ApplicationForm, err error) {
	start := time.Now()
	defer func() { observe("getForm", start, err) }()

	row := r.pool.QueryRow(ctx, "SELECT "+models.FormColumns+" FROM application_forms WHERE id = $1", id)
	form, err = models.ScanApplicationForm(row)
	if err != nil {
		return nil, mapError(err, formResource, "get form")
	}
	return form, nil
}

// FindByNaturalKeys returns any form holding the national ID or the phone number
func (r *FormRepository) FindByNaturalKeys(ctx context.Context, nationalID, phoneNumber string) (form *models.ApplicationForm, err error) {
	start := time.Now()
	defer func() { observe("findFormByNaturalKeys", start, err) }()

	row := r.pool.QueryRow(ctx,
		"SELECT "+models.FormColumns+" FROM application_forms WHERE national_id = $1 OR phone_number = $2 ORDER BY id LIMIT 1",
		nationalID, phoneNumber)
	form, err = models.ScanApplicationForm(row)
	if err != nil {
		return nil, mapError(err, formResource, "find form by natural keys")
	}
	return form, nil
}

// Create inserts form and fills in its ID and timestamps
func (r *FormRepository) Create(ctx context.Context, form *models.ApplicationForm) (err error) {
	start := time.Now()
	defer func() { observe("createForm", start, err) }()

	dob, err := time.Parse(models.DateLayout, form.DateOfBirth)
	if err != nil {
		return apperrors.InvalidInputError("dateOfBirth", err.Error())
	}

	query := `
		INSERT INTO application_forms (
			region, area, institute, profession, national_id, phone_number,
			first_name, father_name, grand_father_name, last_name, date_of_birth, gender,
			education_level, residence, how_did_you_hear_about_us, status, mark, required_documents
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id, created_at, updated_at
	`

	err = r.pool.QueryRow(ctx, query,
		form.Region, form.Area, form.Institute, form.Profession, form.NationalID, form.PhoneNumber,
		form.FirstName, form.FatherName, form.GrandFatherName, form.LastName, dob, form.Gender,
		form.EducationLevel, form.Residence, form.HowDidYouHearAboutUs, form.Status, form.Mark, form.RequiredDocuments,
	).Scan(&form.ID, &form.CreatedAt, &form.UpdatedAt)
	if err != nil {
		return mapError(err, formResource, "create form")
	}
	return nil
}

// Update writes every mutable column of form
func (r *FormRepository) Update(ctx context.Context, form *models.ApplicationForm) (err error) {
	start := time.Now()
	defer func() { observe("updateForm", start, err) }()

	dob, err := time.Parse(models.DateLayout, form.DateOfBirth)
	if err != nil {
		return apperrors.InvalidInputError("dateOfBirth", err.Error())
	}

	query := `
		UPDATE application_forms SET
			region = $2, area = $3, institute = $4, profession = $5, national_id = $6, phone_number = $7,
			first_name = $8, father_name = $9, grand_father_name = $10, last_name = $11, date_of_birth = $12,
			gender = $13, education_level = $14, residence = $15, how_did_you_hear_about_us = $16,
			status = $17, mark = $18, required_documents = $19, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err = r.pool.QueryRow(ctx, query, form.ID,
		form.Region, form.Area, form.Institute, form.Profession, form.NationalID, form.PhoneNumber,
		form.FirstName, form.FatherName, form.GrandFatherName, form.LastName, dob,
		form.Gender, form.EducationLevel, form.Residence, form.HowDidYouHearAboutUs,
		form.Status, form.Mark, form.RequiredDocuments,
	).Scan(&form.UpdatedAt)
	if err != nil {
		return mapError(err, formResource, "update form")
	}
	return nil
}

// Delete removes a form
func (r *FormRepository) Delete(ctx context.Context, id int) (err error) {
	start := time.Now()
	defer func() { observe("deleteForm", start, err) }()

	tag, err := r.pool.Exec(ctx, "DELETE FROM application_forms WHERE id = $1", id)
	if err != nil {
		return mapError(err, formResource, "delete form")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFoundError(formResource)
	}
	return nil
}
