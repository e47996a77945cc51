package services

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/tvet-apply/applicants-api/internal/models"
)

var (
	nationalIDPattern = regexp.MustCompile(`^\d{10}$`)
	phonePattern      = regexp.MustCompile(`^07[789]\d{7}$`)
)

// Age band per gender, inclusive, in completed years at submission time
var ageBands = map[models.Gender][2]int{
	models.GenderFemale: {17, 35},
	models.GenderMale:   {17, 30},
}

// CatalogView is the part of the reference catalog the validator reads
type CatalogView interface {
	HasRegion(region string) bool
	HasArea(region, area string) bool
	HasInstitute(region, area, institute string) bool
	Profession(region, area, name string) (models.Profession, bool)
}

// RegisterValidations adds the applicant field tags to v and makes errors
// name fields by their JSON key. The same setup is applied to gin's binding
// engine at startup.
func RegisterValidations(v *validator.Validate) error {
	v.RegisterTagNameFunc(jsonFieldName)

	tags := map[string]validator.Func{
		"national_id": func(fl validator.FieldLevel) bool {
			return nationalIDPattern.MatchString(fl.Field().String())
		},
		"jo_phone": func(fl validator.FieldLevel) bool {
			return phonePattern.MatchString(fl.Field().String())
		},
		"person_name": func(fl validator.FieldLevel) bool {
			return isPersonName(fl.Field().String())
		},
	}
	for tag, fn := range tags {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register %s validation: %w", tag, err)
		}
	}
	return nil
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

// isPersonName accepts 2 to 15 letters from the Latin or Arabic scripts
func isPersonName(s string) bool {
	n := utf8.RuneCountInString(s)
	if n < 2 || n > 15 {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) || !(unicode.Is(unicode.Latin, r) || unicode.Is(unicode.Arabic, r)) {
			return false
		}
	}
	return true
}

// FormValidator decides whether a candidate form is acceptable.
// It never touches the store; the catalog is passed in by the caller.
type FormValidator struct {
	validate *validator.Validate
	now      func() time.Time
}

// NewFormValidator creates a validator using the wall clock
func NewFormValidator() *FormValidator {
	return NewFormValidatorWithClock(time.Now)
}

// NewFormValidatorWithClock creates a validator with an injected clock
func NewFormValidatorWithClock(now func() time.Time) *FormValidator {
	v := validator.New()
	if err := RegisterValidations(v); err != nil {
		// tags are static; failure here is a programming error
		panic(err)
	}
	return &FormValidator{validate: v, now: now}
}

type namedField struct {
	name  string
	value string
}

func requiredFields(in *models.FormInput) []namedField {
	return []namedField{
		{"region", in.Region},
		{"area", in.Area},
		{"institute", in.Institute},
		{"profession", in.Profession},
		{"nationalID", in.NationalID},
		{"phoneNumber", in.PhoneNumber},
		{"firstName", in.FirstName},
		{"fatherName", in.FatherName},
		{"grandFatherName", in.GrandFatherName},
		{"lastName", in.LastName},
		{"dateOfBirth", in.DateOfBirth},
		{"gender", in.Gender},
		{"educationLevel", in.EducationLevel},
		{"residence", in.Residence},
		{"howDidYouHearAboutUs", in.HowDidYouHearAboutUs},
	}
}

// CheckRequired runs only the missing-fields check
func (v *FormValidator) CheckRequired(in *models.FormInput) error {
	var missing []string
	for _, f := range requiredFields(in) {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return missingFields(missing)
	}
	return nil
}

// Validate checks in against catalog as of now
func (v *FormValidator) Validate(catalog CatalogView, in *models.FormInput) error {
	return v.ValidateAt(catalog, in, v.now())
}

// ValidateAt runs every check in order and returns the first failure.
// asOf is the submission time the age band is measured against.
func (v *FormValidator) ValidateAt(catalog CatalogView, in *models.FormInput, asOf time.Time) error {
	if err := v.CheckRequired(in); err != nil {
		return err
	}

	if !catalog.HasRegion(in.Region) {
		return catalogError(KindInvalidRegion, "Invalid region")
	}
	if !catalog.HasArea(in.Region, in.Area) {
		return catalogError(KindInvalidArea, "Invalid area for this region")
	}
	if !catalog.HasInstitute(in.Region, in.Area, in.Institute) {
		return catalogError(KindInvalidInstitute, "Invalid institute for this area")
	}
	profession, ok := catalog.Profession(in.Region, in.Area, in.Profession)
	if !ok {
		return catalogError(KindInvalidProfession, "Invalid profession for this institute")
	}
	if !profession.Allows(models.Gender(in.Gender)) {
		return catalogError(KindInvalidGenderForProfession, "Invalid profession for this gender")
	}

	return v.checkFields(in, asOf)
}

func (v *FormValidator) checkFields(in *models.FormInput, asOf time.Time) error {
	checks := []struct {
		field  string
		value  string
		tag    string
		reason string
	}{
		{"nationalID", in.NationalID, "national_id", "must be exactly 10 digits"},
		{"phoneNumber", in.PhoneNumber, "jo_phone", "must be 10 digits starting with 077, 078 or 079"},
		{"firstName", in.FirstName, "person_name", "must be 2 to 15 Latin or Arabic letters"},
		{"fatherName", in.FatherName, "person_name", "must be 2 to 15 Latin or Arabic letters"},
		{"grandFatherName", in.GrandFatherName, "person_name", "must be 2 to 15 Latin or Arabic letters"},
		{"lastName", in.LastName, "person_name", "must be 2 to 15 Latin or Arabic letters"},
	}
	for _, c := range checks {
		if err := v.validate.Var(c.value, c.tag); err != nil {
			return fieldViolation(c.field, c.reason)
		}
	}

	if err := checkDateOfBirth(in.DateOfBirth, models.Gender(in.Gender), asOf); err != nil {
		return err
	}

	rest := []struct {
		field  string
		value  string
		tag    string
		reason string
	}{
		{"educationLevel", in.EducationLevel, "oneof=MIDDLE_SCHOOL HIGH_SCHOOL DIPLOMA BACHELOR MASTER",
			"must be one of MIDDLE_SCHOOL, HIGH_SCHOOL, DIPLOMA, BACHELOR, MASTER"},
		{"residence", in.Residence, "min=5,max=100", "must be between 5 and 100 characters"},
		{"howDidYouHearAboutUs", in.HowDidYouHearAboutUs, "oneof=SOCIAL_MEDIA RELATIVE GOOGLE_SEARCH",
			"must be one of SOCIAL_MEDIA, RELATIVE, GOOGLE_SEARCH"},
		{"status", in.Status, "omitempty,oneof=PENDING PHONE_CALL PASSED_THE_EXAM WAITING_FOR_DOCUMENTS ACCEPTED REJECTED",
			"must be a known workflow status"},
		{"requiredDocuments", in.RequiredDocuments, "omitempty,oneof=YES NO", "must be YES or NO"},
	}
	for _, c := range rest {
		if err := v.validate.Var(c.value, c.tag); err != nil {
			return fieldViolation(c.field, c.reason)
		}
	}

	if in.MarkUnreadable {
		return fieldViolation("mark", "must be a whole number between 0 and 100")
	}
	if in.Mark != nil {
		if err := v.validate.Var(*in.Mark, "min=0,max=100"); err != nil {
			return fieldViolation("mark", "must be between 0 and 100")
		}
	}

	return nil
}

func checkDateOfBirth(value string, gender models.Gender, asOf time.Time) error {
	dob, err := time.Parse(models.DateLayout, value)
	if err != nil {
		return fieldViolation("dateOfBirth", "must be a valid date in YYYY-MM-DD format")
	}

	today := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	if !dob.Before(today) {
		return fieldViolation("dateOfBirth", "must be in the past")
	}

	band, ok := ageBands[gender]
	if !ok {
		return fieldViolation("gender", "must be MALE or FEMALE")
	}
	age := completedYears(dob, today)
	if age < band[0] || age > band[1] {
		return fieldViolation("dateOfBirth",
			fmt.Sprintf("applicant age must be between %d and %d for %s applicants", band[0], band[1], gender))
	}
	return nil
}

func completedYears(dob, on time.Time) int {
	years := on.Year() - dob.Year()
	if on.Month() < dob.Month() || (on.Month() == dob.Month() && on.Day() < dob.Day()) {
		years--
	}
	return years
}
