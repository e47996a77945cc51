package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// DateLayout is the wire and storage format for dates of birth
const DateLayout = "2006-01-02"

// Gender of an applicant
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

// IsValid reports whether g is a known gender
func (g Gender) IsValid() bool {
	return g == GenderMale || g == GenderFemale
}

// EducationLevel is the highest completed level of schooling
type EducationLevel string

const (
	EducationMiddleSchool EducationLevel = "MIDDLE_SCHOOL"
	EducationHighSchool   EducationLevel = "HIGH_SCHOOL"
	EducationDiploma      EducationLevel = "DIPLOMA"
	EducationBachelor     EducationLevel = "BACHELOR"
	EducationMaster       EducationLevel = "MASTER"
)

// ReferralSource answers "how did you hear about us?"
type ReferralSource string

const (
	ReferralSocialMedia  ReferralSource = "SOCIAL_MEDIA"
	ReferralRelative     ReferralSource = "RELATIVE"
	ReferralGoogleSearch ReferralSource = "GOOGLE_SEARCH"
)

// RequiredDocuments tells whether the applicant has handed in the paperwork
type RequiredDocuments string

const (
	DocumentsYes RequiredDocuments = "YES"
	DocumentsNo  RequiredDocuments = "NO"
)

// FormStatus is the admissions workflow stage of a form
type FormStatus string

const (
	StatusPending             FormStatus = "PENDING"
	StatusPhoneCall           FormStatus = "PHONE_CALL"
	StatusPassedTheExam       FormStatus = "PASSED_THE_EXAM"
	StatusWaitingForDocuments FormStatus = "WAITING_FOR_DOCUMENTS"
	StatusAccepted            FormStatus = "ACCEPTED"
	StatusRejected            FormStatus = "REJECTED"
)

// statusStage orders the forward path of the workflow
var statusStage = map[FormStatus]int{
	StatusPending:             0,
	StatusPhoneCall:           1,
	StatusPassedTheExam:       2,
	StatusWaitingForDocuments: 3,
	StatusAccepted:            4,
}

// IsValid reports whether s is a known status
func (s FormStatus) IsValid() bool {
	_, ok := statusStage[s]
	return ok || s == StatusRejected
}

// IsTerminalStatus returns true if the status is terminal (no further transitions allowed)
func (s FormStatus) IsTerminalStatus() bool {
	return s == StatusAccepted || s == StatusRejected
}

// CanTransitionTo checks if a status transition is valid.
// Stages only move forward; REJECTED is reachable from any open stage.
func (s FormStatus) CanTransitionTo(newStatus FormStatus) bool {
	if s == newStatus {
		return true
	}
	if s.IsTerminalStatus() || !newStatus.IsValid() {
		return false
	}
	if newStatus == StatusRejected {
		return true
	}
	return statusStage[newStatus] > statusStage[s]
}

// ApplicationForm is a stored applicant record
type ApplicationForm struct {
	ID                   int               `json:"id"`
	Region               string            `json:"region"`
	Area                 string            `json:"area"`
	Institute            string            `json:"institute"`
	Profession           string            `json:"profession"`
	NationalID           string            `json:"nationalID"`
	PhoneNumber          string            `json:"phoneNumber"`
	FirstName            string            `json:"firstName"`
	FatherName           string            `json:"fatherName"`
	GrandFatherName      string            `json:"grandFatherName"`
	LastName             string            `json:"lastName"`
	DateOfBirth          string            `json:"dateOfBirth"`
	Gender               Gender            `json:"gender"`
	EducationLevel       EducationLevel    `json:"educationLevel"`
	Residence            string            `json:"residence"`
	HowDidYouHearAboutUs ReferralSource    `json:"howDidYouHearAboutUs"`
	Status               FormStatus        `json:"status"`
	Mark                 *int              `json:"mark"`
	RequiredDocuments    RequiredDocuments `json:"requiredDocuments"`
	CreatedAt            time.Time         `json:"createdAt"`
	UpdatedAt            time.Time         `json:"updatedAt"`
}

// FormInput is a candidate form before validation. Enum fields are plain
// strings so that unknown values reach the validator instead of failing binding.
type FormInput struct {
	Region               string `json:"region"`
	Area                 string `json:"area"`
	Institute            string `json:"institute"`
	Profession           string `json:"profession"`
	NationalID           string `json:"nationalID"`
	PhoneNumber          string `json:"phoneNumber"`
	FirstName            string `json:"firstName"`
	FatherName           string `json:"fatherName"`
	GrandFatherName      string `json:"grandFatherName"`
	LastName             string `json:"lastName"`
	DateOfBirth          string `json:"dateOfBirth"`
	Gender               string `json:"gender"`
	EducationLevel       string `json:"educationLevel"`
	Residence            string `json:"residence"`
	HowDidYouHearAboutUs string `json:"howDidYouHearAboutUs"`
	Status               string `json:"status,omitempty"`
	Mark                 *int   `json:"mark,omitempty"`
	RequiredDocuments    string `json:"requiredDocuments,omitempty"`

	// MarkUnreadable is set by imports whose mark cell is not a whole number
	MarkUnreadable bool `json:"-"`
}

// SubmitFormRequest is the public submission payload. Workflow fields
// (status, mark, requiredDocuments) are reserved for admins.
type SubmitFormRequest struct {
	Region               string `json:"region"`
	Area                 string `json:"area"`
	Institute            string `json:"institute"`
	Profession           string `json:"profession"`
	NationalID           string `json:"nationalID"`
	PhoneNumber          string `json:"phoneNumber"`
	FirstName            string `json:"firstName"`
	FatherName           string `json:"fatherName"`
	GrandFatherName      string `json:"grandFatherName"`
	LastName             string `json:"lastName"`
	DateOfBirth          string `json:"dateOfBirth"`
	Gender               string `json:"gender"`
	EducationLevel       string `json:"educationLevel"`
	Residence            string `json:"residence"`
	HowDidYouHearAboutUs string `json:"howDidYouHearAboutUs"`
}

// ToInput converts the public payload into a candidate
func (r *SubmitFormRequest) ToInput() *FormInput {
	return &FormInput{
		Region:               r.Region,
		Area:                 r.Area,
		Institute:            r.Institute,
		Profession:           r.Profession,
		NationalID:           r.NationalID,
		PhoneNumber:          r.PhoneNumber,
		FirstName:            r.FirstName,
		FatherName:           r.FatherName,
		GrandFatherName:      r.GrandFatherName,
		LastName:             r.LastName,
		DateOfBirth:          r.DateOfBirth,
		Gender:               r.Gender,
		EducationLevel:       r.EducationLevel,
		Residence:            r.Residence,
		HowDidYouHearAboutUs: r.HowDidYouHearAboutUs,
	}
}

// UpdateFormRequest is a partial admin update; absent fields are left unchanged
type UpdateFormRequest struct {
	Region               *string     `json:"region"`
	Area                 *string     `json:"area"`
	Institute            *string     `json:"institute"`
	Profession           *string     `json:"profession"`
	NationalID           *string     `json:"nationalID"`
	PhoneNumber          *string     `json:"phoneNumber"`
	FirstName            *string     `json:"firstName"`
	FatherName           *string     `json:"fatherName"`
	GrandFatherName      *string     `json:"grandFatherName"`
	LastName             *string     `json:"lastName"`
	DateOfBirth          *string     `json:"dateOfBirth"`
	Gender               *string     `json:"gender"`
	EducationLevel       *string     `json:"educationLevel"`
	Residence            *string     `json:"residence"`
	HowDidYouHearAboutUs *string     `json:"howDidYouHearAboutUs"`
	Status               *string     `json:"status"`
	Mark                 NullableInt `json:"mark"`
	RequiredDocuments    *string     `json:"requiredDocuments"`
}

// NullableInt is a patch field that tells an absent key from an explicit
// null. Set is true whenever the key was present; Value is nil for null.
type NullableInt struct {
	Set   bool
	Value *int
}

// SetInt returns a NullableInt carrying v
func SetInt(v int) NullableInt {
	return NullableInt{Set: true, Value: &v}
}

func (n *NullableInt) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Value = nil
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// ApplyTo overlays the set fields of the patch onto in
func (p *UpdateFormRequest) ApplyTo(in *FormInput) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&in.Region, p.Region)
	set(&in.Area, p.Area)
	set(&in.Institute, p.Institute)
	set(&in.Profession, p.Profession)
	set(&in.NationalID, p.NationalID)
	set(&in.PhoneNumber, p.PhoneNumber)
	set(&in.FirstName, p.FirstName)
	set(&in.FatherName, p.FatherName)
	set(&in.GrandFatherName, p.GrandFatherName)
	set(&in.LastName, p.LastName)
	set(&in.DateOfBirth, p.DateOfBirth)
	set(&in.Gender, p.Gender)
	set(&in.EducationLevel, p.EducationLevel)
	set(&in.Residence, p.Residence)
	set(&in.HowDidYouHearAboutUs, p.HowDidYouHearAboutUs)
	set(&in.Status, p.Status)
	set(&in.RequiredDocuments, p.RequiredDocuments)
	if p.Mark.Set {
		in.Mark = nil
		if p.Mark.Value != nil {
			mark := *p.Mark.Value
			in.Mark = &mark
		}
	}
}

// Normalize trims every field and upper-cases the enumerated ones
func (in *FormInput) Normalize() {
	for _, f := range []*string{
		&in.Area, &in.Institute, &in.Profession, &in.NationalID, &in.PhoneNumber,
		&in.FirstName, &in.FatherName, &in.GrandFatherName, &in.LastName,
		&in.DateOfBirth, &in.Residence,
	} {
		*f = strings.TrimSpace(*f)
	}
	for _, f := range []*string{
		&in.Region, &in.Gender, &in.EducationLevel, &in.HowDidYouHearAboutUs,
		&in.Status, &in.RequiredDocuments,
	} {
		*f = strings.ToUpper(strings.TrimSpace(*f))
	}
}

// ToForm builds a record from a validated candidate, applying workflow defaults
func (in *FormInput) ToForm() *ApplicationForm {
	form := &ApplicationForm{}
	in.applyTo(form)
	return form
}

func (in *FormInput) applyTo(form *ApplicationForm) {
	form.Region = in.Region
	form.Area = in.Area
	form.Institute = in.Institute
	form.Profession = in.Profession
	form.NationalID = in.NationalID
	form.PhoneNumber = in.PhoneNumber
	form.FirstName = in.FirstName
	form.FatherName = in.FatherName
	form.GrandFatherName = in.GrandFatherName
	form.LastName = in.LastName
	form.DateOfBirth = in.DateOfBirth
	form.Gender = Gender(in.Gender)
	form.EducationLevel = EducationLevel(in.EducationLevel)
	form.Residence = in.Residence
	form.HowDidYouHearAboutUs = ReferralSource(in.HowDidYouHearAboutUs)
	form.Status = FormStatus(in.Status)
	if form.Status == "" {
		form.Status = StatusPending
	}
	form.Mark = in.Mark
	form.RequiredDocuments = RequiredDocuments(in.RequiredDocuments)
	if form.RequiredDocuments == "" {
		form.RequiredDocuments = DocumentsNo
	}
}

// ApplyInput copies a validated candidate onto an existing record
func (f *ApplicationForm) ApplyInput(in *FormInput) {
	in.applyTo(f)
}

// ToInput returns the record as a candidate, used as the base of partial updates
func (f *ApplicationForm) ToInput() *FormInput {
	in := &FormInput{
		Region:               f.Region,
		Area:                 f.Area,
		Institute:            f.Institute,
		Profession:           f.Profession,
		NationalID:           f.NationalID,
		PhoneNumber:          f.PhoneNumber,
		FirstName:            f.FirstName,
		FatherName:           f.FatherName,
		GrandFatherName:      f.GrandFatherName,
		LastName:             f.LastName,
		DateOfBirth:          f.DateOfBirth,
		Gender:               string(f.Gender),
		EducationLevel:       string(f.EducationLevel),
		Residence:            f.Residence,
		HowDidYouHearAboutUs: string(f.HowDidYouHearAboutUs),
		Status:               string(f.Status),
		RequiredDocuments:    string(f.RequiredDocuments),
	}
	if f.Mark != nil {
		mark := *f.Mark
		in.Mark = &mark
	}
	return in
}

// FormFilter narrows GET /forms; empty fields match everything
type FormFilter struct {
	Status FormStatus
	Region string
	Gender Gender
}

// FormColumns is the column list ScanApplicationForm expects, in order
const FormColumns = `id, region, area, institute, profession, national_id, phone_number,
	first_name, father_name, grand_father_name, last_name, date_of_birth, gender,
	education_level, residence, how_did_you_hear_about_us, status, mark,
	required_documents, created_at, updated_at`

// ScanApplicationForm scans a single PostgreSQL row into an ApplicationForm
// Expected columns: FormColumns
func ScanApplicationForm(row pgx.Row) (*ApplicationForm, error) {
	var f ApplicationForm
	var dateOfBirth time.Time
	var mark *int16

	err := row.Scan(
		&f.ID,
		&f.Region,
		&f.Area,
		&f.Institute,
		&f.Profession,
		&f.NationalID,
		&f.PhoneNumber,
		&f.FirstName,
		&f.FatherName,
		&f.GrandFatherName,
		&f.LastName,
		&dateOfBirth,
		&f.Gender,
		&f.EducationLevel,
		&f.Residence,
		&f.HowDidYouHearAboutUs,
		&f.Status,
		&mark,
		&f.RequiredDocuments,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	f.DateOfBirth = dateOfBirth.Format(DateLayout)
	if mark != nil {
		m := int(*mark)
		f.Mark = &m
	}

	return &f, nil
}

// ScanApplicationForms scans multiple rows
func ScanApplicationForms(rows pgx.Rows) ([]*ApplicationForm, error) {
	defer rows.Close()

	forms := []*ApplicationForm{}
	for rows.Next() {
		form, err := ScanApplicationForm(rows)
		if err != nil {
			return nil, err
		}
		forms = append(forms, form)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return forms, nil
}
