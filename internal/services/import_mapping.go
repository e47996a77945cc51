package services

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tvet-apply/applicants-api/internal/models"
)

// Spreadsheet serial day 25569 is 1970-01-01
const (
	excelEpochSerial = 25569
	secondsPerDay    = 86400
)

// columnAliases maps lower-cased dashboard headers and canonical field
// names onto FormInput fields
var columnAliases = map[string]string{
	"national id":               "nationalID",
	"phone number":              "phoneNumber",
	"first name":                "firstName",
	"father name":               "fatherName",
	"grandfather name":          "grandFatherName",
	"grand father name":         "grandFatherName",
	"last name":                 "lastName",
	"date of birth":             "dateOfBirth",
	"gender":                    "gender",
	"education level":           "educationLevel",
	"residence":                 "residence",
	"how did he hear about us?": "howDidYouHearAboutUs",
	"how did you hear about us": "howDidYouHearAboutUs",
	"region":                    "region",
	"area":                      "area",
	"institute":                 "institute",
	"profession":                "profession",
	"status":                    "status",
	"mark":                      "mark",
	"marks":                     "mark",
	"required documents":        "requiredDocuments",
}

func init() {
	for _, canonical := range []string{
		"nationalID", "phoneNumber", "firstName", "fatherName", "grandFatherName", "lastName",
		"dateOfBirth", "educationLevel", "howDidYouHearAboutUs", "requiredDocuments",
	} {
		columnAliases[strings.ToLower(canonical)] = canonical
	}
}

// MapRow turns a spreadsheet row into a candidate form. Unknown columns are
// ignored. An unreadable mark is flagged on the candidate and rejected by the
// validator after the required-field and catalog checks.
func MapRow(raw models.RawRow) *models.FormInput {
	in := &models.FormInput{}
	for header, value := range raw {
		field, ok := columnAliases[strings.ToLower(strings.TrimSpace(header))]
		if !ok {
			continue
		}

		switch field {
		case "dateOfBirth":
			in.DateOfBirth = NormalizeDate(value)
		case "mark":
			in.Mark, in.MarkUnreadable = markValue(value)
		case "phoneNumber":
			in.PhoneNumber = phoneValue(value)
		default:
			setField(in, field, cellString(value))
		}
	}
	return in
}

func setField(in *models.FormInput, field, value string) {
	switch field {
	case "region":
		in.Region = value
	case "area":
		in.Area = value
	case "institute":
		in.Institute = value
	case "profession":
		in.Profession = value
	case "nationalID":
		in.NationalID = value
	case "firstName":
		in.FirstName = value
	case "fatherName":
		in.FatherName = value
	case "grandFatherName":
		in.GrandFatherName = value
	case "lastName":
		in.LastName = value
	case "gender":
		in.Gender = value
	case "educationLevel":
		in.EducationLevel = value
	case "residence":
		in.Residence = value
	case "howDidYouHearAboutUs":
		in.HowDidYouHearAboutUs = value
	case "status":
		in.Status = value
	case "requiredDocuments":
		in.RequiredDocuments = value
	}
}

// cellString renders a cell as text; whole numbers lose their ".0"
func cellString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.UTC().Format(models.DateLayout)
	default:
		return ""
	}
}

// phoneValue restores the leading zero numeric cells drop from 07XXXXXXXX
func phoneValue(value any) string {
	s := cellString(value)
	if _, isText := value.(string); isText {
		return s
	}
	if len(s) == 9 && strings.HasPrefix(s, "7") {
		return "0" + s
	}
	return s
}

// markValue reads a mark cell. unreadable is set when the cell holds
// something other than a whole number.
func markValue(value any) (mark *int, unreadable bool) {
	s := cellString(value)
	if s == "" {
		return nil, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return nil, true
	}
	m := int(f)
	return &m, false
}

// NormalizeDate converts the date shapes spreadsheets produce into
// YYYY-MM-DD. Unrecognised shapes yield "" and fail as a missing field.
//   - strings must start with a real YYYY-MM-DD date (a time part is dropped)
//   - numbers are spreadsheet serial day counts
//   - time.Time values are formatted in UTC
func NormalizeDate(value any) string {
	switch v := value.(type) {
	case string:
		s := strings.TrimSpace(v)
		if len(s) < 10 {
			return ""
		}
		t, err := time.Parse(models.DateLayout, s[:10])
		if err != nil {
			return ""
		}
		return t.Format(models.DateLayout)
	case float64:
		return serialToDate(v)
	case int:
		return serialToDate(float64(v))
	case int64:
		return serialToDate(float64(v))
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return ""
		}
		return serialToDate(f)
	case time.Time:
		return v.UTC().Format(models.DateLayout)
	default:
		return ""
	}
}

func serialToDate(serial float64) string {
	if serial <= 0 || math.IsNaN(serial) || math.IsInf(serial, 0) {
		return ""
	}
	seconds := (serial - excelEpochSerial) * secondsPerDay
	return time.Unix(int64(math.Floor(seconds)), 0).UTC().Format(models.DateLayout)
}
