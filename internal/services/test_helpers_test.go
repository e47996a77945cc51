package services_test

import (
	"context"
	"time"

	"github.com/tvet-apply/applicants-api/internal/models"
	"github.com/tvet-apply/applicants-api/internal/services"
	"github.com/tvet-apply/applicants-api/pkg/logger"
)

func init() {
	// Initialize logger for tests
	if err := logger.Initialize(logger.Config{
		Level:       "debug",
		Environment: "development",
	}); err != nil {
		panic(err)
	}
}

// testNow is the wall clock of every service under test
var testNow = time.Date(2024, 9, 1, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func newTestValidator() *services.FormValidator {
	return services.NewFormValidatorWithClock(fixedClock)
}

func testCatalog() *models.Catalog {
	return models.NewCatalog(
		[]string{"CENTRAL", "NORTHERN", "SOUTHERN"},
		[]models.Area{
			{Name: "الزرقاء", RegionName: "CENTRAL"},
			{Name: "عمان", RegionName: "CENTRAL"},
			{Name: "إربد", RegionName: "NORTHERN"},
		},
		[]models.Institute{
			{Name: "معهد الزرقاء", AreaName: "الزرقاء", RegionName: "CENTRAL"},
			{Name: "معهد عمان", AreaName: "عمان", RegionName: "CENTRAL"},
			{Name: "معهد إربد", AreaName: "إربد", RegionName: "NORTHERN"},
		},
		[]models.Profession{
			{Name: "مشغل أنظمة الطاقة الشمسية", AreaName: "الزرقاء", RegionName: "CENTRAL", AllowedGenders: []models.Gender{models.GenderMale}},
			{Name: "تصفيف الشعر", AreaName: "الزرقاء", RegionName: "CENTRAL", AllowedGenders: []models.Gender{models.GenderFemale}},
			{Name: "الطهي", AreaName: "الزرقاء", RegionName: "CENTRAL", AllowedGenders: []models.Gender{models.GenderMale, models.GenderFemale}},
			{Name: "الطهي", AreaName: "إربد", RegionName: "NORTHERN", AllowedGenders: []models.Gender{models.GenderMale, models.GenderFemale}},
		},
	)
}

// staticCatalog serves a fixed snapshot
type staticCatalog struct {
	catalog *models.Catalog
	err     error
	calls   int
}

func (s *staticCatalog) Snapshot(context.Context) (*models.Catalog, error) {
	s.calls++
	return s.catalog, s.err
}

func newStaticCatalog() *staticCatalog {
	return &staticCatalog{catalog: testCatalog()}
}

// validInput is a MALE applicant aged 19 on testNow
func validInput() *models.FormInput {
	return &models.FormInput{
		Region:               "CENTRAL",
		Area:                 "الزرقاء",
		Institute:            "معهد الزرقاء",
		Profession:           "مشغل أنظمة الطاقة الشمسية",
		NationalID:           "9981234567",
		PhoneNumber:          "0791234567",
		FirstName:            "Ahmad",
		FatherName:           "Khaled",
		GrandFatherName:      "Saleh",
		LastName:             "Haddad",
		DateOfBirth:          "2005-05-10",
		Gender:               "MALE",
		EducationLevel:       "HIGH_SCHOOL",
		Residence:            "Zarqa, Jordan",
		HowDidYouHearAboutUs: "SOCIAL_MEDIA",
	}
}

// validRow is validInput as a dashboard spreadsheet row
func validRow(nationalID, phone string) models.RawRow {
	return models.RawRow{
		"National ID":               nationalID,
		"Phone Number":              phone,
		"First Name":                "Ahmad",
		"Father Name":               "Khaled",
		"Grandfather Name":          "Saleh",
		"Last Name":                 "Haddad",
		"Date of Birth":             "2005-05-10",
		"Gender":                    "MALE",
		"Education Level":           "HIGH_SCHOOL",
		"Residence":                 "Zarqa, Jordan",
		"How did he hear about us?": "SOCIAL_MEDIA",
		"Region":                    "CENTRAL",
		"Area":                      "الزرقاء",
		"Institute":                 "معهد الزرقاء",
		"Profession":                "مشغل أنظمة الطاقة الشمسية",
	}
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }
