package services_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tvet-apply/applicants-api/internal/models"
	"github.com/tvet-apply/applicants-api/internal/services"
	apperrors "github.com/tvet-apply/applicants-api/pkg/errors"
	"github.com/tvet-apply/applicants-api/pkg/spreadsheet"
)

func newTestReconciler(store *memoryFormStore, archiver services.Archiver) *services.ImportReconciler {
	return services.NewImportReconciler(store, newStaticCatalog(), newTestValidator(), archiver, 100)
}

func TestImportReconciler_PartialFailure(t *testing.T) {
	ctx := context.Background()
	store := newMemoryFormStore()
	require.NoError(t, store.Create(ctx, validInput().ToForm())) // holds 9981234567 / 0791234567

	badRegion := validRow("2222222222", "0772222222")
	badRegion["Region"] = "EASTERN"
	missing := validRow("3333333333", "0773333333")
	delete(missing, "Last Name")

	rows := []models.RawRow{
		validRow("1111111111", "0771111111"), // 0 ok
		validRow("9981234567", "0781111111"), // 1 duplicate of stored form
		badRegion,                            // 2 invalid region
		validRow("4444444444", "0771111111"), // 3 phone claimed by row 0
		missing,                              // 4 missing field
		validRow("5555555555", "0785555555"), // 5 ok
	}

	result, err := newTestReconciler(store, nil).ImportRows(ctx, rows)
	require.NoError(t, err)

	assert.NotEmpty(t, result.BatchID)
	assert.Len(t, result.Committed, 2)
	assert.Equal(t, "1111111111", result.Committed[0].NationalID)
	assert.Equal(t, "5555555555", result.Committed[1].NationalID)
	assert.Equal(t, models.StatusPending, result.Committed[0].Status)
	assert.Equal(t, models.DocumentsNo, result.Committed[0].RequiredDocuments)

	require.Len(t, result.Errors, 4)
	assert.Equal(t, models.ImportRowError{Row: 1, Error: services.ConflictMessage}, result.Errors[0])
	assert.Equal(t, models.ImportRowError{Row: 2, Error: "Invalid region"}, result.Errors[1])
	assert.Equal(t, 3, result.Errors[2].Row)
	assert.Equal(t, services.ConflictMessage+" (row 0 of this import)", result.Errors[2].Error)
	assert.Equal(t, models.ImportRowError{Row: 4, Error: "Missing required fields"}, result.Errors[3])

	assert.Equal(t, 3, store.count())
}

func TestImportReconciler_IntraBatchNationalIDDuplicate(t *testing.T) {
	store := newMemoryFormStore()
	rows := []models.RawRow{
		validRow("1111111111", "0771111111"),
		validRow("1111111111", "0782222222"),
	}

	result, err := newTestReconciler(store, nil).ImportRows(context.Background(), rows)
	require.NoError(t, err)

	assert.Len(t, result.Committed, 1)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 1, result.Errors[0].Row)
	assert.True(t, strings.HasPrefix(result.Errors[0].Error, services.ConflictMessage))
}

func TestImportReconciler_RejectedRowDoesNotClaimKeys(t *testing.T) {
	store := newMemoryFormStore()
	invalid := validRow("1111111111", "0771111111")
	invalid["Gender"] = "FEMALE" // profession is male-only

	result, err := newTestReconciler(store, nil).ImportRows(context.Background(), []models.RawRow{
		invalid,
		validRow("1111111111", "0771111111"),
	})
	require.NoError(t, err)

	assert.Len(t, result.Committed, 1)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, models.ImportRowError{Row: 0, Error: "Invalid profession for this gender"}, result.Errors[0])
}

func TestImportReconciler_StoreFailureIsReportedPerRow(t *testing.T) {
	store := newMemoryFormStore()
	store.createErr = errStoreDown

	result, err := newTestReconciler(store, nil).ImportRows(context.Background(), []models.RawRow{
		validRow("1111111111", "0771111111"),
	})
	require.NoError(t, err)

	assert.Empty(t, result.Committed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "Failed to save row", result.Errors[0].Error)
}

func TestImportReconciler_SerialDatesAndNumericPhones(t *testing.T) {
	row := validRow("1111111111", "")
	row["Phone Number"] = float64(791111111)
	row["Date of Birth"] = float64(38118) // 2004-05-11

	result, err := newTestReconciler(newMemoryFormStore(), nil).ImportRows(context.Background(), []models.RawRow{row})
	require.NoError(t, err)
	require.Len(t, result.Committed, 1)
	assert.Equal(t, "0791111111", result.Committed[0].PhoneNumber)
	assert.Equal(t, "2004-05-11", result.Committed[0].DateOfBirth)
}

func TestImportReconciler_BatchLimits(t *testing.T) {
	store := newMemoryFormStore()

	_, err := newTestReconciler(store, nil).ImportRows(context.Background(), nil)
	var reqErr *services.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "No rows to import", reqErr.Message)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))

	small := services.NewImportReconciler(store, newStaticCatalog(), newTestValidator(), nil, 1)
	_, err = small.ImportRows(context.Background(), []models.RawRow{{}, {}})
	require.ErrorAs(t, err, &reqErr)
	assert.Contains(t, reqErr.Message, "Too many rows")
}

func TestImportReconciler_SnapshotLoadedOncePerBatch(t *testing.T) {
	catalog := newStaticCatalog()
	r := services.NewImportReconciler(newMemoryFormStore(), catalog, newTestValidator(), nil, 100)

	_, err := r.ImportRows(context.Background(), []models.RawRow{
		validRow("1111111111", "0771111111"),
		validRow("2222222222", "0772222222"),
		validRow("3333333333", "0773333333"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, catalog.calls)
}

func TestImportReconciler_CatalogFailureAbortsBatch(t *testing.T) {
	catalog := &staticCatalog{err: errStoreDown}
	r := services.NewImportReconciler(newMemoryFormStore(), catalog, newTestValidator(), nil, 100)

	_, err := r.ImportRows(context.Background(), []models.RawRow{validRow("1111111111", "0771111111")})
	assert.ErrorIs(t, err, errStoreDown)
}

func TestImportReconciler_CancelledMidBatchKeepsCommittedRows(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := newMemoryFormStore()
	store.onCreate = cancel // the client goes away after the first row is saved

	result, err := newTestReconciler(store, nil).ImportRows(ctx, []models.RawRow{
		validRow("1111111111", "0771111111"),
		validRow("2222222222", "0772222222"),
	})

	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	require.Len(t, result.Committed, 1)
	assert.Equal(t, "1111111111", result.Committed[0].NationalID)
	assert.NotEmpty(t, result.BatchID)
	assert.Equal(t, 1, store.count())
}

func TestImportReconciler_MissingFieldReportedBeforeBadMark(t *testing.T) {
	row := validRow("1111111111", "0771111111")
	delete(row, "Last Name")
	row["Mark"] = "abc"

	badMark := validRow("2222222222", "0772222222")
	badMark["Mark"] = "abc"

	badMarkAndRegion := validRow("3333333333", "0773333333")
	badMarkAndRegion["Mark"] = "abc"
	badMarkAndRegion["Region"] = "EASTERN"

	result, err := newTestReconciler(newMemoryFormStore(), nil).ImportRows(context.Background(),
		[]models.RawRow{row, badMark, badMarkAndRegion})
	require.NoError(t, err)

	assert.Empty(t, result.Committed)
	require.Len(t, result.Errors, 3)
	assert.Equal(t, models.ImportRowError{Row: 0, Error: "Missing required fields"}, result.Errors[0])
	assert.Equal(t, models.ImportRowError{Row: 1, Error: "Invalid mark: must be a whole number between 0 and 100"}, result.Errors[1])
	assert.Equal(t, models.ImportRowError{Row: 2, Error: "Invalid region"}, result.Errors[2])
}

func TestImportReconciler_UnparseableDateIsMissing(t *testing.T) {
	for _, dob := range []string{"31-12-2004", "2004-02-30", "not-a-date"} {
		row := validRow("1111111111", "0771111111")
		row["Date of Birth"] = dob

		result, err := newTestReconciler(newMemoryFormStore(), nil).ImportRows(context.Background(), []models.RawRow{row})
		require.NoError(t, err)
		require.Len(t, result.Errors, 1, dob)
		assert.Equal(t, "Missing required fields", result.Errors[0].Error, dob)
	}
}

func workbook(t *testing.T, rows ...models.RawRow) []byte {
	t.Helper()
	values := make([][]any, len(rows))
	for i, row := range rows {
		values[i] = make([]any, len(services.ExportHeaders))
		for c, h := range services.ExportHeaders {
			values[i][c] = row[h]
		}
	}
	var buf bytes.Buffer
	require.NoError(t, spreadsheet.WriteSheet(&buf, "Sheet1", services.ExportHeaders, values, map[int]bool{0: true, 6: true}))
	return buf.Bytes()
}

func TestImportReconciler_ImportWorkbook(t *testing.T) {
	store := newMemoryFormStore()
	archiver := newRecordingArchiver()
	data := workbook(t,
		validRow("1111111111", "0771111111"),
		validRow("1111111111", "0772222222"),
	)

	result, key, err := newTestReconciler(store, archiver).ImportWorkbook(context.Background(), "applicants.xlsx", data)
	require.NoError(t, err)

	assert.Len(t, result.Committed, 1)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 1, result.Errors[0].Row)

	assert.True(t, strings.HasPrefix(key, "imports/"), key)
	assert.True(t, strings.HasSuffix(key, "-applicants.xlsx"), key)
	assert.Equal(t, []string{key}, archiver.keys())
}

func TestImportReconciler_ImportWorkbookArchiveFailureIsNotFatal(t *testing.T) {
	archiver := newRecordingArchiver()
	archiver.err = errors.New("bucket unavailable")

	result, key, err := newTestReconciler(newMemoryFormStore(), archiver).
		ImportWorkbook(context.Background(), "a.xlsx", workbook(t, validRow("1111111111", "0771111111")))
	require.NoError(t, err)
	assert.Len(t, result.Committed, 1)
	assert.Empty(t, key)
}

func TestImportReconciler_ImportWorkbookRejectsGarbage(t *testing.T) {
	_, _, err := newTestReconciler(newMemoryFormStore(), nil).
		ImportWorkbook(context.Background(), "a.xlsx", []byte("not a workbook"))

	var reqErr *services.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.True(t, strings.HasPrefix(reqErr.Message, "Invalid spreadsheet"))
}
