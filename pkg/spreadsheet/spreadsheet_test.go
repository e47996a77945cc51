package spreadsheet

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteSheet_ThenReadRows(t *testing.T) {
	var buf bytes.Buffer
	headers := []string{"National ID", "First Name", "Marks", "Date of Birth"}
	rows := [][]any{
		{"0123456789", "Ahmad", 85, 36892},
		{"9876543210", "Sara", nil, "2001-02-03"},
	}

	err := WriteSheet(&buf, "Forms", headers, rows, map[int]bool{0: true})
	require.NoError(t, err)

	got, err := ReadRows(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "0123456789", got[0]["National ID"], "text column keeps leading zero")
	assert.Equal(t, "Ahmad", got[0]["First Name"])
	assert.Equal(t, float64(85), got[0]["Marks"])
	assert.Equal(t, float64(36892), got[0]["Date of Birth"])

	_, hasMark := got[1]["Marks"]
	assert.False(t, hasMark, "empty cells are omitted")
	assert.Equal(t, "2001-02-03", got[1]["Date of Birth"])
}

func TestWriteSheet_NamesSheet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSheet(&buf, "Forms", []string{"A"}, nil, nil))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Forms"}, f.GetSheetList())
}

func TestReadRows_SkipsBlankRowsAndUnnamedColumns(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetCellStr(sheet, "A1", " Region "))
	require.NoError(t, f.SetCellStr(sheet, "C1", "Area"))
	require.NoError(t, f.SetCellStr(sheet, "A2", "NORTH"))
	require.NoError(t, f.SetCellStr(sheet, "B2", "ignored"))
	require.NoError(t, f.SetCellStr(sheet, "C2", "إربد"))
	require.NoError(t, f.SetCellStr(sheet, "A4", "SOUTH"))

	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)

	got, err := ReadRows(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, map[string]any{"Region": "NORTH", "Area": "إربد"}, got[0])
	assert.Equal(t, map[string]any{"Region": "SOUTH"}, got[1])
}

func TestReadRows_EmptyWorkbook(t *testing.T) {
	f := excelize.NewFile()
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)

	_, err = ReadRows(&buf)
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestReadRows_NotAWorkbook(t *testing.T) {
	_, err := ReadRows(bytes.NewReader([]byte("plain text")))
	assert.Error(t, err)
}
