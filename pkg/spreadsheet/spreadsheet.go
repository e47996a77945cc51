// Package spreadsheet reads and writes the .xlsx workbooks used for bulk
// import and export of application forms.
package spreadsheet

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrNoSheet is returned for a workbook without any worksheet
var ErrNoSheet = errors.New("workbook has no sheets")

// ErrNoHeader is returned when the first sheet has no header row
var ErrNoHeader = errors.New("first sheet has no header row")

// text number format ("@"), keeps leading zeros of IDs and phone numbers
const textNumFmt = 49

// ReadRows returns the data rows of the first sheet keyed by header text.
// Numeric cells come back as float64 so date serials and bare phone numbers
// can be told apart from text. Blank rows are skipped.
func ReadRows(r io.Reader) ([]map[string]any, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only workbook

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheet
	}
	sheet := sheets[0]

	grid, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(grid) == 0 {
		return nil, ErrNoHeader
	}

	headers := make([]string, len(grid[0]))
	hasHeader := false
	for i, h := range grid[0] {
		headers[i] = strings.TrimSpace(h)
		if headers[i] != "" {
			hasHeader = true
		}
	}
	if !hasHeader {
		return nil, ErrNoHeader
	}

	rows := make([]map[string]any, 0, len(grid)-1)
	for r := 1; r < len(grid); r++ {
		row := make(map[string]any, len(headers))
		for c, raw := range grid[r] {
			if c >= len(headers) || headers[c] == "" || raw == "" {
				continue
			}
			value, err := cellValue(f, sheet, c+1, r+1, raw)
			if err != nil {
				return nil, err
			}
			row[headers[c]] = value
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}

	return rows, nil
}

func cellValue(f *excelize.File, sheet string, col, row int, raw string) (any, error) {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return nil, err
	}
	kind, err := f.GetCellType(sheet, cell)
	if err != nil {
		return nil, fmt.Errorf("failed to read cell %s: %w", cell, err)
	}
	switch kind {
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return n, nil
		}
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true"), nil
	}
	return raw, nil
}

// WriteSheet writes a single-sheet workbook. Columns listed in textColumns
// (zero-based) are stored as text.
func WriteSheet(w io.Writer, sheet string, headers []string, rows [][]any, textColumns map[int]bool) error {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck // in-memory workbook

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	textStyle, err := f.NewStyle(&excelize.Style{NumFmt: textNumFmt})
	if err != nil {
		return fmt.Errorf("failed to create text style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for c, h := range headers {
		cell, err := excelize.CoordinatesToCellName(c+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStr(sheet, cell, h); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return err
		}
		name, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, name, name, columnWidth(h)); err != nil {
			return err
		}
	}

	for r, values := range rows {
		for c, v := range values {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if textColumns[c] {
				if err := f.SetCellStr(sheet, cell, toText(v)); err != nil {
					return err
				}
				if err := f.SetCellStyle(sheet, cell, cell, textStyle); err != nil {
					return err
				}
				continue
			}
			if v == nil {
				continue
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func toText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case *int:
		if t == nil {
			return ""
		}
		return strconv.Itoa(*t)
	default:
		return fmt.Sprint(t)
	}
}

func columnWidth(header string) float64 {
	width := float64(len([]rune(header))) + 4
	if width < 14 {
		return 14
	}
	return width
}
