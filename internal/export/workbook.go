package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const defaultColumnWidth = 18

// Sheet is a single-table workbook: a styled header row then one row per record.
type Sheet struct {
	Name    string
	Headers []string
	Widths  []float64
	Rows    [][]any
}

// Build renders sheet as an .xlsx document.
func Build(sheet Sheet) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheet.Name)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if sheet.Name != "Sheet1" {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return nil, fmt.Errorf("drop default sheet: %w", err)
		}
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for col, header := range sheet.Headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheet.Name, cell, header); err != nil {
			return nil, fmt.Errorf("set header %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheet.Name, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("style header %s: %w", cell, err)
		}

		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return nil, fmt.Errorf("column name: %w", err)
		}
		width := float64(defaultColumnWidth)
		if col < len(sheet.Widths) && sheet.Widths[col] > 0 {
			width = sheet.Widths[col]
		}
		if err := f.SetColWidth(sheet.Name, name, name, width); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	for i, row := range sheet.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("row cell: %w", err)
		}
		values := row
		if err := f.SetSheetRow(sheet.Name, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(sheet.Name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
