package exporter

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"ptbxl/internal/dataprocessing"
)

// Workbook sheet names, one per report section
const (
	SheetShape    = "shape"
	SheetTypes    = "types"
	SheetFirstRow = "first_row"
	SheetDescribe = "describe"
	SheetMissing  = "nan_percentage"
	SheetValues   = "values"
)

// WriteDescriptionWorkbook saves d as an XLSX workbook with one sheet per
// report section.
func WriteDescriptionWorkbook(path string, d *dataprocessing.Description) error {
	if d == nil {
		return fmt.Errorf("no description to write")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetShape); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{SheetTypes, SheetFirstRow, SheetDescribe, SheetMissing, SheetValues} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	sheets := map[string][][]interface{}{
		SheetShape:    {{"rows", "columns"}, {d.Rows, d.Cols}},
		SheetTypes:    typeRows(d),
		SheetFirstRow: firstRowRows(d),
		SheetDescribe: describeRows(d),
		SheetMissing:  missingRows(d),
		SheetValues:   valueRows(d),
	}
	for name, rows := range sheets {
		if err := writeSheet(f, name, rows); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func typeRows(d *dataprocessing.Description) [][]interface{} {
	rows := [][]interface{}{{"column", "kind"}}
	for _, c := range d.Columns {
		rows = append(rows, []interface{}{c.Name, string(c.Kind)})
	}
	return rows
}

func firstRowRows(d *dataprocessing.Description) [][]interface{} {
	rows := [][]interface{}{{"column", "value"}}
	for j, v := range d.FirstRow {
		rows = append(rows, []interface{}{d.Columns[j].Name, v})
	}
	return rows
}

// describeRows mirrors the printed layout: statistics down, columns across
func describeRows(d *dataprocessing.Description) [][]interface{} {
	header := []interface{}{"statistic"}
	for _, s := range d.Numeric {
		header = append(header, s.Column)
	}
	rows := [][]interface{}{header}

	for _, stat := range d.SummaryRows() {
		row := []interface{}{stat[0]}
		for k, s := range d.Numeric {
			row = append(row, statValue(stat[0], s, stat[k+1]))
		}
		rows = append(rows, row)
	}
	return rows
}

func statValue(name string, s dataprocessing.NumericSummary, text string) interface{} {
	var v float64
	switch name {
	case "count":
		return s.Count
	case "mean":
		v = s.Mean
	case "std":
		v = s.Std
	case "min":
		v = s.Min
	case "25%":
		v = s.Q25
	case "50%":
		v = s.Q50
	case "75%":
		v = s.Q75
	case "max":
		v = s.Max
	default:
		return text
	}
	if math.IsNaN(v) {
		return formatStat(v)
	}
	return v
}

func missingRows(d *dataprocessing.Description) [][]interface{} {
	rows := [][]interface{}{{"column", "nan_percentage"}}
	for _, c := range d.Columns {
		rows = append(rows, []interface{}{c.Name, c.MissingPct})
	}
	return rows
}

func valueRows(d *dataprocessing.Description) [][]interface{} {
	rows := [][]interface{}{{"column", "values"}}
	for _, vs := range d.ValueSets {
		row := []interface{}{vs.Column}
		for _, v := range vs.Values {
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	return rows
}
