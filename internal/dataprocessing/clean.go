package dataprocessing

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "ptbxl/internal/errors"
	"ptbxl/pkg/contracts/domain"
)

// CleanHeader is the column layout BuildCleanView produces
var CleanHeader = []string{"ecg_id", "patient_id", "diag", "filename_lr", "filename_hr"}

var requiredCleanColumns = []string{"patient_id", "diag", "filename_hr"}

// LoadClean reads a Clean Dataset View from CSV, or from the first sheet of
// an .xlsx workbook.
func LoadClean(path string) (*domain.CleanTable, error) {
	var (
		header []string
		rows   [][]string
		err    error
	)
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		header, rows, err = readWorkbook(path)
	} else {
		header, rows, err = readTable(path)
	}
	if err != nil {
		return nil, err
	}
	return cleanTableFromRows(path, header, rows)
}

func readWorkbook(path string) ([]string, [][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, openError(path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, apperrors.NewParsingError(path+": workbook has no sheets", nil)
	}
	all, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, apperrors.NewParsingError(path, err)
	}
	if len(all) == 0 {
		return nil, nil, apperrors.NewParsingError(path+": empty sheet", nil)
	}
	return all[0], all[1:], nil
}

func cleanTableFromRows(path string, header []string, rows [][]string) (*domain.CleanTable, error) {
	cols := mapColumns(header)
	for _, name := range requiredCleanColumns {
		if _, ok := cols[name]; !ok {
			return nil, apperrors.NewParsingError(
				fmt.Sprintf("%s: missing required column %q", path, name), nil)
		}
	}

	known := map[string]bool{"patient_id": true, "diag": true, "filename_lr": true, "filename_hr": true}
	table := &domain.CleanTable{Header: header, Rows: make([]domain.CleanRow, 0, len(rows))}
	for i, row := range rows {
		pidText := cell(row, cols, "patient_id")
		pid, err := strconv.ParseFloat(pidText, 64)
		if err != nil {
			return nil, apperrors.NewParsingError(
				fmt.Sprintf("%s row %d: invalid patient_id %q", path, i+2, pidText), err)
		}

		r := domain.CleanRow{
			PatientID:  pid,
			Diag:       cell(row, cols, "diag"),
			FilenameLR: cell(row, cols, "filename_lr"),
			FilenameHR: cell(row, cols, "filename_hr"),
		}
		for j, name := range header {
			if known[name] || j >= len(row) {
				continue
			}
			if r.Extra == nil {
				r.Extra = make(map[string]string)
			}
			r.Extra[name] = row[j]
		}
		table.Rows = append(table.Rows, r)
	}
	return table, nil
}

// BuildCleanView flattens aggregated metadata into the clean view, one row
// per record carrying exactly one diagnostic superclass. Records with no
// label or several labels are left out.
func BuildCleanView(records *domain.RecordTable) *domain.CleanTable {
	table := &domain.CleanTable{Header: CleanHeader}
	if records == nil {
		return table
	}
	for _, rec := range records.Records {
		if len(rec.DiagnosticSuperclass) != 1 {
			continue
		}
		table.Rows = append(table.Rows, domain.CleanRow{
			PatientID:  rec.PatientID,
			Diag:       rec.DiagnosticSuperclass[0],
			FilenameLR: rec.FilenameLR,
			FilenameHR: rec.FilenameHR,
			Extra:      map[string]string{"ecg_id": strconv.Itoa(rec.ECGID)},
		})
	}
	return table
}

// CleanRowValues renders a row in CleanHeader order
func CleanRowValues(r domain.CleanRow) []string {
	return []string{
		r.Extra["ecg_id"],
		strconv.FormatFloat(r.PatientID, 'f', 1, 64),
		r.Diag,
		r.FilenameLR,
		r.FilenameHR,
	}
}

// PatientsByDiag returns up to n patient ids per distinct diag value, diag
// values in sorted order and patients in table order within each.
func PatientsByDiag(clean *domain.CleanTable, n int) []float64 {
	if clean == nil || n <= 0 {
		return nil
	}

	byDiag := make(map[string][]float64)
	for _, r := range clean.Rows {
		if len(byDiag[r.Diag]) < n {
			byDiag[r.Diag] = append(byDiag[r.Diag], r.PatientID)
		}
	}

	diags := make([]string, 0, len(byDiag))
	for d := range byDiag {
		diags = append(diags, d)
	}
	sort.Strings(diags)

	var out []float64
	for _, d := range diags {
		out = append(out, byDiag[d]...)
	}
	return out
}

// DiagFor returns the diag of every row whose patient id is in patients,
// in table order.
func DiagFor(clean *domain.CleanTable, patients []float64) []string {
	if clean == nil {
		return nil
	}
	set := make(map[float64]struct{}, len(patients))
	for _, p := range patients {
		set[p] = struct{}{}
	}

	var out []string
	for _, r := range clean.Rows {
		if _, ok := set[r.PatientID]; ok {
			out = append(out, r.Diag)
		}
	}
	return out
}
