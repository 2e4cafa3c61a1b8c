package dataprocessing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"ptbxl/internal/config"
	apperrors "ptbxl/internal/errors"
	"ptbxl/internal/infrastructure"
	"ptbxl/internal/literal"
	"ptbxl/pkg/contracts/domain"
)

const (
	recordingDateLayout = "2006-01-02 15:04:05"
	utf8BOM             = "\ufeff"
)

// Meta is the Metadata Bundle: the record table and the SCP statement table
// of one dataset root.
type Meta struct {
	Records    *domain.RecordTable
	Statements *domain.StatementTable
}

var (
	requiredRecordColumns    = []string{"ecg_id", "scp_codes", "filename_lr", "filename_hr"}
	requiredStatementColumns = []string{"diagnostic", "diagnostic_class"}
)

// LoadMeta reads ptbxl_database.csv and scp_statements.csv under
// root/raw_data/meta_data. Either both tables load or an error is returned.
func LoadMeta(root string, opts ...Option) (*Meta, error) {
	o := newOptions(opts)
	ctx, span := infrastructure.StartSpan(o.ctx, "dataprocessing.LoadMeta", attribute.String("root", root))
	defer span.End()
	o.ctx = ctx

	paths := config.NewDatasetPaths(root)
	paths.LogPathResolution(o.logger)

	records, err := loadRecords(o, paths.DatabaseCSV)
	if err != nil {
		o.fail("meta", err)
		return nil, fmt.Errorf("load metadata: %w", err)
	}

	statements, err := loadStatements(o, paths.StatementsCSV)
	if err != nil {
		o.fail("meta", err)
		return nil, fmt.Errorf("load metadata: %w", err)
	}

	o.logger.InfoContext(ctx, "Metadata loaded",
		slog.Int("records", records.Len()),
		slog.Int("statements", statements.Len()))

	return &Meta{Records: records, Statements: statements}, nil
}

// LoadRecords reads a single ptbxl_database.csv
func LoadRecords(path string, opts ...Option) (*domain.RecordTable, error) {
	return loadRecords(newOptions(opts), path)
}

// LoadStatements reads a single scp_statements.csv
func LoadStatements(path string, opts ...Option) (*domain.StatementTable, error) {
	return loadStatements(newOptions(opts), path)
}

func loadRecords(o *options, path string) (*domain.RecordTable, error) {
	header, rows, err := readTable(path)
	if err != nil {
		return nil, err
	}

	cols := mapColumns(header)
	for _, name := range requiredRecordColumns {
		if _, ok := cols[name]; !ok {
			return nil, apperrors.NewParsingError(
				fmt.Sprintf("%s: missing required column %q", path, name), nil)
		}
	}

	records := make([]*domain.Record, 0, len(rows))
	for i, row := range rows {
		rec, err := parseRecord(cols, row)
		if err != nil {
			// +2: header line and 1-based numbering
			return nil, apperrors.NewParsingError(fmt.Sprintf("%s row %d", path, i+2), err).
				WithContext("row", i+2)
		}
		records = append(records, rec)
	}

	table, err := domain.NewRecordTable(header, records)
	if err != nil {
		return nil, apperrors.NewParsingError(path, err)
	}

	o.metrics.AddRecords(o.ctx, "database", table.Len())
	o.logger.DebugContext(o.ctx, "Record metadata parsed",
		slog.String("path", path),
		slog.Int("records", table.Len()))
	return table, nil
}

func parseRecord(cols map[string]int, row []string) (*domain.Record, error) {
	get := func(name string) string {
		return cell(row, cols, name)
	}

	idText := get("ecg_id")
	id, err := strconv.Atoi(idText)
	if err != nil {
		return nil, fmt.Errorf("invalid ecg_id %q", idText)
	}

	codes, err := literal.ParseCodeMap(get("scp_codes"))
	if err != nil {
		return nil, fmt.Errorf("ecg_id %d: scp_codes: %w", id, err)
	}

	rec := &domain.Record{
		ECGID:      id,
		PatientID:  math.NaN(),
		Age:        optFloat(get("age")),
		Sex:        optInt(get("sex")),
		Height:     optFloat(get("height")),
		Weight:     optFloat(get("weight")),
		Device:     get("device"),
		Report:     get("report"),
		SCPCodes:   codes,
		FilenameLR: get("filename_lr"),
		FilenameHR: get("filename_hr"),
		Raw:        append([]string(nil), row...),
	}
	if p := optFloat(get("patient_id")); p != nil {
		rec.PatientID = *p
	}
	if fold := optInt(get("strat_fold")); fold != nil {
		rec.StratFold = *fold
	}
	if ts, err := time.Parse(recordingDateLayout, get("recording_date")); err == nil {
		rec.RecordingDate = ts
	}
	return rec, nil
}

func loadStatements(o *options, path string) (*domain.StatementTable, error) {
	header, rows, err := readTable(path)
	if err != nil {
		return nil, err
	}
	if len(header) == 0 {
		return nil, apperrors.NewParsingError(path+": empty header", nil)
	}

	cols := mapColumns(header)
	for _, name := range requiredStatementColumns {
		if _, ok := cols[name]; !ok {
			return nil, apperrors.NewParsingError(
				fmt.Sprintf("%s: missing required column %q", path, name), nil)
		}
	}

	statements := make([]*domain.SCPStatement, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		get := func(name string) string {
			return cell(row, cols, name)
		}
		statements = append(statements, &domain.SCPStatement{
			Code:               strings.TrimSpace(row[0]),
			Description:        get("description"),
			Diagnostic:         isFlagSet(get("diagnostic")),
			Form:               isFlagSet(get("form")),
			Rhythm:             isFlagSet(get("rhythm")),
			DiagnosticClass:    get("diagnostic_class"),
			DiagnosticSubclass: get("diagnostic_subclass"),
			StatementCategory:  get("Statement Category"),
			Raw:                append([]string(nil), row...),
		})
	}

	table, err := domain.NewStatementTable(header, statements)
	if err != nil {
		return nil, apperrors.NewParsingError(path, err)
	}

	o.metrics.AddRecords(o.ctx, "statements", table.Len())
	o.logger.DebugContext(o.ctx, "SCP statements parsed",
		slog.String("path", path),
		slog.Int("statements", table.Len()))
	return table, nil
}

// readTable reads a whole CSV file. A leading UTF-8 BOM is dropped.
func readTable(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, openError(path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil, apperrors.NewParsingError(path+": empty file", nil)
	}
	if err != nil {
		return nil, nil, apperrors.NewParsingError(path, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, apperrors.NewParsingError(path, err)
	}
	return header, rows, nil
}

func openError(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return apperrors.NewNotFoundError(path).WithCause(err)
	}
	return apperrors.NewStorageError("failed to open "+path, err)
}

// mapColumns indexes header names; the first occurrence wins
func mapColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if _, seen := cols[name]; !seen {
			cols[name] = i
		}
	}
	return cols
}

func cell(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isMissing(s string) bool {
	switch strings.TrimSpace(s) {
	case "", "nan", "NaN", "NA", "null", "None":
		return true
	}
	return false
}

func optFloat(s string) *float64 {
	if isMissing(s) {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return &v
}

func optInt(s string) *int {
	v := optFloat(s)
	if v == nil {
		return nil
	}
	i := int(*v)
	return &i
}

// isFlagSet reports whether a 0/1 statement flag column holds 1
func isFlagSet(s string) bool {
	v := optFloat(s)
	return v != nil && *v == 1
}

// fail counts and records a failed stage
func (o *options) fail(stage string, err error) {
	o.metrics.AddError(o.ctx, stage)
	infrastructure.RecordError(o.ctx, err)
	o.logger.ErrorContext(o.ctx, "Load failed",
		slog.String("stage", stage),
		slog.String("error", err.Error()))
}
