package exporter

import (
	"fmt"
	"log/slog"

	"ptbxl/internal/config"
	"ptbxl/internal/dataprocessing"
	"ptbxl/internal/literal"
	"ptbxl/pkg/contracts/domain"
)

// LabelExporter writes aggregated metadata and the clean view as CSV
type LabelExporter struct {
	csvWriter *CSVWriter
	logger    *slog.Logger
}

// NewLabelExporter creates a new label exporter
func NewLabelExporter(paths *config.Paths, logger *slog.Logger) *LabelExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LabelExporter{
		csvWriter: NewCSVWriter(paths).WithLogger(logger),
		logger:    logger,
	}
}

// ExportLabels writes the record table with its label columns appended.
// scp_codes and the labels are written as literals LoadRecords reads back.
func (e *LabelExporter) ExportLabels(records *domain.RecordTable, outputPath string) error {
	if records == nil {
		return fmt.Errorf("no records to export")
	}

	headers := labelHeaders(records)
	stream, err := e.csvWriter.CreateStreamWriter(outputPath, headers)
	if err != nil {
		return fmt.Errorf("failed to create labels file: %w", err)
	}

	for _, rec := range records.Records {
		if err := stream.WriteRecord(recordRow(records.Header, headers, rec)); err != nil {
			stream.Close()
			return fmt.Errorf("failed to write ecg_id %d: %w", rec.ECGID, err)
		}
	}
	if err := stream.Close(); err != nil {
		return fmt.Errorf("failed to close labels file: %w", err)
	}

	e.logger.Info("Exported labels",
		slog.String("path", outputPath),
		slog.Int("records", records.Len()))
	return nil
}

// ExportClean writes the clean view in CleanHeader layout
func (e *LabelExporter) ExportClean(clean *domain.CleanTable, outputPath string) error {
	if clean == nil {
		return fmt.Errorf("no clean view to export")
	}

	rows := make([][]string, 0, clean.Len())
	for _, r := range clean.Rows {
		rows = append(rows, dataprocessing.CleanRowValues(r))
	}
	if err := e.csvWriter.WriteSimpleCSV(outputPath, dataprocessing.CleanHeader, rows); err != nil {
		return fmt.Errorf("failed to write clean view: %w", err)
	}

	e.logger.Info("Exported clean view",
		slog.String("path", outputPath),
		slog.Int("rows", len(rows)))
	return nil
}

func labelHeaders(records *domain.RecordTable) []string {
	headers := append([]string(nil), records.Header...)
	if len(headers) == 0 {
		headers = []string{"ecg_id", "patient_id", "scp_codes", "strat_fold", "filename_lr", "filename_hr"}
	}

	var withSuper, withSub bool
	for _, r := range records.Records {
		withSuper = withSuper || r.DiagnosticSuperclass != nil
		withSub = withSub || r.DiagnosticSubclass != nil
	}
	if withSuper {
		headers = append(headers, dataprocessing.LevelSuperclass.String())
	}
	if withSub {
		headers = append(headers, dataprocessing.LevelSubclass.String())
	}
	return headers
}

// recordRow renders rec under headers; columns without a typed field
// fall back to the raw source cell.
func recordRow(source, headers []string, rec *domain.Record) []string {
	raw := make(map[string]string, len(source))
	for j, name := range source {
		if j < len(rec.Raw) {
			raw[name] = rec.Raw[j]
		}
	}

	row := make([]string, len(headers))
	for j, name := range headers {
		switch name {
		case "ecg_id":
			row[j] = formatInt(rec.ECGID)
		case "patient_id":
			row[j] = formatFloat(rec.PatientID)
		case "age":
			row[j] = formatOptional(rec.Age)
		case "height":
			row[j] = formatOptional(rec.Height)
		case "weight":
			row[j] = formatOptional(rec.Weight)
		case "scp_codes":
			row[j] = literal.FormatCodeMap(rec.SCPCodes)
		case "strat_fold":
			row[j] = formatInt(rec.StratFold)
		case "filename_lr":
			row[j] = rec.FilenameLR
		case "filename_hr":
			row[j] = rec.FilenameHR
		case dataprocessing.LevelSuperclass.String():
			row[j] = literal.FormatList(rec.DiagnosticSuperclass)
		case dataprocessing.LevelSubclass.String():
			row[j] = literal.FormatList(rec.DiagnosticSubclass)
		default:
			row[j] = raw[name]
		}
	}
	return row
}
