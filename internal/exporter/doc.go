// Package exporter writes PTB-XL derived tables to disk.
//
// CSVWriter is the low-level writer: headers, append mode, a UTF-8 BOM for
// Excel, and a StreamWriter for tables too large to buffer. Relative paths
// resolve into the configured output layout (reports by default, plots for
// paths under "plots/").
//
// LabelExporter writes the record table with its diagnostic label columns
// and the clean dataset view. Both files load back through the
// dataprocessing loaders.
//
// WriteDescriptionWorkbook stores a descriptive report as an XLSX workbook
// with one sheet per section.
//
// Example usage:
//
//	paths := config.GetPaths(cfg.Output.Dir)
//	labels := exporter.NewLabelExporter(paths, logger)
//	if err := labels.ExportLabels(meta.Records, config.LabelsFileName); err != nil {
//	    return err
//	}
//
//	desc := dataprocessing.Describe(dataprocessing.FrameFromRecords(meta.Records))
//	err = exporter.WriteDescriptionWorkbook(paths.DescriptionXLSX, desc)
package exporter
