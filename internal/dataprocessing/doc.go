// Package dataprocessing loads and prepares the PTB-XL dataset for
// exploratory analysis.
//
// # Architecture
//
// The package is organized into four components:
//
// 1. Metadata loader: reads ptbxl_database.csv and scp_statements.csv
// 2. Diagnostic aggregator: maps SCP codes to superclass (or subclass) labels
// 3. Signal loader: reads the WFDB waveforms referenced by the metadata
// 4. Reporter: describes any table (shape, kinds, statistics, value sets)
//
// # Usage
//
//	meta, err := dataprocessing.LoadMeta(root)
//	if err != nil {
//	    return err
//	}
//	dataprocessing.AddSuperclass(meta)
//
//	signals, err := dataprocessing.LoadECG(meta.Records, root, 100, []int{1, 2})
//
// The clean view is an alternate entry point that skips the raw metadata:
//
//	clean, err := dataprocessing.LoadClean("clean_dataset.csv")
//	signals, patients, err := dataprocessing.LoadECGFromClean(clean, root, nil)
//
// # Data Flow
//
//	CSV files → LoadMeta → Meta → AddSuperclass → LoadECG → []domain.Signal
//	                                          ↘ BuildCleanView → CleanTable
//
// # Error Handling
//
// Loaders are all-or-nothing and stop at the first failure. Missing files
// surface as NOT_FOUND application errors that still satisfy
// errors.Is(err, fs.ErrNotExist); malformed rows surface as PARSING errors
// naming the file and row.
package dataprocessing
