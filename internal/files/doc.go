// Package files discovers dataset files on disk.
//
// Discovery walks a PTB-XL waveform tree for WFDB records and lists the
// metadata or clean tables in a directory. Record references are returned
// relative to the discovery base with forward slashes and no extension, the
// same form as the filename_lr and filename_hr columns.
//
// Example usage:
//
//	discovery := files.NewDiscovery(paths.ECGDir)
//
//	// Every low-rate record
//	records, err := discovery.FindRecords("records100")
//
//	// Tables next to the metadata
//	tables, err := discovery.FindTables(paths.MetaDir)
package files
