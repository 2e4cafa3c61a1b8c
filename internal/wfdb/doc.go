// Package wfdb reads and writes PhysioNet WFDB records, the waveform format
// used by the PTB-XL ECG files referenced from ptbxl_database.csv.
//
// A record is addressed by its base path without extension. ReadRecord
// returns the physical signal (samples × channels) and the parsed header;
// ReadSamples drops the header:
//
//	sig, err := wfdb.ReadSamples("raw_data/ecg_data/records100/00000/00001_lr")
//
// Supported storage formats are 16, 80 and 212, with any number of signals
// interleaved per .dat file. Multi-segment and multi-frequency records are
// rejected.
package wfdb
