package domain

import (
	"fmt"
	"time"
)

// Record represents one ECG acquisition from ptbxl_database.csv.
// SCPCodes is always a parsed mapping once the record has been loaded.
type Record struct {
	ECGID         int                `json:"ecg_id" validate:"required,min=1"`
	PatientID     float64            `json:"patient_id"`
	Age           *float64           `json:"age,omitempty"`
	Sex           *int               `json:"sex,omitempty"`
	Height        *float64           `json:"height,omitempty"`
	Weight        *float64           `json:"weight,omitempty"`
	Device        string             `json:"device,omitempty"`
	RecordingDate time.Time          `json:"recording_date"`
	Report        string             `json:"report,omitempty"`
	SCPCodes      map[string]float64 `json:"scp_codes"`
	StratFold     int                `json:"strat_fold"`
	FilenameLR    string             `json:"filename_lr" validate:"required"`
	FilenameHR    string             `json:"filename_hr" validate:"required"`

	// Derived by the diagnostic aggregator; nil until aggregation has run.
	DiagnosticSuperclass []string `json:"diagnostic_superclass,omitempty"`
	DiagnosticSubclass   []string `json:"diagnostic_subclass,omitempty"`

	// Raw holds the original CSV cells aligned with RecordTable.Header.
	Raw []string `json:"-"`
}

// Filename returns the waveform reference for the given sampling rate.
// 100 selects the low-rate file, anything else the high-rate one.
func (r *Record) Filename(samplingRate int) string {
	if samplingRate == 100 {
		return r.FilenameLR
	}
	return r.FilenameHR
}

// RecordTable is the Record Metadata Table, ordered as in the source file
// and indexed by ecg_id.
type RecordTable struct {
	Header  []string
	Records []*Record
	index   map[int]int
}

// NewRecordTable builds a table and its ecg_id index. Duplicate ids are rejected.
func NewRecordTable(header []string, records []*Record) (*RecordTable, error) {
	t := &RecordTable{
		Header:  header,
		Records: records,
		index:   make(map[int]int, len(records)),
	}
	for i, r := range records {
		if _, dup := t.index[r.ECGID]; dup {
			return nil, fmt.Errorf("duplicate ecg_id %d", r.ECGID)
		}
		t.index[r.ECGID] = i
	}
	return t, nil
}

// Len returns the number of records
func (t *RecordTable) Len() int {
	return len(t.Records)
}

// ByID looks up a record by ecg_id
func (t *RecordTable) ByID(id int) (*Record, bool) {
	i, ok := t.index[id]
	if !ok {
		return nil, false
	}
	return t.Records[i], true
}

// Select returns the records for ids in the order given.
// An empty id list selects every record in table order.
func (t *RecordTable) Select(ids []int) ([]*Record, error) {
	if len(ids) == 0 {
		out := make([]*Record, len(t.Records))
		copy(out, t.Records)
		return out, nil
	}

	out := make([]*Record, 0, len(ids))
	for _, id := range ids {
		r, ok := t.ByID(id)
		if !ok {
			return nil, fmt.Errorf("ecg_id %d not in metadata table", id)
		}
		out = append(out, r)
	}
	return out, nil
}
