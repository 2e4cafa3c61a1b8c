package domain

// CleanRow is one row of the flattened Clean Dataset View
type CleanRow struct {
	PatientID  float64           `json:"patient_id"`
	Diag       string            `json:"diag"`
	FilenameLR string            `json:"filename_lr,omitempty"`
	FilenameHR string            `json:"filename_hr"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// CleanTable is the Clean Dataset View, an alternate entry point for
// signal loading that does not need the raw metadata tables.
type CleanTable struct {
	Header []string
	Rows   []CleanRow
}

// Len returns the number of rows
func (t *CleanTable) Len() int {
	return len(t.Rows)
}
