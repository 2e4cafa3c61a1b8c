package domain

import "fmt"

// SCPStatement represents one row of scp_statements.csv
type SCPStatement struct {
	Code               string `json:"code" validate:"required"`
	Description        string `json:"description"`
	Diagnostic         bool   `json:"diagnostic"`
	Form               bool   `json:"form"`
	Rhythm             bool   `json:"rhythm"`
	DiagnosticClass    string `json:"diagnostic_class,omitempty"`
	DiagnosticSubclass string `json:"diagnostic_subclass,omitempty"`
	StatementCategory  string `json:"statement_category,omitempty"`

	Raw []string `json:"-"`
}

// StatementTable is the Diagnostic Code Table keyed by SCP code
type StatementTable struct {
	Header     []string
	Statements []*SCPStatement
	index      map[string]int
}

// NewStatementTable builds a statement table. Duplicate codes are rejected.
func NewStatementTable(header []string, statements []*SCPStatement) (*StatementTable, error) {
	t := &StatementTable{
		Header:     header,
		Statements: statements,
		index:      make(map[string]int, len(statements)),
	}
	for i, s := range statements {
		if _, dup := t.index[s.Code]; dup {
			return nil, fmt.Errorf("duplicate scp code %q", s.Code)
		}
		t.index[s.Code] = i
	}
	return t, nil
}

// Len returns the number of statements
func (t *StatementTable) Len() int {
	return len(t.Statements)
}

// Lookup finds a statement by code
func (t *StatementTable) Lookup(code string) (*SCPStatement, bool) {
	i, ok := t.index[code]
	if !ok {
		return nil, false
	}
	return t.Statements[i], true
}

// DiagnosticSubset returns the statements flagged diagnostic, keyed by code.
// The receiver is not modified.
func (t *StatementTable) DiagnosticSubset() map[string]*SCPStatement {
	subset := make(map[string]*SCPStatement)
	for _, s := range t.Statements {
		if s.Diagnostic {
			subset[s.Code] = s
		}
	}
	return subset
}
