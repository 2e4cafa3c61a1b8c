package dataprocessing

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"gonum.org/v1/gonum/stat"

	"ptbxl/pkg/contracts/domain"
)

// valueSetLimit is the exclusive bound on distinct values for a column to
// get its value set listed.
const valueSetLimit = 20

// Kind is the inferred storage kind of a column
type Kind string

const (
	KindInt64   Kind = "int64"
	KindFloat64 Kind = "float64"
	KindBool    Kind = "bool"
	KindObject  Kind = "object"
)

// Cell is one frame value: either a scalar text value or a list
type Cell struct {
	Value  string
	List   []string
	IsList bool
}

// Text wraps a scalar value
func Text(s string) Cell {
	return Cell{Value: s}
}

// List wraps a list value
func List(values []string) Cell {
	return Cell{List: values, IsList: true}
}

func (c Cell) missing() bool {
	return !c.IsList && isMissing(c.Value)
}

func (c Cell) String() string {
	if c.IsList {
		return "[" + strings.Join(c.List, ", ") + "]"
	}
	if c.missing() {
		return "NaN"
	}
	return c.Value
}

// Frame is a generic table the reporter can describe
type Frame struct {
	Columns []string
	Rows    [][]Cell
}

// At returns row i of column j; short rows read as missing
func (f *Frame) At(i, j int) Cell {
	if j < len(f.Rows[i]) {
		return f.Rows[i][j]
	}
	return Cell{}
}

// ColumnInfo is the inferred kind and missing share of one column
type ColumnInfo struct {
	Name       string
	Kind       Kind
	MissingPct float64
}

// NumericSummary holds the describe statistics of a numeric column.
// Std uses the n-1 denominator; quartiles interpolate linearly.
type NumericSummary struct {
	Column string
	Count  int
	Mean   float64
	Std    float64
	Min    float64
	Q25    float64
	Q50    float64
	Q75    float64
	Max    float64
}

// ValueSet lists the distinct exploded values of a low-cardinality column
// in order of first appearance.
type ValueSet struct {
	Column string
	Values []string
}

// Description is the report Describe builds
type Description struct {
	Rows      int
	Cols      int
	Columns   []ColumnInfo
	FirstRow  []string
	Numeric   []NumericSummary
	ValueSets []ValueSet
}

// Describe computes shape, kinds, first row, numeric summary, missing
// percentages and small value sets of frame.
func Describe(frame *Frame) *Description {
	d := &Description{Rows: len(frame.Rows), Cols: len(frame.Columns)}

	if len(frame.Rows) > 0 {
		d.FirstRow = make([]string, len(frame.Columns))
		for j := range frame.Columns {
			d.FirstRow[j] = frame.At(0, j).String()
		}
	}

	for j, name := range frame.Columns {
		kind := inferKind(frame, j)
		d.Columns = append(d.Columns, ColumnInfo{
			Name:       name,
			Kind:       kind,
			MissingPct: missingPercent(frame, j),
		})

		if kind == KindInt64 || kind == KindFloat64 {
			d.Numeric = append(d.Numeric, summarize(name, numericValues(frame, j)))
		}

		if values := explodeUnique(frame, j); len(values) < valueSetLimit {
			d.ValueSets = append(d.ValueSets, ValueSet{Column: name, Values: values})
		}
	}
	return d
}

func inferKind(frame *Frame, j int) Kind {
	var (
		present  int
		missing  bool
		allBool  = true
		allInt   = true
		allFloat = true
	)
	for i := range frame.Rows {
		c := frame.At(i, j)
		if c.IsList {
			return KindObject
		}
		if c.missing() {
			missing = true
			continue
		}
		present++
		v := strings.TrimSpace(c.Value)
		if v != "True" && v != "False" && v != "true" && v != "false" {
			allBool = false
		}
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			allInt = false
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			allFloat = false
		}
	}

	switch {
	case present == 0:
		return KindFloat64
	case allBool && !missing:
		return KindBool
	case allBool:
		return KindObject
	case allInt && !missing:
		return KindInt64
	case allFloat:
		return KindFloat64
	default:
		return KindObject
	}
}

func missingPercent(frame *Frame, j int) float64 {
	if len(frame.Rows) == 0 {
		return 0
	}
	n := 0
	for i := range frame.Rows {
		if frame.At(i, j).missing() {
			n++
		}
	}
	return math.Round(1000*float64(n)/float64(len(frame.Rows))) / 10
}

func numericValues(frame *Frame, j int) []float64 {
	values := make([]float64, 0, len(frame.Rows))
	for i := range frame.Rows {
		c := frame.At(i, j)
		if c.missing() {
			continue
		}
		if v, err := strconv.ParseFloat(strings.TrimSpace(c.Value), 64); err == nil {
			values = append(values, v)
		}
	}
	return values
}

func summarize(name string, values []float64) NumericSummary {
	s := NumericSummary{Column: name, Count: len(values)}
	nan := math.NaN()
	if len(values) == 0 {
		s.Mean, s.Std, s.Min, s.Q25, s.Q50, s.Q75, s.Max = nan, nan, nan, nan, nan, nan, nan
		return s
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	s.Mean = stat.Mean(sorted, nil)
	s.Std = nan
	if len(sorted) > 1 {
		s.Std = stat.StdDev(sorted, nil)
	}
	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	s.Q25 = percentile(sorted, 0.25)
	s.Q50 = percentile(sorted, 0.50)
	s.Q75 = percentile(sorted, 0.75)
	return s
}

// percentile interpolates linearly between closest ranks of sorted data
func percentile(sorted []float64, p float64) float64 {
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// explodeUnique flattens list cells and returns distinct values in order
// of first appearance. Missing values and empty lists appear as "NaN".
func explodeUnique(frame *Frame, j int) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(v string) {
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}

	for i := range frame.Rows {
		c := frame.At(i, j)
		switch {
		case c.IsList && len(c.List) == 0:
			add("NaN")
		case c.IsList:
			for _, v := range c.List {
				add(v)
			}
		default:
			add(c.String())
		}
		if len(out) >= valueSetLimit {
			break
		}
	}
	return out
}

// Print writes the report in sections, one per statistic group
func (d *Description) Print(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "\n---------Shape------------------\n(%d, %d)\n", d.Rows, d.Cols)

	fmt.Fprintf(tw, "\n---------Types------------------\n")
	for _, c := range d.Columns {
		fmt.Fprintf(tw, "%s\t%s\n", c.Name, c.Kind)
	}

	fmt.Fprintf(tw, "\n--------- 1 row-----------------\n")
	for j, v := range d.FirstRow {
		fmt.Fprintf(tw, "%s\t%s\n", d.Columns[j].Name, v)
	}

	fmt.Fprintf(tw, "\n---------describe---------------\n")
	if len(d.Numeric) > 0 {
		names := make([]string, len(d.Numeric))
		for i, s := range d.Numeric {
			names[i] = s.Column
		}
		fmt.Fprintf(tw, "\t%s\n", strings.Join(names, "\t"))
		for _, row := range d.SummaryRows() {
			fmt.Fprintf(tw, "%s\t%s\n", row[0], strings.Join(row[1:], "\t"))
		}
	}

	fmt.Fprintf(tw, "\n---------nan percentage---------\n")
	for _, c := range d.Columns {
		fmt.Fprintf(tw, "%s\t%.1f\n", c.Name, c.MissingPct)
	}

	for _, vs := range d.ValueSets {
		fmt.Fprintf(tw, "\n---------%s values----------\n[%s]\n", vs.Column, strings.Join(vs.Values, " "))
	}

	return tw.Flush()
}

// SummaryRows lays the numeric summary out as statistic rows
// (count, mean, std, min, 25%, 50%, 75%, max), one cell per numeric column.
func (d *Description) SummaryRows() [][]string {
	stats := []struct {
		name string
		get  func(NumericSummary) float64
	}{
		{"count", func(s NumericSummary) float64 { return float64(s.Count) }},
		{"mean", func(s NumericSummary) float64 { return s.Mean }},
		{"std", func(s NumericSummary) float64 { return s.Std }},
		{"min", func(s NumericSummary) float64 { return s.Min }},
		{"25%", func(s NumericSummary) float64 { return s.Q25 }},
		{"50%", func(s NumericSummary) float64 { return s.Q50 }},
		{"75%", func(s NumericSummary) float64 { return s.Q75 }},
		{"max", func(s NumericSummary) float64 { return s.Max }},
	}

	rows := make([][]string, 0, len(stats))
	for _, st := range stats {
		row := []string{st.name}
		for _, s := range d.Numeric {
			row = append(row, formatStat(st.get(s)))
		}
		rows = append(rows, row)
	}
	return rows
}

func formatStat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// FrameFromRecords views the record table for reporting. ecg_id is the
// index rather than a column, scp_codes holds the code keys, and the label
// columns are appended once aggregation has run.
func FrameFromRecords(t *domain.RecordTable) *Frame {
	cols := mapColumns(t.Header)
	idIdx, hasID := cols["ecg_id"]
	codesIdx, hasCodes := cols["scp_codes"]

	var withSuper, withSub bool
	for _, r := range t.Records {
		withSuper = withSuper || r.DiagnosticSuperclass != nil
		withSub = withSub || r.DiagnosticSubclass != nil
	}

	frame := &Frame{}
	for j, name := range t.Header {
		if hasID && j == idIdx {
			continue
		}
		frame.Columns = append(frame.Columns, name)
	}
	if withSuper {
		frame.Columns = append(frame.Columns, LevelSuperclass.String())
	}
	if withSub {
		frame.Columns = append(frame.Columns, LevelSubclass.String())
	}

	for _, r := range t.Records {
		row := make([]Cell, 0, len(frame.Columns))
		for j := range t.Header {
			switch {
			case hasID && j == idIdx:
				continue
			case hasCodes && j == codesIdx:
				row = append(row, List(sortedKeys(r.SCPCodes)))
			case j < len(r.Raw):
				row = append(row, Text(r.Raw[j]))
			default:
				row = append(row, Text(""))
			}
		}
		if withSuper {
			row = append(row, List(r.DiagnosticSuperclass))
		}
		if withSub {
			row = append(row, List(r.DiagnosticSubclass))
		}
		frame.Rows = append(frame.Rows, row)
	}
	return frame
}

// FrameFromStatements views the statement table; the code column is the index
func FrameFromStatements(t *domain.StatementTable) *Frame {
	frame := &Frame{}
	if len(t.Header) > 1 {
		frame.Columns = append(frame.Columns, t.Header[1:]...)
	}
	for _, s := range t.Statements {
		row := make([]Cell, 0, len(frame.Columns))
		for j := 1; j < len(t.Header); j++ {
			v := ""
			if j < len(s.Raw) {
				v = s.Raw[j]
			}
			row = append(row, Text(v))
		}
		frame.Rows = append(frame.Rows, row)
	}
	return frame
}

// FrameFromClean views the clean dataset table
func FrameFromClean(t *domain.CleanTable) *Frame {
	frame := &Frame{Columns: append([]string(nil), t.Header...)}
	for _, r := range t.Rows {
		row := make([]Cell, 0, len(t.Header))
		for _, name := range t.Header {
			switch name {
			case "patient_id":
				row = append(row, Text(strconv.FormatFloat(r.PatientID, 'f', 1, 64)))
			case "diag":
				row = append(row, Text(r.Diag))
			case "filename_lr":
				row = append(row, Text(r.FilenameLR))
			case "filename_hr":
				row = append(row, Text(r.FilenameHR))
			default:
				row = append(row, Text(r.Extra[name]))
			}
		}
		frame.Rows = append(frame.Rows, row)
	}
	return frame
}

// ReadFrameCSV loads any CSV file as a frame of text cells
func ReadFrameCSV(path string) (*Frame, error) {
	header, rows, err := readTable(path)
	if err != nil {
		return nil, err
	}
	frame := &Frame{Columns: header, Rows: make([][]Cell, 0, len(rows))}
	for _, raw := range rows {
		row := make([]Cell, len(raw))
		for j, v := range raw {
			row[j] = Text(v)
		}
		frame.Rows = append(frame.Rows, row)
	}
	return frame, nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
