package dataprocessing

import (
	"bytes"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ptbxl/internal/shared/testutil"
)

func textFrame(columns []string, rows ...[]string) *Frame {
	f := &Frame{Columns: columns}
	for _, raw := range rows {
		row := make([]Cell, len(raw))
		for j, v := range raw {
			row[j] = Text(v)
		}
		f.Rows = append(f.Rows, row)
	}
	return f
}

func TestDescribe_Kinds(t *testing.T) {
	frame := textFrame(
		[]string{"ints", "gappy_ints", "floats", "flags", "gappy_flags", "text", "empty"},
		[]string{"1", "1", "0.5", "True", "True", "a", ""},
		[]string{"2", "", "1", "False", "", "b", "nan"},
		[]string{"3", "3", "2.5", "True", "False", "c", ""},
	)

	d := Describe(frame)
	kinds := make(map[string]Kind)
	for _, c := range d.Columns {
		kinds[c.Name] = c.Kind
	}

	assert.Equal(t, map[string]Kind{
		"ints":        KindInt64,
		"gappy_ints":  KindFloat64,
		"floats":      KindFloat64,
		"flags":       KindBool,
		"gappy_flags": KindObject,
		"text":        KindObject,
		"empty":       KindFloat64,
	}, kinds)
	assert.Equal(t, 3, d.Rows)
	assert.Equal(t, 7, d.Cols)
}

func TestDescribe_NumericSummary(t *testing.T) {
	frame := textFrame([]string{"age", "name"},
		[]string{"10", "x"},
		[]string{"20", "y"},
		[]string{"", "z"},
		[]string{"40", "w"},
		[]string{"30", "v"},
	)

	d := Describe(frame)
	require.Len(t, d.Numeric, 1)

	s := d.Numeric[0]
	assert.Equal(t, "age", s.Column)
	assert.Equal(t, 4, s.Count)
	assert.InDelta(t, 25.0, s.Mean, 1e-9)
	assert.InDelta(t, math.Sqrt(500.0/3), s.Std, 1e-9)
	assert.Equal(t, 10.0, s.Min)
	assert.InDelta(t, 17.5, s.Q25, 1e-9)
	assert.InDelta(t, 25.0, s.Q50, 1e-9)
	assert.InDelta(t, 32.5, s.Q75, 1e-9)
	assert.Equal(t, 40.0, s.Max)

	assert.Equal(t, 20.0, d.Columns[0].MissingPct)
	assert.Equal(t, 0.0, d.Columns[1].MissingPct)
}

func TestDescribe_SingleValueStd(t *testing.T) {
	d := Describe(textFrame([]string{"v"}, []string{"7"}))
	require.Len(t, d.Numeric, 1)
	assert.True(t, math.IsNaN(d.Numeric[0].Std))
	assert.Equal(t, "NaN", d.SummaryRows()[2][1])
}

func TestDescribe_MissingPercentRounds(t *testing.T) {
	d := Describe(textFrame([]string{"v"}, []string{""}, []string{"1"}, []string{"2"}))
	assert.Equal(t, 33.3, d.Columns[0].MissingPct)
}

func TestDescribe_ValueSets(t *testing.T) {
	frame := &Frame{
		Columns: []string{"labels", "kind"},
		Rows: [][]Cell{
			{List([]string{"NORM"}), Text("a")},
			{List([]string{}), Text("")},
			{List([]string{"MI", "NORM"}), Text("a")},
		},
	}

	d := Describe(frame)
	require.Len(t, d.ValueSets, 2)
	assert.Equal(t, ValueSet{Column: "labels", Values: []string{"NORM", "NaN", "MI"}}, d.ValueSets[0])
	assert.Equal(t, ValueSet{Column: "kind", Values: []string{"a", "NaN"}}, d.ValueSets[1])
	assert.Equal(t, KindObject, d.Columns[0].Kind)
	assert.Equal(t, []string{"[NORM]", "a"}, d.FirstRow)
}

func TestDescribe_HighCardinalityHasNoValueSet(t *testing.T) {
	frame := &Frame{Columns: []string{"id"}}
	for i := 0; i < valueSetLimit; i++ {
		frame.Rows = append(frame.Rows, []Cell{Text(string(rune('a' + i)))})
	}

	d := Describe(frame)
	assert.Empty(t, d.ValueSets)
}

func TestDescribe_EmptyFrame(t *testing.T) {
	d := Describe(&Frame{Columns: []string{"a"}})
	assert.Equal(t, 0, d.Rows)
	assert.Nil(t, d.FirstRow)
	assert.Equal(t, 0.0, d.Columns[0].MissingPct)
	require.Len(t, d.Numeric, 1)
	assert.Equal(t, 0, d.Numeric[0].Count)
}

func TestDescription_Print(t *testing.T) {
	frame := textFrame([]string{"age", "sex"},
		[]string{"56", "0"},
		[]string{"", "1"},
	)

	var buf bytes.Buffer
	require.NoError(t, Describe(frame).Print(&buf))
	out := buf.String()

	for _, section := range []string{
		"---------Shape------------------\n(2, 2)",
		"---------Types------------------",
		"--------- 1 row-----------------",
		"---------describe---------------",
		"---------nan percentage---------",
		"---------sex values----------\n[0 1]",
	} {
		assert.Contains(t, out, section)
	}
	assert.Contains(t, out, "age  float64")
	assert.Contains(t, out, "sex  int64")
	assert.Contains(t, out, "56.000000")
	assert.Contains(t, out, "50.0")
}

func TestFrameFromRecords(t *testing.T) {
	_, meta := loadFixtureMeta(t, 4)

	before := FrameFromRecords(meta.Records)
	assert.NotContains(t, before.Columns, "ecg_id")
	assert.NotContains(t, before.Columns, LevelSuperclass.String())
	assert.Len(t, before.Columns, len(testutil.DatabaseHeader)-1)

	AddSuperclass(meta)
	frame := FrameFromRecords(meta.Records)
	require.Equal(t, LevelSuperclass.String(), frame.Columns[len(frame.Columns)-1])

	codesCol := -1
	for j, c := range frame.Columns {
		if c == "scp_codes" {
			codesCol = j
		}
	}
	require.GreaterOrEqual(t, codesCol, 0)
	assert.Equal(t, []string{"ASMI", "IMI", "SR"}, frame.At(1, codesCol).List)
	assert.Equal(t, []string{"HYP", "STTC"}, frame.At(2, len(frame.Columns)-1).List)

	d := Describe(frame)
	var labels ValueSet
	for _, vs := range d.ValueSets {
		if vs.Column == LevelSuperclass.String() {
			labels = vs
		}
	}
	assert.Equal(t, []string{"NORM", "MI", "HYP", "STTC", "NaN"}, labels.Values)
}

func TestFrameFromStatements(t *testing.T) {
	_, meta := loadFixtureMeta(t, 1)

	frame := FrameFromStatements(meta.Statements)
	assert.Equal(t, testutil.StatementsHeader[1:], frame.Columns)
	assert.Len(t, frame.Rows, meta.Statements.Len())
}

func TestFrameFromClean(t *testing.T) {
	_, meta := loadFixtureMeta(t, 2)
	AddSuperclass(meta)

	frame := FrameFromClean(BuildCleanView(meta.Records))
	assert.Equal(t, CleanHeader, frame.Columns)
	assert.Equal(t, "2", frame.At(1, 0).Value)
	assert.Equal(t, "1002.0", frame.At(1, 1).Value)
	assert.Equal(t, "MI", frame.At(1, 2).Value)
}

func TestReadFrameCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "any.csv")
	testutil.WriteCSV(t, path, []string{"a", "b"}, [][]string{{"1", "x"}, {"2"}})

	frame, err := ReadFrameCSV(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, frame.Columns)
	assert.True(t, frame.At(1, 1).missing(), "short row reads as missing")

	_, err = ReadFrameCSV(filepath.Join(t.TempDir(), "none.csv"))
	assert.Error(t, err)
}
