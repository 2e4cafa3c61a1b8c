package literal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCodeMap(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]float64
	}{
		{name: "empty", input: "{}", want: map[string]float64{}},
		{name: "ptbxl row", input: "{'NORM': 100.0, 'LVOLT': 0.0, 'SR': 0.0}", want: map[string]float64{"NORM": 100, "LVOLT": 0, "SR": 0}},
		{name: "double quotes and ints", input: `{"MI": 50, "IMI": 15}`, want: map[string]float64{"MI": 50, "IMI": 15}},
		{name: "surrounding whitespace", input: "  {\n 'A' :1.5 ,\t'B':-2e1 }  ", want: map[string]float64{"A": 1.5, "B": -20}},
		{name: "trailing comma", input: "{'X': .5,}", want: map[string]float64{"X": 0.5}},
		{name: "escaped quote in key", input: `{'it\'s': 1}`, want: map[string]float64{"it's": 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCodeMap(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCodeMap_Rejects(t *testing.T) {
	inputs := map[string]string{
		"empty string":     "",
		"list":             "['NORM']",
		"bare key":         "{NORM: 1}",
		"nested":           "{'A': {'B': 1}}",
		"string value":     "{'A': 'x'}",
		"missing colon":    "{'A' 1}",
		"unterminated":     "{'A': 1",
		"trailing garbage": "{'A': 1} x",
		"duplicate key":    "{'A': 1, 'A': 2}",
		"call expression":  "__import__('os')",
		"bad exponent":     "{'A': 1e}",
		"leading comma":    "{,}",
	}

	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCodeMap(input)
			require.Error(t, err)
			var syn *SyntaxError
			assert.True(t, errors.As(err, &syn), "want *SyntaxError, got %T", err)
		})
	}
}
