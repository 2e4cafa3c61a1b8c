package literal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatCodeMap(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]float64
		want string
	}{
		{"empty", map[string]float64{}, "{}"},
		{"nil", nil, "{}"},
		{"sorted keys", map[string]float64{"SR": 0, "NORM": 100}, "{'NORM': 100.0, 'SR': 0.0}"},
		{"fraction", map[string]float64{"MI": 0.5}, "{'MI': 0.5}"},
		{"quote in key", map[string]float64{"it's": 1}, `{'it\'s': 1.0}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatCodeMap(tt.in)
			assert.Equal(t, tt.want, got)

			back, err := ParseCodeMap(got)
			require.NoError(t, err)
			assert.Len(t, back, len(tt.in))
			for k, v := range tt.in {
				assert.Equal(t, v, back[k])
			}
		})
	}
}

func TestFormatList(t *testing.T) {
	assert.Equal(t, "[]", FormatList(nil))
	assert.Equal(t, "['NORM']", FormatList([]string{"NORM"}))
	assert.Equal(t, "['HYP', 'STTC']", FormatList([]string{"HYP", "STTC"}))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "100.0", FormatNumber(100))
	assert.Equal(t, "-2.5", FormatNumber(-2.5))
	assert.Equal(t, "NaN", FormatNumber(math.NaN()))
}
