package literal

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// FormatCodeMap renders m in the same literal form ParseCodeMap reads,
// keys sorted, values with at least one decimal place.
func FormatCodeMap(m map[string]float64) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quote(k))
		b.WriteString(": ")
		b.WriteString(FormatNumber(m[k]))
	}
	b.WriteByte('}')
	return b.String()
}

// FormatList renders a list of strings as ['a', 'b']
func FormatList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = quote(v)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// FormatNumber writes v in shortest form, keeping a trailing ".0" on
// integral values.
func FormatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if math.IsNaN(v) || math.IsInf(v, 0) || strings.Contains(s, ".") {
		return s
	}
	return s + ".0"
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}
