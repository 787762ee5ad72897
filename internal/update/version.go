package update

import (
	"strconv"
	"strings"
)

// CompareVersions compares two dotted version strings, returning -1, 0,
// or 1. A leading "v" is ignored. Numeric segments compare numerically;
// segments where either side is non-numeric compare as equal.
func CompareVersions(a, b string) int {
	as := strings.Split(strings.TrimPrefix(a, "v"), ".")
	bs := strings.Split(strings.TrimPrefix(b, "v"), ".")

	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		av, aok := segment(as, i)
		bv, bok := segment(bs, i)
		if !aok || !bok {
			continue
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}

// segment returns the numeric value of the i-th segment. Missing
// segments read as 0; non-numeric segments report !ok and are skipped
// by the comparison.
func segment(parts []string, i int) (int, bool) {
	if i >= len(parts) {
		return 0, true
	}
	v, err := strconv.Atoi(parts[i])
	if err != nil {
		return 0, false
	}
	return v, true
}
