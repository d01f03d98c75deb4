package features

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// unitValueRegexp captures the leading decimal in "23.4 kmpl", "1248 CC", "74 bhp"
	unitValueRegexp = regexp.MustCompile(`\d+\.?\d*`)
	// numberRegexp captures every decimal-looking number in a torque string
	numberRegexp = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

// ParseUnitValue extracts the first decimal number from a unit-suffixed
// value. It reports false for empty or unparseable text.
func ParseUnitValue(raw string) (float64, bool) {
	match := unitValueRegexp.FindString(strings.TrimSpace(raw))
	if match == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(match, "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
