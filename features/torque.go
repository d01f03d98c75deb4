package features

import (
	"strconv"
	"strings"
)

// Torque is the pair of quantities extracted from a torque string.
type Torque struct {
	Value    float64
	RPM      float64
	HasValue bool
	HasRPM   bool
}

// ParseTorque extracts the torque magnitude and the RPM it peaks at from
// strings such as "190Nm@ 2000rpm", "250Nm(25.5kgm)@ 1500-3000rpm" or
// "12.7@ 2,700(kgm@ rpm)".
//
// Commas are treated as digit grouping and removed first. The magnitude is
// the first number and the RPM is the last one, so a range such as
// "1500-3000rpm" resolves to its upper bound. A single number only sets the
// magnitude. Units are not converted: a value given in kgm stays in kgm.
func ParseTorque(raw string) Torque {
	cleaned := strings.ReplaceAll(raw, ",", "")
	nums := numberRegexp.FindAllString(cleaned, -1)

	var t Torque
	if len(nums) == 0 {
		return t
	}
	if v, err := strconv.ParseFloat(nums[0], 64); err == nil {
		t.Value, t.HasValue = v, true
	}
	if len(nums) < 2 {
		return t
	}
	if v, err := strconv.ParseFloat(nums[len(nums)-1], 64); err == nil {
		t.RPM, t.HasRPM = v, true
	}
	return t
}
