package features

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"carprice/models"
)

// ReferenceYear is the year vehicle age is measured against in km_per_year.
// It is part of the feature definition: changing it requires a re-fit.
const ReferenceYear = 2024

// DefaultBrandMinCount is the brand rollup threshold used when none is configured.
const DefaultBrandMinCount = 10

// ErrInvalidThreshold is returned for a brand rollup threshold below one.
var ErrInvalidThreshold = errors.New("features: brand min count must be positive")

// FittedStatistics is the immutable state captured from reference data.
// Every transform reads it and none writes it.
type FittedStatistics struct {
	brandMinCount int
	referenceYear int
	medians       map[string]float64
	brandCounts   map[string]int
}

// NewFittedStatistics rebuilds statistics from previously captured values,
// typically read from a pipeline artifact. A median is required for every
// imputed column.
func NewFittedStatistics(brandMinCount, referenceYear int, medians map[string]float64, brandCounts map[string]int) (*FittedStatistics, error) {
	if brandMinCount < 1 {
		return nil, ErrInvalidThreshold
	}
	if referenceYear <= 0 {
		return nil, fmt.Errorf("features: invalid reference year %d", referenceYear)
	}
	for _, col := range ImputedColumns {
		v, ok := medians[col]
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &DegenerateColumnError{Column: col}
		}
	}
	for brand, n := range brandCounts {
		if brand == "" || n < 0 {
			return nil, fmt.Errorf("features: invalid brand count %q=%d", brand, n)
		}
	}
	return &FittedStatistics{
		brandMinCount: brandMinCount,
		referenceYear: referenceYear,
		medians:       maps.Clone(medians),
		brandCounts:   maps.Clone(brandCounts),
	}, nil
}

// Fit computes medians for every imputed column and the brand frequency
// table of the reference records. A column with no values, or whose values
// are all equal, fails with a DegenerateColumnError.
func Fit(records []models.CarRecord, brandMinCount int) (*FittedStatistics, error) {
	if brandMinCount < 1 {
		return nil, ErrInvalidThreshold
	}

	columns := make(map[string][]float64, len(ImputedColumns))
	counts := make(map[string]int)

	for _, r := range records {
		for col, c := range extractNumeric(r) {
			if c.ok {
				columns[col] = append(columns[col], c.v)
			}
		}
		if brand := BrandToken(r.Name); brand != "" {
			counts[brand]++
		}
	}

	medians := make(map[string]float64, len(ImputedColumns))
	for _, col := range ImputedColumns {
		m, ok := median(columns[col])
		if !ok {
			return nil, &DegenerateColumnError{Column: col}
		}
		if constant(columns[col]) {
			return nil, &DegenerateColumnError{Column: col, Reason: fmt.Sprintf("zero variance (every value is %v)", m)}
		}
		medians[col] = m
	}

	return &FittedStatistics{
		brandMinCount: brandMinCount,
		referenceYear: ReferenceYear,
		medians:       medians,
		brandCounts:   counts,
	}, nil
}

func (s *FittedStatistics) BrandMinCount() int { return s.brandMinCount }
func (s *FittedStatistics) ReferenceYear() int { return s.referenceYear }

// Median returns the fit-time median of a numeric column.
func (s *FittedStatistics) Median(col string) (float64, bool) {
	v, ok := s.medians[col]
	return v, ok
}

// Medians returns a copy of the median table.
func (s *FittedStatistics) Medians() map[string]float64 { return maps.Clone(s.medians) }

// BrandCounts returns a copy of the brand frequency table.
func (s *FittedStatistics) BrandCounts() map[string]int { return maps.Clone(s.brandCounts) }

// KnownBrands returns the sorted brand vocabulary seen at fit time.
func (s *FittedStatistics) KnownBrands() []string {
	return slices.Sorted(maps.Keys(s.brandCounts))
}

// RollupBrand keeps a brand seen at least brandMinCount times at fit time
// and maps everything else, unseen brands included, to OtherBrand.
func (s *FittedStatistics) RollupBrand(brand string) string {
	n, known := s.brandCounts[brand]
	if known && n >= s.brandMinCount {
		return brand
	}
	return OtherBrand
}

// BrandToken returns the first whitespace-delimited token of a display name.
func BrandToken(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// median follows the usual convention of averaging the two middle values
// of an even-sized sample.
func median(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid], true
	}
	return (sorted[mid-1] + sorted[mid]) / 2, true
}

func constant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

// cell is a numeric value that may be missing.
type cell struct {
	v  float64
	ok bool
}

// extractNumeric parses the numeric-bearing fields of a record before imputation.
func extractNumeric(r models.CarRecord) map[string]cell {
	out := make(map[string]cell, len(ImputedColumns))
	out[models.ColYear] = cell{float64(r.Year), true}
	out[models.ColKmDriven] = cell{float64(r.KmDriven), true}

	mileage, ok := ParseUnitValue(r.Mileage)
	out[models.ColMileage] = cell{mileage, ok}
	engine, ok := ParseUnitValue(r.Engine)
	out[models.ColEngine] = cell{engine, ok}
	power, ok := ParseUnitValue(r.MaxPower)
	out[models.ColMaxPower] = cell{power, ok}

	t := ParseTorque(r.Torque)
	out[models.ColTorque] = cell{t.Value, t.HasValue}
	out[ColMaxTorqueRPM] = cell{t.RPM, t.HasRPM}

	if r.Seats != nil && !math.IsNaN(*r.Seats) && !math.IsInf(*r.Seats, 0) {
		out[models.ColSeats] = cell{*r.Seats, true}
	} else {
		out[models.ColSeats] = cell{}
	}
	return out
}
