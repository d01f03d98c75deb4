package features

import (
	"slices"

	"gonum.org/v1/gonum/mat"

	"carprice/models"
)

// Engineered column names.
const (
	ColMaxTorqueRPM   = "max_torque_rpm"
	ColBrand          = "brand"
	ColPowerPerLitre  = "power_per_litre"
	ColKmPerYear      = "km_per_year"
	ColIsFirstOwner   = "is_first_owner"
	ColIsTestDriveCar = "is_test_drive_car"
)

// OtherBrand replaces brands that are unknown or too rare at fit time.
const OtherBrand = "Other"

// ImputedColumns are the numeric columns whose medians are captured by Fit.
var ImputedColumns = []string{
	models.ColYear, models.ColKmDriven, models.ColMileage, models.ColEngine,
	models.ColMaxPower, models.ColTorque, ColMaxTorqueRPM, models.ColSeats,
}

// NumericColumns is the column order of FeatureMatrix.Numeric.
var NumericColumns = []string{
	models.ColYear, models.ColKmDriven, models.ColMileage, models.ColEngine,
	models.ColMaxPower, models.ColTorque, models.ColSeats, ColMaxTorqueRPM,
	ColPowerPerLitre, ColKmPerYear, ColIsFirstOwner, ColIsTestDriveCar,
}

// CategoricalColumns is the column order of FeatureMatrix.Categorical.
var CategoricalColumns = []string{
	models.ColFuel, models.ColSellerType, models.ColTransmission, models.ColOwner, ColBrand,
}

// FeatureMatrix is the transformer output: one row per input record.
// Numeric is nil when the matrix has no rows.
type FeatureMatrix struct {
	NumericColumns     []string
	Numeric            *mat.Dense
	CategoricalColumns []string
	Categorical        [][]string
	rows               int
}

// Rows returns the number of records in the matrix.
func (m *FeatureMatrix) Rows() int { return m.rows }

// Columns returns every column name, numeric first.
func (m *FeatureMatrix) Columns() []string {
	cols := make([]string, 0, len(m.NumericColumns)+len(m.CategoricalColumns))
	cols = append(cols, m.NumericColumns...)
	return append(cols, m.CategoricalColumns...)
}

// Column returns a copy of a numeric column.
func (m *FeatureMatrix) Column(name string) ([]float64, bool) {
	j := slices.Index(m.NumericColumns, name)
	if j < 0 {
		return nil, false
	}
	if m.rows == 0 {
		return []float64{}, true
	}
	return mat.Col(nil, j, m.Numeric), true
}

// Category returns a copy of a categorical column.
func (m *FeatureMatrix) Category(name string) ([]string, bool) {
	j := slices.Index(m.CategoricalColumns, name)
	if j < 0 {
		return nil, false
	}
	out := make([]string, m.rows)
	for i, row := range m.Categorical {
		out[i] = row[j]
	}
	return out, true
}

// Equal reports whether two matrices hold the same columns and values.
func (m *FeatureMatrix) Equal(o *FeatureMatrix) bool {
	if m.rows != o.rows ||
		!slices.Equal(m.NumericColumns, o.NumericColumns) ||
		!slices.Equal(m.CategoricalColumns, o.CategoricalColumns) {
		return false
	}
	if m.rows > 0 && !mat.Equal(m.Numeric, o.Numeric) {
		return false
	}
	for i := range m.Categorical {
		if !slices.Equal(m.Categorical[i], o.Categorical[i]) {
			return false
		}
	}
	return true
}
