// Package features turns raw car listings into the feature matrix the price
// model expects. Statistics are captured once by Fit and reused unchanged by
// every Transform, so training-time and serving-time encodings match.
package features

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"carprice/models"
)

const (
	firstOwner   = "First Owner"
	testDriveCar = "Test Drive Car"
)

// Transformer applies the cleaning and derivation rules using fitted statistics.
// Fit must not run concurrently with Transform; once fitted the transformer
// is safe for concurrent use.
type Transformer struct {
	stats *FittedStatistics
}

// NewTransformer returns a transformer fitted with stats. A nil stats value
// yields an unfitted transformer.
func NewTransformer(stats *FittedStatistics) *Transformer {
	return &Transformer{stats: stats}
}

// Fit captures statistics from the reference records, replacing any
// previously fitted state.
func (t *Transformer) Fit(records []models.CarRecord, brandMinCount int) error {
	stats, err := Fit(records, brandMinCount)
	if err != nil {
		return err
	}
	t.stats = stats
	return nil
}

// Fitted reports whether statistics are available.
func (t *Transformer) Fitted() bool { return t.stats != nil }

// Statistics returns the fitted statistics, or nil before Fit.
func (t *Transformer) Statistics() *FittedStatistics { return t.stats }

// Transform builds the feature matrix for a batch. Input records are not
// modified and selling_price is ignored.
func (t *Transformer) Transform(records []models.CarRecord) (*FeatureMatrix, error) {
	if t.stats == nil {
		return nil, ErrNotFitted
	}
	return TransformWith(t.stats, records), nil
}

// TransformWith applies the pipeline with explicit statistics.
func TransformWith(stats *FittedStatistics, records []models.CarRecord) *FeatureMatrix {
	m := &FeatureMatrix{
		NumericColumns:     append([]string(nil), NumericColumns...),
		CategoricalColumns: append([]string(nil), CategoricalColumns...),
		Categorical:        make([][]string, len(records)),
		rows:               len(records),
	}
	if len(records) == 0 {
		return m
	}

	m.Numeric = mat.NewDense(len(records), len(NumericColumns), nil)
	for i, r := range records {
		m.Numeric.SetRow(i, numericRow(stats, r))
		m.Categorical[i] = []string{
			r.Fuel,
			r.SellerType,
			r.Transmission,
			r.Owner,
			stats.RollupBrand(BrandToken(r.Name)),
		}
	}
	return m
}

// numericRow returns the values of one record in NumericColumns order.
func numericRow(stats *FittedStatistics, r models.CarRecord) []float64 {
	raw := extractNumeric(r)
	v := make(map[string]float64, len(ImputedColumns))
	for _, col := range ImputedColumns {
		c := raw[col]
		if c.ok {
			v[col] = c.v
		} else {
			v[col] = stats.medians[col]
		}
	}

	engine := math.Trunc(v[models.ColEngine])
	seats := math.Trunc(v[models.ColSeats])

	return []float64{
		v[models.ColYear],
		v[models.ColKmDriven],
		v[models.ColMileage],
		engine,
		v[models.ColMaxPower],
		v[models.ColTorque],
		seats,
		v[ColMaxTorqueRPM],
		powerPerLitre(v[models.ColMaxPower], engine),
		kmPerYear(v[models.ColKmDriven], v[models.ColYear], stats.referenceYear),
		indicator(r.Owner == firstOwner),
		indicator(r.Owner == testDriveCar),
	}
}

// powerPerLitre is max_power / engine, zero when engine displacement is not positive.
func powerPerLitre(power, engine float64) float64 {
	if engine <= 0 {
		return 0
	}
	return power / engine
}

// kmPerYear divides by vehicle age in years. A car from the reference year
// or later counts as one year old, so km_per_year equals km_driven.
func kmPerYear(km, year float64, referenceYear int) float64 {
	age := float64(referenceYear) - year
	if age < 1 {
		age = 1
	}
	return km / age
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
