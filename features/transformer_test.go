package features

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carprice/models"
)

func seats(v float64) *float64 { return &v }

func car(name string, year int) models.CarRecord {
	return models.CarRecord{
		Name:         name,
		Year:         year,
		KmDriven:     70000,
		Fuel:         "Diesel",
		SellerType:   "Individual",
		Transmission: "Manual",
		Owner:        "First Owner",
		Mileage:      "23.4 kmpl",
		Engine:       "1248 CC",
		MaxPower:     "74 bhp",
		Torque:       "190Nm@ 2000rpm",
		Seats:        seats(5),
	}
}

// referenceSet has Maruti x5, Hyundai x3, Tesla x1.
func referenceSet() []models.CarRecord {
	recs := []models.CarRecord{
		car("Maruti Swift Dzire VDI", 2014),
		car("Maruti Alto LX", 2010),
		car("Maruti Wagon R", 2012),
		car("Maruti Ertiga", 2018),
		car("Maruti Baleno", 2019),
		car("Hyundai i20 Sportz", 2015),
		car("Hyundai Verna", 2016),
		car("Hyundai Creta", 2017),
		car("Tesla Model3", 2020),
	}
	recs[1].Mileage = "19.7 kmpl"
	recs[2].Mileage = "20.0 kmpl"
	recs[3].Mileage = "17.0 kmpl"
	recs[4].Engine = "1197 CC"
	recs[5].Engine = "1396 CC"
	recs[6].Seats = seats(7)
	recs[7].Torque = "250Nm(25.5kgm)@ 1500-3000rpm"
	recs[8].KmDriven = 15000
	recs[8].MaxPower = "283 bhp"
	return recs
}

func fitted(t *testing.T, threshold int) *Transformer {
	t.Helper()
	tr := &Transformer{}
	require.NoError(t, tr.Fit(referenceSet(), threshold))
	return tr
}

func value(t *testing.T, m *FeatureMatrix, col string, row int) float64 {
	t.Helper()
	vals, ok := m.Column(col)
	require.True(t, ok, "column %s", col)
	return vals[row]
}

func TestTransformBeforeFit(t *testing.T) {
	tr := &Transformer{}
	_, err := tr.Transform([]models.CarRecord{car("Maruti Swift", 2014)})
	assert.True(t, errors.Is(err, ErrNotFitted))
	assert.False(t, tr.Fitted())
}

func TestFitRejectsNonPositiveThreshold(t *testing.T) {
	_, err := Fit(referenceSet(), 0)
	assert.ErrorIs(t, err, ErrInvalidThreshold)
}

func TestFitDegenerateColumn(t *testing.T) {
	recs := referenceSet()
	for i := range recs {
		recs[i].Mileage = ""
	}
	_, err := Fit(recs, 1)

	var degenerate *DegenerateColumnError
	require.ErrorAs(t, err, &degenerate)
	assert.Equal(t, models.ColMileage, degenerate.Column)
}

func TestFitEmptyReferenceSet(t *testing.T) {
	_, err := Fit(nil, 1)
	var degenerate *DegenerateColumnError
	assert.ErrorAs(t, err, &degenerate)
}

func TestFitZeroVarianceColumn(t *testing.T) {
	recs := referenceSet()
	for i := range recs {
		recs[i].MaxPower = "74 bhp"
	}
	_, err := Fit(recs, 1)

	var degenerate *DegenerateColumnError
	require.ErrorAs(t, err, &degenerate)
	assert.Equal(t, models.ColMaxPower, degenerate.Column)
	assert.Contains(t, err.Error(), "zero variance")
}

func TestFitSingleRecordIsDegenerate(t *testing.T) {
	_, err := Fit([]models.CarRecord{car("Maruti Swift", 2014)}, 1)
	var degenerate *DegenerateColumnError
	assert.ErrorAs(t, err, &degenerate)
}

func TestNonFiniteSeatsAreMissing(t *testing.T) {
	tr := fitted(t, 1)
	r := car("Maruti Swift", 2015)
	inf := math.Inf(1)
	r.Seats = &inf

	m, err := tr.Transform([]models.CarRecord{r})
	require.NoError(t, err)
	assert.Equal(t, 5.0, value(t, m, models.ColSeats, 0))

	recs := referenceSet()
	recs[0].Seats = &inf
	stats, err := Fit(recs, 1)
	require.NoError(t, err)
	med, _ := stats.Median(models.ColSeats)
	assert.Equal(t, 5.0, med)
}

func TestFitMedians(t *testing.T) {
	stats, err := Fit(referenceSet(), 3)
	require.NoError(t, err)

	// mileages: 23.4 x6, 19.7, 20.0, 17.0 -> sorted middle is 23.4
	m, _ := stats.Median(models.ColMileage)
	assert.Equal(t, 23.4, m)

	// years 2010,2012,2014,2015,2016,2017,2018,2019,2020
	m, _ = stats.Median(models.ColYear)
	assert.Equal(t, 2016.0, m)

	assert.Equal(t, ReferenceYear, stats.ReferenceYear())
	assert.Equal(t, map[string]int{"Maruti": 5, "Hyundai": 3, "Tesla": 1}, stats.BrandCounts())
	assert.Equal(t, []string{"Hyundai", "Maruti", "Tesla"}, stats.KnownBrands())
}

func TestMedianEvenSample(t *testing.T) {
	m, ok := median([]float64{4, 1, 3, 2})
	require.True(t, ok)
	assert.Equal(t, 2.5, m)
}

func TestBrandRollup(t *testing.T) {
	tr := fitted(t, 3)
	m, err := tr.Transform([]models.CarRecord{
		car("Maruti Swift", 2015),
		car("Tesla Model3", 2020),
		car("BMW X5", 2018),
		car("Hyundai Verna", 2016),
		car("", 2016),
	})
	require.NoError(t, err)

	brands, ok := m.Category(ColBrand)
	require.True(t, ok)
	assert.Equal(t, []string{"Maruti", OtherBrand, OtherBrand, "Hyundai", OtherBrand}, brands)
}

func TestTransformDropsNameAndLabel(t *testing.T) {
	tr := fitted(t, 1)
	r := car("Maruti Swift", 2015)
	price := 450000.0
	r.SellingPrice = &price

	m, err := tr.Transform([]models.CarRecord{r})
	require.NoError(t, err)
	assert.NotContains(t, m.Columns(), models.ColName)
	assert.NotContains(t, m.Columns(), models.ColSellingPrice)
	assert.Equal(t, append(append([]string{}, NumericColumns...), CategoricalColumns...), m.Columns())
}

func TestTransformImputesFitTimeMedian(t *testing.T) {
	tr := fitted(t, 1)
	fitMedian, _ := tr.Statistics().Median(models.ColMileage)

	missing := car("Maruti Swift", 2015)
	missing.Mileage = ""
	other := car("Maruti Alto", 2011)
	other.Mileage = "10.0 kmpl"

	m, err := tr.Transform([]models.CarRecord{missing, other})
	require.NoError(t, err)

	got := value(t, m, models.ColMileage, 0)
	assert.Equal(t, fitMedian, got)
	assert.NotEqual(t, 0.0, got)
	assert.NotEqual(t, 10.0, got, "batch median must not be used")
}

func TestTransformImputesMissingTextFields(t *testing.T) {
	tr := fitted(t, 1)
	r := car("Maruti Swift", 2015)
	r.Engine = ""
	r.MaxPower = "bhp"
	r.Torque = ""
	r.Seats = nil

	m, err := tr.Transform([]models.CarRecord{r})
	require.NoError(t, err)

	stats := tr.Statistics()
	for _, col := range []string{models.ColMaxPower, models.ColTorque, ColMaxTorqueRPM} {
		want, _ := stats.Median(col)
		assert.Equal(t, want, value(t, m, col, 0), col)
	}
	assert.Equal(t, 1248.0, value(t, m, models.ColEngine, 0))
	assert.Equal(t, 5.0, value(t, m, models.ColSeats, 0))
}

func TestTransformTruncatesSeatsAndEngine(t *testing.T) {
	tr := fitted(t, 1)
	var batch []models.CarRecord
	for _, s := range []float64{5.0, 5.4, 5.5, 5.9} {
		r := car("Maruti Swift", 2015)
		r.Seats = seats(s)
		r.Engine = "1248.7 CC"
		batch = append(batch, r)
	}

	m, err := tr.Transform(batch)
	require.NoError(t, err)

	got, _ := m.Column(models.ColSeats)
	assert.Equal(t, []float64{5, 5, 5, 5}, got)
	engines, _ := m.Column(models.ColEngine)
	assert.Equal(t, []float64{1248, 1248, 1248, 1248}, engines)
}

func TestTransformDerivedFeatures(t *testing.T) {
	tr := fitted(t, 1)
	r := car("Maruti Swift", 2014)
	r.Engine = "1200 CC"
	r.MaxPower = "88 bhp"
	r.KmDriven = 50000
	r.Owner = "Test Drive Car"

	m, err := tr.Transform([]models.CarRecord{r})
	require.NoError(t, err)

	assert.Equal(t, 88.0/1200.0, value(t, m, ColPowerPerLitre, 0))
	assert.Equal(t, 5000.0, value(t, m, ColKmPerYear, 0))
	assert.Equal(t, 0.0, value(t, m, ColIsFirstOwner, 0))
	assert.Equal(t, 1.0, value(t, m, ColIsTestDriveCar, 0))
	assert.Equal(t, 190.0, value(t, m, models.ColTorque, 0))
	assert.Equal(t, 2000.0, value(t, m, ColMaxTorqueRPM, 0))
}

func TestTransformReferenceYearDoesNotDivideByZero(t *testing.T) {
	tr := fitted(t, 1)
	current := car("Maruti Swift", ReferenceYear)
	current.KmDriven = 12000
	future := car("Maruti Swift", ReferenceYear+1)
	future.KmDriven = 3000

	m, err := tr.Transform([]models.CarRecord{current, future})
	require.NoError(t, err)

	got, _ := m.Column(ColKmPerYear)
	assert.Equal(t, []float64{12000, 3000}, got)
}

func TestPowerPerLitreZeroEngine(t *testing.T) {
	assert.Equal(t, 0.0, powerPerLitre(88, 0))
	assert.Equal(t, 0.0, powerPerLitre(88, -5))
}

func TestTransformIsDeterministic(t *testing.T) {
	tr := fitted(t, 3)
	batch := referenceSet()
	batch[0].Mileage = ""
	batch[2].Torque = "garbage"

	first, err := tr.Transform(batch)
	require.NoError(t, err)
	second, err := tr.Transform(batch)
	require.NoError(t, err)
	assert.True(t, first.Equal(second))
}

func TestTransformDoesNotMutateState(t *testing.T) {
	tr := fitted(t, 3)
	before := tr.Statistics().Medians()
	batch := []models.CarRecord{car("Kia Seltos", 2021)}
	batch[0].Mileage = "1.0 kmpl"

	_, err := tr.Transform(batch)
	require.NoError(t, err)

	assert.Equal(t, before, tr.Statistics().Medians())
	assert.Equal(t, "1.0 kmpl", batch[0].Mileage)
}

func TestTransformEmptyBatch(t *testing.T) {
	tr := fitted(t, 1)
	m, err := tr.Transform(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Rows())
	col, ok := m.Column(models.ColYear)
	assert.True(t, ok)
	assert.Empty(t, col)
}

func TestNewFittedStatisticsRequiresEveryMedian(t *testing.T) {
	stats, err := Fit(referenceSet(), 2)
	require.NoError(t, err)

	rebuilt, err := NewFittedStatistics(2, ReferenceYear, stats.Medians(), stats.BrandCounts())
	require.NoError(t, err)
	assert.Equal(t, stats.Medians(), rebuilt.Medians())

	medians := stats.Medians()
	delete(medians, ColMaxTorqueRPM)
	_, err = NewFittedStatistics(2, ReferenceYear, medians, stats.BrandCounts())
	var degenerate *DegenerateColumnError
	require.ErrorAs(t, err, &degenerate)
	assert.Equal(t, ColMaxTorqueRPM, degenerate.Column)
}
