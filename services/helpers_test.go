package services

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"carprice/features"
	"carprice/models"
	"carprice/regressor"
	"carprice/utils"
)

func newTestLogger() (*utils.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return utils.NewLoggerWithOptions(utils.LogOptions{Level: "debug", Output: &buf}), &buf
}

func fittedTransformer(t *testing.T) *features.Transformer {
	t.Helper()
	stats, err := features.NewFittedStatistics(2, features.ReferenceYear, map[string]float64{
		models.ColYear:           2015,
		models.ColKmDriven:       60000,
		models.ColMileage:        19.3,
		models.ColEngine:         1248,
		models.ColMaxPower:       82,
		models.ColTorque:         170,
		features.ColMaxTorqueRPM: 2500,
		models.ColSeats:          5,
	}, map[string]int{"Maruti": 10, "Hyundai": 4, "Tata": 1})
	require.NoError(t, err)
	return features.NewTransformer(stats)
}

func testModel() *regressor.LinearModel {
	return &regressor.LinearModel{
		Intercept: 100000,
		Numeric: map[string]float64{
			models.ColYear:     1000,
			models.ColMileage:  500,
			models.ColMaxPower: 2000,
		},
		Categorical: map[string]map[string]float64{
			features.ColBrand: {"Maruti": 20000, "Hyundai": 30000},
			models.ColFuel:    {"Diesel": 15000},
		},
	}
}

func car(name string, year int, fuel, mileage, power string) models.CarRecord {
	seats := 5.0
	return models.CarRecord{
		Name: name, Year: year, KmDriven: 50000,
		Fuel: fuel, SellerType: "Individual", Transmission: "Manual", Owner: "First Owner",
		Mileage: mileage, Engine: "1197 CC", MaxPower: power, Torque: "113Nm@ 4200rpm", Seats: &seats,
	}
}
