package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carprice/models"
)

func predictedTable() *models.PredictedTable {
	return &models.PredictedTable{
		Header: []string{"name", "year", "predicted_price"},
		Rows: [][]string{
			{"Maruti Swift", "2014", "450000.5"},
			{"Honda City, ZX", "2016", "650000"},
		},
		Records: []models.CarRecord{
			{Name: "Maruti Swift", Year: 2014, KmDriven: 145500, Fuel: "Diesel", SellerType: "Individual", Transmission: "Manual", Owner: "First Owner"},
			{Name: "Honda City, ZX", Year: 2016, KmDriven: 60000, Fuel: "Petrol", SellerType: "Dealer", Transmission: "Automatic", Owner: "Second Owner"},
		},
		SourceRows:  []int{0, 3},
		Predictions: []float64{450000.5, 650000},
	}
}

func TestCSVWriterFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "cars_predicted.csv")
	w, err := NewCSVWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteTable(predictedTable()))
	require.NoError(t, w.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"name,year,predicted_price\nMaruti Swift,2014,450000.5\n\"Honda City, ZX\",2016,650000\n",
		string(raw))
}

func TestCSVStreamWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewCSVStreamWriter(&buf)
	require.NoError(t, w.WriteTable(&models.PredictedTable{Header: []string{"name", "predicted_price"}}))
	require.NoError(t, w.Close())
	assert.Equal(t, "name,predicted_price\n", buf.String())
}
