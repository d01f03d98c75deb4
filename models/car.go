package models

import "fmt"

// Column names of a car listing, as they appear in JSON bodies and table headers.
const (
	ColName         = "name"
	ColYear         = "year"
	ColSellingPrice = "selling_price"
	ColKmDriven     = "km_driven"
	ColFuel         = "fuel"
	ColSellerType   = "seller_type"
	ColTransmission = "transmission"
	ColOwner        = "owner"
	ColMileage      = "mileage"
	ColEngine       = "engine"
	ColMaxPower     = "max_power"
	ColTorque       = "torque"
	ColSeats        = "seats"

	// ColPredictedPrice is appended to every predicted table.
	ColPredictedPrice = "predicted_price"
)

// RequiredColumns lists every column a tabular input must carry.
// selling_price is the label and is never required.
var RequiredColumns = []string{
	ColName, ColYear, ColKmDriven, ColFuel, ColSellerType, ColTransmission,
	ColOwner, ColMileage, ColEngine, ColMaxPower, ColTorque, ColSeats,
}

// CarRecord is one used-car listing as received from a client.
// The unit-suffixed text fields may be empty; the transformer imputes them.
type CarRecord struct {
	Name         string   `json:"name" validate:"required"`
	Year         int      `json:"year" validate:"gt=1885"`
	SellingPrice *float64 `json:"selling_price,omitempty"`
	KmDriven     int      `json:"km_driven" validate:"gte=0"`
	Fuel         string   `json:"fuel" validate:"required"`
	SellerType   string   `json:"seller_type" validate:"required"`
	Transmission string   `json:"transmission" validate:"required"`
	Owner        string   `json:"owner" validate:"required"`
	Mileage      string   `json:"mileage"`
	Engine       string   `json:"engine"`
	MaxPower     string   `json:"max_power"`
	Torque       string   `json:"torque"`
	Seats        *float64 `json:"seats"`
}

// WithoutLabel returns a copy of the record with the selling price cleared.
func (r CarRecord) WithoutLabel() CarRecord {
	r.SellingPrice = nil
	return r
}

// RawTable holds unprocessed tabular input exactly as read from a file.
// Missing cells are empty strings.
type RawTable struct {
	Header []string
	Rows   [][]string
	// Rejected maps a row index to the reason the reader could not align it
	// with the header. The matching entry in Rows is a blank placeholder.
	Rejected map[int]string
}

// Index maps every header name to its column position.
func (t *RawTable) Index() map[string]int {
	idx := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	return idx
}

// DroppedRow records a table row excluded before prediction.
type DroppedRow struct {
	Row    int
	Reason string
}

// PredictedTable is a RawTable restricted to the rows that were predicted,
// with a trailing predicted_price column.
type PredictedTable struct {
	Header      []string
	Rows        [][]string
	Records     []CarRecord
	SourceRows  []int
	Predictions []float64
	Dropped     []DroppedRow
}

// MalformedRecordError reports a record that failed required-field parsing.
type MalformedRecordError struct {
	Row    int
	Field  string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("malformed record at row %d: %s", e.Row, e.Reason)
	}
	return fmt.Sprintf("malformed record at row %d: field %q: %s", e.Row, e.Field, e.Reason)
}
