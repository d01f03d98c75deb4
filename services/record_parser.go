package services

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"carprice/models"
	"carprice/utils"
)

// RecordParser turns raw table rows into CarRecords.
type RecordParser struct {
	logger *utils.Logger
}

// NewRecordParser creates a RecordParser with the given logger.
func NewRecordParser(logger *utils.Logger) *RecordParser {
	return &RecordParser{logger: logger}
}

// ParsedRows holds the rows that survived parsing next to their records.
type ParsedRows struct {
	Records    []models.CarRecord
	SourceRows []int
	Dropped    []models.DroppedRow
}

// referenceColumns must be filled for a row to serve as reference data.
var referenceColumns = []string{
	models.ColName, models.ColYear, models.ColKmDriven, models.ColFuel,
	models.ColSellerType, models.ColTransmission, models.ColOwner,
}

// Parse converts every row of the table. Rows with an empty required cell or
// an unparseable number are dropped and reported; the rest keep input order.
// A header missing a required column fails the whole table.
func (p *RecordParser) Parse(table *models.RawTable) (*ParsedRows, error) {
	return p.parse(table, models.RequiredColumns)
}

// ParseReference is Parse for fit-time data: empty unit-suffixed cells and
// seats are kept as missing values for the transformer to handle.
func (p *RecordParser) ParseReference(table *models.RawTable) (*ParsedRows, error) {
	return p.parse(table, referenceColumns)
}

func (p *RecordParser) parse(table *models.RawTable, required []string) (*ParsedRows, error) {
	idx := table.Index()
	var missing []string
	for _, col := range models.RequiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnError{Columns: missing}
	}

	out := &ParsedRows{
		Records:    make([]models.CarRecord, 0, len(table.Rows)),
		SourceRows: make([]int, 0, len(table.Rows)),
	}
	for i, row := range table.Rows {
		if reason, ok := table.Rejected[i]; ok {
			err := &models.MalformedRecordError{Row: i, Reason: reason}
			p.logger.Warn("[parser] Dropping row %d: %v", i, err)
			out.Dropped = append(out.Dropped, models.DroppedRow{Row: i, Reason: err.Error()})
			continue
		}
		rec, err := parseRow(idx, row, i, required)
		if err != nil {
			p.logger.Warn("[parser] Dropping row %d: %v", i, err)
			out.Dropped = append(out.Dropped, models.DroppedRow{Row: i, Reason: err.Error()})
			continue
		}
		out.Records = append(out.Records, rec)
		out.SourceRows = append(out.SourceRows, i)
	}

	p.logger.Info("[parser] Parsed %d → %d records (dropped %d)",
		len(table.Rows), len(out.Records), len(out.Dropped))
	return out, nil
}

// ParseRow converts one row. rowNum is only used in errors.
func (p *RecordParser) ParseRow(idx map[string]int, row []string, rowNum int) (models.CarRecord, error) {
	return parseRow(idx, row, rowNum, models.RequiredColumns)
}

func parseRow(idx map[string]int, row []string, rowNum int, required []string) (models.CarRecord, error) {
	var rec models.CarRecord

	get := func(col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	for _, col := range required {
		if get(col) == "" {
			return rec, &models.MalformedRecordError{Row: rowNum, Field: col, Reason: "missing value"}
		}
	}

	year, err := parseInt(get(models.ColYear))
	if err != nil {
		return rec, &models.MalformedRecordError{Row: rowNum, Field: models.ColYear, Reason: err.Error()}
	}
	km, err := parseInt(get(models.ColKmDriven))
	if err != nil {
		return rec, &models.MalformedRecordError{Row: rowNum, Field: models.ColKmDriven, Reason: err.Error()}
	}
	var seats *float64
	if raw := get(models.ColSeats); raw != "" {
		v, err := parseFinite(raw)
		if err != nil {
			return rec, &models.MalformedRecordError{Row: rowNum, Field: models.ColSeats, Reason: err.Error()}
		}
		seats = &v
	}

	rec = models.CarRecord{
		Name:         normaliseText(get(models.ColName)),
		Year:         year,
		KmDriven:     km,
		Fuel:         get(models.ColFuel),
		SellerType:   get(models.ColSellerType),
		Transmission: get(models.ColTransmission),
		Owner:        get(models.ColOwner),
		Mileage:      get(models.ColMileage),
		Engine:       get(models.ColEngine),
		MaxPower:     get(models.ColMaxPower),
		Torque:       get(models.ColTorque),
		Seats:        seats,
	}

	if raw := get(models.ColSellingPrice); raw != "" {
		price, err := parseFinite(raw)
		if err != nil {
			return rec, &models.MalformedRecordError{Row: rowNum, Field: models.ColSellingPrice, Reason: err.Error()}
		}
		rec.SellingPrice = &price
	}
	return rec, nil
}

// parseFinite rejects "inf", "NaN" and friends, which ParseFloat accepts.
func parseFinite(raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", raw)
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("%q is not a finite number", raw)
	}
	return v, nil
}

// parseInt accepts plain integers and integral floats such as "2014.0",
// which spreadsheet exports commonly produce.
func parseInt(raw string) (int, error) {
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("%q is not an integer", raw)
	}
	return int(f), nil
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
