package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carprice/models"
)

func TestParseIntAcceptsIntegralFloats(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"2014", 2014, false},
		{"2014.0", 2014, false},
		{"145500", 145500, false},
		{"2014.5", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := parseInt(tt.raw)
		if tt.wantErr {
			assert.Error(t, err, "parseInt(%q)", tt.raw)
			continue
		}
		require.NoError(t, err, "parseInt(%q)", tt.raw)
		assert.Equal(t, tt.want, got, "parseInt(%q)", tt.raw)
	}
}

func TestNormaliseText(t *testing.T) {
	assert.Equal(t, "Maruti Swift Dzire VDI", normaliseText("  Maruti   Swift\tDzire VDI "))
	assert.Equal(t, "", normaliseText("   "))
}

func TestParseRow(t *testing.T) {
	logger, _ := newTestLogger()
	p := NewRecordParser(logger)
	table := &models.RawTable{Header: tableHeader()}

	rec, err := p.ParseRow(table.Index(), []string{
		" Maruti  Swift ", "2014.0", "450000", "145500", "Petrol", "Individual", "Manual",
		"First Owner", "23.4 kmpl", "1248 CC", "74 bhp", "190Nm@ 2000rpm", "5",
	}, 0)
	require.NoError(t, err)

	assert.Equal(t, "Maruti Swift", rec.Name)
	assert.Equal(t, 2014, rec.Year)
	assert.Equal(t, 145500, rec.KmDriven)
	assert.Equal(t, "23.4 kmpl", rec.Mileage)
	require.NotNil(t, rec.Seats)
	assert.Equal(t, 5.0, *rec.Seats)
	require.NotNil(t, rec.SellingPrice)
	assert.Equal(t, 450000.0, *rec.SellingPrice)
}

func TestParseRowMissingRequiredCell(t *testing.T) {
	logger, _ := newTestLogger()
	p := NewRecordParser(logger)
	idx := (&models.RawTable{Header: tableHeader()}).Index()

	_, err := p.ParseRow(idx, []string{
		"Maruti Swift", "2014", "", "145500", "Petrol", "Individual", "Manual",
		"First Owner", "23.4 kmpl", "1248 CC", "  ", "190Nm@ 2000rpm", "5",
	}, 7)

	var mre *models.MalformedRecordError
	require.ErrorAs(t, err, &mre)
	assert.Equal(t, 7, mre.Row)
	assert.Equal(t, models.ColMaxPower, mre.Field)
}

func TestParseRowShortRow(t *testing.T) {
	logger, _ := newTestLogger()
	p := NewRecordParser(logger)
	idx := (&models.RawTable{Header: tableHeader()}).Index()

	_, err := p.ParseRow(idx, []string{"Maruti Swift", "2014"}, 2)
	var mre *models.MalformedRecordError
	assert.ErrorAs(t, err, &mre)
}

func TestParseColumnOrderIndependent(t *testing.T) {
	logger, _ := newTestLogger()
	p := NewRecordParser(logger)
	table := &models.RawTable{
		Header: []string{
			"seats", "torque", "max_power", "engine", "mileage", "owner",
			"transmission", "seller_type", "fuel", "km_driven", "year", "name",
		},
		Rows: [][]string{
			{"7", "200Nm@ 1750rpm", "100 bhp", "1498 CC", "18 kmpl", "Second Owner",
				"Automatic", "Dealer", "Diesel", "30000", "2018", "Toyota Innova"},
		},
	}

	parsed, err := p.Parse(table)
	require.NoError(t, err)
	require.Len(t, parsed.Records, 1)
	rec := parsed.Records[0]
	assert.Equal(t, "Toyota Innova", rec.Name)
	assert.Equal(t, 2018, rec.Year)
	assert.Equal(t, "Automatic", rec.Transmission)
	assert.Nil(t, rec.SellingPrice)
}

func TestParseDropsAndLogs(t *testing.T) {
	logger, buf := newTestLogger()
	p := NewRecordParser(logger)
	table := &models.RawTable{
		Header: tableHeader(),
		Rows: [][]string{
			{"Maruti Swift", "2014", "", "145500", "Petrol", "Individual", "Manual", "First Owner", "23.4 kmpl", "1248 CC", "74 bhp", "190Nm@ 2000rpm", "5"},
			{"Tata Nano", "2012", "", "40000", "Petrol", "Individual", "Manual", "First Owner", "", "624 CC", "37 bhp", "51Nm@ 4000rpm", "4"},
			{"Hyundai i20", "2016", "", "60000", "Diesel", "Dealer", "Manual", "Second Owner", "22 kmpl", "1396 CC", "90 bhp", "220Nm", "five"},
		},
	}

	parsed, err := p.Parse(table)
	require.NoError(t, err)
	assert.Len(t, parsed.Records, 1)
	assert.Equal(t, []int{0}, parsed.SourceRows)
	require.Len(t, parsed.Dropped, 2)
	assert.Contains(t, parsed.Dropped[0].Reason, "mileage")
	assert.Contains(t, parsed.Dropped[1].Reason, "seats")
	assert.Contains(t, buf.String(), "Parsed 3 → 1 records (dropped 2)")
}

func TestParseMissingColumns(t *testing.T) {
	logger, _ := newTestLogger()
	p := NewRecordParser(logger)

	_, err := p.Parse(&models.RawTable{Header: []string{"name", "year"}})
	var mce *MissingColumnError
	require.ErrorAs(t, err, &mce)
	assert.Len(t, mce.Columns, len(models.RequiredColumns)-2)
	assert.Contains(t, err.Error(), "km_driven")
}

func TestParseReferenceKeepsMissingUnits(t *testing.T) {
	logger, _ := newTestLogger()
	p := NewRecordParser(logger)
	table := &models.RawTable{
		Header: tableHeader(),
		Rows: [][]string{
			{"Tata Nano", "2012", "", "40000", "Petrol", "Individual", "Manual", "First Owner", "", "", "", "", ""},
			{"", "2012", "", "40000", "Petrol", "Individual", "Manual", "First Owner", "", "", "", "", ""},
		},
	}

	parsed, err := p.ParseReference(table)
	require.NoError(t, err)
	require.Len(t, parsed.Records, 1)
	assert.Nil(t, parsed.Records[0].Seats)
	assert.Equal(t, "", parsed.Records[0].Mileage)
	require.Len(t, parsed.Dropped, 1)
	assert.Equal(t, 1, parsed.Dropped[0].Row)

	strict, err := p.Parse(table)
	require.NoError(t, err)
	assert.Empty(t, strict.Records)
}

func TestParseRowRejectsNonFiniteNumbers(t *testing.T) {
	logger, _ := newTestLogger()
	p := NewRecordParser(logger)
	idx := (&models.RawTable{Header: tableHeader()}).Index()

	tests := []struct {
		name  string
		price string
		seats string
		field string
	}{
		{"seats inf", "", "inf", models.ColSeats},
		{"seats Infinity", "", "Infinity", models.ColSeats},
		{"seats +Inf", "", "+Inf", models.ColSeats},
		{"seats NaN", "", "NaN", models.ColSeats},
		{"price -inf", "-inf", "5", models.ColSellingPrice},
		{"price text", "lakh", "5", models.ColSellingPrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.ParseRow(idx, []string{
				"Maruti Swift", "2014", tt.price, "145500", "Petrol", "Individual", "Manual",
				"First Owner", "23.4 kmpl", "1248 CC", "74 bhp", "190Nm@ 2000rpm", tt.seats,
			}, 4)
			var mre *models.MalformedRecordError
			require.ErrorAs(t, err, &mre)
			assert.Equal(t, 4, mre.Row)
			assert.Equal(t, tt.field, mre.Field)
		})
	}
}

func TestParseDropsRejectedRows(t *testing.T) {
	logger, buf := newTestLogger()
	p := NewRecordParser(logger)
	table := &models.RawTable{
		Header: tableHeader(),
		Rows: [][]string{
			{"Maruti Swift", "2014", "", "145500", "Petrol", "Individual", "Manual", "First Owner", "23.4 kmpl", "1248 CC", "74 bhp", "190Nm@ 2000rpm", "5"},
			make([]string, len(tableHeader())),
		},
		Rejected: map[int]string{1: "14 fields, header has 13"},
	}

	parsed, err := p.Parse(table)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, parsed.SourceRows)
	require.Len(t, parsed.Dropped, 1)
	assert.Equal(t, 1, parsed.Dropped[0].Row)
	assert.Contains(t, parsed.Dropped[0].Reason, "14 fields")
	assert.Contains(t, buf.String(), "Dropping row 1")
}
