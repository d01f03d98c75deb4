package services

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	"carprice/features"
	"carprice/models"
	"carprice/utils"
)

// PricedCar is one predicted row in a report.
type PricedCar struct {
	Name  string
	Year  int
	Price float64
}

// PredictionReport summarises a predicted table.
type PredictionReport struct {
	Source        string
	TotalRows     int
	PredictedRows int
	DroppedRows   int
	AveragePrice  float64
	MinPrice      float64
	MaxPrice      float64
	MostExpensive *PricedCar
	TopPriced     []PricedCar
	RowsByBrand   map[string]int
}

type ReportService struct {
	logger *utils.Logger
	out    io.Writer
}

func NewReportService(logger *utils.Logger) *ReportService {
	return &ReportService{logger: logger, out: os.Stdout}
}

// SetOutput redirects Print, which writes to stdout by default.
func (s *ReportService) SetOutput(w io.Writer) { s.out = w }

func (s *ReportService) Generate(source string, t *models.PredictedTable) *PredictionReport {
	report := &PredictionReport{
		Source:      source,
		RowsByBrand: make(map[string]int),
	}
	if t == nil {
		return report
	}

	report.PredictedRows = len(t.Predictions)
	report.DroppedRows = len(t.Dropped)
	report.TotalRows = report.PredictedRows + report.DroppedRows
	if report.PredictedRows == 0 {
		return report
	}

	cars := make([]PricedCar, 0, len(t.Predictions))
	var total float64
	maxIdx := 0
	for i, p := range t.Predictions {
		rec := t.Records[i]
		cars = append(cars, PricedCar{Name: rec.Name, Year: rec.Year, Price: p})
		total += p

		if i == 0 || p < report.MinPrice {
			report.MinPrice = p
		}
		if i == 0 || p > report.MaxPrice {
			report.MaxPrice = p
			maxIdx = i
		}
		if brand := features.BrandToken(rec.Name); brand != "" {
			report.RowsByBrand[brand]++
		}
	}
	mostExpensive := cars[maxIdx]
	report.MostExpensive = &mostExpensive
	report.AveragePrice = round2(total / float64(len(cars)))
	report.MinPrice = round2(report.MinPrice)
	report.MaxPrice = round2(report.MaxPrice)

	// Top 5 by predicted price
	sort.SliceStable(cars, func(i, j int) bool {
		return cars[i].Price > cars[j].Price
	})
	if len(cars) > 5 {
		cars = cars[:5]
	}
	report.TopPriced = cars

	s.logger.Debug("[report] %s: %d predicted, %d dropped, average %.2f",
		source, report.PredictedRows, report.DroppedRows, report.AveragePrice)
	return report
}

// GenerateStored builds the report from rows read back from the prediction
// store. dropped is the number of input rows that never reached the store.
func (s *ReportService) GenerateStored(source string, rows []*models.StoredPrediction, dropped int) *PredictionReport {
	t := &models.PredictedTable{
		Records:     make([]models.CarRecord, 0, len(rows)),
		Predictions: make([]float64, 0, len(rows)),
		Dropped:     make([]models.DroppedRow, dropped),
	}
	for _, p := range rows {
		t.Records = append(t.Records, models.CarRecord{
			Name:         p.Name,
			Year:         p.Year,
			KmDriven:     p.KmDriven,
			Fuel:         p.Fuel,
			SellerType:   p.SellerType,
			Transmission: p.Transmission,
			Owner:        p.Owner,
		})
		t.Predictions = append(t.Predictions, p.PredictedPrice)
		t.SourceRows = append(t.SourceRows, p.Row)
	}
	return s.Generate(source, t)
}

func (s *ReportService) Print(r *PredictionReport) {
	w := s.out
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  PRICE PREDICTIONS — %s\033[0m\n", truncate(r.Source, 30))
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Rows read      : \033[1m%d\033[0m\n", r.TotalRows)
	fmt.Fprintf(w, "  Rows predicted : \033[1m%d\033[0m\n", r.PredictedRows)
	fmt.Fprintf(w, "  Rows dropped   : \033[1m%d\033[0m\n", r.DroppedRows)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Predicted Price Statistics\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.PredictedRows > 0 {
		fmt.Fprintf(w, "  Average : \033[1;32m%.2f\033[0m\n", r.AveragePrice)
		fmt.Fprintf(w, "  Minimum : \033[1;32m%.2f\033[0m\n", r.MinPrice)
		fmt.Fprintf(w, "  Maximum : \033[1;32m%.2f\033[0m\n", r.MaxPrice)
	} else {
		fmt.Fprintf(w, "  No predictions available\n")
	}
	fmt.Fprintln(w)

	if r.MostExpensive != nil {
		fmt.Fprintf(w, "\033[1;33m  Most Expensive Car\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s (%d)\n", truncate(r.MostExpensive.Name, 44), r.MostExpensive.Year)
		fmt.Fprintf(w, "  Price : \033[1;31m%.2f\033[0m\n", r.MostExpensive.Price)
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\033[1;33m  Top 5 Predicted Prices\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.TopPriced) == 0 {
		fmt.Fprintf(w, "  No predicted rows\n")
	} else {
		for i, c := range r.TopPriced {
			fmt.Fprintf(w, "  \033[1m%d.\033[0m %-38s \033[1;32m%12.2f\033[0m\n",
				i+1, truncate(c.Name, 36), c.Price)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Rows by Brand\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.RowsByBrand) == 0 {
		fmt.Fprintf(w, "  No brand data\n")
	} else {
		type brandCount struct {
			brand string
			count int
		}
		var brands []brandCount
		for b, n := range r.RowsByBrand {
			brands = append(brands, brandCount{b, n})
		}
		sort.Slice(brands, func(i, j int) bool {
			if brands[i].count != brands[j].count {
				return brands[i].count > brands[j].count
			}
			return brands[i].brand < brands[j].brand
		})
		for _, bc := range brands {
			bar := strings.Repeat("█", min(bc.count, 40))
			fmt.Fprintf(w, "  %-20s %s (%d)\n", truncate(bc.brand, 18), bar, bc.count)
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
