package services

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"carprice/features"
	"carprice/models"
	"carprice/regressor"
	"carprice/utils"
)

// Request paths reported to the Observer.
const (
	PathItem  = "item"
	PathItems = "items"
	PathTable = "table"
)

// Observer receives prediction outcomes, typically to export metrics.
type Observer interface {
	ObservePrediction(path string, rows int, elapsed time.Duration)
	ObserveDropped(rows int)
	ObserveFailure(path string, err error)
}

// Option customises a PredictionService.
type Option func(*PredictionService)

// WithObserver attaches an Observer.
func WithObserver(o Observer) Option {
	return func(s *PredictionService) { s.observer = o }
}

// PredictionService applies a fitted transformer and a regressor to single
// records, batches and tables. It holds no mutable state, so one instance
// serves concurrent requests.
type PredictionService struct {
	transformer *features.Transformer
	model       regressor.Regressor
	parser      *RecordParser
	validate    *validator.Validate
	logger      *utils.Logger
	observer    Observer
}

// NewPredictionService wires a fitted transformer to a regressor. An
// unfitted transformer is a configuration bug and fails with
// features.ErrNotFitted.
func NewPredictionService(t *features.Transformer, model regressor.Regressor, logger *utils.Logger, opts ...Option) (*PredictionService, error) {
	if t == nil || !t.Fitted() {
		return nil, features.ErrNotFitted
	}
	if model == nil {
		return nil, ErrNoModel
	}

	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	s := &PredictionService{
		transformer: t,
		model:       model,
		parser:      NewRecordParser(logger),
		validate:    v,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// PredictOne returns the price of a single record.
func (s *PredictionService) PredictOne(rec models.CarRecord) (float64, error) {
	if err := s.validateRecord(0, rec); err != nil {
		s.fail(PathItem, err)
		return 0, err
	}
	prices, err := s.predict(PathItem, []models.CarRecord{rec.WithoutLabel()})
	if err != nil {
		return 0, err
	}
	return prices[0], nil
}

// PredictMany returns one price per record, in input order. A malformed
// record rejects the whole batch so positions never shift.
func (s *PredictionService) PredictMany(recs []models.CarRecord) ([]float64, error) {
	stripped := make([]models.CarRecord, len(recs))
	for i, r := range recs {
		if err := s.validateRecord(i, r); err != nil {
			s.fail(PathItems, err)
			return nil, err
		}
		stripped[i] = r.WithoutLabel()
	}
	if len(stripped) == 0 {
		return []float64{}, nil
	}
	return s.predict(PathItems, stripped)
}

// PredictFromTabularInput parses a raw table, drops incomplete or malformed
// rows, predicts the rest in one pass and returns the kept rows with a
// predicted_price column appended.
func (s *PredictionService) PredictFromTabularInput(table *models.RawTable) (*models.PredictedTable, error) {
	parsed, err := s.parser.Parse(table)
	if err != nil {
		s.fail(PathTable, err)
		return nil, err
	}

	out := &models.PredictedTable{
		Header:  append(append([]string(nil), table.Header...), models.ColPredictedPrice),
		Dropped: parsed.Dropped,
	}
	for i, rec := range parsed.Records {
		row := parsed.SourceRows[i]
		if err := s.validateRecord(row, rec); err != nil {
			s.logger.Warn("[service] Dropping row %d: %v", row, err)
			out.Dropped = append(out.Dropped, models.DroppedRow{Row: row, Reason: err.Error()})
			continue
		}
		out.Records = append(out.Records, rec.WithoutLabel())
		out.SourceRows = append(out.SourceRows, row)
	}
	if s.observer != nil && len(out.Dropped) > 0 {
		s.observer.ObserveDropped(len(out.Dropped))
	}

	if len(out.Records) == 0 {
		s.logger.Warn("[service] No complete rows in table of %d", len(table.Rows))
		out.Predictions = []float64{}
		return out, nil
	}

	prices, err := s.predict(PathTable, out.Records)
	if err != nil {
		return nil, err
	}
	out.Predictions = prices
	out.Rows = make([][]string, len(prices))
	for i, p := range prices {
		src := table.Rows[out.SourceRows[i]]
		row := make([]string, len(table.Header), len(table.Header)+1)
		copy(row, src)
		out.Rows[i] = append(row, strconv.FormatFloat(p, 'f', -1, 64))
	}
	return out, nil
}

func (s *PredictionService) predict(path string, recs []models.CarRecord) ([]float64, error) {
	start := time.Now()

	m, err := s.transformer.Transform(recs)
	if err != nil {
		s.fail(path, err)
		return nil, fmt.Errorf("transform: %w", err)
	}
	prices, err := s.model.Predict(m)
	if err != nil {
		s.fail(path, err)
		return nil, fmt.Errorf("predict: %w", err)
	}
	if len(prices) != len(recs) {
		err := &regressor.InferenceError{
			Err: fmt.Errorf("model returned %d predictions for %d rows", len(prices), len(recs)),
		}
		s.fail(path, err)
		return nil, err
	}

	elapsed := time.Since(start)
	s.logger.Debug("[service] Predicted %d %s row(s) in %v", len(prices), path, elapsed)
	if s.observer != nil {
		s.observer.ObservePrediction(path, len(prices), elapsed)
	}
	return prices, nil
}

func (s *PredictionService) validateRecord(row int, rec models.CarRecord) error {
	err := s.validate.Struct(rec)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &models.MalformedRecordError{
			Row:    row,
			Field:  fe.Field(),
			Reason: fmt.Sprintf("failed %q validation", fe.Tag()),
		}
	}
	return &models.MalformedRecordError{Row: row, Reason: err.Error()}
}

func (s *PredictionService) fail(path string, err error) {
	s.logger.Warn("[service] %s prediction failed: %v", path, err)
	if s.observer != nil {
		s.observer.ObserveFailure(path, err)
	}
}
