package regressor

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/mat"

	"carprice/features"
)

var (
	ErrNoCoefficients = errors.New("regressor: model has no numeric coefficients")
	ErrMissingColumn  = errors.New("regressor: feature matrix is missing a model column")
	ErrNonFinite      = errors.New("regressor: non-finite feature value")
)

// LinearModel scores rows as intercept + numeric weights + one-hot category
// weights. Categories without a weight contribute nothing. With LogTarget
// the linear score is a log price and Predict returns exp(score).
type LinearModel struct {
	Intercept   float64
	Numeric     map[string]float64
	Categorical map[string]map[string]float64
	LogTarget   bool
}

// Validate checks the model can score anything at all.
func (l *LinearModel) Validate() error {
	if len(l.Numeric) == 0 {
		return ErrNoCoefficients
	}
	for col, w := range l.Numeric {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("regressor: coefficient %q is not finite", col)
		}
	}
	return nil
}

// Columns returns the columns the model reads, numeric first, each block sorted.
func (l *LinearModel) Columns() []string {
	num := l.numericOrder()
	cat := make([]string, 0, len(l.Categorical))
	for col := range l.Categorical {
		cat = append(cat, col)
	}
	sort.Strings(cat)
	return append(num, cat...)
}

func (l *LinearModel) numericOrder() []string {
	cols := make([]string, 0, len(l.Numeric))
	for col := range l.Numeric {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

// Predict implements Regressor.
func (l *LinearModel) Predict(m *features.FeatureMatrix) ([]float64, error) {
	if err := l.Validate(); err != nil {
		return nil, &InferenceError{Err: err}
	}
	if err := l.checkColumns(m); err != nil {
		return nil, err
	}

	n := m.Rows()
	if n == 0 {
		return []float64{}, nil
	}

	cols := l.numericOrder()
	x := mat.NewDense(n, len(cols), nil)
	weights := make([]float64, len(cols))
	for j, col := range cols {
		vals, _ := m.Column(col)
		for i, v := range vals {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &InferenceError{
					Err: fmt.Errorf("%w: column %q row %d", ErrNonFinite, col, i),
				}
			}
			x.Set(i, j, v)
		}
		weights[j] = l.Numeric[col]
	}

	var y mat.VecDense
	y.MulVec(x, mat.NewVecDense(len(weights), weights))

	out := make([]float64, n)
	for i := range out {
		out[i] = l.Intercept + y.AtVec(i)
	}
	for col, levels := range l.Categorical {
		vals, _ := m.Category(col)
		for i, v := range vals {
			out[i] += levels[v]
		}
	}
	if l.LogTarget {
		for i := range out {
			out[i] = math.Exp(out[i])
		}
	}
	return out, nil
}

func (l *LinearModel) checkColumns(m *features.FeatureMatrix) error {
	for _, col := range l.numericOrder() {
		if !slices.Contains(m.NumericColumns, col) {
			return l.columnError(m, col)
		}
	}
	for col := range l.Categorical {
		if !slices.Contains(m.CategoricalColumns, col) {
			return l.columnError(m, col)
		}
	}
	return nil
}

func (l *LinearModel) columnError(m *features.FeatureMatrix, col string) error {
	return &InferenceError{
		Expected: l.Columns(),
		Actual:   m.Columns(),
		Err:      fmt.Errorf("%w: %q", ErrMissingColumn, col),
	}
}
