// Package regressor defines the price model contract and a linear
// implementation of it.
package regressor

import (
	"fmt"
	"strings"

	"carprice/features"
)

// Regressor predicts one price per row of a feature matrix, in row order.
type Regressor interface {
	Predict(m *features.FeatureMatrix) ([]float64, error)
}

// InferenceError reports a feature matrix the model cannot score.
type InferenceError struct {
	Expected []string
	Actual   []string
	Err      error
}

func (e *InferenceError) Error() string {
	var b strings.Builder
	b.WriteString("regressor: inference failed")
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if len(e.Expected) > 0 {
		fmt.Fprintf(&b, " (expected columns [%s], got [%s])",
			strings.Join(e.Expected, ", "), strings.Join(e.Actual, ", "))
	}
	return b.String()
}

func (e *InferenceError) Unwrap() error { return e.Err }
