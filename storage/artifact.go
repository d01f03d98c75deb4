package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"carprice/features"
	"carprice/regressor"
)

// SupportedSchema is the only artifact schema_version this build reads.
const SupportedSchema = "v1"

// ModelKindLinear identifies a regressor.LinearModel in the artifact.
const ModelKindLinear = "linear"

// ErrNoModelSection is returned when an artifact carries fitted statistics
// but no model.
var ErrNoModelSection = errors.New("artifact: no model section")

// Artifact is the serialized pipeline: fitted transformer statistics plus
// the regressor coefficients.
type Artifact struct {
	SchemaVersion string             `yaml:"schema_version"`
	Transformer   TransformerSection `yaml:"transformer"`
	Model         *ModelSection      `yaml:"model,omitempty"`
}

// TransformerSection holds FittedStatistics.
type TransformerSection struct {
	BrandMinCount int                `yaml:"brand_min_count"`
	ReferenceYear int                `yaml:"reference_year"`
	Medians       map[string]float64 `yaml:"medians"`
	BrandCounts   map[string]int     `yaml:"brand_counts"`
}

// ModelSection holds the coefficients of a linear model.
type ModelSection struct {
	Kind        string                        `yaml:"kind"`
	Intercept   float64                       `yaml:"intercept"`
	LogTarget   bool                          `yaml:"log_target"`
	Numeric     map[string]float64            `yaml:"numeric"`
	Categorical map[string]map[string]float64 `yaml:"categorical,omitempty"`
}

// NewTransformerSection captures fitted statistics for serialization.
func NewTransformerSection(stats *features.FittedStatistics) TransformerSection {
	return TransformerSection{
		BrandMinCount: stats.BrandMinCount(),
		ReferenceYear: stats.ReferenceYear(),
		Medians:       stats.Medians(),
		BrandCounts:   stats.BrandCounts(),
	}
}

// Statistics rebuilds the fitted statistics of the section.
func (s TransformerSection) Statistics() (*features.FittedStatistics, error) {
	year := s.ReferenceYear
	if year == 0 {
		year = features.ReferenceYear
	}
	return features.NewFittedStatistics(s.BrandMinCount, year, s.Medians, s.BrandCounts)
}

// LinearModel returns the model described by the section.
func (m *ModelSection) LinearModel() (*regressor.LinearModel, error) {
	if m.Kind != "" && m.Kind != ModelKindLinear {
		return nil, fmt.Errorf("artifact: model kind %q not supported (want %q)", m.Kind, ModelKindLinear)
	}
	model := &regressor.LinearModel{
		Intercept:   m.Intercept,
		Numeric:     m.Numeric,
		Categorical: m.Categorical,
		LogTarget:   m.LogTarget,
	}
	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("artifact: %w", err)
	}
	return model, nil
}

// ReadArtifact parses an artifact file and validates schema_version.
func ReadArtifact(path string) (*Artifact, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var a Artifact
	if err := yaml.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("artifact %s: %w", path, err)
	}
	if a.SchemaVersion == "" {
		a.SchemaVersion = SupportedSchema
	}
	if a.SchemaVersion != SupportedSchema {
		return nil, fmt.Errorf("artifact schema_version %q not supported (want %q)", a.SchemaVersion, SupportedSchema)
	}
	return &a, nil
}

// LoadArtifact reads an artifact and returns a fitted transformer and its model.
func LoadArtifact(path string) (*features.Transformer, *regressor.LinearModel, error) {
	a, err := ReadArtifact(path)
	if err != nil {
		return nil, nil, err
	}
	stats, err := a.Transformer.Statistics()
	if err != nil {
		return nil, nil, fmt.Errorf("artifact %s: transformer: %w", path, err)
	}
	if a.Model == nil {
		return nil, nil, ErrNoModelSection
	}
	model, err := a.Model.LinearModel()
	if err != nil {
		return nil, nil, err
	}
	return features.NewTransformer(stats), model, nil
}

// SaveArtifact writes a to path, creating parent directories.
func SaveArtifact(path string, a *Artifact) error {
	if a.SchemaVersion == "" {
		a.SchemaVersion = SupportedSchema
	}
	raw, err := yaml.Marshal(a)
	if err != nil {
		return fmt.Errorf("artifact: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("artifact: create dir: %w", err)
	}
	return os.WriteFile(path, raw, 0644)
}
