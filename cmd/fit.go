package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"carprice/features"
	"carprice/services"
	"carprice/storage"
	"carprice/tabular"
)

func newFitCmd(configPath *string) *cobra.Command {
	var (
		trainPath     string
		artifactPath  string
		brandMinCount int
	)

	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit transformer statistics from reference data",
		Long: `The fit command computes imputation medians and the brand frequency table from a
reference CSV or XLSX file and writes them to the pipeline artifact. An existing
model section in the artifact is kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			if artifactPath != "" {
				a.cfg.ArtifactPath = artifactPath
			}
			if cmd.Flags().Changed("brand-min-count") {
				a.cfg.BrandMinCount = brandMinCount
			}
			return a.fit(trainPath)
		},
	}
	cmd.Flags().StringVar(&trainPath, "train", "", "reference data file (CSV or XLSX)")
	cmd.Flags().StringVar(&artifactPath, "artifact", "", "artifact path (overrides artifact_path)")
	cmd.Flags().IntVar(&brandMinCount, "brand-min-count", features.DefaultBrandMinCount, "minimum brand frequency kept by the rollup")
	_ = cmd.MarkFlagRequired("train")
	return cmd
}

func (a *app) fit(trainPath string) error {
	f, err := os.Open(trainPath)
	if err != nil {
		return err
	}
	defer f.Close()

	table, err := tabular.Read(trainPath, f)
	if err != nil {
		return fmt.Errorf("%s: %w", trainPath, err)
	}
	parsed, err := services.NewRecordParser(a.logger).ParseReference(table)
	if err != nil {
		return fmt.Errorf("%s: %w", trainPath, err)
	}

	transformer := features.NewTransformer(nil)
	if err := transformer.Fit(parsed.Records, a.cfg.BrandMinCount); err != nil {
		return err
	}
	stats := transformer.Statistics()

	artifact, err := storage.ReadArtifact(a.cfg.ArtifactPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		artifact = &storage.Artifact{}
	case err != nil:
		return err
	}
	artifact.Transformer = storage.NewTransformerSection(stats)
	if err := storage.SaveArtifact(a.cfg.ArtifactPath, artifact); err != nil {
		return err
	}

	a.logger.Info("[fit] %d reference records, %d brands (%d above threshold %d) -> %s",
		len(parsed.Records), len(stats.KnownBrands()), countKept(stats), stats.BrandMinCount(), a.cfg.ArtifactPath)
	if artifact.Model == nil {
		a.logger.Warn("[fit] %s has no model section; predict and serve need one", a.cfg.ArtifactPath)
	}
	return nil
}

func countKept(stats *features.FittedStatistics) int {
	n := 0
	for _, b := range stats.KnownBrands() {
		if stats.RollupBrand(b) == b {
			n++
		}
	}
	return n
}
