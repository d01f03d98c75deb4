package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"carprice/models"
	"carprice/services"
	"carprice/storage"
	"carprice/tabular"
	"carprice/utils"
)

func newPredictCmd(configPath *string) *cobra.Command {
	var (
		outDir string
		quiet  bool
	)

	cmd := &cobra.Command{
		Use:   "predict FILE...",
		Short: "Predict prices for CSV or XLSX files",
		Long: `The predict command prices every complete row of each input file and writes
<out-dir>/<name>_predicted.csv with a trailing predicted_price column.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			if outDir != "" {
				a.cfg.OutputDir = outDir
			}

			reports, err := a.predictFiles(args)
			if !quiet {
				rs := services.NewReportService(a.logger)
				rs.SetOutput(cmd.OutOrStdout())
				for _, r := range reports {
					if r != nil {
						rs.Print(r)
					}
				}
			}
			return err
		},
	}
	cmd.Flags().StringVar(&outDir, "out-dir", "", "output directory (overrides output_dir)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "skip the summary report")
	return cmd
}

// predictFiles runs every file through the service on a bounded worker pool.
// Reports are returned in argument order; a failed file leaves a nil entry.
func (a *app) predictFiles(paths []string) ([]*services.PredictionReport, error) {
	svc, err := a.buildService(nil)
	if err != nil {
		return nil, err
	}
	pg, err := a.openStore()
	if err != nil {
		return nil, err
	}
	var store storage.PredictionStore
	if pg != nil {
		defer pg.Close()
		store = pg
	}
	return a.runPredictions(svc, store, paths)
}

func (a *app) runPredictions(svc *services.PredictionService, store storage.PredictionStore, paths []string) ([]*services.PredictionReport, error) {
	reporter := services.NewReportService(a.logger)
	reports := make([]*services.PredictionReport, len(paths))
	pool := utils.NewWorkerPool(a.cfg.MaxConcurrency, 0)
	for i, path := range paths {
		pool.Submit(func() error {
			out, err := a.predictFile(svc, path)
			if err != nil {
				a.logger.Error("[predict] %s: %v", path, err)
				return fmt.Errorf("%s: %w", path, err)
			}
			reports[i] = a.report(reporter, store, filepath.Base(path), out)
			return nil
		})
	}
	return reports, pool.Wait()
}

// report stores the predictions and builds the summary from the stored batch,
// falling back to the in-memory table when storage is off or fails.
func (a *app) report(reporter *services.ReportService, store storage.PredictionStore, source string, out *models.PredictedTable) *services.PredictionReport {
	if store == nil {
		return reporter.Generate(source, out)
	}
	batchID, err := store.WritePredictions(source, out)
	if err != nil {
		a.logger.Error("[predict] %s: storing predictions: %v", source, err)
		return reporter.Generate(source, out)
	}
	stored, err := store.FetchBatch(batchID)
	if err != nil {
		a.logger.Warn("[predict] %s: reading back batch %s failed, using in-memory rows: %v", source, batchID, err)
		return reporter.Generate(source, out)
	}
	a.logger.Info("[predict] %s: report built from %d stored rows (batch %s)", source, len(stored), batchID)
	return reporter.GenerateStored(source, stored, len(out.Dropped))
}

// predictFile predicts one file and writes its predicted CSV.
func (a *app) predictFile(svc *services.PredictionService, path string) (*models.PredictedTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	table, err := tabular.Read(path, f)
	if err != nil {
		return nil, err
	}
	out, err := svc.PredictFromTabularInput(table)
	if err != nil {
		return nil, err
	}

	dest := predictedPath(a.cfg.OutputDir, path)
	w, err := storage.NewCSVWriter(dest)
	if err != nil {
		return nil, err
	}
	if err := w.WriteTable(out); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	a.logger.Info("[predict] %s: %d rows priced, %d dropped -> %s",
		path, len(out.Predictions), len(out.Dropped), dest)
	return out, nil
}

// predictedPath maps data/cars.xlsx to <dir>/cars_predicted.csv.
func predictedPath(dir, input string) string {
	base := filepath.Base(input)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, name+"_predicted.csv")
}
